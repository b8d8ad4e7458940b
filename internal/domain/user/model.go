package user

import (
	"fmt"
	"time"
)

const DefaultTimezone = "Europe/Helsinki"

// User is one Telegram chat the bot talks to.
type User struct {
	ChatID   int64
	Timezone string
}

func (u User) Validate() error {
	if u.ChatID == 0 {
		return fmt.Errorf("user chat id is required")
	}
	if u.Timezone == "" {
		return fmt.Errorf("user timezone is required")
	}
	return nil
}

// Location resolves the stored timezone, falling back to the default when
// the stored name no longer loads (tzdata drift).
func (u User) Location() *time.Location {
	if loc, err := time.LoadLocation(u.Timezone); err == nil {
		return loc
	}
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
