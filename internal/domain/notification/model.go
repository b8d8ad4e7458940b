package notification

import (
	"errors"
	"fmt"
	"time"
)

// ErrStoreBusy marks transient storage contention (sqlite BUSY/locked,
// serialization failures). Callers skip the event and retry next cycle.
var ErrStoreBusy = errors.New("notification store is busy")

// Record is the dedup row: one per delivered (or claimed) notification.
// The UNIQUE constraint over the quadruple is the at-most-once guarantee;
// rows are inserted at claim time, before the send, and never updated.
type Record struct {
	ChatID    int64
	Provider  string
	EventID   string
	EventDay  string
	CreatedAt time.Time
}

func (r Record) Validate() error {
	if r.ChatID == 0 {
		return fmt.Errorf("notification chat id is required")
	}
	if r.Provider == "" {
		return fmt.Errorf("notification provider is required")
	}
	if r.EventID == "" {
		return fmt.Errorf("notification event id is required")
	}
	if len(r.EventDay) != 10 {
		return fmt.Errorf("notification event day %q is not YYYY-MM-DD", r.EventDay)
	}
	return nil
}
