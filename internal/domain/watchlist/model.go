package watchlist

import (
	"fmt"
	"strings"
)

// Entry is one tracked player name for one chat and one local day.
// Label is what the user typed (normalized); ResolvedName is the provider's
// spelling once the engine has matched an event.
type Entry struct {
	ID               int64
	ChatID           int64
	Label            string
	ResolvedName     string
	Provider         string
	ProviderPlayerID string
	ExpiresOn        string
}

func (e Entry) Validate() error {
	if e.ChatID == 0 {
		return fmt.Errorf("watch entry chat id is required")
	}
	if strings.TrimSpace(e.Label) == "" {
		return fmt.Errorf("watch entry label is required")
	}
	if e.Provider == "" {
		return fmt.Errorf("watch entry provider is required")
	}
	if len(e.ExpiresOn) != 10 {
		return fmt.Errorf("watch entry expiry day %q is not YYYY-MM-DD", e.ExpiresOn)
	}
	return nil
}

// DisplayName prefers the provider's spelling over the user's label.
func (e Entry) DisplayName() string {
	if e.ResolvedName != "" {
		return e.ResolvedName
	}
	return e.Label
}

// NormalizeLabel lowercases and collapses whitespace so "  Novak  Djokovic "
// and "novak djokovic" are the same entry.
func NormalizeLabel(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
