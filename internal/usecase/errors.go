package usecase

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/riskibarqy/matchpoint/internal/domain/notification"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrStatsMissing: the provider answered but carried no statistics
	// section for the event. The card still goes out, all lines unavailable.
	ErrStatsMissing = errors.New("statistics missing for event")

	// ErrStoreBusy aliases the repository-level sentinel so services and
	// handlers match on one spelling.
	ErrStoreBusy = notification.ErrStoreBusy
)

// Log-side error codes, kept stable for alert routing. HTTP provider
// failures append the status: E_SOFASCORE_HTTP_403.
const (
	CodeProviderHTTPPrefix = "E_SOFASCORE_HTTP_"
	CodeParseStatsMissing  = "E_PARSE_STATS_MISSING"
	CodeNoEventsToday      = "E_NO_EVENTS_TODAY"
	CodeTelegramSend       = "E_TG_SEND"
	CodeStoreBusy          = "E_DB_LOCKED"
)

// ProviderHTTPError is a failed call to the match-data source. Status is
// zero when the failure happened before any HTTP status arrived (dial,
// deadline, undecodable payload).
type ProviderHTTPError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderHTTPError) Error() string {
	switch {
	case e.Status > 0 && e.Err != nil:
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.Status, e.Err)
	case e.Status > 0:
		return fmt.Sprintf("%s request failed with status %d", e.Provider, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s request failed", e.Provider)
	}
}

func (e *ProviderHTTPError) Unwrap() error { return e.Err }

// providerErrorCode renders the log code for a provider failure; an
// unknown status becomes the X suffix, mirroring the alert vocabulary.
func providerErrorCode(err error) string {
	var httpErr *ProviderHTTPError
	if errors.As(err, &httpErr) && httpErr.Status > 0 {
		return CodeProviderHTTPPrefix + strconv.Itoa(httpErr.Status)
	}
	return CodeProviderHTTPPrefix + "X"
}
