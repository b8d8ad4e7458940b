package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/matchpoint/internal/domain/match"
)

// MatchProvider is the engine-side view of the external match-data source.
// Implementations live under external/ (SofaScore today); the engine never
// sees raw provider JSON.
type MatchProvider interface {
	Name() string
	// FindTodayEvents returns events of the current local day whose
	// participants fuzzy-match playerName. Empty slice with nil error is
	// the normal "no events today" answer.
	FindTodayEvents(ctx context.Context, playerName string, loc *time.Location) ([]match.Event, error)
	// FetchStatistics returns the normalized statistics payload for one
	// event. A payload without a statistics section is ErrStatsMissing.
	FetchStatistics(ctx context.Context, providerEventID string) (ExternalMatchStats, error)
	// EventsByDate returns the full day schedule (tournament menus).
	EventsByDate(ctx context.Context, day string) ([]match.Event, error)
	// GroupTournaments groups day events into the tournament menu, filtered
	// and name-sorted.
	GroupTournaments(events []match.Event) []match.Tournament
}

// NotificationSink delivers rendered match cards.
type NotificationSink interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// ExternalMatchStats is the provider's statistics payload normalized to
// name → (home, away) string pairs grouped by period. Values keep the
// provider's string shapes ("5", "66%", "45/62 (73%)"); the extractor
// parses them.
type ExternalMatchStats struct {
	Provider        string
	ProviderEventID string
	Periods         []ExternalStatPeriod
}

type ExternalStatPeriod struct {
	Period string
	Items  []ExternalStatItem
}

type ExternalStatItem struct {
	Name string
	Home string
	Away string
}

// PeriodAll returns the whole-match period, falling back to the first one
// when the provider labels periods differently.
func (s ExternalMatchStats) PeriodAll() (ExternalStatPeriod, bool) {
	for _, p := range s.Periods {
		if p.Period == "ALL" {
			return p, true
		}
	}
	if len(s.Periods) > 0 {
		return s.Periods[0], true
	}
	return ExternalStatPeriod{}, false
}
