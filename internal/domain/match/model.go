package match

import (
	"strings"
	"time"
)

// DayLayout is the civil-date form used for event days and watchlist
// expiry, always rendered in the user's local timezone.
const DayLayout = "2006-01-02"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Event is one provider match as seen during a poll. It is never persisted;
// only the dedup key (provider, event id, day) outlives the cycle.
type Event struct {
	Provider        string
	ProviderEventID string
	HomeName        string
	AwayName        string
	Status          Status
	StartAt         time.Time
	DurationSeconds *int
	ScoreSets       []string
	Tournament      Tournament
}

type Tournament struct {
	ID       string
	Name     string
	Category string
}

func (e Event) Participant(side Side) string {
	if side == SideAway {
		return e.AwayName
	}
	return e.HomeName
}

func (e Event) IsFinished() bool {
	return e.Status == StatusFinished
}

// Day renders the event's start date in loc; a zero StartAt falls back to
// the current day so scheduled events without timestamps still group today.
func (e Event) Day(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	if e.StartAt.IsZero() {
		return time.Now().In(loc).Format(DayLayout)
	}
	return e.StartAt.In(loc).Format(DayLayout)
}

func FormatDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

func NormalizeStatus(value string) Status {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "notstarted", "scheduled", "notstarted_postponed":
		return StatusScheduled
	case "inprogress", "live":
		return StatusLive
	case "finished":
		return StatusFinished
	case "canceled", "cancelled", "postponed", "suspended":
		return StatusCancelled
	case "":
		return StatusUnknown
	default:
		return StatusUnknown
	}
}
