package sofascore

import (
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/matchpoint/internal/domain/match"
	"github.com/riskibarqy/matchpoint/internal/usecase"
)

// ITF futures and junior draws are noise for the watchlist use case and
// are filtered out of every schedule answer.
var bannedTournamentTokens = []string{"itf", "15k", "25k", "50k", "itf 15", "itf 25", "itf 50", "junior"}

type scheduleEnvelope struct {
	Events []eventItem `json:"events"`
}

type eventItem struct {
	ID               int64          `json:"id"`
	Event            *eventRef      `json:"event"`
	HomeTeam         teamItem       `json:"homeTeam"`
	AwayTeam         teamItem       `json:"awayTeam"`
	Status           statusItem     `json:"status"`
	StartTimestamp   int64          `json:"startTimestamp"`
	Tournament       tournamentItem `json:"tournament"`
	UniqueTournament *tournamentRef `json:"uniqueTournament"`
	HomeScore        scoreItem      `json:"homeScore"`
	AwayScore        scoreItem      `json:"awayScore"`
	Time             timeItem       `json:"time"`
}

type eventRef struct {
	ID int64 `json:"id"`
}

type teamItem struct {
	Name string `json:"name"`
}

type statusItem struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type tournamentItem struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	Category         categoryItem   `json:"category"`
	UniqueTournament *tournamentRef `json:"uniqueTournament"`
}

type tournamentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type categoryItem struct {
	Name string `json:"name"`
}

type scoreItem struct {
	Current *int `json:"current"`
	Period1 *int `json:"period1"`
	Period2 *int `json:"period2"`
	Period3 *int `json:"period3"`
	Period4 *int `json:"period4"`
	Period5 *int `json:"period5"`
}

func (s scoreItem) periods() []*int {
	return []*int{s.Period1, s.Period2, s.Period3, s.Period4, s.Period5}
}

type timeItem struct {
	Played *int `json:"played"`
}

type statisticsEnvelope struct {
	Statistics []statisticsPeriod `json:"statistics"`
}

type statisticsPeriod struct {
	Period string            `json:"period"`
	Groups []statisticsGroup `json:"groups"`
}

type statisticsGroup struct {
	GroupName string           `json:"groupName"`
	Items     []statisticsItem `json:"statisticsItems"`
}

type statisticsItem struct {
	Name string    `json:"name"`
	Home flexValue `json:"home"`
	Away flexValue `json:"away"`
}

// flexValue tolerates the provider switching a field between string and
// number across payload versions.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*v = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = flexValue(s)
		return nil
	}
	*v = flexValue(trimmed)
	return nil
}

func (item eventItem) eventID() string {
	if item.ID > 0 {
		return strconv.FormatInt(item.ID, 10)
	}
	if item.Event != nil && item.Event.ID > 0 {
		return strconv.FormatInt(item.Event.ID, 10)
	}
	return ""
}

func (item eventItem) uniqueTournament() tournamentRef {
	if item.UniqueTournament != nil {
		return *item.UniqueTournament
	}
	if item.Tournament.UniqueTournament != nil {
		return *item.Tournament.UniqueTournament
	}
	return tournamentRef{}
}

func mapAllowedEvents(items []eventItem) []match.Event {
	out := make([]match.Event, 0, len(items))
	for _, item := range items {
		if !allowedEvent(item) {
			continue
		}
		ev := mapEvent(item)
		if ev.ProviderEventID == "" {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func allowedEvent(item eventItem) bool {
	unique := item.uniqueTournament()
	title := strings.ToLower(strings.Join([]string{
		item.Tournament.Name,
		unique.Name,
		unique.Slug,
		item.Tournament.Slug,
		item.Tournament.Category.Name,
	}, " "))

	for _, token := range bannedTournamentTokens {
		if strings.Contains(title, token) {
			return false
		}
	}
	return true
}

func mapEvent(item eventItem) match.Event {
	eventID := item.eventID()
	startAt := timeFromUnix(item.StartTimestamp)

	var duration *int
	if item.Time.Played != nil && *item.Time.Played > 0 {
		v := *item.Time.Played
		duration = &v
	}

	return match.Event{
		Provider:        ProviderName,
		ProviderEventID: eventID,
		HomeName:        strings.TrimSpace(item.HomeTeam.Name),
		AwayName:        strings.TrimSpace(item.AwayTeam.Name),
		Status:          match.NormalizeStatus(item.Status.Type),
		StartAt:         startAt,
		DurationSeconds: duration,
		ScoreSets:       mapScoreSets(item.HomeScore, item.AwayScore),
		Tournament:      mapTournament(item, eventID),
	}
}

func mapScoreSets(home, away scoreItem) []string {
	homePeriods := home.periods()
	awayPeriods := away.periods()

	out := make([]string, 0, len(homePeriods))
	for i := range homePeriods {
		if homePeriods[i] == nil || awayPeriods[i] == nil {
			continue
		}
		out = append(out, strconv.Itoa(*homePeriods[i])+":"+strconv.Itoa(*awayPeriods[i]))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapTournament(item eventItem, eventID string) match.Tournament {
	unique := item.uniqueTournament()

	var id string
	switch {
	case unique.ID > 0:
		id = strconv.FormatInt(unique.ID, 10)
	case item.Tournament.ID > 0:
		id = strconv.FormatInt(item.Tournament.ID, 10)
	default:
		id = eventID
	}

	name := strings.TrimSpace(unique.Name)
	if name == "" {
		name = strings.TrimSpace(item.Tournament.Name)
	}
	if name == "" {
		name = strings.TrimSpace(item.HomeTeam.Name) + " — " + strings.TrimSpace(item.AwayTeam.Name)
	}

	return match.Tournament{
		ID:       id,
		Name:     name,
		Category: strings.TrimSpace(item.Tournament.Category.Name),
	}
}

func mapStatistics(eventID string, envelope statisticsEnvelope) usecase.ExternalMatchStats {
	periods := make([]usecase.ExternalStatPeriod, 0, len(envelope.Statistics))
	for _, period := range envelope.Statistics {
		items := make([]usecase.ExternalStatItem, 0, 16)
		for _, group := range period.Groups {
			for _, item := range group.Items {
				items = append(items, usecase.ExternalStatItem{
					Name: strings.TrimSpace(item.Name),
					Home: strings.TrimSpace(string(item.Home)),
					Away: strings.TrimSpace(string(item.Away)),
				})
			}
		}
		periods = append(periods, usecase.ExternalStatPeriod{
			Period: strings.TrimSpace(period.Period),
			Items:  items,
		})
	}

	return usecase.ExternalMatchStats{
		Provider:        ProviderName,
		ProviderEventID: eventID,
		Periods:         periods,
	}
}

func timeFromUnix(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
