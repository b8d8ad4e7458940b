package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/matchpoint/internal/domain/match"
	"github.com/riskibarqy/matchpoint/internal/domain/user"
	"github.com/riskibarqy/matchpoint/internal/domain/watchlist"
)

// WatchlistService owns the command surface: users, timezones, the per-day
// watchlist and the inline tournament menus. Entries always expire at the
// end of the chat's local day.
type WatchlistService struct {
	userRepo  user.Repository
	watchRepo watchlist.Repository
	provider  MatchProvider
	now       func() time.Time
}

func NewWatchlistService(userRepo user.Repository, watchRepo watchlist.Repository, provider MatchProvider) *WatchlistService {
	return &WatchlistService{
		userRepo:  userRepo,
		watchRepo: watchRepo,
		provider:  provider,
		now:       time.Now,
	}
}

func (s *WatchlistService) EnsureUser(ctx context.Context, chatID int64) error {
	if chatID == 0 {
		return fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	if err := s.userRepo.Ensure(ctx, user.User{ChatID: chatID, Timezone: user.DefaultTimezone}); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (s *WatchlistService) SetTimezone(ctx context.Context, chatID int64, tz string) error {
	tz = strings.TrimSpace(tz)
	if chatID == 0 {
		return fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	if tz == "" {
		return fmt.Errorf("%w: timezone is required", ErrInvalidInput)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
	}
	if err := s.EnsureUser(ctx, chatID); err != nil {
		return err
	}
	if err := s.userRepo.SetTimezone(ctx, chatID, tz); err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	return nil
}

// Today returns the chat's current local day.
func (s *WatchlistService) Today(ctx context.Context, chatID int64) (string, error) {
	day, _, err := s.localDay(ctx, chatID)
	return day, err
}

// Watch adds several names for the chat's current day; duplicates are
// absorbed by the unique index. Returns how many names were accepted.
func (s *WatchlistService) Watch(ctx context.Context, chatID int64, names []string) (int, error) {
	if chatID == 0 {
		return 0, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	if err := s.EnsureUser(ctx, chatID); err != nil {
		return 0, err
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return 0, err
	}

	entries := make([]watchlist.Entry, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		entries = append(entries, watchlist.Entry{
			ChatID:    chatID,
			Label:     name,
			Provider:  s.provider.Name(),
			ExpiresOn: day,
		})
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: at least one player name is required", ErrInvalidInput)
	}

	if _, err := s.watchRepo.AddAll(ctx, entries); err != nil {
		return 0, fmt.Errorf("add watch entries: %w", err)
	}
	return len(entries), nil
}

func (s *WatchlistService) Add(ctx context.Context, chatID int64, name string) error {
	name = strings.TrimSpace(name)
	if chatID == 0 {
		return fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	if name == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if err := s.EnsureUser(ctx, chatID); err != nil {
		return err
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return err
	}

	if _, err := s.watchRepo.Add(ctx, watchlist.Entry{
		ChatID:    chatID,
		Label:     name,
		Provider:  s.provider.Name(),
		ExpiresOn: day,
	}); err != nil {
		return fmt.Errorf("add watch entry: %w", err)
	}
	return nil
}

// Remove deletes one label from today's list; false means nothing matched.
func (s *WatchlistService) Remove(ctx context.Context, chatID int64, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if chatID == 0 {
		return false, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	if name == "" {
		return false, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return false, err
	}

	removed, err := s.watchRepo.Remove(ctx, chatID, name, day)
	if err != nil {
		return false, fmt.Errorf("remove watch entry: %w", err)
	}
	return removed, nil
}

func (s *WatchlistService) Clear(ctx context.Context, chatID int64) (int64, error) {
	if chatID == 0 {
		return 0, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return 0, err
	}

	cleared, err := s.watchRepo.Clear(ctx, chatID, day)
	if err != nil {
		return 0, fmt.Errorf("clear watchlist: %w", err)
	}
	return cleared, nil
}

func (s *WatchlistService) ListToday(ctx context.Context, chatID int64) (string, []watchlist.Entry, error) {
	if chatID == 0 {
		return "", nil, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return "", nil, err
	}

	entries, err := s.watchRepo.ListForDay(ctx, chatID, day)
	if err != nil {
		return "", nil, fmt.Errorf("list watchlist: %w", err)
	}
	return day, entries, nil
}

// TournamentsToday returns the tournament menu for the chat's local day.
func (s *WatchlistService) TournamentsToday(ctx context.Context, chatID int64) ([]match.Tournament, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WatchlistService.TournamentsToday")
	defer span.End()

	if chatID == 0 {
		return nil, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return nil, err
	}

	events, err := s.provider.EventsByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("day schedule: %w", err)
	}
	return s.provider.GroupTournaments(events), nil
}

// TournamentMatches returns one tournament of the day with its events.
func (s *WatchlistService) TournamentMatches(ctx context.Context, chatID int64, tournamentID string) (match.Tournament, []match.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WatchlistService.TournamentMatches")
	defer span.End()

	tournamentID = strings.TrimSpace(tournamentID)
	if chatID == 0 {
		return match.Tournament{}, nil, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	if tournamentID == "" {
		return match.Tournament{}, nil, fmt.Errorf("%w: tournament id is required", ErrInvalidInput)
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return match.Tournament{}, nil, err
	}

	events, err := s.provider.EventsByDate(ctx, day)
	if err != nil {
		return match.Tournament{}, nil, fmt.Errorf("day schedule: %w", err)
	}

	var tour match.Tournament
	matched := make([]match.Event, 0, 8)
	for _, ev := range events {
		if ev.Tournament.ID != tournamentID {
			continue
		}
		if len(matched) == 0 {
			tour = ev.Tournament
		}
		matched = append(matched, ev)
	}
	if len(matched) == 0 {
		return match.Tournament{}, nil, fmt.Errorf("%w: tournament=%s", ErrNotFound, tournamentID)
	}
	return tour, matched, nil
}

// WatchEvent adds both participants of one event to today's list and
// returns the event for the confirmation reply.
func (s *WatchlistService) WatchEvent(ctx context.Context, chatID int64, eventID string) (match.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WatchlistService.WatchEvent")
	defer span.End()

	eventID = strings.TrimSpace(eventID)
	if chatID == 0 {
		return match.Event{}, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}
	if eventID == "" {
		return match.Event{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	if err := s.EnsureUser(ctx, chatID); err != nil {
		return match.Event{}, err
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return match.Event{}, err
	}

	events, err := s.provider.EventsByDate(ctx, day)
	if err != nil {
		return match.Event{}, fmt.Errorf("day schedule: %w", err)
	}

	for _, ev := range events {
		if ev.ProviderEventID != eventID {
			continue
		}
		entries := participantEntries(chatID, day, s.provider.Name(), []match.Event{ev})
		if len(entries) == 0 {
			return match.Event{}, fmt.Errorf("%w: event %s has no participant names", ErrInvalidInput, eventID)
		}
		if _, err := s.watchRepo.AddAll(ctx, entries); err != nil {
			return match.Event{}, fmt.Errorf("add watch entries: %w", err)
		}
		return ev, nil
	}
	return match.Event{}, fmt.Errorf("%w: event=%s", ErrNotFound, eventID)
}

// WatchTournament adds every participant of one tournament to today's list
// and returns how many distinct names were added.
func (s *WatchlistService) WatchTournament(ctx context.Context, chatID int64, tournamentID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WatchlistService.WatchTournament")
	defer span.End()

	if err := s.EnsureUser(ctx, chatID); err != nil {
		return 0, err
	}
	_, events, err := s.TournamentMatches(ctx, chatID, tournamentID)
	if err != nil {
		return 0, err
	}
	day, _, err := s.localDay(ctx, chatID)
	if err != nil {
		return 0, err
	}

	entries := participantEntries(chatID, day, s.provider.Name(), events)
	if len(entries) == 0 {
		return 0, nil
	}
	if _, err := s.watchRepo.AddAll(ctx, entries); err != nil {
		return 0, fmt.Errorf("add watch entries: %w", err)
	}
	return len(entries), nil
}

func (s *WatchlistService) localDay(ctx context.Context, chatID int64) (string, *time.Location, error) {
	u, found, err := s.userRepo.Get(ctx, chatID)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if !found {
		u = user.User{ChatID: chatID, Timezone: user.DefaultTimezone}
	}
	loc := u.Location()
	return match.FormatDay(s.now(), loc), loc, nil
}

// participantEntries builds watch entries for every distinct participant
// name across the given events.
func participantEntries(chatID int64, day, provider string, events []match.Event) []watchlist.Entry {
	seen := make(map[string]struct{}, len(events)*2)
	entries := make([]watchlist.Entry, 0, len(events)*2)
	for _, ev := range events {
		for _, name := range []string{ev.HomeName, ev.AwayName} {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			key := watchlist.NormalizeLabel(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, watchlist.Entry{
				ChatID:    chatID,
				Label:     name,
				Provider:  provider,
				ExpiresOn: day,
			})
		}
	}
	return entries
}

// SplitNames parses the /watch argument: comma-separated names, blanks
// dropped.
func SplitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
