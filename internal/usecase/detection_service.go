package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/matchpoint/internal/domain/match"
	"github.com/riskibarqy/matchpoint/internal/domain/notification"
	"github.com/riskibarqy/matchpoint/internal/domain/stats"
	"github.com/riskibarqy/matchpoint/internal/domain/user"
	"github.com/riskibarqy/matchpoint/internal/domain/watchlist"
	"github.com/riskibarqy/matchpoint/internal/platform/logging"
)

const (
	defaultDetectionWorkers = 8
	adminAlertInterval      = 15 * time.Minute

	cycleStatusOK      = "ok"
	cycleStatusSkipped = "skipped"
	cycleStatusFailed  = "failed"
)

type DetectionConfig struct {
	// WorkerCount bounds the user fan-out pool; zero falls back to the
	// default.
	WorkerCount int
	// RetentionDays keeps dedup and watchlist rows this many days before
	// the daily sweep removes them.
	RetentionDays int
	// AdminChatID receives rate-limited failure summaries when set.
	AdminChatID int64
}

// CycleReport sums one detection pass. The internal jobs endpoint returns
// it verbatim.
type CycleReport struct {
	CycleID       string            `json:"cycle_id"`
	UserCount     int               `json:"user_count"`
	EventCount    int               `json:"event_count"`
	NotifiedCount int               `json:"notified_count"`
	SkippedCount  int               `json:"skipped_count"`
	DeferredCount int               `json:"deferred_count"`
	FailedCount   int               `json:"failed_count"`
	PrunedRows    int64             `json:"pruned_rows,omitempty"`
	WorkerCount   int               `json:"worker_count"`
	DurationMs    int64             `json:"duration_ms"`
	Users         []UserCycleResult `json:"users"`
}

type UserCycleResult struct {
	ChatID        int64  `json:"chat_id"`
	Day           string `json:"day"`
	WatchCount    int    `json:"watch_count"`
	EventCount    int    `json:"event_count"`
	FinishedCount int    `json:"finished_count"`
	NotifiedCount int    `json:"notified_count"`
	SkippedCount  int    `json:"skipped_count"`
	DeferredCount int    `json:"deferred_count"`
	FailedCount   int    `json:"failed_count"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
}

func (r *CycleReport) add(row UserCycleResult) {
	r.Users = append(r.Users, row)
	r.EventCount += row.EventCount
	r.NotifiedCount += row.NotifiedCount
	r.SkippedCount += row.SkippedCount
	r.DeferredCount += row.DeferredCount
	r.FailedCount += row.FailedCount
	if row.Status == cycleStatusFailed {
		r.FailedCount++
	}
}

type notifyOutcome int

const (
	outcomeNotified notifyOutcome = iota
	outcomeSkipped
	outcomeDeferred
	outcomeFailed
)

// DetectionService runs the polling core: finds finished matches for every
// user's daily watchlist, claims the dedup row, renders and delivers the
// card. The claim always precedes the send, so a crash after claiming
// loses at most that one notification and never duplicates it.
type DetectionService struct {
	userRepo     user.Repository
	watchRepo    watchlist.Repository
	notifiedRepo notification.Repository
	provider     MatchProvider
	sink         NotificationSink
	logger       *logging.Logger
	cfg          DetectionConfig
	now          func() time.Time

	// inflight holds chat ids with a cycle in progress; overlapping polls
	// skip the user instead of racing.
	inflight sync.Map

	pruneMu   sync.Mutex
	lastPrune string

	alertMu   sync.Mutex
	lastAlert time.Time
}

func NewDetectionService(
	userRepo user.Repository,
	watchRepo watchlist.Repository,
	notifiedRepo notification.Repository,
	provider MatchProvider,
	sink NotificationSink,
	logger *logging.Logger,
	cfg DetectionConfig,
) *DetectionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DetectionService{
		userRepo:     userRepo,
		watchRepo:    watchRepo,
		notifiedRepo: notifiedRepo,
		provider:     provider,
		sink:         sink,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// RunCycle executes one polling pass over every known user. Per-user and
// per-event failures never abort the cycle; they are logged, counted and
// reported.
func (s *DetectionService) RunCycle(ctx context.Context) (CycleReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DetectionService.RunCycle")
	defer span.End()

	start := time.Now()
	report := CycleReport{CycleID: uuid.NewString()}
	report.PrunedRows = s.pruneIfNewDay(ctx)

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}
	report.UserCount = len(users)
	report.WorkerCount = normalizeWorkerCount(s.cfg.WorkerCount, len(users))
	if len(users) == 0 {
		report.DurationMs = time.Since(start).Milliseconds()
		return report, nil
	}

	results := make(chan UserCycleResult, len(users))

	pool, err := ants.NewPool(report.WorkerCount)
	if err != nil {
		return report, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, u := range users {
		u := u
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results <- s.runUserCycle(ctx, u)
		}); err != nil {
			workers.Done()
			return report, fmt.Errorf("submit user to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		report.add(row)
	}
	sort.SliceStable(report.Users, func(i, j int) bool {
		return report.Users[i].ChatID < report.Users[j].ChatID
	})

	report.DurationMs = time.Since(start).Milliseconds()
	s.logger.InfoContext(ctx, "detection cycle finished",
		"cycle_id", report.CycleID,
		"users", report.UserCount,
		"events", report.EventCount,
		"notified", report.NotifiedCount,
		"deferred", report.DeferredCount,
		"failed", report.FailedCount,
		"duration_ms", report.DurationMs,
	)
	s.alertAdmin(ctx, report)
	return report, nil
}

// RunUserCycle runs the same pass for a single chat, used by the internal
// jobs endpoint.
func (s *DetectionService) RunUserCycle(ctx context.Context, chatID int64) (CycleReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DetectionService.RunUserCycle")
	defer span.End()

	if chatID == 0 {
		return CycleReport{}, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}

	u, found, err := s.userRepo.Get(ctx, chatID)
	if err != nil {
		return CycleReport{}, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return CycleReport{}, fmt.Errorf("%w: chat=%d", ErrNotFound, chatID)
	}

	start := time.Now()
	report := CycleReport{CycleID: uuid.NewString(), UserCount: 1, WorkerCount: 1}
	report.add(s.runUserCycle(ctx, u))
	report.DurationMs = time.Since(start).Milliseconds()
	return report, nil
}

func (s *DetectionService) runUserCycle(ctx context.Context, u user.User) UserCycleResult {
	start := time.Now()
	row := UserCycleResult{ChatID: u.ChatID, Status: cycleStatusOK}
	finish := func() UserCycleResult {
		row.DurationMs = time.Since(start).Milliseconds()
		return row
	}

	if _, busy := s.inflight.LoadOrStore(u.ChatID, struct{}{}); busy {
		row.Status = cycleStatusSkipped
		row.Message = "previous cycle still running"
		return finish()
	}
	defer s.inflight.Delete(u.ChatID)

	loc := u.Location()
	day := match.FormatDay(s.now(), loc)
	row.Day = day

	entries, err := s.watchRepo.ListForDay(ctx, u.ChatID, day)
	if err != nil {
		row.Status = cycleStatusFailed
		row.Message = fmt.Sprintf("list watchlist: %v", err)
		s.logger.ErrorContext(ctx, "watchlist load failed", "chat_id", u.ChatID, "day", day, "error", err)
		return finish()
	}
	row.WatchCount = len(entries)
	if len(entries) == 0 {
		row.Status = cycleStatusSkipped
		row.Message = "empty watchlist"
		return finish()
	}

	events := s.collectEvents(ctx, u, entries, loc, day, &row)
	if len(events) == 0 {
		s.logger.DebugContext(ctx, "no events today for watchlist",
			"code", CodeNoEventsToday, "chat_id", u.ChatID, "day", day, "watch_count", len(entries))
		return finish()
	}

	for _, ev := range events {
		if !ev.IsFinished() {
			continue
		}
		row.FinishedCount++
		switch s.notifyEvent(ctx, u, ev, day) {
		case outcomeNotified:
			row.NotifiedCount++
		case outcomeSkipped:
			row.SkippedCount++
		case outcomeDeferred:
			row.DeferredCount++
		default:
			row.FailedCount++
		}
	}
	return finish()
}

// collectEvents resolves today's events across all watched names, deduped
// by provider event id. A doubles player produces one entry per event, so
// every event still notifies once.
func (s *DetectionService) collectEvents(ctx context.Context, u user.User, entries []watchlist.Entry, loc *time.Location, day string, row *UserCycleResult) []match.Event {
	seen := make(map[string]struct{}, len(entries))
	events := make([]match.Event, 0, len(entries))

	for _, entry := range entries {
		found, err := s.provider.FindTodayEvents(ctx, entry.DisplayName(), loc)
		if err != nil {
			row.FailedCount++
			s.logger.WarnContext(ctx, "event lookup failed",
				"code", providerErrorCode(err), "chat_id", u.ChatID, "label", entry.Label, "error", err)
			continue
		}
		if len(found) > 0 && entry.ResolvedName == "" {
			s.resolveEntry(ctx, u.ChatID, entry, day, found)
		}
		for _, ev := range found {
			if _, dup := seen[ev.ProviderEventID]; dup {
				continue
			}
			seen[ev.ProviderEventID] = struct{}{}
			events = append(events, ev)
		}
	}
	row.EventCount = len(events)
	return events
}

// resolveEntry stores the provider's spelling for a label the first time
// it matches a real participant. Best effort: resolution never blocks a
// notification.
func (s *DetectionService) resolveEntry(ctx context.Context, chatID int64, entry watchlist.Entry, day string, events []match.Event) {
	var resolved string
	for _, ev := range events {
		switch {
		case match.NameMatches(ev.HomeName, entry.Label):
			resolved = ev.HomeName
		case match.NameMatches(ev.AwayName, entry.Label):
			resolved = ev.AwayName
		}
		if resolved != "" {
			break
		}
	}
	if resolved == "" || resolved == entry.Label {
		return
	}
	if err := s.watchRepo.UpdateResolution(ctx, chatID, entry.Label, day, resolved, ""); err != nil {
		s.logger.DebugContext(ctx, "label resolution not stored",
			"chat_id", chatID, "label", entry.Label, "resolved", resolved, "error", err)
	}
}

// notifyEvent claims the dedup row and delivers the card. The claim comes
// first: a sink failure keeps the claim, trading a lost message for the
// guarantee that no match is ever announced twice.
func (s *DetectionService) notifyEvent(ctx context.Context, u user.User, ev match.Event, day string) notifyOutcome {
	already, err := s.notifiedRepo.WasNotified(ctx, u.ChatID, ev.Provider, ev.ProviderEventID, day)
	if err != nil {
		if errors.Is(err, ErrStoreBusy) {
			s.logger.WarnContext(ctx, "dedup check deferred",
				"code", CodeStoreBusy, "chat_id", u.ChatID, "event_id", ev.ProviderEventID)
			return outcomeDeferred
		}
		s.logger.ErrorContext(ctx, "dedup check failed",
			"chat_id", u.ChatID, "event_id", ev.ProviderEventID, "error", err)
		return outcomeFailed
	}
	if already {
		return outcomeSkipped
	}

	claimed, err := s.notifiedRepo.TryClaim(ctx, notification.Record{
		ChatID:    u.ChatID,
		Provider:  ev.Provider,
		EventID:   ev.ProviderEventID,
		EventDay:  day,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrStoreBusy) {
			s.logger.WarnContext(ctx, "claim deferred",
				"code", CodeStoreBusy, "chat_id", u.ChatID, "event_id", ev.ProviderEventID)
			return outcomeDeferred
		}
		s.logger.ErrorContext(ctx, "claim failed",
			"chat_id", u.ChatID, "event_id", ev.ProviderEventID, "error", err)
		return outcomeFailed
	}
	if !claimed {
		return outcomeSkipped
	}

	card := s.buildCard(ctx, ev)
	if err := s.sink.Send(ctx, u.ChatID, card); err != nil {
		s.logger.ErrorContext(ctx, "card delivery failed",
			"code", CodeTelegramSend, "chat_id", u.ChatID, "event_id", ev.ProviderEventID, "error", err)
		return outcomeFailed
	}

	s.logger.InfoContext(ctx, "match card delivered",
		"chat_id", u.ChatID, "event_id", ev.ProviderEventID, "home", ev.HomeName, "away", ev.AwayName, "day", day)
	return outcomeNotified
}

// buildCard renders the notification text. A statistics failure degrades
// to an all-unavailable sheet; the card still goes out.
func (s *DetectionService) buildCard(ctx context.Context, ev match.Event) string {
	homeSheet := stats.EmptySheet(ev.HomeName)
	awaySheet := stats.EmptySheet(ev.AwayName)

	ext, err := s.provider.FetchStatistics(ctx, ev.ProviderEventID)
	switch {
	case err == nil:
		homeSheet = ExtractStatSheet(ext, match.SideHome, ev.HomeName)
		awaySheet = ExtractStatSheet(ext, match.SideAway, ev.AwayName)
	case errors.Is(err, ErrStatsMissing):
		s.logger.WarnContext(ctx, "statistics missing, sending degraded card",
			"code", CodeParseStatsMissing, "event_id", ev.ProviderEventID)
	default:
		s.logger.WarnContext(ctx, "statistics fetch failed, sending degraded card",
			"code", providerErrorCode(err), "event_id", ev.ProviderEventID, "error", err)
	}

	return BuildMatchCard(MatchCard{
		HomeName:  ev.HomeName,
		AwayName:  ev.AwayName,
		ScoreSets: ev.ScoreSets,
		Duration:  FormatMatchDuration(ev.DurationSeconds),
		HomeStats: homeSheet,
		AwayStats: awaySheet,
	})
}

// pruneIfNewDay runs the retention sweep once per UTC day; a failed sweep
// retries on the next cycle.
func (s *DetectionService) pruneIfNewDay(ctx context.Context) int64 {
	if s.cfg.RetentionDays <= 0 {
		return 0
	}

	today := s.now().UTC().Format(match.DayLayout)
	s.pruneMu.Lock()
	if s.lastPrune == today {
		s.pruneMu.Unlock()
		return 0
	}
	s.lastPrune = today
	s.pruneMu.Unlock()

	cutoff := s.now().UTC().AddDate(0, 0, -s.cfg.RetentionDays).Format(match.DayLayout)
	var pruned int64

	n, err := s.notifiedRepo.PruneBefore(ctx, cutoff)
	if err != nil {
		s.retryPruneNextCycle()
		s.logger.WarnContext(ctx, "notified retention sweep failed", "cutoff", cutoff, "error", err)
	} else {
		pruned += n
	}

	w, err := s.watchRepo.PruneBefore(ctx, cutoff)
	if err != nil {
		s.retryPruneNextCycle()
		s.logger.WarnContext(ctx, "watchlist retention sweep failed", "cutoff", cutoff, "error", err)
	} else {
		pruned += w
	}

	if pruned > 0 {
		s.logger.InfoContext(ctx, "retention sweep pruned rows", "cutoff", cutoff, "rows", pruned)
	}
	return pruned
}

func (s *DetectionService) retryPruneNextCycle() {
	s.pruneMu.Lock()
	s.lastPrune = ""
	s.pruneMu.Unlock()
}

// alertAdmin summarizes a failing cycle to the admin chat, best effort and
// rate limited so a flapping provider does not flood the operator.
func (s *DetectionService) alertAdmin(ctx context.Context, report CycleReport) {
	if s.cfg.AdminChatID == 0 || report.FailedCount == 0 {
		return
	}

	s.alertMu.Lock()
	if s.now().Sub(s.lastAlert) < adminAlertInterval {
		s.alertMu.Unlock()
		return
	}
	s.lastAlert = s.now()
	s.alertMu.Unlock()

	text := fmt.Sprintf("Сбои цикла %s: ошибок %d, отложено %d, пользователей %d.",
		report.CycleID, report.FailedCount, report.DeferredCount, report.UserCount)
	if err := s.sink.Send(ctx, s.cfg.AdminChatID, text); err != nil {
		s.logger.WarnContext(ctx, "admin alert not delivered", "code", CodeTelegramSend, "error", err)
	}
}

func normalizeWorkerCount(configured, taskCount int) int {
	count := configured
	if count <= 0 {
		count = defaultDetectionWorkers
	}
	if taskCount > 0 && count > taskCount {
		count = taskCount
	}
	return count
}
