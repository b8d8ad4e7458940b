package botapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/matchpoint/external/telegram"
	"github.com/riskibarqy/matchpoint/internal/domain/match"
	"github.com/riskibarqy/matchpoint/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchpoint/internal/platform/logging"
	"github.com/riskibarqy/matchpoint/internal/usecase"
)

const (
	testChatID       int64 = 4242
	testSecret             = "hook-s3cret"
	testPollInterval       = 45 * time.Second
)

func TestWebhook_RejectsWrongSecret(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	for _, secret := range []string{"", "wrong", testSecret + "-x"} {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(commandUpdate("/help")))
		if secret != "" {
			req.Header.Set(headerWebhookSecret, secret)
		}
		rr := httptest.NewRecorder()
		f.handler.Webhook(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Fatalf("secret %q: status = %d, want %d", secret, rr.Code, http.StatusForbidden)
		}
		var body map[string]any
		if err := sonic.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal response body: %v", err)
		}
		errorObj, ok := body["error"].(map[string]any)
		if !ok {
			t.Fatalf("expected error object, got %v", body)
		}
		if got, _ := errorObj["status"].(string); got != "PERMISSION_DENIED" {
			t.Fatalf("error status = %v, want PERMISSION_DENIED", errorObj["status"])
		}
	}
	if got := f.messenger.messages(); len(got) != 0 {
		t.Fatalf("rejected updates must not reach the messenger, got %+v", got)
	}
}

func TestWebhook_AcksUndecodableUpdate(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	rr := f.postUpdate(t, `{"update_id": broken`)

	var ack webhookAck
	if err := sonic.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if !ack.OK {
		t.Fatalf("ack body = %s, want ok=true", rr.Body.String())
	}
	if got := f.messenger.messages(); len(got) != 0 {
		t.Fatalf("broken update must not trigger replies, got %+v", got)
	}
}

func TestWebhook_IgnoresUpdatesWithoutChat(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.postUpdate(t, `{"update_id":7}`)
	f.postUpdate(t, `{"update_id":8,"message":{"message_id":1,"chat":{"id":0},"text":"/help"}}`)

	if got := f.messenger.messages(); len(got) != 0 {
		t.Fatalf("chatless updates must be silent, got %+v", got)
	}
}

func TestWebhook_HandlesEditedMessage(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.postUpdate(t, fmt.Sprintf(
		`{"update_id":9,"edited_message":{"message_id":2,"chat":{"id":%d},"text":"/help"}}`, testChatID))

	if got := f.messenger.messages(); len(got) != 1 {
		t.Fatalf("edited command must reply once, got %d messages", len(got))
	}
}

func TestWebhook_AddCommand(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.sendCommand(t, "/add Sinner")

	if got, want := f.messenger.lastMessage(t).text, "Добавил на сегодня: Sinner. /list"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	_, entries, err := f.watchlists.ListToday(context.Background(), testChatID)
	if err != nil {
		t.Fatalf("ListToday: %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "Sinner" {
		t.Fatalf("entries = %+v, want one entry for Sinner", entries)
	}

	f.sendCommand(t, "/add")
	if got, want := f.messenger.lastMessage(t).text, "Пример: /add Sinner"; got != want {
		t.Fatalf("usage reply = %q, want %q", got, want)
	}
}

func TestWebhook_WatchCommand(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.sendCommand(t, "/watch De Minaur, Musetti, , Rublev")

	if got, want := f.messenger.lastMessage(t).text, "Сегодня слежу за 3 игрок(ами). Список: /list"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	_, entries, err := f.watchlists.ListToday(context.Background(), testChatID)
	if err != nil {
		t.Fatalf("ListToday: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	f.sendCommand(t, "/watch")
	if got, want := f.messenger.lastMessage(t).text, "Пример: /watch De Minaur, Musetti, Rublev"; got != want {
		t.Fatalf("usage reply = %q, want %q", got, want)
	}
}

func TestWebhook_RemoveAndClear(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.sendCommand(t, "/add Musetti")
	f.sendCommand(t, "/add Rublev")

	f.sendCommand(t, "/remove Musetti")
	if got, want := f.messenger.lastMessage(t).text, "Убрал: Musetti"; got != want {
		t.Fatalf("remove reply = %q, want %q", got, want)
	}

	f.sendCommand(t, "/remove Musetti")
	if got, want := f.messenger.lastMessage(t).text, "Ничего не убрал (не нашёл в сегодняшнем списке)."; got != want {
		t.Fatalf("repeat remove reply = %q, want %q", got, want)
	}

	f.sendCommand(t, "/clear")
	if got, want := f.messenger.lastMessage(t).text, "Ок, очистил список (1 записей)."; got != want {
		t.Fatalf("clear reply = %q, want %q", got, want)
	}
}

func TestWebhook_ListCommand(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.sendCommand(t, "/list")
	if got, want := f.messenger.lastMessage(t).text, "На сегодня список пуст. Нажмите /start и выберите турнир."; got != want {
		t.Fatalf("empty list reply = %q, want %q", got, want)
	}

	f.sendCommand(t, "/add sinner")
	f.sendCommand(t, "/add Rublev")
	day, _, err := f.watchlists.ListToday(context.Background(), testChatID)
	if err != nil {
		t.Fatalf("ListToday: %v", err)
	}
	if err := f.watches.UpdateResolution(context.Background(), testChatID, "sinner", day, "Jannik Sinner", ""); err != nil {
		t.Fatalf("UpdateResolution: %v", err)
	}

	f.sendCommand(t, "/list")
	got := f.messenger.lastMessage(t).text
	want := fmt.Sprintf("Сегодня (%s):\n• Rublev\n• sinner (→ Jannik Sinner)", day)
	if got != want {
		t.Fatalf("list reply = %q, want %q", got, want)
	}
}

func TestWebhook_TimezoneCommand(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.sendCommand(t, "/tz")
	if got, want := f.messenger.lastMessage(t).text, "Укажите таймзону, например: /tz Europe/Helsinki"; got != want {
		t.Fatalf("usage reply = %q, want %q", got, want)
	}

	f.sendCommand(t, "/tz Mars/Olympus")
	if got, want := f.messenger.lastMessage(t).text, "Неизвестная таймзона: Mars/Olympus"; got != want {
		t.Fatalf("unknown tz reply = %q, want %q", got, want)
	}

	f.sendCommand(t, "/tz Europe/Moscow")
	if got, want := f.messenger.lastMessage(t).text, "Ок! Часовой пояс теперь Europe/Moscow."; got != want {
		t.Fatalf("confirm reply = %q, want %q", got, want)
	}
	u, found, err := f.users.Get(context.Background(), testChatID)
	if err != nil || !found {
		t.Fatalf("Get user: found=%v err=%v", found, err)
	}
	if u.Timezone != "Europe/Moscow" {
		t.Fatalf("stored timezone = %q, want Europe/Moscow", u.Timezone)
	}
}

func TestWebhook_HelpCommand(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.sendCommand(t, "/help")

	got := f.messenger.lastMessage(t).text
	if !strings.HasPrefix(got, "Я слежу за матчами тенниса") {
		t.Fatalf("help must open with the bot intro, got %q", got)
	}
	for _, fragment := range []string{"~45 сек", "ЧАСТЫЕ ОШИБКИ", "E_PARSE_STATS_MISSING"} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("help reply misses %q", fragment)
		}
	}
}

func TestWebhook_FormatCommand(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.sendCommand(t, "/format")

	got := f.messenger.lastMessage(t).text
	for _, fragment := range []string{"Lorenzo Musetti — Alex de Minaur", "Счёт: 7:5, 3:6, 7:5", "Время: 2:48"} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("sample card misses %q:\n%s", fragment, got)
		}
	}
}

func TestWebhook_StartSendsTournamentsMenu(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.provider.setEvents(dayEvents())
	f.sendCommand(t, "/start")

	menus := f.messenger.menuSends()
	if len(menus) != 1 {
		t.Fatalf("menus = %d, want 1", len(menus))
	}
	menu := menus[0]
	want := "Выберите турнир на сегодня:\n1) ATP Cincinnati\n2) WTA Cleveland"
	if menu.text != want {
		t.Fatalf("menu text = %q, want %q", menu.text, want)
	}
	if len(menu.keyboard) != 2 {
		t.Fatalf("keyboard rows = %d, want 2", len(menu.keyboard))
	}
	if got := menu.keyboard[0][0].CallbackData; got != "tour:17" {
		t.Fatalf("first button data = %q, want tour:17", got)
	}
}

func TestWebhook_StartWithoutScheduleFallsBack(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.provider.failDaySchedule(fmt.Errorf("sofascore: status 503"))
	f.sendCommand(t, "/start")

	if got, want := f.messenger.lastMessage(t).text, "Сегодня турниров нет или расписание недоступно."; got != want {
		t.Fatalf("fallback reply = %q, want %q", got, want)
	}
	if got := f.messenger.menuSends(); len(got) != 0 {
		t.Fatalf("no menu expected, got %+v", got)
	}
}

func TestWebhook_TournamentCallbackShowsMatches(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.provider.setEvents(dayEvents())
	f.postUpdate(t, callbackUpdate("tour:17"))

	answers := f.messenger.callbackAnswers()
	if len(answers) != 1 || answers[0].text != "" {
		t.Fatalf("answers = %+v, want one bare answer", answers)
	}

	menus := f.messenger.menuSends()
	if len(menus) != 1 {
		t.Fatalf("menus = %d, want 1", len(menus))
	}
	menu := menus[0]
	want := "Матчи: ATP Cincinnati\n• Jannik Sinner — Carlos Alcaraz\n• Daniil Medvedev — Alexander Zverev"
	if menu.text != want {
		t.Fatalf("menu text = %q, want %q", menu.text, want)
	}
	if len(menu.keyboard) != 3 {
		t.Fatalf("keyboard rows = %d, want 3 (two matches plus the follow-all row)", len(menu.keyboard))
	}
	first := menu.keyboard[0][0]
	if first.Text != "Следить: Jannik Sinner — Carlos Alcaraz" || first.CallbackData != "watch_ev:111" {
		t.Fatalf("first row = %+v", first)
	}
	last := menu.keyboard[2][0]
	if last.Text != "✅ Следить за ВСЕМИ матчами турнира" || last.CallbackData != "watch_tour:17" {
		t.Fatalf("follow-all row = %+v", last)
	}
}

func TestWebhook_TournamentCallbackUnknownID(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.provider.setEvents(dayEvents())
	f.postUpdate(t, callbackUpdate("tour:404"))

	if got, want := f.messenger.lastMessage(t).text, "Турнир не найден или уже недоступен."; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestWebhook_WatchEventCallback(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.provider.setEvents(dayEvents())
	f.postUpdate(t, callbackUpdate("watch_ev:111"))

	answers := f.messenger.callbackAnswers()
	if len(answers) != 1 || answers[0].text != "Ок, добавил матч." {
		t.Fatalf("answers = %+v", answers)
	}
	if got, want := f.messenger.lastMessage(t).text, "Добавил на сегодня: Jannik Sinner и Carlos Alcaraz. /list"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	_, entries, err := f.watchlists.ListToday(context.Background(), testChatID)
	if err != nil {
		t.Fatalf("ListToday: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want both participants", len(entries))
	}

	f.postUpdate(t, callbackUpdate("watch_ev:999"))
	if got, want := f.messenger.lastMessage(t).text, "Матч уже недоступен."; got != want {
		t.Fatalf("unknown event reply = %q, want %q", got, want)
	}
}

func TestWebhook_WatchTournamentCallback(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.provider.setEvents(dayEvents())
	f.postUpdate(t, callbackUpdate("watch_tour:17"))

	answers := f.messenger.callbackAnswers()
	if len(answers) != 1 || answers[0].text != "Ок, добавил все матчи турнира." {
		t.Fatalf("answers = %+v", answers)
	}
	if got, want := f.messenger.lastMessage(t).text, "Добавил 4 игроков из турнира. /list"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	f.postUpdate(t, callbackUpdate("watch_tour:404"))
	if got, want := f.messenger.lastMessage(t).text, "Турнир уже недоступен."; got != want {
		t.Fatalf("unknown tournament reply = %q, want %q", got, want)
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text        string
		wantCommand string
		wantArgs    string
	}{
		{text: "/watch De Minaur, Musetti", wantCommand: "/watch", wantArgs: "De Minaur, Musetti"},
		{text: "/list@MatchpointBot", wantCommand: "/list", wantArgs: ""},
		{text: "/TZ Europe/Kyiv", wantCommand: "/tz", wantArgs: "Europe/Kyiv"},
		{text: "  /help  ", wantCommand: "/help", wantArgs: ""},
		{text: "hello there", wantCommand: "", wantArgs: "hello there"},
	}
	for _, tc := range tests {
		command, args := splitCommand(tc.text)
		if command != tc.wantCommand || args != tc.wantArgs {
			t.Fatalf("splitCommand(%q) = (%q, %q), want (%q, %q)",
				tc.text, command, args, tc.wantCommand, tc.wantArgs)
		}
	}
}

type botFixture struct {
	handler    *Handler
	watchlists *usecase.WatchlistService
	users      *memory.UserRepository
	watches    *memory.WatchlistRepository
	provider   *stubProvider
	messenger  *stubMessenger
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	users := memory.NewUserRepository()
	watches := memory.NewWatchlistRepository()
	notified := memory.NewNotifiedRepository()
	provider := &stubProvider{}
	messenger := &stubMessenger{}

	watchlists := usecase.NewWatchlistService(users, watches, provider)
	detector := usecase.NewDetectionService(users, watches, notified, provider, messenger, logging.NewNop(), usecase.DetectionConfig{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &botFixture{
		handler:    NewHandler(watchlists, detector, messenger, nil, testSecret, testPollInterval, logger),
		watchlists: watchlists,
		users:      users,
		watches:    watches,
		provider:   provider,
		messenger:  messenger,
	}
}

func (f *botFixture) postUpdate(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(headerWebhookSecret, testSecret)
	rr := httptest.NewRecorder()
	f.handler.Webhook(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, want %d", rr.Code, http.StatusOK)
	}
	return rr
}

func (f *botFixture) sendCommand(t *testing.T, text string) {
	t.Helper()
	f.postUpdate(t, commandUpdate(text))
}

func commandUpdate(text string) string {
	return fmt.Sprintf(`{"update_id":1,"message":{"message_id":10,"chat":{"id":%d},"text":%q}}`, testChatID, text)
}

func callbackUpdate(data string) string {
	return fmt.Sprintf(`{"update_id":2,"callback_query":{"id":"cb-1","data":%q,"message":{"message_id":11,"chat":{"id":%d}}}}`,
		data, testChatID)
}

func dayEvents() []match.Event {
	cincinnati := match.Tournament{ID: "17", Name: "ATP Cincinnati", Category: "ATP"}
	cleveland := match.Tournament{ID: "29", Name: "WTA Cleveland", Category: "WTA"}
	return []match.Event{
		{Provider: "sofascore", ProviderEventID: "111", HomeName: "Jannik Sinner", AwayName: "Carlos Alcaraz", Status: match.StatusScheduled, Tournament: cincinnati},
		{Provider: "sofascore", ProviderEventID: "112", HomeName: "Daniil Medvedev", AwayName: "Alexander Zverev", Status: match.StatusScheduled, Tournament: cincinnati},
		{Provider: "sofascore", ProviderEventID: "113", HomeName: "Iga Swiatek", AwayName: "Aryna Sabalenka", Status: match.StatusScheduled, Tournament: cleveland},
	}
}

// stubProvider serves one fixed day schedule; FindTodayEvents filters it the
// same way the real provider filters its search results.
type stubProvider struct {
	mu     sync.Mutex
	events []match.Event
	dayErr error
}

func (p *stubProvider) setEvents(events []match.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
}

func (p *stubProvider) failDaySchedule(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dayErr = err
}

func (p *stubProvider) Name() string { return "sofascore" }

func (p *stubProvider) FindTodayEvents(_ context.Context, name string, _ *time.Location) ([]match.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]match.Event, 0, 2)
	for _, ev := range p.events {
		if match.NameMatches(ev.HomeName, name) || match.NameMatches(ev.AwayName, name) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (p *stubProvider) FetchStatistics(_ context.Context, _ string) (usecase.ExternalMatchStats, error) {
	return usecase.ExternalMatchStats{}, usecase.ErrStatsMissing
}

func (p *stubProvider) EventsByDate(_ context.Context, _ string) ([]match.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dayErr != nil {
		return nil, p.dayErr
	}
	return append([]match.Event(nil), p.events...), nil
}

func (p *stubProvider) GroupTournaments(events []match.Event) []match.Tournament {
	seen := make(map[string]struct{}, len(events))
	tours := make([]match.Tournament, 0, len(events))
	for _, ev := range events {
		if _, dup := seen[ev.Tournament.ID]; dup {
			continue
		}
		seen[ev.Tournament.ID] = struct{}{}
		tours = append(tours, ev.Tournament)
	}
	return tours
}

type sentMessage struct {
	chatID int64
	text   string
}

type sentMenu struct {
	chatID   int64
	text     string
	keyboard [][]telegram.InlineKeyboardButton
}

type sentAnswer struct {
	queryID string
	text    string
}

// stubMessenger records every outbound Telegram call. It doubles as the
// detection sink so webhook and job tests share one recorder.
type stubMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	menus   []sentMenu
	answers []sentAnswer
}

func (m *stubMessenger) Send(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *stubMessenger) SendMessageWithKeyboard(_ context.Context, chatID int64, text string, keyboard [][]telegram.InlineKeyboardButton) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menus = append(m.menus, sentMenu{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (m *stubMessenger) AnswerCallbackQuery(_ context.Context, queryID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, sentAnswer{queryID: queryID, text: text})
	return nil
}

func (m *stubMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *stubMessenger) menuSends() []sentMenu {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMenu, len(m.menus))
	copy(out, m.menus)
	return out
}

func (m *stubMessenger) callbackAnswers() []sentAnswer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentAnswer, len(m.answers))
	copy(out, m.answers)
	return out
}

func (m *stubMessenger) lastMessage(t *testing.T) sentMessage {
	t.Helper()
	msgs := m.messages()
	if len(msgs) == 0 {
		t.Fatal("no messages sent")
	}
	return msgs[len(msgs)-1]
}
