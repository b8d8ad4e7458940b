package botapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/matchpoint/external/telegram"
	"github.com/riskibarqy/matchpoint/internal/usecase"
)

// Telegram copies this header verbatim from the secret_token passed to
// setWebhook, so a mismatch means the update did not come from Telegram.
const headerWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"

// Callback payloads ride inside inline keyboard buttons; the prefix picks
// the flow, the remainder is a provider id.
const (
	callbackTournament      = "tour:"
	callbackWatchEvent      = "watch_ev:"
	callbackWatchTournament = "watch_tour:"
)

// helpTextFormat takes the poll interval in seconds. The wording, including
// its quirks, is kept exactly as long-time subscribers know it.
const helpTextFormat = `Я слежу за матчами тенниса и присылаю итоговые карточки по выбранным игрокам.

Команды:
/watch Имя1, Имя2, ... — следить за этими игроками СЕГОДНЯ (до 23:59)
/add Имя — добавить игрока в список на сегодня
/remove Имя — убрать игрока из списка
/list — показать текущий список на сегодня
/clear — очистить список на сегодня
/tz Europe/Helsinki — поменять мой часовой пояс
/format — пример сообщения
/help — справка и известные ограничения

Как это работает: в начале дня добавьте интересующих игроков. Бот каждые ~%d сек проверяет матчи и, как только матч завершён, пришлёт форматированное сообщение.

Ограничения:
• Статистика (виннеры, НФ, м.б.) не всегда доступна в источнике — там будет 'н/д'.
• Используются неофициальные JSON‑эндпоинты SofaScore; они могут меняться.
• Русские/латинские написания имён: старайтесь писать как на английском, например 'De Minaur'.

Коды ошибок: см. ниже или пришлите текст ошибки — мы поможем.`

const errorGuide = `ЧАСТЫЕ ОШИБКИ
• E_SOFASCORE_HTTP_<code>: не удалось получить данные от SofaScore. Проверьте сеть/блокировки.
• E_PARSE_STATS_MISSING: не удалось распарсить статистику матча (формат изменился).
• E_NO_EVENTS_TODAY: у указанных игроков нет матчей на выбранную дату.
• E_TG_SEND: Telegram отказал в отправке сообщения (rate limit / блок).
• E_DB_LOCKED: БД занята — повторяем попытку.

Скопируйте ошибку и пришлите её нам целиком.`

func (h *Handler) WebhookPing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "botapi.Handler.WebhookPing")
	defer span.End()

	writeJSON(ctx, w, http.StatusOK, webhookAck{OK: true, Service: "webhook"})
}

// Webhook ingests one Telegram update. After the secret check every path
// acks with 200: Telegram re-delivers the whole update on any other status,
// and neither an unreadable payload nor a failed reply improves on retry.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "botapi.Handler.Webhook")
	defer span.End()

	if h.webhookSecret != "" {
		provided := strings.TrimSpace(r.Header.Get(headerWebhookSecret))
		if provided != h.webhookSecret {
			h.logger.WarnContext(ctx, "webhook secret mismatch", "remote_addr", r.RemoteAddr)
			writeError(ctx, w, fmt.Errorf("%w: secret token header mismatch", errInvalidSecret))
			return
		}
	}

	var upd telegram.Update
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.logger.WarnContext(ctx, "undecodable telegram update", "error", err)
		writeWebhookAck(ctx, w)
		return
	}

	if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
		writeWebhookAck(ctx, w)
		return
	}

	msg := upd.Message
	if msg == nil {
		msg = upd.EditedMessage
	}
	if msg == nil || msg.Chat.ID == 0 {
		writeWebhookAck(ctx, w)
		return
	}

	h.handleCommand(ctx, msg.Chat.ID, msg.Text)
	writeWebhookAck(ctx, w)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, text string) {
	if err := h.watchlists.EnsureUser(ctx, chatID); err != nil {
		h.logger.WarnContext(ctx, "ensure user failed", "chat_id", chatID, "error", err)
	}

	command, args := splitCommand(text)
	switch command {
	case "/start":
		h.sendTournamentsMenu(ctx, chatID)
	case "/help":
		h.reply(ctx, chatID, h.helpText+"\n\n"+errorGuide)
	case "/tz":
		h.cmdTimezone(ctx, chatID, args)
	case "/watch":
		h.cmdWatch(ctx, chatID, args)
	case "/add":
		h.cmdAdd(ctx, chatID, args)
	case "/remove":
		h.cmdRemove(ctx, chatID, args)
	case "/clear":
		h.cmdClear(ctx, chatID)
	case "/list":
		h.cmdList(ctx, chatID)
	case "/format":
		h.reply(ctx, chatID, usecase.BuildMatchCard(usecase.SampleMatchCard()))
	}
}

func (h *Handler) cmdTimezone(ctx context.Context, chatID int64, args string) {
	if args == "" {
		h.reply(ctx, chatID, "Укажите таймзону, например: /tz Europe/Helsinki")
		return
	}
	if err := h.watchlists.SetTimezone(ctx, chatID, args); err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			h.reply(ctx, chatID, fmt.Sprintf("Неизвестная таймзона: %s", args))
			return
		}
		h.logger.WarnContext(ctx, "set timezone failed", "chat_id", chatID, "error", err)
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("Ок! Часовой пояс теперь %s.", args))
}

func (h *Handler) cmdWatch(ctx context.Context, chatID int64, args string) {
	names := usecase.SplitNames(args)
	if len(names) == 0 {
		h.reply(ctx, chatID, "Пример: /watch De Minaur, Musetti, Rublev")
		return
	}
	added, err := h.watchlists.Watch(ctx, chatID, names)
	if err != nil {
		h.logger.WarnContext(ctx, "watch command failed", "chat_id", chatID, "error", err)
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("Сегодня слежу за %d игрок(ами). Список: /list", added))
}

func (h *Handler) cmdAdd(ctx context.Context, chatID int64, args string) {
	name := strings.TrimSpace(args)
	if name == "" {
		h.reply(ctx, chatID, "Пример: /add Sinner")
		return
	}
	if err := h.watchlists.Add(ctx, chatID, name); err != nil {
		h.logger.WarnContext(ctx, "add command failed", "chat_id", chatID, "error", err)
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("Добавил на сегодня: %s. /list", name))
}

func (h *Handler) cmdRemove(ctx context.Context, chatID int64, args string) {
	name := strings.TrimSpace(args)
	if name == "" {
		h.reply(ctx, chatID, "Пример: /remove Sinner")
		return
	}
	removed, err := h.watchlists.Remove(ctx, chatID, name)
	if err != nil {
		h.logger.WarnContext(ctx, "remove command failed", "chat_id", chatID, "error", err)
		return
	}
	if removed {
		h.reply(ctx, chatID, "Убрал: "+name)
		return
	}
	h.reply(ctx, chatID, "Ничего не убрал (не нашёл в сегодняшнем списке).")
}

func (h *Handler) cmdClear(ctx context.Context, chatID int64) {
	cleared, err := h.watchlists.Clear(ctx, chatID)
	if err != nil {
		h.logger.WarnContext(ctx, "clear command failed", "chat_id", chatID, "error", err)
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("Ок, очистил список (%d записей).", cleared))
}

func (h *Handler) cmdList(ctx context.Context, chatID int64) {
	day, entries, err := h.watchlists.ListToday(ctx, chatID)
	if err != nil {
		h.logger.WarnContext(ctx, "list command failed", "chat_id", chatID, "error", err)
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, chatID, "На сегодня список пуст. Нажмите /start и выберите турнир.")
		return
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("Сегодня (%s):", day))
	for _, entry := range entries {
		if entry.ResolvedName != "" {
			lines = append(lines, fmt.Sprintf("• %s (→ %s)", entry.Label, entry.ResolvedName))
		} else {
			lines = append(lines, "• "+entry.Label)
		}
	}
	h.reply(ctx, chatID, strings.Join(lines, "\n"))
}

func (h *Handler) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	var chatID int64
	if cq.Message != nil {
		chatID = cq.Message.Chat.ID
	}
	if chatID == 0 {
		return
	}

	data := strings.TrimSpace(cq.Data)
	switch {
	case strings.HasPrefix(data, callbackTournament):
		h.answerCallback(ctx, cq.ID, "")
		h.sendMatchesMenu(ctx, chatID, strings.TrimPrefix(data, callbackTournament))
	case strings.HasPrefix(data, callbackWatchEvent):
		h.answerCallback(ctx, cq.ID, "Ок, добавил матч.")
		h.watchEventCallback(ctx, chatID, strings.TrimPrefix(data, callbackWatchEvent))
	case strings.HasPrefix(data, callbackWatchTournament):
		h.answerCallback(ctx, cq.ID, "Ок, добавил все матчи турнира.")
		h.watchTournamentCallback(ctx, chatID, strings.TrimPrefix(data, callbackWatchTournament))
	default:
		h.answerCallback(ctx, cq.ID, "")
	}
}

func (h *Handler) sendTournamentsMenu(ctx context.Context, chatID int64) {
	tours, err := h.watchlists.TournamentsToday(ctx, chatID)
	if err != nil {
		h.logger.WarnContext(ctx, "tournament menu failed", "chat_id", chatID, "error", err)
	}
	if len(tours) == 0 {
		h.reply(ctx, chatID, "Сегодня турниров нет или расписание недоступно.")
		return
	}

	lines := make([]string, 0, len(tours)+1)
	lines = append(lines, "Выберите турнир на сегодня:")
	keyboard := make([][]telegram.InlineKeyboardButton, 0, len(tours))
	for i, tour := range tours {
		item := fmt.Sprintf("%d) %s", i+1, tour.Name)
		lines = append(lines, item)
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{{
			Text:         item,
			CallbackData: callbackTournament + tour.ID,
		}})
	}
	h.replyMenu(ctx, chatID, strings.Join(lines, "\n"), keyboard)
}

func (h *Handler) sendMatchesMenu(ctx context.Context, chatID int64, tournamentID string) {
	tour, events, err := h.watchlists.TournamentMatches(ctx, chatID, tournamentID)
	if err != nil {
		if !errors.Is(err, usecase.ErrNotFound) {
			h.logger.WarnContext(ctx, "matches menu failed", "chat_id", chatID, "tournament_id", tournamentID, "error", err)
		}
		h.reply(ctx, chatID, "Турнир не найден или уже недоступен.")
		return
	}

	lines := make([]string, 0, len(events)+1)
	lines = append(lines, fmt.Sprintf("Матчи: %s", tour.Name))
	keyboard := make([][]telegram.InlineKeyboardButton, 0, len(events)+1)
	for _, ev := range events {
		home := orDash(ev.HomeName)
		away := orDash(ev.AwayName)
		lines = append(lines, fmt.Sprintf("• %s — %s", home, away))
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{{
			Text:         fmt.Sprintf("Следить: %s — %s", home, away),
			CallbackData: callbackWatchEvent + ev.ProviderEventID,
		}})
	}
	keyboard = append(keyboard, []telegram.InlineKeyboardButton{{
		Text:         "✅ Следить за ВСЕМИ матчами турнира",
		CallbackData: callbackWatchTournament + tournamentID,
	}})
	h.replyMenu(ctx, chatID, strings.Join(lines, "\n"), keyboard)
}

func (h *Handler) watchEventCallback(ctx context.Context, chatID int64, eventID string) {
	ev, err := h.watchlists.WatchEvent(ctx, chatID, eventID)
	if err != nil {
		if !errors.Is(err, usecase.ErrNotFound) {
			h.logger.WarnContext(ctx, "watch event failed", "chat_id", chatID, "event_id", eventID, "error", err)
		}
		h.reply(ctx, chatID, "Матч уже недоступен.")
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("Добавил на сегодня: %s и %s. /list", ev.HomeName, ev.AwayName))
}

func (h *Handler) watchTournamentCallback(ctx context.Context, chatID int64, tournamentID string) {
	added, err := h.watchlists.WatchTournament(ctx, chatID, tournamentID)
	if err != nil {
		if !errors.Is(err, usecase.ErrNotFound) {
			h.logger.WarnContext(ctx, "watch tournament failed", "chat_id", chatID, "tournament_id", tournamentID, "error", err)
		}
		h.reply(ctx, chatID, "Турнир уже недоступен.")
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("Добавил %d игроков из турнира. /list", added))
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.messenger.Send(ctx, chatID, text); err != nil {
		h.logger.WarnContext(ctx, "telegram reply failed", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) replyMenu(ctx context.Context, chatID int64, text string, keyboard [][]telegram.InlineKeyboardButton) {
	if err := h.messenger.SendMessageWithKeyboard(ctx, chatID, text, keyboard); err != nil {
		h.logger.WarnContext(ctx, "telegram menu send failed", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) answerCallback(ctx context.Context, callbackQueryID, text string) {
	if err := h.messenger.AnswerCallbackQuery(ctx, callbackQueryID, text); err != nil {
		h.logger.WarnContext(ctx, "callback answer failed", "callback_query_id", callbackQueryID, "error", err)
	}
}

// splitCommand extracts the leading bot command and its argument tail.
// Telegram appends "@botname" to commands sent in groups; the suffix is
// stripped before matching. Non-command text yields an empty command.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	command, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}

func orDash(name string) string {
	if strings.TrimSpace(name) == "" {
		return "—"
	}
	return name
}
