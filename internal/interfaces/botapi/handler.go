package botapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/matchpoint/external/telegram"
	"github.com/riskibarqy/matchpoint/internal/usecase"
)

// Messenger is the slice of the Telegram client the webhook replies through.
// telegram.Client implements it against the Bot API; telegram.LogSink stands
// in when no bot token is configured.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard [][]telegram.InlineKeyboardButton) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}

// StoragePinger reports backing-store liveness for /healthz. The memory
// driver passes nil and the check is skipped.
type StoragePinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	watchlists    *usecase.WatchlistService
	detector      *usecase.DetectionService
	messenger     Messenger
	storage       StoragePinger
	webhookSecret string
	helpText      string
	logger        *slog.Logger
	validator     *validator.Validate
}

func NewHandler(
	watchlists *usecase.WatchlistService,
	detector *usecase.DetectionService,
	messenger Messenger,
	storage StoragePinger,
	webhookSecret string,
	pollInterval time.Duration,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		watchlists:    watchlists,
		detector:      detector,
		messenger:     messenger,
		storage:       storage,
		webhookSecret: webhookSecret,
		helpText:      fmt.Sprintf(helpTextFormat, int(pollInterval.Seconds())),
		logger:        logger,
		validator:     validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "botapi.Handler.Healthz")
	defer span.End()

	if h.storage != nil {
		if err := h.storage.PingContext(ctx); err != nil {
			h.logger.ErrorContext(ctx, "storage ping failed", "error", err)
			writeError(ctx, w, fmt.Errorf("%w: storage ping failed", usecase.ErrDependencyUnavailable))
			return
		}
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "botapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
