package telegram

import (
	"context"

	"github.com/riskibarqy/matchpoint/internal/platform/logging"
)

// LogSink logs rendered cards instead of delivering them. It stands in for
// the real client when no bot token is configured, so dry runs and local
// development exercise the full detection path.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, chatID int64, text string) error {
	s.logger.InfoContext(ctx, "dry-run notification", "chat_id", chatID, "text", text)
	return nil
}

func (s *LogSink) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard [][]InlineKeyboardButton) error {
	rows := make([][]string, 0, len(keyboard))
	for _, row := range keyboard {
		labels := make([]string, 0, len(row))
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
		rows = append(rows, labels)
	}
	s.logger.InfoContext(ctx, "dry-run menu", "chat_id", chatID, "text", text, "keyboard", rows)
	return nil
}

func (s *LogSink) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	s.logger.InfoContext(ctx, "dry-run callback answer", "callback_query_id", callbackQueryID, "text", text)
	return nil
}
