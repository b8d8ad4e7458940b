package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/matchpoint/internal/domain/notification"
)

type NotifiedRepository struct {
	db *sqlx.DB
}

func NewNotifiedRepository(db *sqlx.DB) *NotifiedRepository {
	return &NotifiedRepository{db: db}
}

func (r *NotifiedRepository) TryClaim(ctx context.Context, rec notification.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, fmt.Errorf("validate notification chat_id=%d: %w", rec.ChatID, err)
	}

	const query = `INSERT OR IGNORE INTO notified(chat_id, provider, event_id, event_day)
        VALUES (?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, rec.ChatID, rec.Provider, rec.EventID, rec.EventDay)
	if err != nil {
		if isBusy(err) {
			return false, fmt.Errorf("claim chat_id=%d event_id=%s: %w", rec.ChatID, rec.EventID, notification.ErrStoreBusy)
		}
		return false, fmt.Errorf("claim chat_id=%d event_id=%s: %w", rec.ChatID, rec.EventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *NotifiedRepository) WasNotified(ctx context.Context, chatID int64, provider, eventID, eventDay string) (bool, error) {
	const query = `SELECT 1 FROM notified
        WHERE chat_id = ? AND provider = ? AND event_id = ? AND event_day = ? LIMIT 1`

	var one int
	if err := r.db.GetContext(ctx, &one, query, chatID, provider, eventID, eventDay); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("was notified chat_id=%d event_id=%s: %w", chatID, eventID, err)
	}
	return true, nil
}

func (r *NotifiedRepository) PruneBefore(ctx context.Context, day string) (int64, error) {
	const query = `DELETE FROM notified WHERE event_day < ?`

	res, err := r.db.ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("prune notified before day=%s: %w", day, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune notified rows affected: %w", err)
	}
	return affected, nil
}
