package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/matchpoint/internal/domain/notification"
	qb "github.com/riskibarqy/matchpoint/internal/platform/querybuilder"
)

type NotifiedRepository struct {
	db *sqlx.DB
}

func NewNotifiedRepository(db *sqlx.DB) *NotifiedRepository {
	return &NotifiedRepository{db: db}
}

type notifiedInsertModel struct {
	ChatID   int64  `db:"chat_id"`
	Provider string `db:"provider"`
	EventID  string `db:"event_id"`
	EventDay string `db:"event_day"`
}

func (r *NotifiedRepository) TryClaim(ctx context.Context, rec notification.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, fmt.Errorf("validate notification chat_id=%d: %w", rec.ChatID, err)
	}

	query, args, err := qb.InsertModel("notified", notifiedInsertModel{
		ChatID:   rec.ChatID,
		Provider: rec.Provider,
		EventID:  rec.EventID,
		EventDay: rec.EventDay,
	}, "ON CONFLICT (chat_id, provider, event_id, event_day) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build claim query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
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
	query, args, err := qb.Select("1").
		From("notified").
		Where(
			qb.Eq("chat_id", chatID),
			qb.Eq("provider", provider),
			qb.Eq("event_id", eventID),
			qb.Eq("event_day", eventDay),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build was notified query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("was notified chat_id=%d event_id=%s: %w", chatID, eventID, err)
	}
	return true, nil
}

func (r *NotifiedRepository) PruneBefore(ctx context.Context, day string) (int64, error) {
	query, args, err := qb.DeleteFrom("notified").
		Where(qb.Expr("event_day < ?", day)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build prune notified query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune notified before day=%s: %w", day, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune notified rows affected: %w", err)
	}
	return affected, nil
}
