package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/matchpoint/internal/domain/user"
	qb "github.com/riskibarqy/matchpoint/internal/platform/querybuilder"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userInsertModel struct {
	ChatID   int64  `db:"chat_id"`
	Timezone string `db:"tz"`
}

type userRow struct {
	ChatID   int64  `db:"chat_id"`
	Timezone string `db:"tz"`
}

func (r *UserRepository) Ensure(ctx context.Context, u user.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("validate user chat_id=%d: %w", u.ChatID, err)
	}

	query, args, err := qb.InsertModel("users", userInsertModel{
		ChatID:   u.ChatID,
		Timezone: u.Timezone,
	}, "ON CONFLICT (chat_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build ensure user query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure user chat_id=%d: %w", u.ChatID, err)
	}
	return nil
}

func (r *UserRepository) SetTimezone(ctx context.Context, chatID int64, tz string) error {
	query, args, err := qb.Update("users").
		Set("tz", tz).
		Where(qb.Eq("chat_id", chatID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set timezone query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set timezone chat_id=%d: %w", chatID, err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, chatID int64) (user.User, bool, error) {
	query, args, err := qb.Select("chat_id", "tz").
		From("users").
		Where(qb.Eq("chat_id", chatID)).
		ToSQL()
	if err != nil {
		return user.User{}, false, fmt.Errorf("build get user query: %w", err)
	}

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("get user chat_id=%d: %w", chatID, err)
	}

	return user.User{ChatID: row.ChatID, Timezone: row.Timezone}, true, nil
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	query, args, err := qb.Select("chat_id", "tz").
		From("users").
		OrderBy("chat_id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list users query: %w", err)
	}

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, user.User{ChatID: row.ChatID, Timezone: row.Timezone})
	}
	return out, nil
}
