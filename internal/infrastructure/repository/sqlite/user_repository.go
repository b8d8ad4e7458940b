package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/matchpoint/internal/domain/user"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ChatID   int64  `db:"chat_id"`
	Timezone string `db:"tz"`
}

func (r *UserRepository) Ensure(ctx context.Context, u user.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("validate user chat_id=%d: %w", u.ChatID, err)
	}

	const query = `INSERT OR IGNORE INTO users(chat_id, tz) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, u.ChatID, u.Timezone); err != nil {
		return fmt.Errorf("ensure user chat_id=%d: %w", u.ChatID, err)
	}
	return nil
}

func (r *UserRepository) SetTimezone(ctx context.Context, chatID int64, tz string) error {
	const query = `UPDATE users SET tz = ? WHERE chat_id = ?`
	if _, err := r.db.ExecContext(ctx, query, tz, chatID); err != nil {
		return fmt.Errorf("set timezone chat_id=%d: %w", chatID, err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, chatID int64) (user.User, bool, error) {
	const query = `SELECT chat_id, tz FROM users WHERE chat_id = ?`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, chatID); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("get user chat_id=%d: %w", chatID, err)
	}
	return user.User{ChatID: row.ChatID, Timezone: row.Timezone}, true, nil
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	const query = `SELECT chat_id, tz FROM users ORDER BY chat_id ASC`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, user.User{ChatID: row.ChatID, Timezone: row.Timezone})
	}
	return out, nil
}
