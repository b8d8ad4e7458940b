package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/matchpoint/internal/domain/watchlist"
)

const insertWatchQuery = `INSERT OR IGNORE INTO watchlist
    (chat_id, label, provider, expires_on, resolved_name, provider_player_id)
    VALUES (?, ?, ?, ?, ?, ?)`

type WatchlistRepository struct {
	db *sqlx.DB
}

func NewWatchlistRepository(db *sqlx.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

type watchRow struct {
	ID               int64   `db:"id"`
	Label            string  `db:"label"`
	ResolvedName     *string `db:"resolved_name"`
	Provider         string  `db:"provider"`
	ProviderPlayerID *string `db:"provider_player_id"`
}

func (r *WatchlistRepository) Add(ctx context.Context, entry watchlist.Entry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, fmt.Errorf("validate watch entry chat_id=%d: %w", entry.ChatID, err)
	}

	res, err := r.db.ExecContext(ctx, insertWatchQuery,
		entry.ChatID,
		strings.TrimSpace(entry.Label),
		entry.Provider,
		entry.ExpiresOn,
		optionalString(entry.ResolvedName),
		optionalString(entry.ProviderPlayerID),
	)
	if err != nil {
		return false, fmt.Errorf("add watch chat_id=%d label=%s: %w", entry.ChatID, entry.Label, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add watch rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *WatchlistRepository) AddAll(ctx context.Context, entries []watchlist.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx add watches: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var added int64
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return 0, fmt.Errorf("validate watch entry chat_id=%d label=%s: %w", entry.ChatID, entry.Label, err)
		}

		res, err := tx.ExecContext(ctx, insertWatchQuery,
			entry.ChatID,
			strings.TrimSpace(entry.Label),
			entry.Provider,
			entry.ExpiresOn,
			optionalString(entry.ResolvedName),
			optionalString(entry.ProviderPlayerID),
		)
		if err != nil {
			return 0, fmt.Errorf("add watch chat_id=%d label=%s: %w", entry.ChatID, entry.Label, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("add watch rows affected: %w", err)
		}
		added += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit add watches tx: %w", err)
	}
	return added, nil
}

func (r *WatchlistRepository) Remove(ctx context.Context, chatID int64, label, day string) (bool, error) {
	const query = `DELETE FROM watchlist WHERE chat_id = ? AND label = ? AND expires_on = ?`

	res, err := r.db.ExecContext(ctx, query, chatID, label, day)
	if err != nil {
		return false, fmt.Errorf("remove watch chat_id=%d label=%s: %w", chatID, label, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove watch rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *WatchlistRepository) Clear(ctx context.Context, chatID int64, day string) (int64, error) {
	const query = `DELETE FROM watchlist WHERE chat_id = ? AND expires_on = ?`

	res, err := r.db.ExecContext(ctx, query, chatID, day)
	if err != nil {
		return 0, fmt.Errorf("clear watches chat_id=%d: %w", chatID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear watches rows affected: %w", err)
	}
	return affected, nil
}

func (r *WatchlistRepository) ListForDay(ctx context.Context, chatID int64, day string) ([]watchlist.Entry, error) {
	const query = `SELECT id, label, resolved_name, provider, provider_player_id
        FROM watchlist WHERE chat_id = ? AND expires_on = ? ORDER BY label ASC`

	var rows []watchRow
	if err := r.db.SelectContext(ctx, &rows, query, chatID, day); err != nil {
		return nil, fmt.Errorf("list watches chat_id=%d day=%s: %w", chatID, day, err)
	}

	out := make([]watchlist.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, watchlist.Entry{
			ID:               row.ID,
			ChatID:           chatID,
			Label:            row.Label,
			ResolvedName:     stringValue(row.ResolvedName),
			Provider:         row.Provider,
			ProviderPlayerID: stringValue(row.ProviderPlayerID),
			ExpiresOn:        day,
		})
	}
	return out, nil
}

func (r *WatchlistRepository) UpdateResolution(ctx context.Context, chatID int64, label, day, resolvedName, providerPlayerID string) error {
	const query = `UPDATE watchlist SET resolved_name = ?, provider_player_id = ?
        WHERE chat_id = ? AND label = ? AND expires_on = ?`

	if _, err := r.db.ExecContext(ctx, query,
		optionalString(resolvedName), optionalString(providerPlayerID), chatID, label, day); err != nil {
		return fmt.Errorf("update resolution chat_id=%d label=%s: %w", chatID, label, err)
	}
	return nil
}

func (r *WatchlistRepository) PruneBefore(ctx context.Context, day string) (int64, error) {
	const query = `DELETE FROM watchlist WHERE expires_on < ?`

	res, err := r.db.ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("prune watches before day=%s: %w", day, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune watches rows affected: %w", err)
	}
	return affected, nil
}
