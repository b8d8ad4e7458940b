package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/matchpoint/internal/domain/watchlist"
	qb "github.com/riskibarqy/matchpoint/internal/platform/querybuilder"
)

const watchlistConflictSuffix = "ON CONFLICT (chat_id, label, provider, expires_on) DO NOTHING"

type WatchlistRepository struct {
	db *sqlx.DB
}

func NewWatchlistRepository(db *sqlx.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

type watchInsertModel struct {
	ChatID           int64   `db:"chat_id"`
	Label            string  `db:"label"`
	ResolvedName     *string `db:"resolved_name"`
	Provider         string  `db:"provider"`
	ProviderPlayerID *string `db:"provider_player_id"`
	ExpiresOn        string  `db:"expires_on"`
}

type watchRow struct {
	ID               int64   `db:"id"`
	Label            string  `db:"label"`
	ResolvedName     *string `db:"resolved_name"`
	Provider         string  `db:"provider"`
	ProviderPlayerID *string `db:"provider_player_id"`
}

func watchModel(entry watchlist.Entry) watchInsertModel {
	return watchInsertModel{
		ChatID:           entry.ChatID,
		Label:            strings.TrimSpace(entry.Label),
		ResolvedName:     optionalString(entry.ResolvedName),
		Provider:         entry.Provider,
		ProviderPlayerID: optionalString(entry.ProviderPlayerID),
		ExpiresOn:        entry.ExpiresOn,
	}
}

func (r *WatchlistRepository) Add(ctx context.Context, entry watchlist.Entry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, fmt.Errorf("validate watch entry chat_id=%d: %w", entry.ChatID, err)
	}

	query, args, err := qb.InsertModel("watchlist", watchModel(entry), watchlistConflictSuffix)
	if err != nil {
		return false, fmt.Errorf("build add watch query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
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

		query, args, err := qb.InsertModel("watchlist", watchModel(entry), watchlistConflictSuffix)
		if err != nil {
			return 0, fmt.Errorf("build add watch query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
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
	query, args, err := qb.DeleteFrom("watchlist").
		Where(qb.Eq("chat_id", chatID), qb.Eq("label", label), qb.Eq("expires_on", day)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build remove watch query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
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
	query, args, err := qb.DeleteFrom("watchlist").
		Where(qb.Eq("chat_id", chatID), qb.Eq("expires_on", day)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build clear watches query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
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
	query, args, err := qb.Select("id", "label", "resolved_name", "provider", "provider_player_id").
		From("watchlist").
		Where(qb.Eq("chat_id", chatID), qb.Eq("expires_on", day)).
		OrderBy("label ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list watches query: %w", err)
	}

	var rows []watchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
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
	query, args, err := qb.Update("watchlist").
		Set("resolved_name", optionalString(resolvedName)).
		Set("provider_player_id", optionalString(providerPlayerID)).
		Where(qb.Eq("chat_id", chatID), qb.Eq("label", label), qb.Eq("expires_on", day)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update resolution query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update resolution chat_id=%d label=%s: %w", chatID, label, err)
	}
	return nil
}

func (r *WatchlistRepository) PruneBefore(ctx context.Context, day string) (int64, error) {
	query, args, err := qb.DeleteFrom("watchlist").
		Where(qb.Expr("expires_on < ?", day)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build prune watches query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune watches before day=%s: %w", day, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune watches rows affected: %w", err)
	}
	return affected, nil
}
