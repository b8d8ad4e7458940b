package watchlist

import "context"

// Repository describes watchlist persistence needs from use cases.
type Repository interface {
	// Add inserts one entry; false means the (chat, label, provider, day)
	// quadruple already existed.
	Add(ctx context.Context, entry Entry) (bool, error)
	// AddAll bulk-inserts entries, skipping duplicates; returns how many
	// rows were actually added.
	AddAll(ctx context.Context, entries []Entry) (int64, error)
	Remove(ctx context.Context, chatID int64, label, day string) (bool, error)
	Clear(ctx context.Context, chatID int64, day string) (int64, error)
	ListForDay(ctx context.Context, chatID int64, day string) ([]Entry, error)
	// UpdateResolution stores the provider spelling and player id once the
	// engine has matched the label to a real event participant.
	UpdateResolution(ctx context.Context, chatID int64, label, day, resolvedName, providerPlayerID string) error
	PruneBefore(ctx context.Context, day string) (int64, error)
}
