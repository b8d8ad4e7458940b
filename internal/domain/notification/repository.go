package notification

import "context"

// Repository is the dedup store contract.
type Repository interface {
	// TryClaim atomically inserts the record; true iff this call created
	// the row. At most one caller ever gets true per key, enforced by the
	// store's unique constraint, not by app-level locks.
	TryClaim(ctx context.Context, rec Record) (bool, error)
	// WasNotified is a read-only pre-check; TryClaim stays the authority.
	WasNotified(ctx context.Context, chatID int64, provider, eventID, eventDay string) (bool, error)
	PruneBefore(ctx context.Context, day string) (int64, error)
}
