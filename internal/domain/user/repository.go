package user

import "context"

// Repository describes user persistence needs from use cases.
type Repository interface {
	// Ensure inserts the user if unknown; an existing row keeps its timezone.
	Ensure(ctx context.Context, u User) error
	SetTimezone(ctx context.Context, chatID int64, tz string) error
	Get(ctx context.Context, chatID int64) (User, bool, error)
	// List returns every known user; the detection engine fans out over it.
	List(ctx context.Context) ([]User, error)
}
