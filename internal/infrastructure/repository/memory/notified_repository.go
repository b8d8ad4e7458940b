package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/matchpoint/internal/domain/notification"
)

type NotifiedRepository struct {
	mu    sync.Mutex
	items map[string]notification.Record
	now   func() time.Time
}

func NewNotifiedRepository() *NotifiedRepository {
	return &NotifiedRepository{
		items: make(map[string]notification.Record),
		now:   time.Now,
	}
}

func notifiedKey(chatID int64, provider, eventID, eventDay string) string {
	return fmt.Sprintf("%d|%s|%s|%s", chatID, provider, eventID, eventDay)
}

func (r *NotifiedRepository) TryClaim(_ context.Context, rec notification.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := notifiedKey(rec.ChatID, rec.Provider, rec.EventID, rec.EventDay)
	if _, ok := r.items[key]; ok {
		return false, nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	r.items[key] = rec
	return true, nil
}

func (r *NotifiedRepository) WasNotified(_ context.Context, chatID int64, provider, eventID, eventDay string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.items[notifiedKey(chatID, provider, eventID, eventDay)]
	return ok, nil
}

func (r *NotifiedRepository) PruneBefore(_ context.Context, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for key, rec := range r.items {
		if rec.EventDay < day {
			delete(r.items, key)
			removed++
		}
	}
	return removed, nil
}
