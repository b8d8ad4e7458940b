package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/riskibarqy/matchpoint/internal/domain/watchlist"
)

type WatchlistRepository struct {
	mu     sync.RWMutex
	items  map[string]watchlist.Entry
	nextID int64
}

func NewWatchlistRepository() *WatchlistRepository {
	return &WatchlistRepository{items: make(map[string]watchlist.Entry)}
}

func watchKey(chatID int64, label, provider, day string) string {
	return fmt.Sprintf("%d|%s|%s|%s", chatID, label, provider, day)
}

func (r *WatchlistRepository) Add(_ context.Context, entry watchlist.Entry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addLocked(entry), nil
}

func (r *WatchlistRepository) AddAll(_ context.Context, entries []watchlist.Entry) (int64, error) {
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var added int64
	for _, entry := range entries {
		if r.addLocked(entry) {
			added++
		}
	}
	return added, nil
}

func (r *WatchlistRepository) addLocked(entry watchlist.Entry) bool {
	key := watchKey(entry.ChatID, entry.Label, entry.Provider, entry.ExpiresOn)
	if _, ok := r.items[key]; ok {
		return false
	}
	r.nextID++
	entry.ID = r.nextID
	r.items[key] = entry
	return true
}

func (r *WatchlistRepository) Remove(_ context.Context, chatID int64, label, day string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for key, entry := range r.items {
		if entry.ChatID == chatID && entry.Label == label && entry.ExpiresOn == day {
			delete(r.items, key)
			removed = true
		}
	}
	return removed, nil
}

func (r *WatchlistRepository) Clear(_ context.Context, chatID int64, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for key, entry := range r.items {
		if entry.ChatID == chatID && entry.ExpiresOn == day {
			delete(r.items, key)
			removed++
		}
	}
	return removed, nil
}

func (r *WatchlistRepository) ListForDay(_ context.Context, chatID int64, day string) ([]watchlist.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]watchlist.Entry, 0)
	for _, entry := range r.items {
		if entry.ChatID == chatID && entry.ExpiresOn == day {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })

	return out, nil
}

func (r *WatchlistRepository) UpdateResolution(_ context.Context, chatID int64, label, day, resolvedName, providerPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.items {
		if entry.ChatID == chatID && entry.Label == label && entry.ExpiresOn == day {
			entry.ResolvedName = resolvedName
			entry.ProviderPlayerID = providerPlayerID
			r.items[key] = entry
		}
	}
	return nil
}

func (r *WatchlistRepository) PruneBefore(_ context.Context, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for key, entry := range r.items {
		if entry.ExpiresOn < day {
			delete(r.items, key)
			removed++
		}
	}
	return removed, nil
}
