package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/matchpoint/internal/domain/user"
)

type UserRepository struct {
	mu    sync.RWMutex
	items map[int64]user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{items: make(map[int64]user.User)}
}

func (r *UserRepository) Ensure(_ context.Context, u user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[u.ChatID]; ok {
		return nil
	}
	r.items[u.ChatID] = u
	return nil
}

func (r *UserRepository) SetTimezone(_ context.Context, chatID int64, tz string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[chatID]
	if !ok {
		return nil
	}
	u.Timezone = tz
	r.items[chatID] = u
	return nil
}

func (r *UserRepository) Get(_ context.Context, chatID int64) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[chatID]
	if !ok {
		return user.User{}, false, nil
	}
	return u, true, nil
}

func (r *UserRepository) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })

	return out, nil
}
