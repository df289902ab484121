package memory

import (
	"time"

	"ai-testgen-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// StateRepository keeps recently touched generation states in process memory
// so stage operations don't unmarshal the JSONB blob on every request. The
// database row stays the source of truth.
type StateRepository struct {
	cache *cache.Cache
}

func NewStateRepository() *StateRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &StateRepository{
		cache: c,
	}
}

func (r *StateRepository) Save(sessionID string, state *store.GenerationState) {
	r.cache.Set(sessionID, state, cache.DefaultExpiration)
}

func (r *StateRepository) Get(sessionID string) (*store.GenerationState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.GenerationState), true
	}
	return nil, false
}

func (r *StateRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
