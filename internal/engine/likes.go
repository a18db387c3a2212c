package engine

import (
	"context"
	"sync"

	"snmvm/internal/models"
)

// LikeState holds the like state of a single post or comment shown on its
// own, outside a feed or thread.
type LikeState struct {
	e  *Engine
	mu sync.Mutex
	r  models.Reactable
}

// NewLikeState wraps the current like state of a target.
func (e *Engine) NewLikeState(r models.Reactable) *LikeState {
	if !r.Liked {
		r.ReactionID = ""
	}
	if r.Count < 0 {
		r.Count = 0
	}
	return &LikeState{e: e, r: r}
}

// Snapshot returns the state currently displayed.
func (s *LikeState) Snapshot() models.Reactable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r
}

// Toggle likes or unlikes the target. The displayed state changes before the
// backend call; on failure it returns to the pre-toggle state and the error
// is returned.
func (s *LikeState) Toggle(ctx context.Context) (models.Reactable, error) {
	key := s.Snapshot().Key()
	return s.e.toggleLike(ctx, key, func(fn func(r *models.Reactable)) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(&s.r)
		return true
	})
}
