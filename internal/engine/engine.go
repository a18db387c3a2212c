// Package engine implements the optimistic interaction protocol for likes,
// comments and replies: local state changes immediately, one backend call is
// issued, and the change is then confirmed or rolled back.
package engine

import (
	"context"
	"strings"
	"time"

	"snmvm/internal/models"
	"snmvm/internal/observability"
)

// Display values for entries the backend has not confirmed yet.
const (
	SelfAuthor   = "Vous"
	JustNowLabel = "à l'instant"
)

// CommentBackend is the comment part of the backend contract.
type CommentBackend interface {
	ListComments(ctx context.Context, postID string) ([]*models.CommentRecord, error)
	CreateComment(ctx context.Context, in models.CreateCommentRequest) (*models.CommentRecord, error)
	DeleteComment(ctx context.Context, id string) error
}

// ReactionBackend is the reaction part of the backend contract.
type ReactionBackend interface {
	CreateReaction(ctx context.Context, in models.CreateReactionRequest) (*models.ReactionRecord, error)
	DeleteReaction(ctx context.Context, id string) error
}

// PostBackend serves the feed.
type PostBackend interface {
	ListPosts(ctx context.Context, page, limit int) (*models.PostPage, error)
}

// Backend is everything the engine calls. *apiclient.Client implements it.
type Backend interface {
	CommentBackend
	ReactionBackend
	PostBackend
}

// commentInvalidator is implemented by backends that cache comment lists.
type commentInvalidator interface {
	InvalidateComments(ctx context.Context, postID string)
}

// commentRefresher is implemented by backends that can skip their cache.
type commentRefresher interface {
	RefreshComments(ctx context.Context, postID string) ([]*models.CommentRecord, error)
}

// Engine owns the per-target serialization and the tentative id generator
// shared by every thread and feed built from it.
type Engine struct {
	backend Backend
	locks   *KeyedMutex
	ids     *TentativeIDs
	log     *observability.EngineLogger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sends the engine's operation logs to logger.
func WithLogger(logger *observability.Logger) Option {
	return func(e *Engine) { e.log = observability.NewEngineLoggerWith("engine", logger) }
}

// WithClock replaces the clock used for tentative identifiers.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.ids.now = now }
}

// New returns an Engine issuing its calls to backend.
func New(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		locks:   NewKeyedMutex(),
		ids:     &TentativeIDs{},
		log:     observability.NewEngineLogger("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mutateFunc runs fn on a reactable under its owner's lock. It reports false
// when the reactable no longer exists.
type mutateFunc func(fn func(r *models.Reactable)) bool

// toggleLike runs the like/unlike protocol on the reactable reached through
// mutate. Toggles sharing key are serialized.
func (e *Engine) toggleLike(ctx context.Context, key string, mutate mutateFunc) (models.Reactable, error) {
	ctx = observability.EnsureCorrelationID(ctx)

	unlock, err := e.locks.Lock(ctx, key)
	if err != nil {
		return models.Reactable{}, err
	}
	defer unlock()

	var (
		before     models.Reactable
		after      models.Reactable
		reactionID string
	)
	found := mutate(func(r *models.Reactable) {
		before = *r
		switch {
		case !r.Liked:
			r.Liked = true
			r.Increment()
		default:
			reactionID = r.ReactionID
			r.Liked = false
			r.ReactionID = ""
			r.Decrement()
		}
		after = *r
	})
	if !found {
		return models.Reactable{}, models.NewNotFoundError("reactable", key)
	}

	if before.Liked && reactionID == "" {
		e.log.LogLocal(ctx, "unlike", key, "no reaction id to delete")
		return after, nil
	}

	if !before.Liked {
		e.log.LogApplied(ctx, "like", key, map[string]interface{}{"count": after.Count})
		rec, err := e.backend.CreateReaction(ctx, models.NewLikeRequest(before.Type, before.ID))
		if err != nil {
			return e.restore(ctx, "like", key, mutate, before, err)
		}
		reaction := rec.ToReaction()
		fields := map[string]interface{}{"reaction_id": reaction.ID}
		if target := reaction.Key(); target != "" {
			fields["reaction_target"] = target
			if target != key {
				e.log.LogMismatch(ctx, "like", key, fields)
			}
		}
		mutate(func(r *models.Reactable) {
			r.ReactionID = reaction.ID
			after = *r
		})
		e.log.LogConfirmed(ctx, "like", key, fields)
		return after, nil
	}

	e.log.LogApplied(ctx, "unlike", key, map[string]interface{}{"count": after.Count})
	if err := e.backend.DeleteReaction(ctx, reactionID); err != nil {
		return e.restore(ctx, "unlike", key, mutate, before, err)
	}
	e.log.LogConfirmed(ctx, "unlike", key, map[string]interface{}{"reaction_id": reactionID})
	mutate(func(r *models.Reactable) { after = *r })
	return after, nil
}

// restore puts back the pre-toggle like state after a failed call.
func (e *Engine) restore(ctx context.Context, op, key string, mutate mutateFunc, before models.Reactable, cause error) (models.Reactable, error) {
	mutate(func(r *models.Reactable) {
		r.Liked = before.Liked
		r.Count = before.Count
		r.ReactionID = before.ReactionID
	})
	e.log.LogRolledBack(ctx, op, key, cause)
	return before, cause
}

// freshComments lists the comments of a post, bypassing any cached copy.
func (e *Engine) freshComments(ctx context.Context, postID string) ([]*models.CommentRecord, error) {
	if r, ok := e.backend.(commentRefresher); ok {
		return r.RefreshComments(ctx, postID)
	}
	return e.backend.ListComments(ctx, postID)
}

func (e *Engine) invalidateComments(ctx context.Context, postID string) {
	if inv, ok := e.backend.(commentInvalidator); ok {
		inv.InvalidateComments(ctx, postID)
	}
}

// CanDelete reports whether viewer may delete a comment or reply written by
// itemAuthor under a post written by postAuthor. Names compare trimmed and
// case-insensitively; the self placeholder always counts as the viewer.
func CanDelete(viewer, postAuthor, itemAuthor string) bool {
	v := normalizeName(viewer)
	if v != "" && v == normalizeName(postAuthor) {
		return true
	}
	item := normalizeName(itemAuthor)
	if item == normalizeName(SelfAuthor) || item == "you" {
		return true
	}
	return v != "" && v == item
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
