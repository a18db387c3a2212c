package engine

import (
	"context"
	"sync"

	"snmvm/internal/models"
)

// backendStub is a stub for Backend. Unset functions fail the call.
type backendStub struct {
	mu    sync.Mutex
	calls []string

	listCommentsFn   func(context.Context, string) ([]*models.CommentRecord, error)
	createCommentFn  func(context.Context, models.CreateCommentRequest) (*models.CommentRecord, error)
	deleteCommentFn  func(context.Context, string) error
	createReactionFn func(context.Context, models.CreateReactionRequest) (*models.ReactionRecord, error)
	deleteReactionFn func(context.Context, string) error
	listPostsFn      func(context.Context, int, int) (*models.PostPage, error)

	invalidated []string
}

var errStubUnset = models.NewTransportError("stub", 0, nil)

func (s *backendStub) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *backendStub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *backendStub) ListComments(ctx context.Context, postID string) ([]*models.CommentRecord, error) {
	s.record("GET /comments/" + postID)
	if s.listCommentsFn == nil {
		return nil, errStubUnset
	}
	return s.listCommentsFn(ctx, postID)
}

func (s *backendStub) CreateComment(ctx context.Context, in models.CreateCommentRequest) (*models.CommentRecord, error) {
	s.record("POST /comments")
	if s.createCommentFn == nil {
		return nil, errStubUnset
	}
	return s.createCommentFn(ctx, in)
}

func (s *backendStub) DeleteComment(ctx context.Context, id string) error {
	s.record("DELETE /comments/" + id)
	if s.deleteCommentFn == nil {
		return errStubUnset
	}
	return s.deleteCommentFn(ctx, id)
}

func (s *backendStub) CreateReaction(ctx context.Context, in models.CreateReactionRequest) (*models.ReactionRecord, error) {
	s.record("POST /reactions")
	if s.createReactionFn == nil {
		return nil, errStubUnset
	}
	return s.createReactionFn(ctx, in)
}

func (s *backendStub) DeleteReaction(ctx context.Context, id string) error {
	s.record("DELETE /reactions/" + id)
	if s.deleteReactionFn == nil {
		return errStubUnset
	}
	return s.deleteReactionFn(ctx, id)
}

func (s *backendStub) ListPosts(ctx context.Context, page, limit int) (*models.PostPage, error) {
	s.record("GET /posts")
	if s.listPostsFn == nil {
		return nil, errStubUnset
	}
	return s.listPostsFn(ctx, page, limit)
}

func (s *backendStub) InvalidateComments(_ context.Context, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, postID)
}

func strPtr(s string) *string { return &s }

func commentRecord(id, parent, content string) *models.CommentRecord {
	rec := &models.CommentRecord{ID: id, PostID: "p1", Content: content}
	if parent != "" {
		rec.ParentCommentID = strPtr(parent)
	}
	return rec
}
