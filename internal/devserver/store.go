package devserver

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"snmvm/internal/models"

	"github.com/google/uuid"
)

type user struct {
	ID       string
	Email    string
	FullName string
}

type post struct {
	ID        string
	UserID    string
	Content   string
	CreatedAt time.Time
}

type comment struct {
	ID        string
	PostID    string
	ParentID  string
	UserID    string
	Content   string
	CreatedAt time.Time
}

type reaction struct {
	ID        string
	UserID    string
	Type      string
	PostID    string
	CommentID string
}

// Store is the in-memory forum state behind the dev server.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*user
	posts     map[string]*post
	comments  map[string]*comment
	reactions map[string]*reaction
	now       func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*user),
		posts:     make(map[string]*post),
		comments:  make(map[string]*comment),
		reactions: make(map[string]*reaction),
		now:       time.Now,
	}
}

func statusError(status int, code, format string, args ...interface{}) *models.AppError {
	return &models.AppError{Code: code, Message: fmt.Sprintf(format, args...), Status: status}
}

func badRequest(format string, args ...interface{}) *models.AppError {
	return statusError(http.StatusBadRequest, models.CodeValidation, format, args...)
}

// EnsureUser registers a user, updating its email and name when given.
func (s *Store) EnsureUser(id, email, fullName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureUserLocked(id, email, fullName)
}

func (s *Store) ensureUserLocked(id, email, fullName string) {
	u, ok := s.users[id]
	if !ok {
		u = &user{ID: id}
		s.users[id] = u
	}
	if email != "" {
		u.Email = email
	}
	if fullName != "" {
		u.FullName = fullName
	}
}

// AddPost creates a post authored by userID.
func (s *Store) AddPost(userID, content string) (*models.PostRecord, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, badRequest("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureUserLocked(userID, "", "")
	p := &post{ID: uuid.NewString(), UserID: userID, Content: content, CreatedAt: s.now().UTC()}
	s.posts[p.ID] = p
	return s.postRecordLocked(p, userID), nil
}

// ListPosts returns one page of posts, newest first.
func (s *Store) ListPosts(viewer string, page, limit int) *models.PostPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*post, 0, len(s.posts))
	for _, p := range s.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	out := &models.PostPage{Data: []*models.PostRecord{}, Page: page, Limit: limit, Total: len(all)}
	start := (page - 1) * limit
	if start >= len(all) {
		return out
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	for _, p := range all[start:end] {
		out.Data = append(out.Data, s.postRecordLocked(p, viewer))
	}
	return out
}

// GetPost returns one post.
func (s *Store) GetPost(viewer, id string) (*models.PostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("post", id)
	}
	return s.postRecordLocked(p, viewer), nil
}

// ListComments returns every comment and reply of a post: top-level
// comments newest first, then replies in creation order.
func (s *Store) ListComments(viewer, postID string) ([]*models.CommentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.posts[postID]; !ok {
		return nil, models.NewNotFoundError("post", postID)
	}

	var top, replies []*comment
	for _, c := range s.comments {
		if c.PostID != postID {
			continue
		}
		if c.ParentID == "" {
			top = append(top, c)
		} else {
			replies = append(replies, c)
		}
	}
	sort.Slice(top, func(i, j int) bool { return top[i].CreatedAt.After(top[j].CreatedAt) })
	sort.Slice(replies, func(i, j int) bool { return replies[i].CreatedAt.Before(replies[j].CreatedAt) })

	out := make([]*models.CommentRecord, 0, len(top)+len(replies))
	for _, c := range append(top, replies...) {
		out = append(out, s.commentRecordLocked(c, viewer))
	}
	return out, nil
}

// AddComment creates a comment, or a reply when ParentCommentID is set.
func (s *Store) AddComment(userID string, in models.CreateCommentRequest) (*models.CommentRecord, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, badRequest("content is required")
	}
	if in.PostID == "" {
		return nil, badRequest("postId is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[in.PostID]; !ok {
		return nil, models.NewNotFoundError("post", in.PostID)
	}

	c := &comment{
		ID:        uuid.NewString(),
		PostID:    in.PostID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if in.ParentCommentID != nil && *in.ParentCommentID != "" {
		parent, ok := s.comments[*in.ParentCommentID]
		if !ok {
			return nil, models.NewNotFoundError("comment", *in.ParentCommentID)
		}
		if parent.PostID != in.PostID {
			return nil, badRequest("parent comment belongs to another post")
		}
		c.ParentID = parent.ID
	}
	s.comments[c.ID] = c
	return s.commentRecordLocked(c, userID), nil
}

// DeleteComment removes a comment authored by userID together with its
// replies and their reactions.
func (s *Store) DeleteComment(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return models.NewNotFoundError("comment", id)
	}
	if c.UserID != userID {
		return statusError(http.StatusForbidden, models.CodeUnauthorized, "only the author can delete this comment")
	}

	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, other := range s.comments {
			if !doomed[other.ID] && doomed[other.ParentID] {
				doomed[other.ID] = true
				changed = true
			}
		}
	}
	for cid := range doomed {
		delete(s.comments, cid)
	}
	for rid, r := range s.reactions {
		if doomed[r.CommentID] {
			delete(s.reactions, rid)
		}
	}
	return nil
}

// AddReaction records a like on exactly one of a post or a comment.
func (s *Store) AddReaction(userID string, in models.CreateReactionRequest) (*models.ReactionRecord, error) {
	if (in.PostID == "") == (in.CommentID == "") {
		return nil, badRequest("exactly one of postId or commentId is required")
	}
	kind := in.Type
	if kind == "" {
		kind = models.ReactionLike
	}
	if kind != models.ReactionLike {
		return nil, badRequest("unsupported reaction type %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.PostID != "" {
		if _, ok := s.posts[in.PostID]; !ok {
			return nil, models.NewNotFoundError("post", in.PostID)
		}
	} else if _, ok := s.comments[in.CommentID]; !ok {
		return nil, models.NewNotFoundError("comment", in.CommentID)
	}
	for _, r := range s.reactions {
		if r.UserID == userID && r.PostID == in.PostID && r.CommentID == in.CommentID {
			return nil, statusError(http.StatusConflict, models.CodeValidation, "already liked")
		}
	}

	r := &reaction{ID: uuid.NewString(), UserID: userID, Type: kind, PostID: in.PostID, CommentID: in.CommentID}
	s.reactions[r.ID] = r
	return reactionRecord(r), nil
}

// DeleteReaction removes a reaction owned by userID.
func (s *Store) DeleteReaction(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reactions[id]
	if !ok {
		return models.NewNotFoundError("reaction", id)
	}
	if r.UserID != userID {
		return statusError(http.StatusForbidden, models.CodeUnauthorized, "only the owner can remove this reaction")
	}
	delete(s.reactions, id)
	return nil
}

func (s *Store) authorLocked(id string) *models.AuthorRecord {
	u, ok := s.users[id]
	if !ok {
		return &models.AuthorRecord{ID: id}
	}
	rec := &models.AuthorRecord{ID: u.ID, Email: u.Email}
	if u.FullName != "" {
		rec.Profile = &models.ProfileRecord{FullName: u.FullName}
	}
	return rec
}

// reactionsLocked counts likes on a target and finds the viewer's own.
func (s *Store) reactionsLocked(postID, commentID, viewer string) (int, *models.ReactionRecord) {
	count := 0
	var mine *models.ReactionRecord
	for _, r := range s.reactions {
		if r.PostID != postID || r.CommentID != commentID {
			continue
		}
		count++
		if viewer != "" && r.UserID == viewer {
			mine = reactionRecord(r)
		}
	}
	return count, mine
}

func (s *Store) postRecordLocked(p *post, viewer string) *models.PostRecord {
	count, mine := s.reactionsLocked(p.ID, "", viewer)
	comments := 0
	for _, c := range s.comments {
		if c.PostID == p.ID {
			comments++
		}
	}
	return &models.PostRecord{
		ID:             p.ID,
		Content:        p.Content,
		CreatedAt:      p.CreatedAt,
		User:           s.authorLocked(p.UserID),
		ReactionsCount: count,
		CommentsCount:  comments,
		UserReaction:   mine,
	}
}

func (s *Store) commentRecordLocked(c *comment, viewer string) *models.CommentRecord {
	count, mine := s.reactionsLocked("", c.ID, viewer)
	rec := &models.CommentRecord{
		ID:             c.ID,
		PostID:         c.PostID,
		Content:        c.Content,
		CreatedAt:      c.CreatedAt,
		User:           s.authorLocked(c.UserID),
		ReactionsCount: count,
		UserReaction:   mine,
	}
	if c.ParentID != "" {
		parent := c.ParentID
		rec.ParentCommentID = &parent
	}
	return rec
}

func reactionRecord(r *reaction) *models.ReactionRecord {
	rec := &models.ReactionRecord{ID: r.ID, Type: r.Type}
	if r.PostID != "" {
		id := r.PostID
		rec.PostID = &id
	}
	if r.CommentID != "" {
		id := r.CommentID
		rec.CommentID = &id
	}
	return rec
}
