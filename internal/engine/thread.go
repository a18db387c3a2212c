package engine

import (
	"context"
	"slices"
	"strings"
	"sync"

	"snmvm/internal/models"
	"snmvm/internal/observability"
)

// Thread is the comment section of one post: top-level comments newest first,
// each with its replies in insertion order.
type Thread struct {
	e      *Engine
	postID string

	mu       sync.Mutex
	comments []*models.Comment
}

// Thread returns an empty thread for postID. Call Load to fill it.
func (e *Engine) Thread(postID string) *Thread {
	return &Thread{e: e, postID: postID, comments: []*models.Comment{}}
}

// PostID is the post the thread belongs to.
func (t *Thread) PostID() string {
	return t.postID
}

// Comments returns a deep copy of the displayed comments.
func (t *Thread) Comments() []*models.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*models.Comment, 0, len(t.comments))
	for _, c := range t.comments {
		out = append(out, c.Clone())
	}
	return out
}

// Load fetches every comment of the post in one call and replaces the
// displayed list with the grouped result. Opening a thread always goes to the
// backend; only feed previews are served from the cache.
func (t *Thread) Load(ctx context.Context) error {
	return t.load(ctx, t.e.freshComments)
}

func (t *Thread) load(ctx context.Context, list func(context.Context, string) ([]*models.CommentRecord, error)) error {
	records, err := list(ctx, t.postID)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "loading comments failed",
			"post_id", t.postID, "error", err.Error())
		return err
	}

	comments, orphans := GroupReplies(records)
	if orphans > 0 {
		observability.GlobalLogger.WarnContext(ctx, "dropped replies without a known parent",
			"post_id", t.postID, "count", orphans)
	}

	t.mu.Lock()
	t.comments = comments
	t.mu.Unlock()
	return nil
}

// GroupReplies partitions flat records into top-level comments, in the given
// order, with each reply attached under its top-level ancestor. It also
// returns how many replies had no resolvable parent.
func GroupReplies(records []*models.CommentRecord) ([]*models.Comment, int) {
	top := make([]*models.Comment, 0, len(records))
	byID := make(map[string]*models.Comment, len(records))
	parentOf := make(map[string]string, len(records))

	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		parentOf[rec.ID] = rec.ParentID()
		if rec.ParentID() == "" {
			c := rec.ToComment()
			top = append(top, c)
			byID[c.ID] = c
		}
	}

	orphans := 0
	for _, rec := range records {
		if rec == nil || rec.ID == "" || rec.ParentID() == "" {
			continue
		}
		root := rootOf(rec.ParentID(), parentOf)
		parent, ok := byID[root]
		if !ok {
			orphans++
			continue
		}
		reply := rec.ToComment()
		reply.ParentID = parent.ID
		parent.Replies = append(parent.Replies, reply)
	}
	return top, orphans
}

// rootOf follows parent links up to a top-level id; a cycle or a missing
// link yields "".
func rootOf(id string, parentOf map[string]string) string {
	seen := make(map[string]bool)
	for {
		parent, ok := parentOf[id]
		if !ok || seen[id] {
			return ""
		}
		if parent == "" {
			return id
		}
		seen[id] = true
		id = parent
	}
}

func (t *Thread) tentative(parentID, content string) *models.Comment {
	id := t.e.ids.Next()
	return &models.Comment{
		ID:        id,
		PostID:    t.postID,
		ParentID:  parentID,
		Author:    SelfAuthor,
		TimeLabel: JustNowLabel,
		Content:   content,
		Likes:     models.Reactable{Type: models.TargetComment, ID: id},
		Replies:   []*models.Comment{},
	}
}

// CreateComment posts the draft as a new top-level comment. Whitespace-only
// drafts do nothing. The tentative comment is shown first and the draft is
// cleared right away; on success the tentative entry is replaced in place by
// the confirmed one, on failure it is removed and the error returned.
func (t *Thread) CreateComment(ctx context.Context, draft *Draft) (*models.Comment, error) {
	content := strings.TrimSpace(draft.Text())
	if content == "" || t.postID == "" {
		return nil, nil
	}
	ctx = observability.EnsureCorrelationID(ctx)

	tmp := t.tentative("", content)
	t.mu.Lock()
	t.comments = slices.Insert(t.comments, 0, tmp)
	t.mu.Unlock()
	draft.Clear()
	t.e.log.LogApplied(ctx, "create_comment", tmp.ID, nil)

	rec, err := t.e.backend.CreateComment(ctx, models.CreateCommentRequest{
		PostID:  t.postID,
		Content: content,
	})
	if err != nil {
		t.mu.Lock()
		t.comments = slices.DeleteFunc(t.comments, func(c *models.Comment) bool { return c.ID == tmp.ID })
		t.mu.Unlock()
		t.e.log.LogRolledBack(ctx, "create_comment", tmp.ID, err)
		return nil, err
	}

	confirmed := rec.ToComment()
	confirmed.PostID = t.postID
	confirmed.ParentID = ""

	t.mu.Lock()
	if i := slices.IndexFunc(t.comments, func(c *models.Comment) bool { return c.ID == tmp.ID }); i >= 0 {
		confirmed.Replies = append(confirmed.Replies, t.comments[i].Replies...)
		t.comments[i] = confirmed
	}
	out := confirmed.Clone()
	t.mu.Unlock()

	t.e.log.LogConfirmed(ctx, "create_comment", tmp.ID, map[string]interface{}{"comment_id": confirmed.ID})
	return out, nil
}

// CreateReply posts the draft as a reply to a confirmed top-level comment.
// Whitespace-only drafts, an empty parent id, a tentative parent or an unknown
// parent do nothing. The reply is appended to the parent's replies.
func (t *Thread) CreateReply(ctx context.Context, parentID string, draft *Draft) (*models.Comment, error) {
	content := strings.TrimSpace(draft.Text())
	if content == "" || parentID == "" || IsTentative(parentID) {
		return nil, nil
	}
	ctx = observability.EnsureCorrelationID(ctx)

	tmp := t.tentative(parentID, content)
	t.mu.Lock()
	parent := t.find(parentID)
	if parent == nil {
		t.mu.Unlock()
		return nil, nil
	}
	parent.Replies = append(parent.Replies, tmp)
	t.mu.Unlock()
	draft.Clear()
	t.e.log.LogApplied(ctx, "create_reply", tmp.ID, map[string]interface{}{"parent_id": parentID})

	pid := parentID
	rec, err := t.e.backend.CreateComment(ctx, models.CreateCommentRequest{
		PostID:          t.postID,
		Content:         content,
		ParentCommentID: &pid,
	})
	if err != nil {
		t.mu.Lock()
		if p := t.find(parentID); p != nil {
			p.Replies = slices.DeleteFunc(p.Replies, func(c *models.Comment) bool { return c.ID == tmp.ID })
		}
		t.mu.Unlock()
		t.e.log.LogRolledBack(ctx, "create_reply", tmp.ID, err)
		return nil, err
	}

	confirmed := rec.ToComment()
	confirmed.PostID = t.postID
	confirmed.ParentID = parentID
	confirmed.Replies = []*models.Comment{}

	t.mu.Lock()
	if p := t.find(parentID); p != nil {
		if i := slices.IndexFunc(p.Replies, func(c *models.Comment) bool { return c.ID == tmp.ID }); i >= 0 {
			p.Replies[i] = confirmed
		}
	}
	out := confirmed.Clone()
	t.mu.Unlock()

	t.e.log.LogConfirmed(ctx, "create_reply", tmp.ID, map[string]interface{}{"comment_id": confirmed.ID})
	return out, nil
}

// DeleteComment removes a top-level comment. The whole list is restored if
// the backend refuses. Tentative comments are removed locally only.
func (t *Thread) DeleteComment(ctx context.Context, id string) error {
	ctx = observability.EnsureCorrelationID(ctx)

	t.mu.Lock()
	i := slices.IndexFunc(t.comments, func(c *models.Comment) bool { return c.ID == id })
	if i < 0 {
		t.mu.Unlock()
		return nil
	}
	snapshot := slices.Clone(t.comments)
	t.comments = slices.Delete(slices.Clone(t.comments), i, i+1)
	t.mu.Unlock()

	if IsTentative(id) {
		t.e.log.LogLocal(ctx, "delete_comment", id, "comment not confirmed yet")
		return nil
	}
	t.e.log.LogApplied(ctx, "delete_comment", id, nil)

	if err := t.e.backend.DeleteComment(ctx, id); err != nil {
		t.mu.Lock()
		t.comments = snapshot
		t.mu.Unlock()
		t.e.log.LogRolledBack(ctx, "delete_comment", id, err)
		return err
	}
	t.e.invalidateComments(ctx, t.postID)
	t.e.log.LogConfirmed(ctx, "delete_comment", id, nil)
	return nil
}

// DeleteReply hides a reply from its parent. No backend call is made for
// replies; it reports whether a reply was removed.
func (t *Thread) DeleteReply(ctx context.Context, parentID, replyID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent := t.find(parentID)
	if parent == nil {
		return false
	}
	n := len(parent.Replies)
	parent.Replies = slices.DeleteFunc(parent.Replies, func(c *models.Comment) bool { return c.ID == replyID })
	if len(parent.Replies) == n {
		return false
	}
	t.e.log.LogLocal(ctx, "delete_reply", replyID, "replies are hidden locally")
	return true
}

// ToggleLike likes or unlikes a comment or reply of the thread. Entries the
// backend has not confirmed cannot be liked and are returned unchanged.
func (t *Thread) ToggleLike(ctx context.Context, commentID string) (models.Reactable, error) {
	if IsTentative(commentID) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c := t.findAny(commentID); c != nil {
			return c.Likes, nil
		}
		return models.Reactable{}, models.NewNotFoundError("comment", commentID)
	}

	key := models.Reactable{Type: models.TargetComment, ID: commentID}.Key()
	r, err := t.e.toggleLike(ctx, key, func(fn func(r *models.Reactable)) bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		c := t.findAny(commentID)
		if c == nil {
			return false
		}
		fn(&c.Likes)
		return true
	})
	if err == nil {
		t.e.invalidateComments(ctx, t.postID)
	}
	return r, err
}

// find returns the top-level comment with id. t.mu must be held.
func (t *Thread) find(id string) *models.Comment {
	for _, c := range t.comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// findAny returns the comment or reply with id. t.mu must be held.
func (t *Thread) findAny(id string) *models.Comment {
	for _, c := range t.comments {
		if c.ID == id {
			return c
		}
		for _, r := range c.Replies {
			if r.ID == id {
				return r
			}
		}
	}
	return nil
}
