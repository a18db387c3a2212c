package engine

import (
	"context"
	"sync"

	"snmvm/internal/models"

	"golang.org/x/sync/errgroup"
)

// threadLoadConcurrency bounds LoadThreads.
const threadLoadConcurrency = 4

// Feed is one page of posts with the viewer's like state on each.
type Feed struct {
	e *Engine

	mu    sync.Mutex
	posts []*models.Post
	page  int
	total int
}

// Feed returns an empty feed.
func (e *Engine) Feed() *Feed {
	return &Feed{e: e}
}

// Load fetches a page of posts and replaces the displayed feed.
func (f *Feed) Load(ctx context.Context, page, limit int) ([]*models.Post, error) {
	out, err := f.e.backend.ListPosts(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(out.Data))
	for _, rec := range out.Data {
		posts = append(posts, rec.ToPost())
	}

	f.mu.Lock()
	f.posts = posts
	f.page = out.Page
	f.total = out.Total
	f.mu.Unlock()
	return f.Posts(), nil
}

// Posts returns a copy of the displayed posts.
func (f *Feed) Posts() []*models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Post, 0, len(f.posts))
	for _, p := range f.posts {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// Total is the number of posts the backend reported for the whole feed.
func (f *Feed) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// LikePost toggles the viewer's like on a post of the feed.
func (f *Feed) LikePost(ctx context.Context, postID string) (models.Reactable, error) {
	key := models.Reactable{Type: models.TargetPost, ID: postID}.Key()
	return f.e.toggleLike(ctx, key, func(fn func(r *models.Reactable)) bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range f.posts {
			if p.ID == postID {
				fn(&p.Likes)
				return true
			}
		}
		return false
	})
}

// LoadThreads loads the comment threads of several posts concurrently,
// reading through the backend cache when there is one. The first failure
// cancels the remaining loads.
func (f *Feed) LoadThreads(ctx context.Context, postIDs []string) (map[string]*Thread, error) {
	threads := make([]*Thread, len(postIDs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threadLoadConcurrency)

	for i, id := range postIDs {
		threads[i] = f.e.Thread(id)
		th := threads[i]
		g.Go(func() error {
			return th.load(ctx, f.e.backend.ListComments)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Thread, len(threads))
	for _, th := range threads {
		out[th.PostID()] = th
	}
	return out, nil
}
