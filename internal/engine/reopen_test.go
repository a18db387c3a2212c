package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"snmvm/internal/apiclient"
	"snmvm/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentsServer serves GET /comments/{postId} from a list other clients can
// append to.
type commentsServer struct {
	mu       sync.Mutex
	comments []map[string]any
	gets     atomic.Int32
}

func (s *commentsServer) add(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append([]map[string]any{{"id": id, "postId": "p1", "content": content}}, s.comments...)
}

func (s *commentsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.gets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.comments)
}

func cachedClient(t *testing.T, h http.Handler) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return apiclient.New(apiclient.Options{BaseURL: srv.URL, Token: "me", Cache: cache.New(rdb, time.Minute)})
}

func TestThread_ReopenRefetchesDespiteCache(t *testing.T) {
	t.Parallel()

	backend := &commentsServer{}
	backend.add("c1", "first")
	e := New(cachedClient(t, backend))
	ctx := context.Background()

	th := e.Thread("p1")
	require.NoError(t, th.Load(ctx))
	require.Len(t, th.Comments(), 1)

	// Someone else comments while the cached list is still fresh.
	backend.add("c2", "from another session")

	reopened := e.Thread("p1")
	require.NoError(t, reopened.Load(ctx))
	list := reopened.Comments()
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, int32(2), backend.gets.Load())
	assert.Len(t, th.Comments(), 1, "the first view keeps its own list")
}

func TestFeed_LoadThreadsReadsThroughCache(t *testing.T) {
	t.Parallel()

	backend := &commentsServer{}
	backend.add("c1", "first")
	e := New(cachedClient(t, backend))
	ctx := context.Background()

	require.NoError(t, e.Thread("p1").Load(ctx))
	backend.add("c2", "later")

	threads, err := e.Feed().LoadThreads(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Len(t, threads["p1"].Comments(), 1)
	assert.Equal(t, int32(1), backend.gets.Load())
}
