package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"snmvm/internal/devserver"
	"snmvm/internal/models"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	t   *testing.T
	srv *devserver.Server
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	srv := devserver.New(devserver.Config{Secret: "cli-secret"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	t.Setenv("APP_ENV", "development")
	t.Setenv("API_BASE_URL", "http://"+ln.Addr().String()+"/api")
	t.Setenv("API_TOKEN", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("TRACING_ENABLED", "false")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "")
	t.Setenv("SESSION_DB_PATH", filepath.Join(t.TempDir(), "sessions.db"))
	return &cliEnv{t: t, srv: srv}
}

func (e *cliEnv) run(args ...string) ([]byte, error) {
	e.t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"snmvm", "--output", "json"}, args...))
	return out.Bytes(), err
}

func (e *cliEnv) mustRun(out interface{}, args ...string) {
	e.t.Helper()
	data, err := e.run(args...)
	require.NoError(e.t, err)
	if out != nil {
		require.NoError(e.t, json.Unmarshal(data, out), string(data))
	}
}

func TestCLI_CommentFlow(t *testing.T) {
	env := newCLIEnv(t)
	post, err := env.srv.Store().AddPost("author", "a post")
	require.NoError(t, err)
	token, err := env.srv.IssueToken("me", "me@example.com", "Me Myself", time.Hour)
	require.NoError(t, err)

	var view sessionView
	env.mustRun(&view, "login", "--token", token)
	assert.Equal(t, "default", view.Name)
	assert.Equal(t, "Me Myself", view.Viewer)

	var created models.Comment
	env.mustRun(&created, "comment", post.ID, "hello from the terminal")
	assert.Equal(t, "hello from the terminal", created.Content)
	assert.Equal(t, "Me Myself", created.Author)

	var reply models.Comment
	env.mustRun(&reply, "reply", post.ID, created.ID, "and a reply")
	assert.Equal(t, created.ID, reply.ParentID)

	var like models.Reactable
	env.mustRun(&like, "like-comment", post.ID, reply.ID)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Count)

	var thread []*models.Comment
	env.mustRun(&thread, "thread", post.ID)
	require.Len(t, thread, 1)
	require.Len(t, thread[0].Replies, 1)
	assert.Equal(t, like, thread[0].Replies[0].Likes)

	var deleted map[string]string
	env.mustRun(&deleted, "delete-comment", post.ID, created.ID)
	assert.Equal(t, created.ID, deleted["deleted"])
	env.mustRun(&thread, "thread", post.ID)
	assert.Empty(t, thread)
}

func TestCLI_FeedAndLikePost(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.Store().Seed(3, 1)
	post, err := env.srv.Store().AddPost("author", "latest")
	require.NoError(t, err)
	token, err := env.srv.IssueToken("me", "me@example.com", "", time.Hour)
	require.NoError(t, err)
	env.mustRun(nil, "login", "--token", token)

	var posts []*models.Post
	env.mustRun(&posts, "feed", "--limit", "2")
	require.Len(t, posts, 2)
	assert.Equal(t, post.ID, posts[0].ID)

	var like models.Reactable
	env.mustRun(&like, "like-post", post.ID)
	assert.True(t, like.Liked)
	assert.NotEmpty(t, like.ReactionID)

	env.mustRun(&like, "like-post", post.ID)
	assert.False(t, like.Liked)
	assert.Equal(t, 0, like.Count)
}

func TestCLI_Rejections(t *testing.T) {
	env := newCLIEnv(t)
	post, err := env.srv.Store().AddPost("author", "a post")
	require.NoError(t, err)
	theirs, err := env.srv.Store().AddComment("someone", models.CreateCommentRequest{PostID: post.ID, Content: "theirs"})
	require.NoError(t, err)

	// Anonymous: reads work, writes are refused by the server.
	_, err = env.run("thread", post.ID)
	require.NoError(t, err)
	_, err = env.run("comment", post.ID, "anonymous")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	token, err := env.srv.IssueToken("me", "me@example.com", "Me", time.Hour)
	require.NoError(t, err)
	env.mustRun(nil, "login", "--token", token)

	_, err = env.run("comment", post.ID, "   ")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = env.run("delete-comment", post.ID, theirs.ID)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = env.run("reply", post.ID)
	assert.Error(t, err)

	var out map[string]string
	env.mustRun(&out, "logout")
	assert.Equal(t, "default", out["logged_out"])
}

func TestCLI_PushesMetricsAfterCommand(t *testing.T) {
	env := newCLIEnv(t)
	post, err := env.srv.Store().AddPost("author", "a post")
	require.NoError(t, err)

	pushed := make(chan string, 1)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		select {
		case pushed <- r.Method + " " + r.URL.Path + "\n" + string(body):
		default:
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()
	t.Setenv("METRICS_PUSHGATEWAY_URL", gateway.URL)
	t.Setenv("METRICS_JOB", "snmvm-cli")

	env.mustRun(nil, "thread", post.ID)

	select {
	case got := <-pushed:
		assert.Contains(t, got, "PUT /metrics/job/snmvm-cli")
		assert.Contains(t, got, "snmvm_api_request_duration_seconds")
	default:
		t.Fatal("no metrics were pushed")
	}
}

func TestCLI_UnreachableGatewayDoesNotFailCommand(t *testing.T) {
	env := newCLIEnv(t)
	post, err := env.srv.Store().AddPost("author", "a post")
	require.NoError(t, err)

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer gateway.Close()
	t.Setenv("METRICS_PUSHGATEWAY_URL", gateway.URL)

	var thread []*models.Comment
	env.mustRun(&thread, "thread", post.ID)
	assert.Empty(t, thread)
}
