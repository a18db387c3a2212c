package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"snmvm/internal/models"
	"snmvm/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(liked bool, count int, reactionID string) models.Reactable {
	return models.Reactable{Type: models.TargetPost, ID: "p1", Liked: liked, Count: count, ReactionID: reactionID}
}

func TestToggleLike_LikeConfirmed(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	var state *LikeState
	stub.createReactionFn = func(_ context.Context, in models.CreateReactionRequest) (*models.ReactionRecord, error) {
		assert.Equal(t, models.CreateReactionRequest{PostID: "p1", Type: "like"}, in)
		// The optimistic change is visible while the call is in flight.
		assert.Equal(t, post(true, 6, ""), state.Snapshot())
		return &models.ReactionRecord{ID: "r1", Type: "like"}, nil
	}
	state = New(stub).NewLikeState(post(false, 5, ""))

	got, err := state.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, post(true, 6, "r1"), got)
	assert.Equal(t, post(true, 6, "r1"), state.Snapshot())
}

func TestToggleLike_LikeFailureReverts(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	stub.createReactionFn = func(context.Context, models.CreateReactionRequest) (*models.ReactionRecord, error) {
		return nil, models.NewTransportError("create reaction", 500, nil)
	}
	state := New(stub).NewLikeState(post(false, 5, ""))

	got, err := state.Toggle(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsTransport(err))
	assert.Equal(t, post(false, 5, ""), got)
	assert.Equal(t, post(false, 5, ""), state.Snapshot())
}

func TestToggleLike_UnlikeConfirmed(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	var state *LikeState
	stub.deleteReactionFn = func(_ context.Context, id string) error {
		assert.Equal(t, "r7", id)
		s := state.Snapshot()
		assert.False(t, s.Liked)
		assert.Equal(t, 2, s.Count)
		return nil
	}
	state = New(stub).NewLikeState(post(true, 3, "r7"))

	got, err := state.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, post(false, 2, ""), got)
	assert.Equal(t, []string{"DELETE /reactions/r7"}, stub.Calls())
}

func TestToggleLike_UnlikeFailureReverts(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	stub.deleteReactionFn = func(context.Context, string) error {
		return models.NewTransportError("delete reaction", 0, context.DeadlineExceeded)
	}
	state := New(stub).NewLikeState(post(true, 3, "r7"))

	_, err := state.Toggle(context.Background())
	require.Error(t, err)
	assert.Equal(t, post(true, 3, "r7"), state.Snapshot())
}

func TestToggleLike_UnlikeWithoutReactionIDIsLocal(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	state := New(stub).NewLikeState(post(true, 3, ""))

	got, err := state.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, post(false, 2, ""), got)
	assert.Empty(t, stub.Calls())
}

func TestToggleLike_CountNeverNegative(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	stub := &backendStub{}
	next := 0
	stub.createReactionFn = func(context.Context, models.CreateReactionRequest) (*models.ReactionRecord, error) {
		if rng.Intn(3) == 0 {
			return nil, models.NewTransportError("create reaction", 503, nil)
		}
		next++
		return &models.ReactionRecord{ID: "r" + string(rune('a'+next%26))}, nil
	}
	stub.deleteReactionFn = func(context.Context, string) error {
		if rng.Intn(3) == 0 {
			return models.NewTransportError("delete reaction", 503, nil)
		}
		return nil
	}

	// Start from an inconsistent state: liked with a zero count.
	state := New(stub).NewLikeState(post(true, 0, ""))
	for i := 0; i < 200; i++ {
		before := state.Snapshot()
		got, err := state.Toggle(context.Background())
		assert.GreaterOrEqual(t, got.Count, 0)
		assert.GreaterOrEqual(t, state.Snapshot().Count, 0)
		if err != nil {
			assert.Equal(t, before, state.Snapshot(), "failed toggle must restore the pre-toggle state")
		}
		if !got.Liked {
			assert.Empty(t, got.ReactionID)
		}
	}
}

func TestToggleLike_SameTargetIsSerialized(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	release := make(chan struct{})
	entered := make(chan struct{})
	stub.createReactionFn = func(context.Context, models.CreateReactionRequest) (*models.ReactionRecord, error) {
		close(entered)
		<-release
		return &models.ReactionRecord{ID: "r1"}, nil
	}
	deleted := make(chan string, 1)
	stub.deleteReactionFn = func(_ context.Context, id string) error {
		deleted <- id
		return nil
	}
	state := New(stub).NewLikeState(post(false, 0, ""))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = state.Toggle(context.Background())
	}()
	<-entered
	go func() {
		defer wg.Done()
		_, _ = state.Toggle(context.Background())
	}()

	// The second toggle waits for the first to resolve.
	assert.Never(t, func() bool { return len(stub.Calls()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, "r1", <-deleted, "the unlike uses the id captured by the like")
	assert.Equal(t, post(false, 0, ""), state.Snapshot())
}

func TestToggleLike_DifferentTargetsDoNotBlock(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	release := make(chan struct{})
	stub.createReactionFn = func(_ context.Context, in models.CreateReactionRequest) (*models.ReactionRecord, error) {
		if in.PostID == "p1" {
			<-release
		}
		return &models.ReactionRecord{ID: "r-" + in.PostID}, nil
	}
	e := New(stub)
	slow := e.NewLikeState(post(false, 0, ""))
	fast := e.NewLikeState(models.Reactable{Type: models.TargetPost, ID: "p2"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = slow.Toggle(context.Background())
	}()

	got, err := fast.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r-p2", got.ReactionID)

	close(release)
	<-done
}

func TestToggleLike_WaitingToggleHonorsContext(t *testing.T) {
	t.Parallel()

	stub := &backendStub{}
	release := make(chan struct{})
	entered := make(chan struct{})
	stub.createReactionFn = func(context.Context, models.CreateReactionRequest) (*models.ReactionRecord, error) {
		close(entered)
		<-release
		return &models.ReactionRecord{ID: "r1"}, nil
	}
	state := New(stub).NewLikeState(post(false, 0, ""))

	go func() { _, _ = state.Toggle(context.Background()) }()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := state.Toggle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestNewLikeState_NormalizesInput(t *testing.T) {
	t.Parallel()

	s := New(&backendStub{}).NewLikeState(post(false, -4, "stale"))
	assert.Equal(t, post(false, 0, ""), s.Snapshot())
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		lines = append(lines, line)
	}
	return lines
}

func TestToggleLike_ConfirmLogsReactionTarget(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := &observability.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	stub := &backendStub{}
	target := "p2"
	stub.createReactionFn = func(context.Context, models.CreateReactionRequest) (*models.ReactionRecord, error) {
		return &models.ReactionRecord{ID: "r1", Type: "like", PostID: &target}, nil
	}
	state := New(stub, WithLogger(logger)).NewLikeState(post(false, 0, ""))

	got, err := state.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ReactionID)

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "confirmation does not match the optimistic change", lines[0]["msg"])
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "optimistic change confirmed", lines[1]["msg"])
	assert.Equal(t, "post:p1", lines[1]["target"])
	assert.Equal(t, "post:p2", lines[1]["reaction_target"])
	assert.Equal(t, "r1", lines[1]["reaction_id"])
}

func TestToggleLike_ConfirmWithMatchingTarget(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := &observability.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	stub := &backendStub{}
	stub.createReactionFn = func(_ context.Context, in models.CreateReactionRequest) (*models.ReactionRecord, error) {
		return &models.ReactionRecord{ID: "r1", Type: "like", PostID: &in.PostID}, nil
	}
	state := New(stub, WithLogger(logger)).NewLikeState(post(false, 0, ""))

	_, err := state.Toggle(context.Background())
	require.NoError(t, err)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "post:p1", lines[0]["reaction_target"])
}
