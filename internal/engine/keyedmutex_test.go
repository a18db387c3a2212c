package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	t.Parallel()

	k := NewKeyedMutex()
	unlockA, err := k.Lock(context.Background(), "post:1")
	require.NoError(t, err)
	unlockB, err := k.Lock(context.Background(), "post:2")
	require.NoError(t, err)
	assert.Equal(t, 2, k.Len())

	unlockA()
	unlockA()
	unlockB()
	assert.Equal(t, 0, k.Len())
}

func TestKeyedMutex_WaiterCancelled(t *testing.T) {
	t.Parallel()

	k := NewKeyedMutex()
	unlock, err := k.Lock(context.Background(), "comment:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "comment:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, k.Len())
}

func TestTentativeIDs(t *testing.T) {
	t.Parallel()

	fixed := time.Unix(0, 1700000000000000000)
	g := &TentativeIDs{now: func() time.Time { return fixed }}

	a, b := g.Next(), g.Next()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, TentativePrefix))
	assert.True(t, IsTentative(b))
	assert.False(t, IsTentative("c99"))
}
