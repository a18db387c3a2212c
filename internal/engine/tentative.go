package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// TentativePrefix marks identifiers generated locally for entries the backend
// has not confirmed yet. Server identifiers never carry it.
const TentativePrefix = "temp-"

// TentativeIDs generates locally unique tentative identifiers.
type TentativeIDs struct {
	seq atomic.Uint64
	now func() time.Time
}

// Next returns a fresh tentative identifier.
func (g *TentativeIDs) Next() string {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	return fmt.Sprintf("%s%d-%d", TentativePrefix, now().UnixNano(), g.seq.Add(1))
}

// IsTentative reports whether id was generated locally.
func IsTentative(id string) bool {
	return strings.HasPrefix(id, TentativePrefix)
}
