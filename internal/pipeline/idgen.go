package pipeline

import (
	"sync"
	"time"
)

// idGenerator issues creation-timestamp-derived IDs that stay unique even
// when two stories are produced within the same millisecond.
type idGenerator struct {
	mu   sync.Mutex
	last int64
}

func (g *idGenerator) next(now time.Time) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := now.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}

	g.last = id

	return id
}

var storyIDs = &idGenerator{mu: sync.Mutex{}, last: 0}

// NewStoryID returns a fresh unique story ID derived from the current time.
func NewStoryID() int64 {
	return storyIDs.next(time.Now())
}
