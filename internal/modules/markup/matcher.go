package markup

import (
	"github.com/google/uuid"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
)

// Matcher assigns profile ids to markup rows sharing an external key. Each key owns a queue
// of unconsumed profile ids; rows take from the head of the queue in input order, and once
// it is empty they reuse the last id taken for that key.
//
// Pool [(p1,"A"), (p2,"A")] and rows A, A, A resolve to p1, p2, p2.
type Matcher struct {
	queues   map[string][]uuid.UUID
	fallback map[string]uuid.UUID
}

// NewMatcher queues the pool's profile ids per external key in pool order.
func NewMatcher(pool []types.ProfileRef) *Matcher {
	m := &Matcher{
		queues:   make(map[string][]uuid.UUID, len(pool)),
		fallback: make(map[string]uuid.UUID, len(pool)),
	}
	for _, ref := range pool {
		m.queues[ref.ExternalKey] = append(m.queues[ref.ExternalKey], ref.CustomerProfileID)
	}
	return m
}

// Resolve returns the profile id for the next row keyed by key.
func (m *Matcher) Resolve(key string) (uuid.UUID, bool) {
	if q := m.queues[key]; len(q) > 0 {
		id := q[0]
		m.queues[key] = q[1:]
		m.fallback[key] = id
		return id, true
	}
	id, ok := m.fallback[key]
	return id, ok
}
