package markup

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
)

func TestMatcherConsumesQueueThenFallsBack(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	m := NewMatcher([]types.ProfileRef{
		{CustomerProfileID: p1, ExternalKey: "A"},
		{CustomerProfileID: p2, ExternalKey: "A"},
	})

	var got []uuid.UUID
	for i := 0; i < 3; i++ {
		id, ok := m.Resolve("A")
		require.True(t, ok)
		got = append(got, id)
	}
	require.Equal(t, []uuid.UUID{p1, p2, p2}, got)
}

func TestMatcherUnknownKey(t *testing.T) {
	m := NewMatcher([]types.ProfileRef{{CustomerProfileID: uuid.New(), ExternalKey: "A"}})
	_, ok := m.Resolve("B")
	require.False(t, ok)

	empty := NewMatcher(nil)
	_, ok = empty.Resolve("A")
	require.False(t, ok)
}

func TestMatcherKeysAreIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	m := NewMatcher([]types.ProfileRef{
		{CustomerProfileID: a, ExternalKey: "A"},
		{CustomerProfileID: b, ExternalKey: "B"},
	})
	id, _ := m.Resolve("B")
	require.Equal(t, b, id)
	id, _ = m.Resolve("A")
	require.Equal(t, a, id)
	id, _ = m.Resolve("B")
	require.Equal(t, b, id)
}
