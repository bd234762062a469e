package markup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/markupsync/internal/platform/logger"
)

func TestPurgeDeletesExpiredVersions(t *testing.T) {
	store := newMemStore()
	store.putString("models/a/crm/1000/", "")
	store.putString("models/a/crm/1000/markup.csv", "x")
	store.putString("models/a/crm/1000/preprocessed/preprocessed_markup.csv", "x")
	store.putString("models/a/crm/5000/markup.csv", "x")
	store.putString("models/a/crm/latest/markup.csv", "x")

	p := NewPurger(logger.Nop(), store)
	p.now = func() time.Time { return time.Unix(2000+86400, 0) }

	dry, err := p.Purge(context.Background(), "models/a/crm", 24*time.Hour, true)
	require.NoError(t, err)
	require.Equal(t, []string{"1000"}, dry.Expired)
	require.Zero(t, dry.DeletedObjects)
	require.Len(t, store.keys("models/a/crm/1000/"), 3)

	rep, err := p.Purge(context.Background(), "models/a/crm/", 24*time.Hour, false)
	require.NoError(t, err)
	require.Equal(t, []string{"1000"}, rep.Expired)
	require.Equal(t, []string{"latest"}, rep.Skipped)
	require.Equal(t, 2, rep.DeletedObjects)
	require.Empty(t, store.keys("models/a/crm/1000"))
	require.Len(t, store.keys("models/a/crm/5000/"), 1)
}

func TestPurgeValidatesInput(t *testing.T) {
	p := NewPurger(logger.Nop(), newMemStore())
	_, err := p.Purge(context.Background(), "", time.Hour, false)
	require.True(t, IsStructural(err))
	_, err = p.Purge(context.Background(), "models", 0, false)
	require.True(t, IsStructural(err))
}
