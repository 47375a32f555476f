package layout

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CdubVentures/specdesk/internal/store"
)

func newTestCache(t *testing.T) (*Cache, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st, time.Minute), st
}

func TestFields_CachesAcrossCalls(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, st.SetFieldValue(ctx, "mice", "p1", "sensor", "PAW3395"))

	fields, err := c.Fields(ctx, "mice")
	require.NoError(t, err)
	assert.Equal(t, []string{"sensor"}, fields)

	// A new field written behind the cache stays invisible until expiry.
	require.NoError(t, st.SetFieldValue(ctx, "mice", "p1", "weight", "59"))
	fields, err = c.Fields(ctx, "mice")
	require.NoError(t, err)
	assert.Equal(t, []string{"sensor"}, fields)
}

func TestFields_ExpiryReloads(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, st.SetFieldValue(ctx, "mice", "p1", "sensor", "PAW3395"))

	_, err := c.Fields(ctx, "mice")
	require.NoError(t, err)

	require.NoError(t, st.SetFieldValue(ctx, "mice", "p1", "weight", "59"))
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	fields, err := c.Fields(ctx, "mice")
	require.NoError(t, err)
	assert.Len(t, fields, 2)
}

func TestInvalidate(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, st.SetFieldValue(ctx, "mice", "p1", "sensor", "PAW3395"))

	_, err := c.Fields(ctx, "mice")
	require.NoError(t, err)

	require.NoError(t, st.SetFieldValue(ctx, "mice", "p1", "weight", "59"))
	c.Invalidate("mice")

	fields, err := c.Fields(ctx, "mice")
	require.NoError(t, err)
	assert.Len(t, fields, 2)
}

func TestHas(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, st.SetFieldValue(ctx, "mice", "p1", "sensor", "PAW3395"))

	ok, err := c.Has(ctx, "mice", " Sensor ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Has(ctx, "mice", "switches")
	require.NoError(t, err)
	assert.False(t, ok)
}
