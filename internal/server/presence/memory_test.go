package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory_RegisterLookupExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewMemoryDirectory(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, ok, err := d.Lookup(ctx, "A")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Register(ctx, Entry{UID: "A", Ident: "c1", Instance: "i1"}))
	e, ok, err := d.Lookup(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Entry{UID: "A", Ident: "c1", Instance: "i1"}, e)

	now = now.Add(time.Minute)
	_, ok, err = d.Lookup(ctx, "A")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire after ttl")
}

func TestMemoryDirectory_UnregisterKeepsNewerConnection(t *testing.T) {
	d := NewMemoryDirectory(time.Hour)
	ctx := context.Background()

	require.NoError(t, d.Register(ctx, Entry{UID: "A", Ident: "old", Instance: "i1"}))
	require.NoError(t, d.Register(ctx, Entry{UID: "A", Ident: "new", Instance: "i2"}))

	require.NoError(t, d.Unregister(ctx, "A", "old"))
	e, ok, _ := d.Lookup(ctx, "A")
	require.True(t, ok)
	assert.Equal(t, "new", e.Ident)

	require.NoError(t, d.Unregister(ctx, "A", "new"))
	_, ok, _ = d.Lookup(ctx, "A")
	assert.False(t, ok)

	// unknown uid is fine
	require.NoError(t, d.Unregister(ctx, "B", "x"))
}

func TestMemoryDirectory_RefreshOnlyExtendsOwnEntry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewMemoryDirectory(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, d.Register(ctx, Entry{UID: "A", Ident: "old", Instance: "i1"}))
	require.NoError(t, d.Register(ctx, Entry{UID: "A", Ident: "new", Instance: "i2"}))

	ok, err := d.Refresh(ctx, Entry{UID: "A", Ident: "old", Instance: "i1"})
	require.NoError(t, err)
	assert.False(t, ok)
	e, _, _ := d.Lookup(ctx, "A")
	assert.Equal(t, "new", e.Ident)

	now = now.Add(40 * time.Second)
	ok, err = d.Refresh(ctx, Entry{UID: "A", Ident: "new", Instance: "i2"})
	require.NoError(t, err)
	assert.True(t, ok)
	now = now.Add(40 * time.Second)
	_, found, _ := d.Lookup(ctx, "A")
	assert.True(t, found, "refresh should extend the ttl")

	// an expired entry is recreated by whoever refreshes next
	now = now.Add(time.Hour)
	ok, err = d.Refresh(ctx, Entry{UID: "A", Ident: "old", Instance: "i1"})
	require.NoError(t, err)
	assert.True(t, ok)
	e, _, _ = d.Lookup(ctx, "A")
	assert.Equal(t, "old", e.Ident)
}
