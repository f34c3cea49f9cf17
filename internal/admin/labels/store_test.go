package labels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreForgetsExpiredArtifacts(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Put(Artifact{ID: "sheet-1", Body: []byte("a"), CreatedAt: now})
	got, ok := store.Get("sheet-1")
	require.True(t, ok)
	require.Equal(t, []byte("a"), got.Body)

	_, ok = store.Get("missing")
	require.False(t, ok)

	now = now.Add(2 * time.Minute)
	store.Put(Artifact{ID: "sheet-2", CreatedAt: now})
	_, ok = store.Get("sheet-1")
	require.False(t, ok)
	_, ok = store.Get("sheet-2")
	require.True(t, ok)
	require.Len(t, store.items, 1)
}

func TestStoreOwnedHidesOtherOperatorsSheets(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	store.Put(Artifact{ID: "sheet-1", Owner: "store-1/ana", CreatedAt: time.Now()})

	got, ok := store.Owned("sheet-1", "store-1/ana")
	require.True(t, ok)
	require.Equal(t, "sheet-1", got.ID)

	_, ok = store.Owned("sheet-1", "store-2/ana")
	require.False(t, ok)
	_, ok = store.Owned("sheet-1", "")
	require.False(t, ok)
}
