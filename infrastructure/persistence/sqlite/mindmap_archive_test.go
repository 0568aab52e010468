package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/core/entities"
)

func newTestArchive(t *testing.T) (*MindmapArchive, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "mindmaps.db")
	archive, err := NewMindmapArchive(path, zap.NewNop())
	require.NoError(t, err)
	return archive, path
}

func TestMindmapArchive_Miss(t *testing.T) {
	archive, _ := newTestArchive(t)
	defer archive.Close()

	_, err := archive.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrArchiveMiss)
}

func TestMindmapArchive_StoreAndLoad(t *testing.T) {
	archive, _ := newTestArchive(t)
	defer archive.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m := entities.NewMindmapFromTemplate("m1", now)
	require.NoError(t, archive.Store(ctx, m))

	loaded, err := archive.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	// Upsert replaces the document.
	m.Title = "Renamed"
	delete(m.Nodes, "budget")
	m.Nodes["resources"].Children = []string{"team"}
	require.NoError(t, archive.Store(ctx, m))

	loaded, err = archive.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Title)
	assert.NotContains(t, loaded.Nodes, "budget")
	assert.NoError(t, loaded.CheckConsistency())
}

func TestMindmapArchive_KeepsNewerSnapshot(t *testing.T) {
	archive, _ := newTestArchive(t)
	defer archive.Close()
	ctx := context.Background()

	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	newer := entities.NewMindmapFromTemplate("m1", base)
	newer.UpdatedAt = base.Add(1500 * time.Millisecond)
	newer.Title = "Newer"
	require.NoError(t, archive.Store(ctx, newer))

	older := entities.NewMindmapFromTemplate("m1", base)
	older.UpdatedAt = base.Add(time.Second)
	older.Title = "Older"
	require.NoError(t, archive.Store(ctx, older))

	loaded, err := archive.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Newer", loaded.Title)

	latest := newer.Clone()
	latest.UpdatedAt = base.Add(2 * time.Second)
	latest.Title = "Latest"
	require.NoError(t, archive.Store(ctx, latest))

	loaded, err = archive.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Latest", loaded.Title)
}

func TestMindmapArchive_Reopen(t *testing.T) {
	archive, path := newTestArchive(t)
	ctx := context.Background()
	require.NoError(t, archive.Store(ctx, entities.NewMindmapFromTemplate("kept", time.Now().UTC())))
	require.NoError(t, archive.Ping(ctx))
	require.NoError(t, archive.Close())

	reopened, err := NewMindmapArchive(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "kept", loaded.ID)
}
