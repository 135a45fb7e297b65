package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/panelsync/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSlotStore_AssignsOnceAndReuses(t *testing.T) {
	slots := NewSlotStore(newTestStore(t))
	ctx := context.Background()

	a0, err := slots.PanelID(ctx, "parent", 0)
	require.NoError(t, err)
	a1, err := slots.PanelID(ctx, "parent", 1)
	require.NoError(t, err)
	assert.NotEqual(t, a0, a1)

	again, err := slots.PanelID(ctx, "parent", 0)
	require.NoError(t, err)
	assert.Equal(t, a0, again)

	other, err := slots.PanelID(ctx, "other", 0)
	require.NoError(t, err)
	assert.NotEqual(t, a0, other)

	listed, err := slots.Slots(ctx, "parent")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: a0, 1: a1}, listed)
}

func TestSlotStore_ConcurrentCallersAgree(t *testing.T) {
	slots := NewSlotStore(newTestStore(t))
	ctx := context.Background()

	ids := make([]string, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := slots.PanelID(ctx, "parent", 3)
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestSlotStore_Forget(t *testing.T) {
	slots := NewSlotStore(newTestStore(t))
	ctx := context.Background()

	before, err := slots.PanelID(ctx, "parent", 0)
	require.NoError(t, err)
	keep, err := slots.PanelID(ctx, "other", 0)
	require.NoError(t, err)

	require.NoError(t, slots.Forget(ctx, "parent"))
	after, err := slots.PanelID(ctx, "parent", 0)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	still, err := slots.PanelID(ctx, "other", 0)
	require.NoError(t, err)
	assert.Equal(t, keep, still)
}

func TestSlotStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "slots.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	id, err := NewSlotStore(s).PanelID(ctx, "parent", 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	again, err := NewSlotStore(s).PanelID(ctx, "parent", 0)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestSqliteFilePathFromDSN(t *testing.T) {
	tests := []struct {
		dsn    string
		path   string
		onDisk bool
	}{
		{":memory:", "", false},
		{"", "", false},
		{"/tmp/slots.db", "/tmp/slots.db", true},
		{"file:/tmp/slots.db?cache=shared", "/tmp/slots.db", true},
		{"file::memory:", "", false},
		{"libsql://host/db", "", false},
	}
	for _, tt := range tests {
		path, onDisk := sqliteFilePathFromDSN(tt.dsn)
		assert.Equal(t, tt.path, path, tt.dsn)
		assert.Equal(t, tt.onDisk, onDisk, tt.dsn)
	}
}

func TestNew_CreatesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "slots.db")
	s, err := New(path)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNew_KeepsExistingFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")
	require.NoError(t, os.WriteFile(path, nil, 0o640))
	require.NoError(t, os.Chmod(path, 0o640))

	s, err := New(path)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestNew_UnusablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := New(filepath.Join(blocker, "slots.db"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageWrite), err.Error())
}

func TestSlotStore_Closed(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	slots := NewSlotStore(s)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err = slots.PanelID(ctx, "parent", 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeClosed))
	assert.ErrorIs(t, slots.Forget(ctx, "parent"), ErrStoreClosed)
	_, err = slots.Slots(ctx, "parent")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.True(t, errors.IsCode(s.Close(), errors.ErrCodeClosed))
}
