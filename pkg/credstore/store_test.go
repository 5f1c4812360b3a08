package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuna-ai/yuna-server/pkg/errors"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "admin", "users.json"))
}

func TestStore_ReadAll_FirstRun(t *testing.T) {
	store := setupTestStore(t)

	users, err := store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStore_PutAll_RoundTrip(t *testing.T) {
	store := setupTestStore(t)

	err := store.PutAll(map[string]string{"alice": "secret-a", "bob": "secret-b"})
	require.NoError(t, err)

	users, err := store.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "secret-a", "bob": "secret-b"}, users)

	secret, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "secret-a", secret)

	exists, err := store.Exists("bob")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists("carol")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_Get_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get("nobody")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStore_Update_Mutates(t *testing.T) {
	store := setupTestStore(t)

	err := store.Update(func(users map[string]string) error {
		users["alice"] = "pw"
		return nil
	})
	require.NoError(t, err)

	secret, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "pw", secret)
}

func TestStore_Update_ErrorLeavesRecordUnchanged(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.PutAll(map[string]string{"alice": "pw"}))

	sentinel := fmt.Errorf("reject")
	err := store.Update(func(users map[string]string) error {
		users["bob"] = "pw2"
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	users, err := store.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "pw"}, users)
}

func TestStore_Update_ConcurrentWritersLoseNothing(t *testing.T) {
	store := setupTestStore(t)

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Update(func(users map[string]string) error {
				users[fmt.Sprintf("user-%02d", i)] = "pw"
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	users, err := store.ReadAll()
	require.NoError(t, err)
	assert.Len(t, users, n)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.PutAll(map[string]string{"alice": "pw"}))
	require.NoError(t, store.PutAll(map[string]string{"alice": "pw2"}))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(store.Path()), entries[0].Name())
}

func TestStore_CorruptedRecord(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := store.ReadAll()
	assert.Error(t, err)
}
