package identity

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	store := setupTestSessionStore(t)

	session, err := store.Create("alice", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
	assert.True(t, session.IsActive)

	loaded, err := store.Get(session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "alice", loaded.Username)
	assert.False(t, loaded.IsExpired())
}

func TestSessionStore_Get_Missing(t *testing.T) {
	store := setupTestSessionStore(t)

	session, err := store.Get("no-such-session")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionStore_Invalidate(t *testing.T) {
	store := setupTestSessionStore(t)

	session, err := store.Create("alice", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Invalidate(session.SessionID))

	loaded, err := store.Get(session.SessionID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionStore_InvalidateAllForUser(t *testing.T) {
	store := setupTestSessionStore(t)

	first, err := store.Create("alice", time.Hour)
	require.NoError(t, err)
	second, err := store.Create("alice", time.Hour)
	require.NoError(t, err)
	other, err := store.Create("bob", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.InvalidateAllForUser("alice"))

	for _, id := range []string{first.SessionID, second.SessionID} {
		loaded, err := store.Get(id)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	}

	loaded, err := store.Get(other.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestSessionStore_CleanupExpired(t *testing.T) {
	store := setupTestSessionStore(t)

	expired, err := store.Create("alice", -time.Minute)
	require.NoError(t, err)
	live, err := store.Create("alice", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.CleanupExpired())

	loaded, err := store.Get(expired.SessionID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	loaded, err = store.Get(live.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestSessionStore_AppendAudit(t *testing.T) {
	store := setupTestSessionStore(t)

	require.NoError(t, store.AppendAudit("alice", "login", "", true))
	require.NoError(t, store.AppendAudit("alice", "login", "wrong password", false))

	var count int64
	require.NoError(t, store.db.Model(&AuditLog{}).Where("username = ?", "alice").Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
