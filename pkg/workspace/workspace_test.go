package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuna-ai/yuna-server/pkg/logger"
)

func setupTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), "history"), logger.NewTestLogger())
}

func TestManager_Create_Idempotent(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.Create("alice"))
	assert.True(t, m.Exists("alice"))

	// Creating again must not fail
	require.NoError(t, m.Create("alice"))
	assert.True(t, m.Exists("alice"))
}

func TestManager_Delete(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.Create("alice"))
	require.NoError(t, os.WriteFile(filepath.Join(m.Path("alice"), "main.json"), []byte("[]"), 0o644))

	require.NoError(t, m.Delete("alice"))
	assert.False(t, m.Exists("alice"))
}

func TestManager_Delete_MissingWorkspace(t *testing.T) {
	m := setupTestManager(t)

	// RemoveAll on a missing path is a no-op
	assert.NoError(t, m.Delete("ghost"))
}

func TestManager_Rename(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.Create("alice"))
	require.NoError(t, m.SaveHistory("alice", "main", []Message{{Name: "alice", Message: "hi"}}))

	require.NoError(t, m.Rename("alice", "alicia"))
	assert.False(t, m.Exists("alice"))
	assert.True(t, m.Exists("alicia"))

	messages, err := m.LoadHistory("alicia", "main")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Message)
}

func TestManager_Rename_MissingSourceCreatesTarget(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.Rename("ghost", "phantom"))
	assert.True(t, m.Exists("phantom"))
}

func TestHistory_SaveLoadListDelete(t *testing.T) {
	m := setupTestManager(t)

	messages := []Message{
		{Name: "alice", Message: "hello"},
		{Name: "Yuna", Message: "hi alice"},
	}
	require.NoError(t, m.SaveHistory("alice", "main", messages))
	require.NoError(t, m.SaveHistory("alice", "work", nil))

	loaded, err := m.LoadHistory("alice", "main")
	require.NoError(t, err)
	assert.Equal(t, messages, loaded)

	names, err := m.ListHistories("alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "work"}, names)

	require.NoError(t, m.DeleteHistory("alice", "work"))
	names, err = m.ListHistories("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, names)
}

func TestHistory_LoadMissingIsEmpty(t *testing.T) {
	m := setupTestManager(t)

	messages, err := m.LoadHistory("alice", "nothing")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestHistory_NameCannotEscapeWorkspace(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.SaveHistory("alice", "../../escape", nil))

	// The file must land inside alice's workspace
	_, err := os.Stat(filepath.Join(m.Path("alice"), "escape.json"))
	assert.NoError(t, err)
}
