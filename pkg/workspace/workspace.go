// Package workspace manages the per-user durable workspace holding chat
// histories and generated content. A workspace's lifecycle is tied to the
// account that owns it.
package workspace

import (
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"

	"github.com/yuna-ai/yuna-server/pkg/errors"
	"github.com/yuna-ai/yuna-server/pkg/logger"
)

// Manager creates and removes per-user workspaces under a single root
type Manager struct {
	root   string
	logger logger.Logger
}

// NewManager creates a workspace manager rooted at root
func NewManager(root string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Manager{root: root, logger: log}
}

// Root returns the directory holding all user workspaces
func (m *Manager) Root() string {
	return m.root
}

// Path returns the workspace directory for username
func (m *Manager) Path(username string) string {
	return filepath.Join(m.root, username)
}

// Create idempotently ensures the workspace for username exists. It fails
// only on filesystem-level errors, never because the directory pre-exists.
func (m *Manager) Create(username string) error {
	if err := os.MkdirAll(m.Path(username), 0o755); err != nil {
		return errors.NewIOError("failed to create user workspace", err).WithDetail("username", username)
	}
	return nil
}

// Exists reports whether a workspace directory exists for username
func (m *Manager) Exists(username string) bool {
	info, err := os.Stat(m.Path(username))
	return err == nil && info.IsDir()
}

// Rename moves a workspace to a new username. If the old workspace never
// materialized, the new one is created so the account keeps a workspace.
func (m *Manager) Rename(oldName, newName string) error {
	if err := os.Rename(m.Path(oldName), m.Path(newName)); err != nil {
		if os.IsNotExist(err) {
			return m.Create(newName)
		}
		return errors.NewIOError("failed to rename user workspace", err).
			WithDetail("from", oldName).WithDetail("to", newName)
	}
	return nil
}

// Delete recursively removes the workspace for username, retrying transient
// filesystem failures. Callers must remove the credential record first;
// a failure here is reported but never rolls the credential deletion back.
func (m *Manager) Delete(username string) error {
	path := m.Path(username)

	err := retry.Do(
		func() error { return os.RemoveAll(path) },
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		m.logger.Error("failed to delete user workspace", err, map[string]interface{}{
			"username": username,
			"path":     path,
		})
		return errors.NewIOError("failed to delete user workspace", err).WithDetail("username", username)
	}

	return nil
}
