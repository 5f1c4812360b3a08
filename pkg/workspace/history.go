package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuna-ai/yuna-server/pkg/errors"
)

// Message is a single chat-history entry
type Message struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

const historyExt = ".json"

// historyPath resolves a history file inside the user's workspace. The name
// is flattened to its base so a crafted name cannot escape the workspace.
func (m *Manager) historyPath(username, name string) string {
	name = filepath.Base(name)
	if !strings.HasSuffix(name, historyExt) {
		name += historyExt
	}
	return filepath.Join(m.Path(username), name)
}

// SaveHistory writes a named chat history into the user's workspace
func (m *Manager) SaveHistory(username, name string, messages []Message) error {
	if err := m.Create(username); err != nil {
		return err
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return errors.NewInternalErrorWithCause("failed to encode chat history", err)
	}

	if err := os.WriteFile(m.historyPath(username, name), data, 0o644); err != nil {
		return errors.NewIOError("failed to write chat history", err).WithDetail("history", name)
	}
	return nil
}

// LoadHistory reads a named chat history. A missing file yields an empty
// history, matching a fresh conversation.
func (m *Manager) LoadHistory(username, name string) ([]Message, error) {
	data, err := os.ReadFile(m.historyPath(username, name))
	if err != nil {
		if os.IsNotExist(err) {
			return []Message{}, nil
		}
		return nil, errors.NewIOError("failed to read chat history", err).WithDetail("history", name)
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, errors.NewIOError("chat history is corrupted", err).WithDetail("history", name)
	}
	return messages, nil
}

// ListHistories returns the names of all chat histories in the user's
// workspace
func (m *Manager) ListHistories(username string) ([]string, error) {
	entries, err := os.ReadDir(m.Path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.NewIOError("failed to list chat histories", err).WithDetail("username", username)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), historyExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), historyExt))
	}
	return names, nil
}

// DeleteHistory removes a named chat history from the user's workspace
func (m *Manager) DeleteHistory(username, name string) error {
	if err := os.Remove(m.historyPath(username, name)); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("failed to delete chat history", err).WithDetail("history", name)
	}
	return nil
}
