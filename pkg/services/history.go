package services

import (
	"sync"

	"github.com/yuna-ai/yuna-server/pkg/workspace"
)

// HistoryService serves chat histories out of the per-user workspace. It is
// the workspace-backed successor of the legacy chat-history manager.
type HistoryService struct {
	workspaces *workspace.Manager
	mu         sync.Mutex
}

// NewHistoryService creates a history service over the workspace manager
func NewHistoryService(workspaces *workspace.Manager) *HistoryService {
	return &HistoryService{workspaces: workspaces}
}

// Load returns a named history for the user; missing histories are empty
func (h *HistoryService) Load(username, name string) ([]workspace.Message, error) {
	return h.workspaces.LoadHistory(username, name)
}

// Save replaces a named history for the user
func (h *HistoryService) Save(username, name string, messages []workspace.Message) error {
	return h.workspaces.SaveHistory(username, name, messages)
}

// List returns the names of the user's histories
func (h *HistoryService) List(username string) ([]string, error) {
	return h.workspaces.ListHistories(username)
}

// Delete removes a named history for the user
func (h *HistoryService) Delete(username, name string) error {
	return h.workspaces.DeleteHistory(username, name)
}

// Append loads a history, appends messages and saves it back. The lock
// serializes the read-modify-write so concurrent appends to the same history
// cannot lose each other's exchange.
func (h *HistoryService) Append(username, name string, messages ...workspace.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, err := h.workspaces.LoadHistory(username, name)
	if err != nil {
		return err
	}
	return h.workspaces.SaveHistory(username, name, append(existing, messages...))
}
