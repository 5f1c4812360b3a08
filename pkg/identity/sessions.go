package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Session is a server-side session record. The signed token handed to the
// client references a row here, so invalidation takes effect immediately.
type Session struct {
	SessionID string    `gorm:"primaryKey;column:session_id" json:"session_id"`
	Username  string    `gorm:"index" json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
}

// IsExpired checks if the session has passed its expiry time
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// AuditLog records an account-lifecycle event
type AuditLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"index" json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore persists sessions and audit logs in SQLite
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore opens (or creates) the session database at path
func NewSessionStore(path string) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	store := &SessionStore{db: db}
	if err := store.db.AutoMigrate(&Session{}, &AuditLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return store, nil
}

// Create inserts a new active session for username
func (ss *SessionStore) Create(username string, expiry time.Duration) (*Session, error) {
	now := time.Now()
	session := &Session{
		SessionID: uuid.New().String(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(expiry),
		IsActive:  true,
	}

	if err := ss.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Get retrieves an active session by ID, or nil when absent or revoked
func (ss *SessionStore) Get(sessionID string) (*Session, error) {
	var session Session
	if err := ss.db.Where("session_id = ? AND is_active = ?", sessionID, true).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Invalidate deactivates a single session
func (ss *SessionStore) Invalidate(sessionID string) error {
	result := ss.db.Model(&Session{}).Where("session_id = ?", sessionID).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to invalidate session: %w", result.Error)
	}
	return nil
}

// InvalidateAllForUser deactivates every session bound to username
func (ss *SessionStore) InvalidateAllForUser(username string) error {
	result := ss.db.Model(&Session{}).Where("username = ?", username).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to invalidate user sessions: %w", result.Error)
	}
	return nil
}

// CleanupExpired removes sessions past their expiry time
func (ss *SessionStore) CleanupExpired() error {
	result := ss.db.Where("expires_at < ?", time.Now()).Delete(&Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	return nil
}

// AppendAudit records an account event; failures are returned so the caller
// can log them, never to abort the operation being audited
func (ss *SessionStore) AppendAudit(username, action, details string, success bool) error {
	entry := &AuditLog{
		Username:  username,
		Action:    action,
		Details:   details,
		Success:   success,
		CreatedAt: time.Now(),
	}
	if err := ss.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (ss *SessionStore) Close() error {
	sqlDB, err := ss.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
