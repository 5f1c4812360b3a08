// Package identity implements the identity provider: it validates
// credentials against the credential store and produces, resolves and
// destroys authenticated sessions.
package identity

import (
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yuna-ai/yuna-server/pkg/credstore"
	"github.com/yuna-ai/yuna-server/pkg/errors"
	"github.com/yuna-ai/yuna-server/pkg/logger"
	"github.com/yuna-ai/yuna-server/pkg/workspace"
)

// usernames name workspace directories, so they are restricted to a safe
// filesystem alphabet
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Provider coordinates the credential store, the per-user workspaces and the
// session store. One instance is constructed per process and passed by
// handle to the HTTP layer; there is no ambient global state.
//
// All credential mutations go through credstore.Update, whose exclusive lock
// is the single-writer discipline: concurrent registrations can never lose
// each other's entries, and every re-proof reads the secret stored at call
// time, not a cached value.
type Provider struct {
	creds      *credstore.Store
	workspaces *workspace.Manager
	sessions   *SessionStore
	tokens     *TokenManager
	logger     logger.Logger
	bcryptCost int
	expiry     time.Duration
}

// NewProvider creates an identity provider over the given stores
func NewProvider(creds *credstore.Store, workspaces *workspace.Manager, sessions *SessionStore, tokens *TokenManager, bcryptCost int, expiry time.Duration, log logger.Logger) *Provider {
	if log == nil {
		log = logger.NewLogger()
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Provider{
		creds:      creds,
		workspaces: workspaces,
		sessions:   sessions,
		tokens:     tokens,
		logger:     log,
		bcryptCost: bcryptCost,
		expiry:     expiry,
	}
}

// validateUsername rejects empty names and names unusable as directory names
func validateUsername(username string) error {
	if username == "" {
		return errors.NewValidationError("username is required")
	}
	if !usernamePattern.MatchString(username) {
		return errors.NewInvalidInputError("username may only contain letters, digits, '.', '_' and '-'")
	}
	return nil
}

// hashSecret derives the stored form of a secret
func (p *Provider) hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), p.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// verifySecret checks a presented secret against its stored form. Records
// written by the legacy server hold the secret in cleartext; those still
// verify, and Authenticate re-hashes them on first successful login.
func verifySecret(secret, stored string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(stored)) == 1
}

func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// Register creates a new account and provisions its workspace
func (p *Provider) Register(username, secret string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if secret == "" {
		return errors.NewValidationError("password is required")
	}

	hash, err := p.hashSecret(secret)
	if err != nil {
		return err
	}

	err = p.creds.Update(func(users map[string]string) error {
		if _, taken := users[username]; taken {
			return errors.NewAlreadyExistsError(username)
		}
		users[username] = hash
		return nil
	})
	if err != nil {
		p.audit(username, "register", "", false)
		return err
	}

	if err := p.workspaces.Create(username); err != nil {
		return err
	}

	p.audit(username, "register", "", true)
	p.logger.Info("user registered", map[string]interface{}{"username": username})
	return nil
}

// Authenticate validates credentials and issues a new session plus its
// signed token
func (p *Provider) Authenticate(username, secret string) (string, *Session, error) {
	stored, err := p.creds.Get(username)
	if err != nil {
		if errors.IsNotFound(err) {
			p.audit(username, "login", "unknown user", false)
			return "", nil, errors.NewInvalidCredentialsError()
		}
		return "", nil, err
	}

	if !verifySecret(secret, stored) {
		p.audit(username, "login", "wrong password", false)
		return "", nil, errors.NewInvalidCredentialsError()
	}

	if !isBcryptHash(stored) {
		p.upgradeLegacySecret(username, secret)
	}

	session, err := p.sessions.Create(username, p.expiry)
	if err != nil {
		return "", nil, errors.NewInternalErrorWithCause("failed to create session", err)
	}

	token, err := p.tokens.Issue(session)
	if err != nil {
		return "", nil, errors.NewInternalErrorWithCause("failed to issue session token", err)
	}

	p.audit(username, "login", "", true)
	return token, session, nil
}

// upgradeLegacySecret re-hashes a cleartext record after a successful proof.
// The re-proof inside Update guards against a concurrent password change.
func (p *Provider) upgradeLegacySecret(username, secret string) {
	hash, err := p.hashSecret(secret)
	if err != nil {
		p.logger.Warn("failed to hash legacy secret", map[string]interface{}{"username": username})
		return
	}

	err = p.creds.Update(func(users map[string]string) error {
		current, ok := users[username]
		if !ok || isBcryptHash(current) || subtle.ConstantTimeCompare([]byte(secret), []byte(current)) != 1 {
			return nil
		}
		users[username] = hash
		return nil
	})
	if err != nil {
		p.logger.Warn("failed to upgrade legacy secret", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
	}
}

// ChangePassword re-proves the current secret and replaces it
func (p *Provider) ChangePassword(username, oldSecret, newSecret string) error {
	if newSecret == "" {
		return errors.NewValidationError("new password is required")
	}

	hash, err := p.hashSecret(newSecret)
	if err != nil {
		return err
	}

	err = p.creds.Update(func(users map[string]string) error {
		stored, ok := users[username]
		if !ok || !verifySecret(oldSecret, stored) {
			return errors.NewInvalidCredentialsError()
		}
		users[username] = hash
		return nil
	})

	p.audit(username, "change_password", "", err == nil)
	return err
}

// ChangeUsername re-proves the secret and re-keys the account in a single
// record rewrite. Sessions bound to the old name are orphaned and fail
// closed on their next resolution; the workspace moves with the account.
func (p *Provider) ChangeUsername(username, secret, newUsername string) error {
	if err := validateUsername(newUsername); err != nil {
		return err
	}

	// A same-name rename is a no-op, but only after the secret is proven;
	// it must never become a way to probe accounts without credentials.
	sameName := newUsername == username

	err := p.creds.Update(func(users map[string]string) error {
		stored, ok := users[username]
		if !ok || !verifySecret(secret, stored) {
			return errors.NewInvalidCredentialsError()
		}
		if sameName {
			return nil
		}
		if _, taken := users[newUsername]; taken {
			return errors.NewAlreadyExistsError(newUsername)
		}
		users[newUsername] = stored
		delete(users, username)
		return nil
	})
	if err != nil {
		p.audit(username, "change_username", newUsername, false)
		return err
	}
	if sameName {
		p.audit(username, "change_username", newUsername, true)
		return nil
	}

	if err := p.workspaces.Rename(username, newUsername); err != nil {
		// The account is already re-keyed; the workspace move is best effort.
		p.logger.Error("failed to move workspace after rename", err, map[string]interface{}{
			"from": username,
			"to":   newUsername,
		})
	}

	p.audit(username, "change_username", newUsername, true)
	return nil
}

// DeleteAccount re-proves the secret, removes the credential record,
// invalidates every session for the account and then deletes the workspace.
// Workspace deletion is best effort: a failure there is logged, but the
// account stays deleted.
func (p *Provider) DeleteAccount(username, secret string) error {
	err := p.creds.Update(func(users map[string]string) error {
		stored, ok := users[username]
		if !ok || !verifySecret(secret, stored) {
			return errors.NewInvalidCredentialsError()
		}
		delete(users, username)
		return nil
	})
	if err != nil {
		p.audit(username, "delete_account", "", false)
		return err
	}

	if err := p.sessions.InvalidateAllForUser(username); err != nil {
		p.logger.Error("failed to invalidate sessions for deleted account", err, map[string]interface{}{
			"username": username,
		})
	}

	if err := p.workspaces.Delete(username); err != nil {
		p.logger.Warn("residual workspace left after account deletion", map[string]interface{}{
			"username": username,
		})
	}

	p.audit(username, "delete_account", "", true)
	p.logger.Info("account deleted", map[string]interface{}{"username": username})
	return nil
}

// Logout invalidates a single session
func (p *Provider) Logout(sessionID string) error {
	if err := p.sessions.Invalidate(sessionID); err != nil {
		return errors.NewInternalErrorWithCause("failed to invalidate session", err)
	}
	return nil
}

// Resolve maps a raw session token to the username it proves. Every failure
// mode resolves to Unauthenticated: a missing or forged token, a revoked or
// expired session, and a session whose account no longer exists in the
// credential store (deleted or renamed away after issuance).
func (p *Provider) Resolve(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.NewUnauthenticatedError("no session token")
	}

	claims, err := p.tokens.Parse(tokenString)
	if err != nil {
		return "", err
	}

	session, err := p.sessions.Get(claims.SessionID)
	if err != nil {
		return "", errors.NewUnauthenticatedError("session lookup failed")
	}
	if session == nil || session.IsExpired() || session.Username != claims.Username {
		return "", errors.NewUnauthenticatedError("session revoked or expired")
	}

	exists, err := p.creds.Exists(claims.Username)
	if err != nil || !exists {
		return "", errors.NewUnauthenticatedError("account no longer exists")
	}

	return claims.Username, nil
}

// SessionID extracts the session ID from a raw token without full
// resolution; used by logout, which must work even for stale accounts
func (p *Provider) SessionID(tokenString string) (string, error) {
	claims, err := p.tokens.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.SessionID, nil
}

func (p *Provider) audit(username, action, details string, success bool) {
	if err := p.sessions.AppendAudit(username, action, details, success); err != nil {
		p.logger.Warn("failed to write audit log", map[string]interface{}{
			"username": username,
			"action":   action,
			"error":    err.Error(),
		})
	}
}
