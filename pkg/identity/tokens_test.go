package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(expiresIn time.Duration) *Session {
	now := time.Now()
	return &Session{
		SessionID: "session-1",
		Username:  "alice",
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
		IsActive:  true,
	}
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager("test-secret-key-0123456789abcdef")

	token, err := tm.Issue(testSession(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestTokenManager_Parse_Tampered(t *testing.T) {
	tm := NewTokenManager("test-secret-key-0123456789abcdef")

	token, err := tm.Issue(testSession(time.Hour))
	require.NoError(t, err)

	_, err = tm.Parse(token + "x")
	assert.Error(t, err)
}

func TestTokenManager_Parse_WrongKey(t *testing.T) {
	tm := NewTokenManager("test-secret-key-0123456789abcdef")
	other := NewTokenManager("another-secret-key-fedcba98765432")

	token, err := tm.Issue(testSession(time.Hour))
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestTokenManager_Parse_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret-key-0123456789abcdef")

	token, err := tm.Issue(testSession(-time.Minute))
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.Error(t, err)
}

func TestTokenManager_Parse_Garbage(t *testing.T) {
	tm := NewTokenManager("test-secret-key-0123456789abcdef")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := tm.Parse(token)
		assert.Error(t, err, "token %q", token)
	}
}
