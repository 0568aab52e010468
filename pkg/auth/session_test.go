package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIssuer(t *testing.T, secret string) *SessionIssuer {
	t.Helper()
	issuer, err := NewSessionIssuer(secret, false, zap.NewNop())
	require.NoError(t, err)
	return issuer
}

func TestSessionIssuer_IssueAndParse(t *testing.T) {
	issuer := newTestIssuer(t, "test-secret")

	token, err := issuer.Issue("user_0123456789ab")
	require.NoError(t, err)

	userID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user_0123456789ab", userID)
}

func TestSessionIssuer_ParseRejects(t *testing.T) {
	issuer := newTestIssuer(t, "test-secret")
	other := newTestIssuer(t, "other-secret")
	foreign, err := other.Issue("user_0123456789ab")
	require.NoError(t, err)

	expiredIssuer := newTestIssuer(t, "test-secret")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * CookieMaxAge) }
	expired, err := expiredIssuer.Issue("user_0123456789ab")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user_x", Issuer: defaultIssuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := issuer.Issue("admin")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: expired},
		{name: "alg none", token: none},
		{name: "subject without prefix", token: badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestSessionIssuer_Resolve(t *testing.T) {
	issuer := newTestIssuer(t, "")

	t.Run("mints when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		userID, cookie, err := issuer.Resolve(req)
		require.NoError(t, err)
		require.NotNil(t, cookie)

		assert.Regexp(t, `^user_[0-9a-f]{12}$`, userID)
		assert.Equal(t, CookieName, cookie.Name)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, 365*24*60*60, cookie.MaxAge)

		again := httptest.NewRequest(http.MethodPost, "/", nil)
		again.AddCookie(cookie)
		resolved, newCookie, err := issuer.Resolve(again)
		require.NoError(t, err)
		assert.Equal(t, userID, resolved)
		assert.Nil(t, newCookie)
	})

	t.Run("tampered cookie mints a new id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		first, cookie, err := issuer.Resolve(req)
		require.NoError(t, err)

		cookie.Value += "x"
		tampered := httptest.NewRequest(http.MethodPost, "/", nil)
		tampered.AddCookie(cookie)
		second, newCookie, err := issuer.Resolve(tampered)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.NotNil(t, newCookie)
	})
}
