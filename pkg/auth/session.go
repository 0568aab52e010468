package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"mindmap-backend/domain/core/entities"
)

const (
	// CookieName carries the anonymous visitor session
	CookieName = "mindmap_user_id"
	// CookieMaxAge is the session cookie lifetime
	CookieMaxAge = 365 * 24 * time.Hour

	defaultIssuer = "mindmap-backend"
)

var (
	ErrMissingToken  = errors.New("missing session token")
	ErrInvalidToken  = errors.New("invalid session token")
	ErrInvalidClaims = errors.New("invalid session claims")
)

// SessionIssuer mints and verifies the signed cookie that identifies an
// anonymous visitor. The cookie value is an HS256 JWT whose subject is the
// user id.
type SessionIssuer struct {
	secret []byte
	issuer string
	secure bool
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionIssuer creates an issuer. An empty secret is replaced by random
// bytes, so sessions then only survive for the life of the process.
func NewSessionIssuer(secret string, secure bool, logger *zap.Logger) (*SessionIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set, using an ephemeral key")
	}
	return &SessionIssuer{
		secret: key,
		issuer: defaultIssuer,
		secure: secure,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Issue signs a session token for userID
func (i *SessionIssuer) Issue(userID string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(CookieMaxAge)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies a session token and returns its user id
func (i *SessionIssuer) Parse(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || !strings.HasPrefix(claims.Subject, "user_") {
		return "", ErrInvalidClaims
	}
	return claims.Subject, nil
}

// Resolve returns the user id carried by the request cookie. When the cookie
// is missing or invalid a new user id is minted and the cookie to set is
// returned alongside it.
func (i *SessionIssuer) Resolve(r *http.Request) (string, *http.Cookie, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		if userID, err := i.Parse(c.Value); err == nil {
			return userID, nil, nil
		}
	}

	userID := entities.GenerateUserID()
	token, err := i.Issue(userID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return userID, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
