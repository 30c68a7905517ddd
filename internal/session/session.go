// Package session issues and resolves the per-request authentication session.
// A session starts when a Firebase ID token is exchanged at sign-in and ends
// at sign-out or expiry; it is carried on the request, never held globally.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ProviderSession  = "session"
	ProviderFirebase = "firebase"

	contextKey = "session"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRevoked      = errors.New("session has been revoked")
	ErrExpired      = errors.New("session expired")
)

// Session identifies the signed-in user of a request.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	Provider  string    `json:"provider"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IdentityProvider is the part of the Firebase auth client the session layer
// needs. *auth.Client satisfies it.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Manager signs session tokens and resolves bearer tokens into sessions.
type Manager struct {
	secret      []byte
	ttl         time.Duration
	identity    IdentityProvider
	revocations *RevocationStore
	now         func() time.Time
}

func NewManager(secret string, ttl time.Duration, identity IdentityProvider, revocations *RevocationStore) *Manager {
	return &Manager{
		secret:      []byte(secret),
		ttl:         ttl,
		identity:    identity,
		revocations: revocations,
		now:         time.Now,
	}
}

// VerifyIDToken checks a Firebase ID token.
func (m *Manager) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if m.identity == nil {
		return nil, ErrInvalidToken
	}
	token, err := m.identity.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return token, nil
}

// Issue starts a session for user and returns its signed token.
func (m *Manager) Issue(user *models.User) (string, *Session, error) {
	now := m.now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Provider:  ProviderSession,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := &models.SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Resolve turns a bearer token into a session. Backend session tokens are
// tried first; anything else is verified as a Firebase ID token.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	sess, err := m.parse(token)
	if err == nil {
		revoked, rerr := m.revocations.IsRevoked(ctx, sess.ID)
		if rerr != nil {
			return nil, rerr
		}
		if revoked {
			return nil, ErrRevoked
		}
		return sess, nil
	}
	if errors.Is(err, ErrExpired) {
		return nil, ErrInvalidToken
	}

	idToken, verr := m.VerifyIDToken(ctx, token)
	if verr != nil {
		return nil, ErrInvalidToken
	}
	email, _ := idToken.Claims["email"].(string)
	return &Session{
		UserID:    idToken.UID,
		Email:     email,
		Provider:  ProviderFirebase,
		IssuedAt:  time.Unix(idToken.IssuedAt, 0),
		ExpiresAt: time.Unix(idToken.Expires, 0),
	}, nil
}

func (m *Manager) parse(token string) (*Session, error) {
	claims := &models.SessionClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	sess := &Session{
		ID:       claims.ID,
		UserID:   claims.UserID,
		Email:    claims.Email,
		Provider: ProviderSession,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Revoke ends sess. Backend sessions are put on the revocation list until
// they would have expired; the user's Firebase refresh tokens are revoked in
// both cases so other devices have to sign in again.
func (m *Manager) Revoke(ctx context.Context, sess *Session) error {
	if sess.Provider == ProviderSession && sess.ID != "" {
		ttl := sess.ExpiresAt.Sub(m.now())
		if err := m.revocations.Revoke(ctx, sess.ID, ttl); err != nil {
			return err
		}
	}
	if m.identity != nil {
		if err := m.identity.RevokeRefreshTokens(ctx, sess.UserID); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}
	return nil
}

// Set stores sess on the echo context.
func Set(c echo.Context, sess *Session) {
	c.Set(contextKey, sess)
	c.SetRequest(c.Request().WithContext(NewContext(c.Request().Context(), sess)))
}

// From returns the session stored by Set.
func From(c echo.Context) (*Session, bool) {
	sess, ok := c.Get(contextKey).(*Session)
	return sess, ok && sess != nil
}

type ctxKey struct{}

// NewContext returns ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	return sess, ok && sess != nil
}
