package userservice

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/rbac"
)

// sessionAudience separates session credentials from any other token signed with the same key.
const sessionAudience = "threadline:session"

var ErrInvalidSession = errors.New("invalid session token")

type sessionClaims struct {
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  rbac.Role `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies signed session credentials. It implements rbac.SessionVerifier.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *SessionManager) Issue(identity rbac.Identity) (string, time.Time, error) {
	now := m.now()
	expiry := now.Add(m.ttl)

	claims := sessionClaims{
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID.String(),
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("could not sign session token: %w", err)
	}

	return token, expiry, nil
}

func (m *SessionManager) VerifySession(token string) (*rbac.Identity, error) {
	var claims sessionClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidSession
	}

	if !claims.Role.Valid() {
		return nil, ErrInvalidSession
	}

	return &rbac.Identity{ID: id, Email: claims.Email, Name: claims.Name, Role: claims.Role}, nil
}
