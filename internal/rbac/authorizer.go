package rbac

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrInvalidCredential = errors.New("invalid or expired credential")
	ErrForbidden         = common.ErrForbidden
)

// SessionCookieName is the cookie consulted when no Authorization header is present.
const SessionCookieName = "token"

// Identity is the authenticated principal carried by a session credential.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`
}

func (i *Identity) Can(permission Permission) bool {
	return i != nil && HasPermission(i.Role, permission)
}

// SessionVerifier validates a session credential and returns the identity embedded in it.
type SessionVerifier interface {
	VerifySession(token string) (*Identity, error)
}

type Authorizer struct {
	sessions SessionVerifier
}

func NewAuthorizer(sessions SessionVerifier) *Authorizer {
	return &Authorizer{sessions: sessions}
}

// Authenticate resolves the identity of the caller. A bearer token in the Authorization header takes precedence
// over the session cookie. The store is not consulted, so a deleted user keeps a valid identity until the
// credential expires.
func (a *Authorizer) Authenticate(r *http.Request) (*Identity, error) {
	token := credentialFromRequest(r)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	identity, err := a.sessions.VerifySession(token)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	return identity, nil
}

// AuthorizePermission authenticates the caller and checks that their role grants permission.
func (a *Authorizer) AuthorizePermission(r *http.Request, permission Permission) (*Identity, error) {
	identity, err := a.Authenticate(r)
	if err != nil {
		return nil, err
	}

	if !HasPermission(identity.Role, permission) {
		return nil, ErrForbidden
	}

	return identity, nil
}

// CanModifyOwnResource reports whether actorID may mutate a resource owned by ownerID. Admins may modify anything.
func CanModifyOwnResource(role Role, ownerID, actorID uuid.UUID) bool {
	if role == RoleAdmin {
		return true
	}

	return ownerID == actorID
}

func credentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}

	return ""
}
