package userservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

type tokenScope string

const (
	TokenScopePasswordReset tokenScope = "password-reset"

	PasswordResetTokenTime time.Duration = time.Hour
	SessionTokenTime       time.Duration = 7 * 24 * time.Hour

	// PasswordHistoryLimit is the number of previous password hashes kept per user and checked for reuse.
	PasswordHistoryLimit = 5
)

type UserService struct {
	m        *DBModel
	mb       common.MessageProducer
	sessions *SessionManager
	audit    audit.Logger
	logger   *slog.Logger
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  Password  `json:"-"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"-"`
}

// Identity returns the claims carried by a session credential for u.
func (u *User) Identity() rbac.Identity {
	return rbac.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

type Token struct {
	Plain  string     `json:"token"`
	Hash   []byte     `json:"-"`
	UserID uuid.UUID  `json:"-"`
	Expiry time.Time  `json:"expiry"`
	Scope  tokenScope `json:"-"`
}

// Session is returned by a successful login.
type Session struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
	User   *User     `json:"user"`
}

// UserSummary is a row of the admin user listing.
type UserSummary struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         rbac.Role `json:"role"`
	PostCount    int       `json:"post_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}
