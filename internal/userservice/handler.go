package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// ResetRequestedMessage is returned for every reset request so callers cannot learn which emails are registered.
const ResetRequestedMessage = "if an account with that email exists, a password reset link has been sent"

func NewUserService(db *sql.DB, mb common.MessageProducer, sessions *SessionManager, auditor audit.Logger, logger *slog.Logger) *UserService {
	return &UserService{
		m:        newUserModel(db),
		mb:       mb,
		sessions: sessions,
		audit:    auditor,
		logger:   logger,
	}
}

// Sessions exposes the session manager so the HTTP layer can hand it to the authorizer.
func (s *UserService) Sessions() *SessionManager {
	return s.sessions
}

// Signup creates a reader account, records the first password in the history and publishes a user.created event.
func (s *UserService) Signup(ctx context.Context, name, email, password string) (*User, error) {
	email = normalizeEmail(email)

	v := common.NewValidator()
	validateName(v, name)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Email: email,
		Name:  name,
		Role:  rbac.RoleReader,
	}

	err := u.Password.set(password)
	if err != nil {
		return nil, err
	}

	err = common.WithTx(ctx, s.m.db, nil, func(tx *sql.Tx) error {
		if err := s.m.insertUser(ctx, tx, &u); err != nil {
			return err
		}

		return s.m.insertPasswordHistory(ctx, tx, u.ID, u.Password.hash)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionSignup, Resource: "user", ResourceID: u.ID.String(), ActorID: audit.ActorID(u.ID)})

	s.publish(ctx, common.UserCreatedKey, common.UserCreatedMessage{Email: u.Email, Name: u.Name})

	return &u, nil
}

// Login verifies the credentials and issues a session credential.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	v := common.NewValidator()
	validateEmail(v, email)
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiry, err := s.sessions.Issue(user.Identity())
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, Expiry: expiry, User: user}, nil
}

// GetUser returns the stored user. It is used to refresh the identity carried by a session.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.m.getUserByID(ctx, id)
}

// RequestPasswordReset issues a one hour reset token when the email belongs to a user. The outcome is the same
// whether or not the account exists.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	v := common.NewValidator()
	validateEmail(v, email)
	if !v.Valid() {
		return v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil
		default:
			return err
		}
	}

	var token *Token
	err = common.WithTx(ctx, s.m.db, nil, func(tx *sql.Tx) error {
		var err error
		token, err = s.m.createToken(ctx, tx, user.ID, PasswordResetTokenTime, TokenScopePasswordReset)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, common.PasswordResetKey, common.PasswordResetMessage{Email: user.Email, Name: user.Name, Token: token.Plain})

	return nil
}

// ResetPassword consumes a reset token and sets a new password. The new password must differ from the last
// PasswordHistoryLimit passwords.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return ErrInvalidResetToken
	}

	v = common.NewValidator()
	validatePassword(v, password)
	if !v.Valid() {
		return v.ValidationError()
	}

	hash := hashToken(token)

	user, err := s.m.getUserForToken(ctx, TokenScopePasswordReset, hash)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return ErrInvalidResetToken
		default:
			return err
		}
	}

	history, err := s.m.recentPasswordHashes(ctx, user.ID, PasswordHistoryLimit)
	if err != nil {
		return err
	}

	reused, err := usedRecently(history, password)
	if err != nil {
		return err
	}

	if reused {
		v.AddError("password", "password recently used, choose one you have not used in your last 5 changes")
		return v.ValidationError()
	}

	err = user.Password.set(password)
	if err != nil {
		return err
	}

	err = common.WithTx(ctx, s.m.db, nil, func(tx *sql.Tx) error {
		if err := s.m.consumeToken(ctx, tx, TokenScopePasswordReset, hash); err != nil {
			if errors.Is(err, common.ErrRecordNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}

		if err := s.m.deleteTokens(ctx, tx, user.ID, TokenScopePasswordReset); err != nil {
			return err
		}

		if err := s.m.updateUserPassword(ctx, tx, user.ID, user.Password); err != nil {
			return err
		}

		if err := s.m.insertPasswordHistory(ctx, tx, user.ID, user.Password.hash); err != nil {
			return err
		}

		return s.m.trimPasswordHistory(ctx, tx, user.ID, PasswordHistoryLimit)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionReset, Resource: "user", ResourceID: user.ID.String(), ActorID: audit.ActorID(user.ID)})

	return nil
}

// ListUsers returns a page of users with their post and visible comment counts.
func (s *UserService) ListUsers(ctx context.Context, actor *rbac.Identity, f common.Filters) ([]*UserSummary, common.Metadata, error) {
	if !actor.Can(rbac.UsersRead) {
		return nil, common.Metadata{}, common.ErrForbidden
	}

	v := common.NewValidator()
	common.ValidateFilters(v, f)
	if !v.Valid() {
		return nil, common.Metadata{}, v.ValidationError()
	}

	return s.m.listUsers(ctx, f)
}

// UpdateUserRole changes the role of a user. Admins cannot change their own role.
func (s *UserService) UpdateUserRole(ctx context.Context, actor *rbac.Identity, id uuid.UUID, role rbac.Role) (*User, error) {
	if !actor.Can(rbac.UsersUpdate) {
		return nil, common.ErrForbidden
	}

	v := common.NewValidator()
	validateRole(v, role)
	v.Check(id != actor.ID, "id", "cannot change your own role")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.updateUserRole(ctx, id, role)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Action:     audit.ActionUpdate,
		Resource:   "user",
		ResourceID: id.String(),
		ActorID:    audit.ActorID(actor.ID),
		Details:    map[string]any{"role": role},
	})

	return user, nil
}

// DeleteUser hard deletes a user and everything they own.
func (s *UserService) DeleteUser(ctx context.Context, actor *rbac.Identity, id uuid.UUID) error {
	if !actor.Can(rbac.UsersDelete) {
		return common.ErrForbidden
	}

	v := common.NewValidator()
	v.Check(id != actor.ID, "id", "cannot delete your own account")
	if !v.Valid() {
		return v.ValidationError()
	}

	err := s.m.deleteUser(ctx, id)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionDelete, Resource: "user", ResourceID: id.String(), ActorID: audit.ActorID(actor.ID)})

	return nil
}

// publish is fire and forget. The caller's outcome does not depend on the mail pipeline.
func (s *UserService) publish(ctx context.Context, key common.BindingKey, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("could not encode message", slog.String("key", string(key)), slog.String("error", err.Error()))
		return
	}

	err = s.mb.Publish(ctx, data, key, common.UserExchange)
	if err != nil {
		s.logger.Error("could not publish message", slog.String("key", string(key)), slog.String("error", err.Error()))
	}
}
