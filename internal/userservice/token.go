package userservice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base32"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
)

func hashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

func newToken(userID uuid.UUID, ttl time.Duration, scope tokenScope) (*Token, error) {
	randomBytes := make([]byte, 16)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return nil, err
	}

	token := &Token{
		Plain:  base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes),
		UserID: userID,
		Expiry: time.Now().Add(ttl),
		Scope:  scope,
	}

	token.Hash = hashToken(token.Plain)

	return token, nil
}

// createToken replaces any outstanding token of the same scope, so only the most recently issued one is usable.
func (m *DBModel) createToken(ctx context.Context, tx *sql.Tx, userID uuid.UUID, ttl time.Duration, scope tokenScope) (*Token, error) {
	token, err := newToken(userID, ttl, scope)
	if err != nil {
		return nil, err
	}

	err = m.deleteTokens(ctx, tx, userID, scope)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tokens (hash, user_id, expiry, scope)
		VALUES ($1, $2, $3, $4)`

	_, err = tx.ExecContext(ctx, query, token.Hash, token.UserID, token.Expiry, string(token.Scope))
	if err != nil {
		return nil, err
	}

	return token, nil
}

// getUserForToken returns the owner of an unexpired token.
func (m *DBModel) getUserForToken(ctx context.Context, scope tokenScope, hash []byte) (*User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.role, u.version
		FROM users u
		INNER JOIN tokens t ON u.id = t.user_id
		WHERE t.hash = $1 AND t.scope = $2 AND t.expiry > $3`

	var u User
	err := m.db.QueryRowContext(ctx, query, hash, string(scope), time.Now()).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

// consumeToken deletes the token inside tx. A concurrent consumer blocks on the row and then finds nothing to
// delete, so a token is spent at most once.
func (m *DBModel) consumeToken(ctx context.Context, tx *sql.Tx, scope tokenScope, hash []byte) error {
	query := `
		DELETE FROM tokens
		WHERE hash = $1 AND scope = $2 AND expiry > $3`

	res, err := tx.ExecContext(ctx, query, hash, string(scope), time.Now())
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return common.ErrRecordNotFound
	}

	return nil
}

func (m *DBModel) deleteTokens(ctx context.Context, tx *sql.Tx, userID uuid.UUID, scope tokenScope) error {
	query := `
		DELETE FROM tokens
		WHERE user_id = $1 AND scope = $2`

	_, err := tx.ExecContext(ctx, query, userID, string(scope))
	return err
}
