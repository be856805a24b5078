package userservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

var (
	ErrDuplicateEmail = fmt.Errorf("%w: a user with this email address already exists", common.ErrConflict)
)

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func (m *DBModel) insertUser(ctx context.Context, tx *sql.Tx, u *User) error {
	query := `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at, version`

	args := []any{
		u.Email,
		u.Name,
		u.Password.hash,
		u.Role,
	}

	err := tx.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case common.UniqueViolation(err, "users_email_key"):
			return ErrDuplicateEmail
		default:
			return err
		}
	}

	return nil
}

func (m *DBModel) getUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, role, created_at, updated_at, version
		FROM users
		WHERE email = $1`

	return m.scanUser(m.db.QueryRowContext(ctx, query, email))
}

func (m *DBModel) getUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, role, created_at, updated_at, version
		FROM users
		WHERE id = $1`

	return m.scanUser(m.db.QueryRowContext(ctx, query, id))
}

func (m *DBModel) scanUser(row *sql.Row) (*User, error) {
	var u User

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Password.hash, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.Version)
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

func (m *DBModel) updateUserPassword(ctx context.Context, tx *sql.Tx, id uuid.UUID, pwd Password) error {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = NOW(), version = version + 1
		WHERE id = $2`

	res, err := tx.ExecContext(ctx, query, pwd.hash, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (m *DBModel) updateUserRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*User, error) {
	query := `
		UPDATE users
		SET role = $1, updated_at = NOW(), version = version + 1
		WHERE id = $2
		RETURNING id, email, name, password_hash, role, created_at, updated_at, version`

	return m.scanUser(m.db.QueryRowContext(ctx, query, role, id))
}

// deleteUser removes the user. Posts, comments, tokens, password history and wellness entries go with it through
// the foreign key cascades.
func (m *DBModel) deleteUser(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM users
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (m *DBModel) listUsers(ctx context.Context, f common.Filters) ([]*UserSummary, common.Metadata, error) {
	query := `
		SELECT count(*) OVER(), u.id, u.email, u.name, u.role, u.created_at,
			(SELECT count(*) FROM posts p WHERE p.author_id = u.id),
			(SELECT count(*) FROM comments c WHERE c.author_id = u.id AND c.deleted_at IS NULL)
		FROM users u
		ORDER BY u.created_at DESC, u.id
		LIMIT $1 OFFSET $2`

	rows, err := m.db.QueryContext(ctx, query, f.Limit, f.Offset())
	if err != nil {
		return nil, common.Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	users := []*UserSummary{}

	for rows.Next() {
		var u UserSummary
		err := rows.Scan(&totalRecords, &u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.PostCount, &u.CommentCount)
		if err != nil {
			return nil, common.Metadata{}, err
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, common.Metadata{}, err
	}

	return users, common.CalculateMetadata(totalRecords, f.Page, f.Limit), nil
}

func (m *DBModel) insertPasswordHistory(ctx context.Context, tx *sql.Tx, userID uuid.UUID, hash []byte) error {
	query := `
		INSERT INTO password_history (user_id, password_hash)
		VALUES ($1, $2)`

	_, err := tx.ExecContext(ctx, query, userID, hash)
	return err
}

// recentPasswordHashes returns at most limit hashes, newest first.
func (m *DBModel) recentPasswordHashes(ctx context.Context, userID uuid.UUID, limit int) ([][]byte, error) {
	query := `
		SELECT password_hash
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := m.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes [][]byte
	for rows.Next() {
		var hash []byte
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hashes, nil
}

// trimPasswordHistory keeps only the newest keep entries for the user.
func (m *DBModel) trimPasswordHistory(ctx context.Context, tx *sql.Tx, userID uuid.UUID, keep int) error {
	query := `
		DELETE FROM password_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)`

	_, err := tx.ExecContext(ctx, query, userID, keep)
	return err
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return common.ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}
