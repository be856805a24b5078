package commentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
)

var (
	ErrPostNotFound   = fmt.Errorf("%w: post does not exist", common.ErrRecordNotFound)
	ErrParentNotFound = fmt.Errorf("%w: parent comment does not exist on this post", common.ErrRecordNotFound)
)

func newCommentModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func mapWriteError(err error) error {
	switch {
	case common.ForeignKeyError(err, "comments_post_id_fkey"):
		return ErrPostNotFound
	case common.ForeignKeyError(err, "comments_parent_id_fkey"):
		return ErrParentNotFound
	case common.ForeignKeyError(err, "comments_author_id_fkey"):
		return common.ErrRecordNotFound
	default:
		return err
	}
}

func (m *DBModel) postExists(ctx context.Context, postID uuid.UUID) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)", postID).Scan(&exists)
	return exists, err
}

// parentPostID returns the post a comment belongs to. Soft-deleted comments are included.
func (m *DBModel) parentPostID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var postID uuid.UUID
	err := m.db.QueryRowContext(ctx, "SELECT post_id FROM comments WHERE id = $1", id).Scan(&postID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return uuid.Nil, ErrParentNotFound
		default:
			return uuid.Nil, err
		}
	}

	return postID, nil
}

func (m *DBModel) insertComment(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (content, post_id, author_id, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := m.db.QueryRowContext(ctx, query, c.Content, c.PostID, c.Author.ID, c.ParentID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}

	return nil
}

// listForPost returns every comment of a post, soft-deleted ones included, in creation order.
func (m *DBModel) listForPost(ctx context.Context, postID uuid.UUID) ([]*Comment, error) {
	query := `
		SELECT c.id, c.content, c.post_id, c.parent_id, c.deleted_at, c.created_at, c.updated_at, u.id, u.name, u.email
		FROM comments c
		INNER JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at, c.id`

	rows, err := m.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*Comment{}
	for rows.Next() {
		var c Comment
		err := rows.Scan(&c.ID, &c.Content, &c.PostID, &c.ParentID, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
			&c.Author.ID, &c.Author.Name, &c.Author.Email)
		if err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}

// getComment returns a visible comment.
func (m *DBModel) getComment(ctx context.Context, id uuid.UUID) (*Comment, error) {
	query := `
		SELECT c.id, c.content, c.post_id, c.parent_id, c.created_at, c.updated_at, u.id, u.name, u.email
		FROM comments c
		INNER JOIN users u ON u.id = c.author_id
		WHERE c.id = $1 AND c.deleted_at IS NULL`

	var c Comment
	err := m.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Content, &c.PostID, &c.ParentID, &c.CreatedAt,
		&c.UpdatedAt, &c.Author.ID, &c.Author.Name, &c.Author.Email)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &c, nil
}

// lockComment locks a visible comment until tx ends and returns its author.
func (m *DBModel) lockComment(ctx context.Context, tx *sql.Tx, id uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT author_id
		FROM comments
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`

	var authorID uuid.UUID
	err := tx.QueryRowContext(ctx, query, id).Scan(&authorID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return uuid.Nil, common.ErrRecordNotFound
		default:
			return uuid.Nil, err
		}
	}

	return authorID, nil
}

func (m *DBModel) updateContent(ctx context.Context, tx *sql.Tx, id uuid.UUID, content string) error {
	query := `
		UPDATE comments
		SET content = $1, updated_at = clock_timestamp()
		WHERE id = $2 AND deleted_at IS NULL`

	res, err := tx.ExecContext(ctx, query, content, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (m *DBModel) softDelete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	query := `
		UPDATE comments
		SET deleted_at = clock_timestamp(), updated_at = clock_timestamp()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func (m *DBModel) countVisible(ctx context.Context) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx, "SELECT count(*) FROM comments WHERE deleted_at IS NULL").Scan(&count)
	return count, err
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	switch rows {
	case 0:
		return common.ErrRecordNotFound
	case 1:
		return nil
	default:
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}
}
