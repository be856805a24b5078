package postservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sushihentaime/threadline/internal/common"
)

var (
	ErrDuplicateSlug  = fmt.Errorf("%w: a post with this slug already exists", common.ErrConflict)
	ErrAuthorNotFound = fmt.Errorf("%w: author does not exist", common.ErrRecordNotFound)
)

const postColumns = `p.id, p.title, p.content, p.slug, p.excerpt, p.status, p.category, p.tags, p.featured_image,
	p.meta_description, p.focus_keyword, p.view_count, p.reading_time, p.published_at, p.author_id,
	p.created_at, p.updated_at, p.version`

const visibleCommentCount = `(SELECT count(*) FROM comments c WHERE c.post_id = p.id AND c.deleted_at IS NULL)`

func newPostModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func postDest(p *Post) []any {
	return []any{
		&p.ID, &p.Title, &p.Content, &p.Slug, &p.Excerpt, &p.Status, &p.Category, pq.Array(&p.Tags), &p.FeaturedImage,
		&p.MetaDescription, &p.FocusKeyword, &p.ViewCount, &p.ReadingTime, &p.PublishedAt, &p.AuthorID,
		&p.CreatedAt, &p.UpdatedAt, &p.Version,
	}
}

func mapWriteError(err error) error {
	switch {
	case common.UniqueViolation(err, "posts_slug_key"):
		return ErrDuplicateSlug
	case common.ForeignKeyError(err, "posts_author_id_fkey"):
		return ErrAuthorNotFound
	default:
		return err
	}
}

func (m *DBModel) insertPost(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO posts (title, content, slug, excerpt, status, category, tags, featured_image, meta_description,
			focus_keyword, reading_time, published_at, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, view_count, created_at, updated_at, version`

	args := []any{
		p.Title, p.Content, p.Slug, p.Excerpt, p.Status, p.Category, pq.Array(p.Tags), p.FeaturedImage,
		p.MetaDescription, p.FocusKeyword, p.ReadingTime, p.PublishedAt, p.AuthorID,
	}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return mapWriteError(err)
	}

	return nil
}

// getPost reads a post with its author and visible comment count.
func (m *DBModel) getPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	query := `
		SELECT ` + postColumns + `, u.name, u.email, ` + visibleCommentCount + `
		FROM posts p
		INNER JOIN users u ON u.id = p.author_id
		WHERE p.id = $1`

	return scanPostRow(m.db.QueryRowContext(ctx, query, id))
}

// readingTimeSQL mirrors ReadingTime for the stored content of the row being updated.
const readingTimeSQL = `GREATEST(1, CEIL((SELECT count(*) FROM regexp_split_to_table(content, '\s+') AS w WHERE w <> '') / 200.0))::integer`

// viewPost increments the view counter, recomputes the reading time and returns the post as it is afterwards.
func (m *DBModel) viewPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	query := `
		WITH p AS (
			UPDATE posts
			SET view_count = view_count + 1, reading_time = ` + readingTimeSQL + `
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + postColumns + `, u.name, u.email, ` + visibleCommentCount + `
		FROM p
		INNER JOIN users u ON u.id = p.author_id`

	return scanPostRow(m.db.QueryRowContext(ctx, query, id))
}

func scanPostRow(row *sql.Row) (*Post, error) {
	var p Post

	dest := append(postDest(&p), &p.Author.Name, &p.Author.Email, &p.CommentCount)
	err := row.Scan(dest...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	p.Author.ID = p.AuthorID

	return &p, nil
}

// lockPost reads a post and holds a row lock on it until tx ends.
func (m *DBModel) lockPost(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.id = $1
		FOR UPDATE`

	var p Post
	err := tx.QueryRowContext(ctx, query, id).Scan(postDest(&p)...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &p, nil
}

func (m *DBModel) updatePost(ctx context.Context, tx *sql.Tx, p *Post) error {
	query := `
		UPDATE posts
		SET title = $1, content = $2, slug = $3, excerpt = $4, status = $5, category = $6, tags = $7,
			featured_image = $8, meta_description = $9, focus_keyword = $10, reading_time = $11,
			published_at = $12, updated_at = NOW(), version = version + 1
		WHERE id = $13 AND version = $14
		RETURNING updated_at, version`

	args := []any{
		p.Title, p.Content, p.Slug, p.Excerpt, p.Status, p.Category, pq.Array(p.Tags),
		p.FeaturedImage, p.MetaDescription, p.FocusKeyword, p.ReadingTime,
		p.PublishedAt, p.ID, p.Version,
	}

	err := tx.QueryRowContext(ctx, query, args...).Scan(&p.UpdatedAt, &p.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrEditConflict
		default:
			return mapWriteError(err)
		}
	}

	return nil
}

func (m *DBModel) deletePost(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	query := `
		DELETE FROM posts
		WHERE id = $1`

	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

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

type postOwner struct {
	ID       uuid.UUID
	AuthorID uuid.UUID
}

// lockPosts locks every listed post in id order so concurrent bulk operations cannot deadlock on each other.
func (m *DBModel) lockPosts(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) ([]postOwner, error) {
	query := `
		SELECT id, author_id
		FROM posts
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []postOwner
	for rows.Next() {
		var o postOwner
		if err := rows.Scan(&o.ID, &o.AuthorID); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return owners, nil
}

func (m *DBModel) bulkDelete(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) (int64, error) {
	query := `
		DELETE FROM posts
		WHERE id = ANY($1::uuid[])`

	res, err := tx.ExecContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (m *DBModel) listPosts(ctx context.Context, filter ListFilter, f common.Filters) ([]*Post, common.Metadata, error) {
	query := `
		SELECT count(*) OVER(), ` + postColumns + `, u.name, u.email, ` + visibleCommentCount + `
		FROM posts p
		INNER JOIN users u ON u.id = p.author_id
		WHERE (p.status = $1)
		AND ($2::uuid IS NULL OR p.author_id = $2::uuid)
		AND ($3 = '' OR p.category = $3)
		AND ($4 = '' OR $4 = ANY(p.tags))
		ORDER BY COALESCE(p.published_at, p.created_at) DESC, p.id
		LIMIT $5 OFFSET $6`

	args := []any{filter.Status, filter.AuthorID, filter.Category, filter.Tag, f.Limit, f.Offset()}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	posts := []*Post{}

	for rows.Next() {
		var p Post

		dest := append([]any{&totalRecords}, postDest(&p)...)
		dest = append(dest, &p.Author.Name, &p.Author.Email, &p.CommentCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, common.Metadata{}, err
		}

		p.Author.ID = p.AuthorID
		posts = append(posts, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, common.Metadata{}, err
	}

	return posts, common.CalculateMetadata(totalRecords, f.Page, f.Limit), nil
}

func (m *DBModel) countPosts(ctx context.Context) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx, "SELECT count(*) FROM posts").Scan(&count)
	return count, err
}

func uuidStrings(ids []uuid.UUID) []string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	return s
}
