// Package searchservice implements case-insensitive substring search over posts, comments and users.
package searchservice

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
	"golang.org/x/sync/errgroup"
)

const maxQueryLength = 200

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func NewSearchService(db *sql.DB) *SearchService {
	return &SearchService{db: sqlx.NewDb(db, "postgres")}
}

func validateParams(v *common.Validator, p *Params) {
	v.Check(strings.TrimSpace(p.Query) != "", "query", "must be provided")
	v.Check(v.CheckStringLength(p.Query, 0, maxQueryLength), "query", "must not be more than 200 characters long")
	v.Check(common.PermittedValue(p.Type, TypeAll, TypePosts, TypeComments, TypeUsers), "type", "must be one of all, posts, comments or users")
	v.Check(p.DateFrom == nil || p.DateTo == nil || !p.DateTo.Before(*p.DateFrom), "date_to", "must not be before date_from")
	common.ValidateFilters(v, common.Filters{Page: p.Page, Limit: p.Limit})
}

// contains turns s into an ILIKE pattern matching it anywhere, with wildcards in s taken literally.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Search runs the requested searches concurrently. User results are only produced for actors allowed to read users;
// asking for them explicitly without that permission is forbidden, while an "all" search silently omits them.
func (s *SearchService) Search(ctx context.Context, actor *rbac.Identity, p Params) (*Results, error) {
	if p.Type == "" {
		p.Type = TypeAll
	}
	if p.Page == 0 {
		p.Page = common.DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = common.DefaultLimit
	}

	v := common.NewValidator()
	validateParams(v, &p)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	canReadUsers := actor.Can(rbac.UsersRead)
	if p.Type == TypeUsers && !canReadUsers {
		return nil, common.ErrForbidden
	}

	res := &Results{Posts: []PostHit{}, Comments: []CommentHit{}, Users: []UserHit{}}

	g, gctx := errgroup.WithContext(ctx)

	if p.Type == TypeAll || p.Type == TypePosts {
		g.Go(func() error {
			return s.db.SelectContext(gctx, &res.Posts, postsQuery, filterArgs(p)...)
		})
	}

	if p.Type == TypeAll || p.Type == TypeComments {
		g.Go(func() error {
			return s.db.SelectContext(gctx, &res.Comments, commentsQuery, filterArgs(p)...)
		})
	}

	if (p.Type == TypeAll || p.Type == TypeUsers) && canReadUsers {
		g.Go(func() error {
			return s.db.SelectContext(gctx, &res.Users, usersQuery, contains(p.Query), p.Limit, (p.Page-1)*p.Limit)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	if len(res.Posts) > 0 {
		total += res.Posts[0].Total
	}
	if len(res.Comments) > 0 {
		total += res.Comments[0].Total
	}
	if len(res.Users) > 0 {
		total += res.Users[0].Total
	}

	res.Pagination = Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: (total + p.Limit - 1) / p.Limit,
	}

	return res, nil
}

func filterArgs(p Params) []any {
	author := ""
	if p.Author != "" {
		author = contains(p.Author)
	}

	return []any{contains(p.Query), author, p.DateFrom, p.DateTo, p.Limit, (p.Page - 1) * p.Limit}
}

const postsQuery = `
	SELECT count(*) OVER() AS total, p.id, p.title, p.slug, p.excerpt, p.published_at,
		u.name AS author_name, u.email AS author_email
	FROM posts p
	INNER JOIN users u ON u.id = p.author_id
	WHERE p.status = 'published'
	AND (p.title ILIKE $1 OR p.content ILIKE $1)
	AND ($2 = '' OR u.email ILIKE $2)
	AND ($3::timestamptz IS NULL OR p.published_at >= $3::timestamptz)
	AND ($4::timestamptz IS NULL OR p.published_at <= $4::timestamptz)
	ORDER BY p.published_at DESC, p.id
	LIMIT $5 OFFSET $6`

const commentsQuery = `
	SELECT count(*) OVER() AS total, c.id, c.content, c.post_id, c.created_at,
		p.title AS post_title, p.slug AS post_slug, u.name AS author_name, u.email AS author_email
	FROM comments c
	INNER JOIN posts p ON p.id = c.post_id
	INNER JOIN users u ON u.id = c.author_id
	WHERE c.deleted_at IS NULL
	AND c.content ILIKE $1
	AND ($2 = '' OR u.email ILIKE $2)
	AND ($3::timestamptz IS NULL OR c.created_at >= $3::timestamptz)
	AND ($4::timestamptz IS NULL OR c.created_at <= $4::timestamptz)
	ORDER BY c.created_at DESC, c.id
	LIMIT $5 OFFSET $6`

const usersQuery = `
	SELECT count(*) OVER() AS total, id, name, email, role, created_at
	FROM users
	WHERE name ILIKE $1 OR email ILIKE $1
	ORDER BY created_at DESC, id
	LIMIT $2 OFFSET $3`
