package searchservice

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Type string

const (
	TypeAll      Type = "all"
	TypePosts    Type = "posts"
	TypeComments Type = "comments"
	TypeUsers    Type = "users"
)

type Params struct {
	Query    string
	Type     Type
	Author   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

type PostHit struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Slug        string     `db:"slug" json:"slug"`
	Excerpt     string     `db:"excerpt" json:"excerpt"`
	PublishedAt *time.Time `db:"published_at" json:"published_at"`
	AuthorName  string     `db:"author_name" json:"author_name"`
	AuthorEmail string     `db:"author_email" json:"author_email"`
	Total       int        `db:"total" json:"-"`
}

type CommentHit struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Content     string    `db:"content" json:"content"`
	PostID      uuid.UUID `db:"post_id" json:"post_id"`
	PostTitle   string    `db:"post_title" json:"post_title"`
	PostSlug    string    `db:"post_slug" json:"post_slug"`
	AuthorName  string    `db:"author_name" json:"author_name"`
	AuthorEmail string    `db:"author_email" json:"author_email"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Total       int       `db:"total" json:"-"`
}

type UserHit struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Total     int       `db:"total" json:"-"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type Results struct {
	Posts      []PostHit    `json:"posts"`
	Comments   []CommentHit `json:"comments"`
	Users      []UserHit    `json:"users"`
	Pagination Pagination   `json:"pagination"`
}

type SearchService struct {
	db *sqlx.DB
}
