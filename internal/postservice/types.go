package postservice

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/audit"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// MaxBulkItems caps the number of posts a single bulk request may touch.
const MaxBulkItems = 100

type Author struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type Post struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Slug            string     `json:"slug"`
	Excerpt         string     `json:"excerpt"`
	Status          Status     `json:"status"`
	Category        string     `json:"category"`
	Tags            []string   `json:"tags"`
	FeaturedImage   string     `json:"featured_image"`
	MetaDescription string     `json:"meta_description"`
	FocusKeyword    string     `json:"focus_keyword"`
	ViewCount       int        `json:"view_count"`
	ReadingTime     int        `json:"reading_time"`
	PublishedAt     *time.Time `json:"published_at"`
	AuthorID        uuid.UUID  `json:"-"`
	Author          Author     `json:"author"`
	CommentCount    int        `json:"comment_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int        `json:"version"`
}

type CreatePostInput struct {
	Title           string
	Content         string
	Slug            string
	Excerpt         string
	Status          Status
	Category        string
	Tags            []string
	FeaturedImage   string
	MetaDescription string
	FocusKeyword    string
}

// UpdatePostInput holds a partial update. Nil fields are left unchanged.
type UpdatePostInput struct {
	Title           *string
	Content         *string
	Slug            *string
	Excerpt         *string
	Status          *Status
	Category        *string
	Tags            *[]string
	FeaturedImage   *string
	MetaDescription *string
	FocusKeyword    *string
}

// BulkUpdateItem pairs a post with the partial update applied to it in a bulk update.
type BulkUpdateItem struct {
	ID   uuid.UUID
	Data UpdatePostInput
}

type ListFilter struct {
	Status   Status
	AuthorID uuid.NullUUID
	Category string
	Tag      string
}

type PostService struct {
	m     *DBModel
	audit audit.Logger
}

type DBModel struct {
	db *sql.DB
}
