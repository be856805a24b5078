package commentservice

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/audit"
)

const MaxContentLength = 5000

type Author struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Comment is a stored comment row. DeletedAt is set once the comment has been soft deleted.
type Comment struct {
	ID        uuid.UUID     `json:"id"`
	Content   string        `json:"content"`
	PostID    uuid.UUID     `json:"post_id"`
	ParentID  uuid.NullUUID `json:"-"`
	Author    Author        `json:"author"`
	DeletedAt *time.Time    `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CommentNode is a visible comment with its visible replies in creation order.
type CommentNode struct {
	ID        uuid.UUID      `json:"id"`
	Content   string         `json:"content"`
	Author    Author         `json:"author"`
	ParentID  *uuid.UUID     `json:"parent_id"`
	CreatedAt time.Time      `json:"created_at"`
	Replies   []*CommentNode `json:"replies"`
}

type CommentService struct {
	m     *DBModel
	audit audit.Logger
}

type DBModel struct {
	db *sql.DB
}
