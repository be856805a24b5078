package commentservice

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

func NewCommentService(db *sql.DB, auditor audit.Logger) *CommentService {
	return &CommentService{m: newCommentModel(db), audit: auditor}
}

// AssembleTree returns the visible comments of a post as a forest ordered by creation time at every level.
func (s *CommentService) AssembleTree(ctx context.Context, postID uuid.UUID) ([]*CommentNode, error) {
	rows, err := s.m.listForPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	return buildTree(rows), nil
}

// CreateComment adds a comment to a post, optionally as a reply. A soft-deleted parent may still be replied to.
func (s *CommentService) CreateComment(ctx context.Context, actor *rbac.Identity, postID uuid.UUID, parentID uuid.NullUUID, content string) (*Comment, error) {
	if !actor.Can(rbac.CommentsCreate) {
		return nil, common.ErrForbidden
	}

	content, err := prepareContent(content)
	if err != nil {
		return nil, err
	}

	exists, err := s.m.postExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}

	if parentID.Valid {
		parentPost, err := s.m.parentPostID(ctx, parentID.UUID)
		if err != nil {
			return nil, err
		}
		if parentPost != postID {
			return nil, ErrParentNotFound
		}
	}

	c := &Comment{
		Content:  content,
		PostID:   postID,
		ParentID: parentID,
		Author:   Author{ID: actor.ID, Name: actor.Name, Email: actor.Email},
	}

	if err = s.m.insertComment(ctx, c); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Action:     audit.ActionCreate,
		Resource:   "comment",
		ResourceID: c.ID.String(),
		ActorID:    audit.ActorID(actor.ID),
		Details:    map[string]any{"post_id": postID.String()},
	})

	return c, nil
}

func (s *CommentService) GetComment(ctx context.Context, id uuid.UUID) (*Comment, error) {
	return s.m.getComment(ctx, id)
}

// UpdateComment replaces the content of a visible comment owned by actor.
func (s *CommentService) UpdateComment(ctx context.Context, actor *rbac.Identity, id uuid.UUID, content string) (*Comment, error) {
	if !actor.Can(rbac.CommentsUpdate) {
		return nil, common.ErrForbidden
	}

	content, err := prepareContent(content)
	if err != nil {
		return nil, err
	}

	err = common.WithTx(ctx, s.m.db, nil, func(tx *sql.Tx) error {
		authorID, err := s.m.lockComment(ctx, tx, id)
		if err != nil {
			return err
		}

		if !rbac.CanModifyOwnResource(actor.Role, authorID, actor.ID) {
			return common.ErrForbidden
		}

		return s.m.updateContent(ctx, tx, id, content)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionUpdate, Resource: "comment", ResourceID: id.String(), ActorID: audit.ActorID(actor.ID)})

	return s.m.getComment(ctx, id)
}

// SoftDeleteComment hides a comment. Its replies are left in place.
func (s *CommentService) SoftDeleteComment(ctx context.Context, actor *rbac.Identity, id uuid.UUID) error {
	if !actor.Can(rbac.CommentsDelete) {
		return common.ErrForbidden
	}

	err := common.WithTx(ctx, s.m.db, nil, func(tx *sql.Tx) error {
		authorID, err := s.m.lockComment(ctx, tx, id)
		if err != nil {
			return err
		}

		if !rbac.CanModifyOwnResource(actor.Role, authorID, actor.ID) {
			return common.ErrForbidden
		}

		return s.m.softDelete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionSoftDelete, Resource: "comment", ResourceID: id.String(), ActorID: audit.ActorID(actor.ID)})

	return nil
}

// CountVisible returns the number of comments that have not been soft deleted.
func (s *CommentService) CountVisible(ctx context.Context) (int, error) {
	return s.m.countVisible(ctx)
}
