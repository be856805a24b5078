package postservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

// bulkAttempts bounds how often a serializable bulk transaction is retried after a serialization failure.
const bulkAttempts = 3

func NewPostService(db *sql.DB, auditor audit.Logger) *PostService {
	return &PostService{m: newPostModel(db), audit: auditor}
}

// CreatePost creates a post owned by actor. The slug defaults to the slugified title.
func (s *PostService) CreatePost(ctx context.Context, actor *rbac.Identity, in *CreatePostInput) (*Post, error) {
	if !actor.Can(rbac.PostsCreate) {
		return nil, common.ErrForbidden
	}

	if in.Slug == "" {
		in.Slug = in.Title
	}
	in.Slug = Slugify(in.Slug)

	if in.Status == "" {
		in.Status = StatusDraft
	}

	if in.Tags == nil {
		in.Tags = []string{}
	}

	in.Content = common.SanitizeMarkdown(in.Content)

	v := common.NewValidator()
	validateCreate(v, in)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	content := in.Content

	p := &Post{
		Title:           in.Title,
		Content:         content,
		Slug:            in.Slug,
		Excerpt:         in.Excerpt,
		Status:          in.Status,
		Category:        in.Category,
		Tags:            in.Tags,
		FeaturedImage:   in.FeaturedImage,
		MetaDescription: in.MetaDescription,
		FocusKeyword:    in.FocusKeyword,
		ReadingTime:     ReadingTime(content),
		PublishedAt:     resolvePublishedAt(nil, in.Status, time.Now()),
		AuthorID:        actor.ID,
		Author:          Author{ID: actor.ID, Name: actor.Name, Email: actor.Email},
	}

	err := s.m.insertPost(ctx, p)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Action:     audit.ActionCreate,
		Resource:   "post",
		ResourceID: p.ID.String(),
		ActorID:    audit.ActorID(actor.ID),
		Details:    map[string]any{"slug": p.Slug, "status": p.Status},
	})

	return p, nil
}

// GetPost returns a post and counts the read as a view.
func (s *PostService) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return s.m.viewPost(ctx, id)
}

// ListPosts returns a page of posts matching filter. An empty status lists published posts.
func (s *PostService) ListPosts(ctx context.Context, filter ListFilter, f common.Filters) ([]*Post, common.Metadata, error) {
	if filter.Status == "" {
		filter.Status = StatusPublished
	}

	v := common.NewValidator()
	validateStatus(v, filter.Status)
	common.ValidateFilters(v, f)
	if !v.Valid() {
		return nil, common.Metadata{}, v.ValidationError()
	}

	return s.m.listPosts(ctx, filter, f)
}

// UpdatePost applies a partial update. Ownership is checked against the locked row inside the transaction.
func (s *PostService) UpdatePost(ctx context.Context, actor *rbac.Identity, id uuid.UUID, in *UpdatePostInput) (*Post, error) {
	if !actor.Can(rbac.PostsUpdate) {
		return nil, common.ErrForbidden
	}

	sanitizeUpdate(in)

	v := common.NewValidator()
	validateUpdate(v, in)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err := common.WithTx(ctx, s.m.db, nil, func(tx *sql.Tx) error {
		p, err := s.m.lockPost(ctx, tx, id)
		if err != nil {
			return err
		}

		if !rbac.CanModifyOwnResource(actor.Role, p.AuthorID, actor.ID) {
			return common.ErrForbidden
		}

		applyUpdate(p, in, time.Now())

		return s.m.updatePost(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionUpdate, Resource: "post", ResourceID: id.String(), ActorID: audit.ActorID(actor.ID)})

	return s.m.getPost(ctx, id)
}

// sanitizeUpdate strips script blocks from new content so that validation sees what will be stored.
func sanitizeUpdate(in *UpdatePostInput) {
	if in.Content != nil {
		content := common.SanitizeMarkdown(*in.Content)
		in.Content = &content
	}
}

func applyUpdate(p *Post, in *UpdatePostInput, now time.Time) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Content != nil {
		p.Content = *in.Content
		p.ReadingTime = ReadingTime(p.Content)
	}
	if in.Slug != nil {
		p.Slug = Slugify(*in.Slug)
	}
	if in.Excerpt != nil {
		p.Excerpt = *in.Excerpt
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Tags != nil && *in.Tags != nil {
		p.Tags = *in.Tags
	}
	if in.FeaturedImage != nil {
		p.FeaturedImage = *in.FeaturedImage
	}
	if in.MetaDescription != nil {
		p.MetaDescription = *in.MetaDescription
	}
	if in.FocusKeyword != nil {
		p.FocusKeyword = *in.FocusKeyword
	}

	p.PublishedAt = resolvePublishedAt(p.PublishedAt, p.Status, now)
}

// DeletePost hard deletes a post. Its comments are removed by the foreign key cascade.
func (s *PostService) DeletePost(ctx context.Context, actor *rbac.Identity, id uuid.UUID) error {
	if !actor.Can(rbac.PostsDelete) {
		return common.ErrForbidden
	}

	err := common.WithTx(ctx, s.m.db, nil, func(tx *sql.Tx) error {
		p, err := s.m.lockPost(ctx, tx, id)
		if err != nil {
			return err
		}

		if !rbac.CanModifyOwnResource(actor.Role, p.AuthorID, actor.ID) {
			return common.ErrForbidden
		}

		return s.m.deletePost(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionDelete, Resource: "post", ResourceID: id.String(), ActorID: audit.ActorID(actor.ID)})

	return nil
}

// BulkUpdate applies each item's partial update to its post. Every target is locked and owner-checked before the
// first write, and any failure rolls back the whole batch.
func (s *PostService) BulkUpdate(ctx context.Context, actor *rbac.Identity, items []BulkUpdateItem) (int64, error) {
	if !actor.Can(rbac.PostsBulkUpdate) {
		return 0, common.ErrForbidden
	}

	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
		sanitizeUpdate(&items[i].Data)
	}

	v := common.NewValidator()
	validateIDs(v, "posts", ids)
	validateBulkItems(v, items)
	if !v.Valid() {
		return 0, v.ValidationError()
	}

	var affected int64
	err := common.WithRetryTx(ctx, s.m.db, common.Serializable, bulkAttempts, func(tx *sql.Tx) error {
		affected = 0

		if err := s.authorizeBulk(ctx, tx, actor, ids); err != nil {
			return err
		}

		now := time.Now()
		for _, item := range items {
			p, err := s.m.lockPost(ctx, tx, item.ID)
			if err != nil {
				return err
			}

			applyUpdate(p, &item.Data, now)

			if err := s.m.updatePost(ctx, tx, p); err != nil {
				return err
			}
			affected++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, audit.Event{
		Action:   audit.ActionBulkUpdate,
		Resource: "post",
		ActorID:  audit.ActorID(actor.ID),
		Details:  map[string]any{"ids": ids, "count": affected},
	})

	return affected, nil
}

// BulkDelete deletes every listed post or none of them. It needs the same permission as a single delete.
func (s *PostService) BulkDelete(ctx context.Context, actor *rbac.Identity, ids []uuid.UUID) (int64, error) {
	if !actor.Can(rbac.PostsDelete) {
		return 0, common.ErrForbidden
	}

	v := common.NewValidator()
	validateIDs(v, "ids", ids)
	if !v.Valid() {
		return 0, v.ValidationError()
	}

	var affected int64
	err := common.WithRetryTx(ctx, s.m.db, common.Serializable, bulkAttempts, func(tx *sql.Tx) error {
		if err := s.authorizeBulk(ctx, tx, actor, ids); err != nil {
			return err
		}

		var err error
		affected, err = s.m.bulkDelete(ctx, tx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, audit.Event{
		Action:   audit.ActionBulkDelete,
		Resource: "post",
		ActorID:  audit.ActorID(actor.ID),
		Details:  map[string]any{"ids": ids, "count": affected},
	})

	return affected, nil
}

// authorizeBulk locks the targets and fails unless every one exists and actor may modify all of them.
func (s *PostService) authorizeBulk(ctx context.Context, tx *sql.Tx, actor *rbac.Identity, ids []uuid.UUID) error {
	owners, err := s.m.lockPosts(ctx, tx, ids)
	if err != nil {
		return err
	}

	if len(owners) != len(ids) {
		return common.ErrRecordNotFound
	}

	for _, o := range owners {
		if !rbac.CanModifyOwnResource(actor.Role, o.AuthorID, actor.ID) {
			return common.ErrForbidden
		}
	}

	return nil
}

// CountPosts returns the number of stored posts in every status.
func (s *PostService) CountPosts(ctx context.Context) (int, error) {
	return s.m.countPosts(ctx)
}
