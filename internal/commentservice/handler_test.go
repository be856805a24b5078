package commentservice

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

func setupTestEnvironment(t *testing.T) (*CommentService, *sql.DB) {
	t.Helper()

	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewCommentService(db, audit.NewDBLogger(db, logger)), db
}

func createTestUser(t *testing.T, db *sql.DB, email string, role rbac.Role) *rbac.Identity {
	t.Helper()

	identity := &rbac.Identity{Email: email, Name: "Test User", Role: role}
	err := db.QueryRow(
		"INSERT INTO users (email, name, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id",
		email, identity.Name, []byte("hash"), role,
	).Scan(&identity.ID)
	require.NoError(t, err)

	return identity
}

func createTestPost(t *testing.T, db *sql.DB, author *rbac.Identity, slug string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(
		"INSERT INTO posts (title, content, slug, status, author_id) VALUES ('Title', 'Content', $1, 'published', $2) RETURNING id",
		slug, author.ID,
	).Scan(&id)
	require.NoError(t, err)

	return id
}

func reply(t *testing.T, s *CommentService, actor *rbac.Identity, postID uuid.UUID, parent *Comment, content string) *Comment {
	t.Helper()

	var parentID uuid.NullUUID
	if parent != nil {
		parentID = uuid.NullUUID{UUID: parent.ID, Valid: true}
	}

	c, err := s.CreateComment(context.Background(), actor, postID, parentID, content)
	require.NoError(t, err)

	return c
}

func TestCreateComment(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	reader := createTestUser(t, db, "reader@example.com", rbac.RoleReader)
	postID := createTestPost(t, db, reader, "first")
	otherPostID := createTestPost(t, db, reader, "second")
	onOther := reply(t, s, reader, otherPostID, nil, "elsewhere")

	testCases := []struct {
		name     string
		actor    *rbac.Identity
		postID   uuid.UUID
		parentID uuid.NullUUID
		content  string
		wantErr  error
	}{
		{name: "root comment", actor: reader, postID: postID, content: "hello"},
		{name: "anonymous", actor: nil, postID: postID, content: "hello", wantErr: common.ErrForbidden},
		{name: "missing post", actor: reader, postID: uuid.New(), content: "hello", wantErr: ErrPostNotFound},
		{name: "missing parent", actor: reader, postID: postID, parentID: uuid.NullUUID{UUID: uuid.New(), Valid: true}, content: "hello", wantErr: ErrParentNotFound},
		{name: "parent on another post", actor: reader, postID: postID, parentID: uuid.NullUUID{UUID: onOther.ID, Valid: true}, content: "hello", wantErr: ErrParentNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := s.CreateComment(ctx, tc.actor, tc.postID, tc.parentID, tc.content)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.content, c.Content)
			assert.Equal(t, tc.actor.ID, c.Author.ID)
		})
	}

	t.Run("missing parent is a not found error", func(t *testing.T) {
		_, err := s.CreateComment(ctx, reader, postID, uuid.NullUUID{UUID: uuid.New(), Valid: true}, "x")
		assert.ErrorIs(t, err, common.ErrRecordNotFound)
	})
}

func TestAssembleTreeRoundTrip(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	reader := createTestUser(t, db, "reader@example.com", rbac.RoleReader)
	postID := createTestPost(t, db, reader, "thread")

	root := reply(t, s, reader, postID, nil, "root")
	first := reply(t, s, reader, postID, root, "first")
	second := reply(t, s, reader, postID, root, "second")
	nested := reply(t, s, reader, postID, first, "nested")

	tree, err := s.AssembleTree(ctx, postID)
	require.NoError(t, err)

	require.Len(t, tree, 1)
	assert.Equal(t, root.ID, tree[0].ID)
	assert.Equal(t, reader.Email, tree[0].Author.Email)
	require.Equal(t, []uuid.UUID{first.ID, second.ID}, ids(tree[0].Replies))
	assert.Equal(t, []uuid.UUID{nested.ID}, ids(tree[0].Replies[0].Replies))

	empty, err := s.AssembleTree(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSoftDeleteComment(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com", rbac.RoleReader)
	other := createTestUser(t, db, "other@example.com", rbac.RoleEditor)
	postID := createTestPost(t, db, owner, "thread")

	root := reply(t, s, owner, postID, nil, "root")
	c := reply(t, s, owner, postID, root, "to be deleted")
	child := reply(t, s, other, postID, c, "child")

	err := s.SoftDeleteComment(ctx, other, c.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	require.NoError(t, s.SoftDeleteComment(ctx, owner, c.ID))

	_, err = s.GetComment(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	err = s.SoftDeleteComment(ctx, owner, c.ID)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	_, err = s.UpdateComment(ctx, owner, c.ID, "edit")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	got, err := s.GetComment(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ParentID.UUID)

	tree, err := s.AssembleTree(ctx, postID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, []uuid.UUID{child.ID}, ids(tree[0].Replies))

	late := reply(t, s, other, postID, c, "reply to deleted")
	tree, err = s.AssembleTree(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{child.ID, late.ID}, ids(tree[0].Replies))

	visible, err := s.CountVisible(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, visible)
}

func TestUpdateComment(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com", rbac.RoleReader)
	stranger := createTestUser(t, db, "stranger@example.com", rbac.RoleReader)
	admin := createTestUser(t, db, "admin@example.com", rbac.RoleAdmin)
	postID := createTestPost(t, db, owner, "thread")
	c := reply(t, s, owner, postID, nil, "original")

	_, err := s.UpdateComment(ctx, stranger, c.ID, "hijacked")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = s.UpdateComment(ctx, owner, c.ID, "")
	var verr common.ValidationError
	assert.ErrorAs(t, err, &verr)

	got, err := s.UpdateComment(ctx, owner, c.ID, "edited <script>x()</script>")
	require.NoError(t, err)
	assert.Equal(t, "edited ", got.Content)

	got, err = s.UpdateComment(ctx, admin, c.ID, "moderated")
	require.NoError(t, err)
	assert.Equal(t, "moderated", got.Content)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))
}

func TestDeepCascade(t *testing.T) {
	s, db := setupTestEnvironment(t)
	ctx := context.Background()

	reader := createTestUser(t, db, "reader@example.com", rbac.RoleReader)
	postID := createTestPost(t, db, reader, "deep")

	root := reply(t, s, reader, postID, nil, "depth 0")
	parent := root
	for i := 1; i <= 12; i++ {
		parent = reply(t, s, reader, postID, parent, "deeper")
	}
	sibling := reply(t, s, reader, postID, nil, "unrelated")

	_, err := db.Exec("DELETE FROM comments WHERE id = $1", root.ID)
	require.NoError(t, err)

	var remaining int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM comments WHERE post_id = $1", postID).Scan(&remaining))
	assert.Equal(t, 1, remaining)

	tree, err := s.AssembleTree(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sibling.ID}, ids(tree))

	_, err = db.Exec("DELETE FROM users WHERE id = $1", reader.ID)
	require.NoError(t, err)

	require.NoError(t, db.QueryRow("SELECT count(*) FROM comments").Scan(&remaining))
	assert.Zero(t, remaining)
}
