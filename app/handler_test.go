package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/threadline/internal/rbac"
	"github.com/sushihentaime/threadline/internal/userservice"
)

func TestSignupHandler(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	testCases := []struct {
		name       string
		payload    any
		wantStatus int
		wantBody   envelope
	}{
		{
			name:       "valid request",
			payload:    map[string]any{"name": "Ada", "email": "ada@example.com", "password": testPassword},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid email",
			payload:    map[string]any{"name": "Ada", "email": "ada", "password": testPassword},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]any{"email": "must be a valid email address"}},
		},
		{
			name:       "weak password",
			payload:    map[string]any{"name": "Ada", "email": "weak@example.com", "password": "password1!"},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]any{"password": "must contain at least one uppercase letter"}},
		},
		{
			name:       "duplicate email",
			payload:    map[string]any{"name": "Ada", "email": "ADA@example.com", "password": testPassword},
			wantStatus: http.StatusConflict,
			wantBody:   envelope{"error": "a user with this email address already exists"},
		},
		{
			name:       "role cannot be chosen",
			payload:    map[string]any{"name": "Eve", "email": "eve@example.com", "password": testPassword, "role": "admin"},
			wantStatus: http.StatusBadRequest,
			wantBody:   envelope{"error": `request body contains unknown field "role"`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, _, body := ts.post(t, "/v1/auth/signup", "", tc.payload)

			assert.Equal(t, tc.wantStatus, status)
			if tc.wantBody != nil {
				assert.Equal(t, tc.wantBody, body)
			}
			if status == http.StatusCreated {
				assert.Equal(t, string(rbac.RoleReader), field(body, "user", "role"))
			}
		})
	}
}

func TestLoginAndMe(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	signupAs(t, app, db, "Grace", "grace@example.com", rbac.RoleEditor)

	t.Run("wrong password", func(t *testing.T) {
		status, _, body := ts.post(t, "/v1/auth/login", "", map[string]any{"email": "grace@example.com", "password": "Wr0ng!pass"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid authentication credentials", body["error"])
	})

	t.Run("unknown email", func(t *testing.T) {
		status, _, body := ts.post(t, "/v1/auth/login", "", map[string]any{"email": "nobody@example.com", "password": testPassword})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid authentication credentials", body["error"])
	})

	var token string

	t.Run("success sets cookie", func(t *testing.T) {
		status, header, body := ts.post(t, "/v1/auth/login", "", map[string]any{"email": "grace@example.com", "password": testPassword})
		require.Equal(t, http.StatusOK, status)

		token, _ = body["token"].(string)
		require.NotEmpty(t, token)
		assert.Contains(t, header.Get("Set-Cookie"), rbac.SessionCookieName+"="+token)
		assert.Contains(t, header.Get("Set-Cookie"), "HttpOnly")
		assert.Equal(t, string(rbac.RoleEditor), field(body, "user", "role"))
	})

	t.Run("me", func(t *testing.T) {
		status, _, body := ts.get(t, "/v1/auth/me", token)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "grace@example.com", field(body, "user", "email"))
		assert.Contains(t, body["permissions"], string(rbac.PostsBulkUpdate))
	})

	t.Run("me without credential", func(t *testing.T) {
		status, header, _ := ts.get(t, "/v1/auth/me", "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Bearer", header.Get("WWW-Authenticate"))
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		status, header, _ := ts.post(t, "/v1/auth/logout", token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, header.Get("Set-Cookie"), "Max-Age=0")
	})
}

func TestPasswordResetHandlers(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	signupAs(t, app, db, "Reader", "reader@example.com", rbac.RoleReader)

	t.Run("request does not reveal accounts", func(t *testing.T) {
		statusKnown, _, bodyKnown := ts.post(t, "/v1/auth/request-reset", "", map[string]any{"email": "reader@example.com"})
		statusUnknown, _, bodyUnknown := ts.post(t, "/v1/auth/request-reset", "", map[string]any{"email": "ghost@example.com"})

		assert.Equal(t, http.StatusOK, statusKnown)
		assert.Equal(t, statusKnown, statusUnknown)
		assert.Equal(t, bodyKnown, bodyUnknown)
		assert.Equal(t, userservice.ResetRequestedMessage, bodyKnown["message"])
	})

	t.Run("invalid token", func(t *testing.T) {
		status, _, body := ts.post(t, "/v1/auth/reset-password", "", map[string]any{"token": "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "password": "N3w!password"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, userservice.ErrInvalidResetToken.Error(), body["error"])
	})
}

func TestPostHandlers(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, ownerToken := signupAs(t, app, db, "Owner", "owner@example.com", rbac.RoleReader)
	_, otherToken := signupAs(t, app, db, "Other", "other@example.com", rbac.RoleReader)
	_, adminToken := signupAs(t, app, db, "Admin", "admin@example.com", rbac.RoleAdmin)

	status, header, body := ts.post(t, "/v1/posts", ownerToken, map[string]any{
		"title":   "First Post",
		"content": "Some content",
		"status":  "published",
		"tags":    []string{"go"},
	})
	require.Equal(t, http.StatusCreated, status)

	id, _ := field(body, "post", "id").(string)
	path := "/v1/posts/" + id
	assert.Equal(t, path, header.Get("Location"))
	assert.Equal(t, "first-post", field(body, "post", "slug"))

	t.Run("anonymous create", func(t *testing.T) {
		status, _, _ := ts.post(t, "/v1/posts", "", map[string]any{"title": "x", "content": "y"})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		status, _, _ := ts.post(t, "/v1/posts", otherToken, map[string]any{"title": "First Post", "content": "again"})
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("views are counted", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			status, _, body := ts.get(t, path, "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, float64(i), field(body, "post", "view_count"))
		}
	})

	t.Run("stranger cannot update", func(t *testing.T) {
		status, _, _ := ts.patch(t, path, otherToken, map[string]any{"title": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, status)

		var title string
		require.NoError(t, db.QueryRow("SELECT title FROM posts WHERE id = $1", id).Scan(&title))
		assert.Equal(t, "First Post", title)
	})

	t.Run("owner updates", func(t *testing.T) {
		status, _, body := ts.patch(t, path, ownerToken, map[string]any{"title": "Edited"})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Edited", field(body, "post", "title"))
	})

	t.Run("admin updates", func(t *testing.T) {
		status, _, _ := ts.patch(t, path, adminToken, map[string]any{"category": "news"})
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("list published", func(t *testing.T) {
		status, _, body := ts.get(t, "/v1/posts?tag=go", "")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["posts"], 1)
		assert.Equal(t, float64(1), field(body, "metadata", "total_records"))
	})

	t.Run("list rejects bad paging", func(t *testing.T) {
		status, _, body := ts.get(t, "/v1/posts?page=-1&limit=1000", "")
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.NotEmpty(t, field(body, "error", "page"))
	})

	t.Run("invalid id", func(t *testing.T) {
		status, _, _ := ts.get(t, "/v1/posts/not-a-uuid", "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		status, _, _ := ts.delete(t, path, otherToken, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("owner deletes", func(t *testing.T) {
		status, _, _ := ts.delete(t, path, ownerToken, nil)
		assert.Equal(t, http.StatusOK, status)

		status, _, _ = ts.get(t, path, "")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestBulkHandlers(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, editorToken := signupAs(t, app, db, "Editor", "editor@example.com", rbac.RoleEditor)
	_, otherToken := signupAs(t, app, db, "Other", "other@example.com", rbac.RoleEditor)
	_, readerToken := signupAs(t, app, db, "Reader", "reader@example.com", rbac.RoleReader)

	create := func(token, title string) string {
		status, _, body := ts.post(t, "/v1/posts", token, map[string]any{"title": title, "content": "content"})
		require.Equal(t, http.StatusCreated, status)
		id, _ := field(body, "post", "id").(string)
		return id
	}

	mine := create(editorToken, "Mine")
	mineToo := create(editorToken, "Mine too")
	theirs := create(otherToken, "Theirs")

	column := func(name, id string) string {
		var s string
		require.NoError(t, db.QueryRow("SELECT "+name+" FROM posts WHERE id = $1", id).Scan(&s))
		return s
	}

	item := func(id string, data map[string]any) map[string]any {
		return map[string]any{"id": id, "data": data}
	}

	t.Run("reader lacks bulk update permission", func(t *testing.T) {
		status, _, _ := ts.patch(t, "/v1/posts-bulk", readerToken, map[string]any{
			"posts": []any{item(mine, map[string]any{"status": "published"})},
		})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("mixed ownership rolls back", func(t *testing.T) {
		status, _, body := ts.patch(t, "/v1/posts-bulk", editorToken, map[string]any{
			"posts": []any{
				item(mine, map[string]any{"status": "published"}),
				item(theirs, map[string]any{"category": "news"}),
			},
		})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "you can only modify your own posts", body["error"])

		assert.Equal(t, "draft", column("status", mine))
		assert.Equal(t, "", column("category", theirs))
	})

	t.Run("empty batch", func(t *testing.T) {
		status, _, _ := ts.patch(t, "/v1/posts-bulk", editorToken, map[string]any{"posts": []any{}})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("flat id list is rejected", func(t *testing.T) {
		status, _, _ := ts.patch(t, "/v1/posts-bulk", editorToken, map[string]any{"ids": []string{mine}, "status": "published"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("duplicate slug is a conflict", func(t *testing.T) {
		status, _, _ := ts.patch(t, "/v1/posts-bulk", editorToken, map[string]any{
			"posts": []any{
				item(mine, map[string]any{"status": "published"}),
				item(mineToo, map[string]any{"slug": "theirs"}),
			},
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "draft", column("status", mine))
	})

	t.Run("separate updates per post", func(t *testing.T) {
		status, _, body := ts.patch(t, "/v1/posts-bulk", editorToken, map[string]any{
			"posts": []any{
				item(mine, map[string]any{"status": "published"}),
				item(mineToo, map[string]any{"category": "news"}),
			},
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(2), body["updated"])

		assert.Equal(t, "published", column("status", mine))
		assert.Equal(t, "", column("category", mine))
		assert.Equal(t, "draft", column("status", mineToo))
		assert.Equal(t, "news", column("category", mineToo))
	})

	t.Run("reader bulk delete", func(t *testing.T) {
		own := create(readerToken, "Reader own")

		status, _, _ := ts.delete(t, "/v1/posts-bulk", readerToken, map[string]any{"ids": []string{own, theirs}})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "draft", column("status", own))
		assert.Equal(t, "draft", column("status", theirs))

		status, _, body := ts.delete(t, "/v1/posts-bulk", readerToken, map[string]any{"ids": []string{own}})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(1), body["deleted"])
	})

	t.Run("bulk delete mixed ownership", func(t *testing.T) {
		status, _, _ := ts.delete(t, "/v1/posts-bulk", editorToken, map[string]any{"ids": []string{mine, theirs}})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "published", column("status", mine))
	})

	t.Run("bulk delete own", func(t *testing.T) {
		status, _, body := ts.delete(t, "/v1/posts-bulk", editorToken, map[string]any{"ids": []string{mine, mineToo}})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(2), body["deleted"])
	})
}

func TestCommentHandlers(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, authorToken := signupAs(t, app, db, "Author", "author@example.com", rbac.RoleReader)
	_, replierToken := signupAs(t, app, db, "Replier", "replier@example.com", rbac.RoleReader)

	status, _, body := ts.post(t, "/v1/posts", authorToken, map[string]any{"title": "Discuss", "content": "content", "status": "published"})
	require.Equal(t, http.StatusCreated, status)
	postID, _ := field(body, "post", "id").(string)

	comment := func(token string, parent string, content string) string {
		payload := map[string]any{"post_id": postID, "content": content}
		if parent != "" {
			payload["parent_id"] = parent
		}
		status, _, body := ts.post(t, "/v1/comments", token, payload)
		require.Equal(t, http.StatusCreated, status)
		id, _ := field(body, "comment", "id").(string)
		return id
	}

	root := comment(replierToken, "", "first")
	reply := comment(authorToken, root, "reply")

	treePath := "/v1/comments?post_id=" + url.QueryEscape(postID)

	t.Run("tree is nested", func(t *testing.T) {
		status, _, body := ts.get(t, treePath, "")
		require.Equal(t, http.StatusOK, status)

		roots, _ := body["comments"].([]any)
		require.Len(t, roots, 1)
		first := roots[0].(map[string]any)
		assert.Equal(t, root, first["id"])

		replies, _ := first["replies"].([]any)
		require.Len(t, replies, 1)
		assert.Equal(t, reply, replies[0].(map[string]any)["id"])
	})

	t.Run("missing post id", func(t *testing.T) {
		status, _, body := ts.get(t, "/v1/comments", "")
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "must be provided", field(body, "error", "post_id"))
	})

	t.Run("reply to unknown parent", func(t *testing.T) {
		status, _, _ := ts.post(t, "/v1/comments", authorToken, map[string]any{"post_id": postID, "parent_id": postID, "content": "x"})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		status, _, _ := ts.patch(t, "/v1/comments/"+root, authorToken, map[string]any{"content": "edited"})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("soft delete hoists replies", func(t *testing.T) {
		status, _, _ := ts.delete(t, "/v1/comments/"+root, replierToken, nil)
		require.Equal(t, http.StatusOK, status)

		status, _, body := ts.get(t, treePath, "")
		require.Equal(t, http.StatusOK, status)

		roots, _ := body["comments"].([]any)
		require.Len(t, roots, 1)
		assert.Equal(t, reply, roots[0].(map[string]any)["id"])

		var exists bool
		require.NoError(t, db.QueryRow("SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)", root).Scan(&exists))
		assert.True(t, exists)
	})

	t.Run("deleted comment is gone", func(t *testing.T) {
		status, _, _ := ts.patch(t, "/v1/comments/"+root, replierToken, map[string]any{"content": "edited"})
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestSearchHandler(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, readerToken := signupAs(t, app, db, "Searcher", "searcher@example.com", rbac.RoleReader)
	_, adminToken := signupAs(t, app, db, "Admin", "admin@example.com", rbac.RoleAdmin)

	status, _, _ := ts.post(t, "/v1/posts", readerToken, map[string]any{"title": "Gopher tales", "content": "content", "status": "published"})
	require.Equal(t, http.StatusCreated, status)

	testCases := []struct {
		name       string
		query      string
		token      string
		wantStatus int
		wantPosts  int
		wantUsers  int
	}{
		{name: "posts anonymously", query: "query=gopher&type=posts", wantStatus: http.StatusOK, wantPosts: 1},
		{name: "missing query", query: "type=posts", wantStatus: http.StatusUnprocessableEntity},
		{name: "bad date", query: "query=gopher&date_from=yesterday", wantStatus: http.StatusUnprocessableEntity},
		{name: "users anonymously", query: "query=searcher&type=users", wantStatus: http.StatusForbidden},
		{name: "users as reader", query: "query=searcher&type=users", token: readerToken, wantStatus: http.StatusForbidden},
		{name: "users as admin", query: "query=searcher&type=users", token: adminToken, wantStatus: http.StatusOK, wantUsers: 1},
		{name: "all omits users for reader", query: "query=searcher", token: readerToken, wantStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, _, body := ts.get(t, "/v1/search?"+tc.query, tc.token)
			require.Equal(t, tc.wantStatus, status)

			if status == http.StatusOK {
				assert.Len(t, field(body, "results", "posts"), tc.wantPosts)
				assert.Len(t, field(body, "results", "users"), tc.wantUsers)
			}
		})
	}
}

func TestWellnessHandlers(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	_, aliceToken := signupAs(t, app, db, "Alice", "alice@example.com", rbac.RoleReader)
	_, bobToken := signupAs(t, app, db, "Bob", "bob@example.com", rbac.RoleAdmin)

	status, _, _ := ts.post(t, "/v1/wellness", aliceToken, map[string]any{"mood": "good", "stress_level": 3, "notes": "fine"})
	require.Equal(t, http.StatusCreated, status)

	status, _, body := ts.post(t, "/v1/wellness", aliceToken, map[string]any{"mood": "great", "stress_level": 11})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.NotEmpty(t, field(body, "error", "mood"))
	assert.NotEmpty(t, field(body, "error", "stress_level"))

	status, _, body = ts.get(t, "/v1/wellness", aliceToken)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["entries"], 1)

	status, _, body = ts.get(t, "/v1/wellness", bobToken)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["entries"], 0)
}

func TestAdminHandlers(t *testing.T) {
	app, db := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	admin, adminToken := signupAs(t, app, db, "Admin", "admin@example.com", rbac.RoleAdmin)
	reader, readerToken := signupAs(t, app, db, "Reader", "reader@example.com", rbac.RoleReader)
	_, editorToken := signupAs(t, app, db, "Editor", "editor@example.com", rbac.RoleEditor)

	status, _, _ := ts.post(t, "/v1/posts", readerToken, map[string]any{"title": "Reader post", "content": "content"})
	require.Equal(t, http.StatusCreated, status)

	t.Run("listing requires users:read", func(t *testing.T) {
		for _, token := range []string{readerToken, editorToken} {
			status, _, _ := ts.get(t, "/v1/admin/users", token)
			assert.Equal(t, http.StatusForbidden, status)
		}

		status, _, body := ts.get(t, "/v1/admin/users", adminToken)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["users"], 3)
	})

	t.Run("stats", func(t *testing.T) {
		status, _, _ := ts.get(t, "/v1/admin/stats", editorToken)
		assert.Equal(t, http.StatusForbidden, status)

		status, _, body := ts.get(t, "/v1/admin/stats", adminToken)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(3), field(body, "stats", "total_users"))
		assert.Equal(t, float64(1), field(body, "stats", "total_posts"))
		assert.Equal(t, float64(0), field(body, "stats", "total_comments"))
	})

	t.Run("role update", func(t *testing.T) {
		status, _, body := ts.patch(t, fmt.Sprintf("/v1/admin/users/%s/role", reader.ID), adminToken, map[string]any{"role": "editor"})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "editor", field(body, "user", "role"))

		status, _, _ = ts.patch(t, fmt.Sprintf("/v1/admin/users/%s/role", admin.ID), adminToken, map[string]any{"role": "reader"})
		assert.Equal(t, http.StatusUnprocessableEntity, status)

		status, _, _ = ts.patch(t, fmt.Sprintf("/v1/admin/users/%s/role", reader.ID), adminToken, map[string]any{"role": "owner"})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("delete cascades", func(t *testing.T) {
		status, _, _ := ts.delete(t, fmt.Sprintf("/v1/admin/users/%s", admin.ID), adminToken, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status)

		status, _, _ = ts.delete(t, fmt.Sprintf("/v1/admin/users/%s", reader.ID), adminToken, nil)
		require.Equal(t, http.StatusOK, status)

		var posts int
		require.NoError(t, db.QueryRowContext(context.Background(), "SELECT count(*) FROM posts").Scan(&posts))
		assert.Equal(t, 0, posts)

		status, _, _ = ts.delete(t, fmt.Sprintf("/v1/admin/users/%s", reader.ID), adminToken, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestHealthcheckAndMetrics(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	status, header, body := ts.get(t, "/v1/healthcheck", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "available", body["status"])
	assert.NotEmpty(t, header.Get(requestIDHeader))

	res, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
