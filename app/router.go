package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	handle := func(method, path string, h http.HandlerFunc) {
		router.Handler(method, path, app.instrument(path, h))
	}

	handle(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)
	router.Handler(http.MethodGet, "/metrics", app.metrics.handler())

	// auth
	handle(http.MethodPost, "/v1/auth/signup", app.rateLimit("signup", app.signupHandler))
	handle(http.MethodPost, "/v1/auth/login", app.rateLimit("login", app.loginHandler))
	handle(http.MethodPost, "/v1/auth/logout", app.logoutHandler)
	handle(http.MethodPost, "/v1/auth/request-reset", app.rateLimit("reset", app.requestPasswordResetHandler))
	handle(http.MethodPost, "/v1/auth/reset-password", app.rateLimit("reset", app.resetPasswordHandler))
	handle(http.MethodGet, "/v1/auth/me", app.meHandler)

	// posts
	handle(http.MethodGet, "/v1/posts", app.listPostsHandler)
	handle(http.MethodPost, "/v1/posts", app.createPostHandler)
	handle(http.MethodGet, "/v1/posts/:id", app.getPostHandler)
	handle(http.MethodPatch, "/v1/posts/:id", app.updatePostHandler)
	handle(http.MethodDelete, "/v1/posts/:id", app.deletePostHandler)
	handle(http.MethodPatch, "/v1/posts-bulk", app.bulkUpdatePostsHandler)
	handle(http.MethodDelete, "/v1/posts-bulk", app.bulkDeletePostsHandler)

	// comments
	handle(http.MethodGet, "/v1/comments", app.listCommentsHandler)
	handle(http.MethodPost, "/v1/comments", app.createCommentHandler)
	handle(http.MethodPatch, "/v1/comments/:id", app.updateCommentHandler)
	handle(http.MethodDelete, "/v1/comments/:id", app.deleteCommentHandler)

	handle(http.MethodGet, "/v1/search", app.searchHandler)

	handle(http.MethodGet, "/v1/wellness", app.listWellnessEntriesHandler)
	handle(http.MethodPost, "/v1/wellness", app.createWellnessEntryHandler)

	// admin
	handle(http.MethodGet, "/v1/admin/users", app.listUsersHandler)
	handle(http.MethodPatch, "/v1/admin/users/:id/role", app.updateUserRoleHandler)
	handle(http.MethodDelete, "/v1/admin/users/:id", app.deleteUserHandler)
	handle(http.MethodGet, "/v1/admin/stats", app.adminStatsHandler)

	return app.recoverPanic(app.requestID(app.logRequest(router)))
}
