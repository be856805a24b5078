package main

import (
	"net/http"

	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
	"golang.org/x/sync/errgroup"
)

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.UsersRead)
	if !ok {
		return
	}

	v := common.NewValidator()
	f := app.readFilters(r.URL.Query(), v)
	if !v.Valid() {
		app.failedValidationErrorResponse(w, r, v.Errors)
		return
	}

	users, metadata, err := app.userService.ListUsers(r.Context(), actor, f)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"users": users, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type updateRoleRequest struct {
	Role rbac.Role `json:"role"`
}

func (app *application) updateUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.UsersUpdate)
	if !ok {
		return
	}

	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	var input updateRoleRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, err := app.userService.UpdateUserRole(r.Context(), actor, id, input.Role)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.UsersDelete)
	if !ok {
		return
	}

	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	err = app.userService.DeleteUser(r.Context(), actor, id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "user successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// adminStatsHandler returns the first page of users along with site wide post and comment counts.
func (app *application) adminStatsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.AdminAccess)
	if !ok {
		return
	}

	var (
		posts, comments int
		users           any
		metadata        common.Metadata
	)

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		var err error
		posts, err = app.postService.CountPosts(ctx)
		return err
	})

	g.Go(func() error {
		var err error
		comments, err = app.commentService.CountVisible(ctx)
		return err
	})

	g.Go(func() error {
		list, md, err := app.userService.ListUsers(ctx, actor, common.NewFilters(common.DefaultPage, common.DefaultLimit))
		users, metadata = list, md
		return err
	})

	if err := g.Wait(); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	stats := envelope{
		"total_users":    metadata.TotalRecords,
		"total_posts":    posts,
		"total_comments": comments,
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"stats": stats, "users": users, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
