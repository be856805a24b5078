package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

func (app *application) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	v := common.NewValidator()

	postID := app.readUUID(r.URL.Query(), "post_id", v)
	if !postID.Valid {
		v.AddError("post_id", "must be provided")
	}

	if !v.Valid() {
		app.failedValidationErrorResponse(w, r, v.Errors)
		return
	}

	tree, err := app.commentService.AssembleTree(r.Context(), postID.UUID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"comments": tree}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type createCommentRequest struct {
	PostID   uuid.UUID     `json:"post_id"`
	ParentID uuid.NullUUID `json:"parent_id"`
	Content  string        `json:"content"`
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.CommentsCreate)
	if !ok {
		return
	}

	var input createCommentRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	if input.PostID == uuid.Nil {
		app.failedValidationErrorResponse(w, r, map[string]string{"post_id": "must be provided"})
		return
	}

	comment, err := app.commentService.CreateComment(r.Context(), actor, input.PostID, input.ParentID, input.Content)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"comment": comment}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

func (app *application) updateCommentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.CommentsUpdate)
	if !ok {
		return
	}

	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	var input updateCommentRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	comment, err := app.commentService.UpdateComment(r.Context(), actor, id, input.Content)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"comment": comment}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.CommentsDelete)
	if !ok {
		return
	}

	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	err = app.commentService.SoftDeleteComment(r.Context(), actor, id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "comment successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
