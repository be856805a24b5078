package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/postservice"
	"github.com/sushihentaime/threadline/internal/rbac"
)

func (app *application) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := common.NewValidator()

	filter := postservice.ListFilter{
		Status:   postservice.Status(app.readString(qs, "status", "")),
		AuthorID: app.readUUID(qs, "author_id", v),
		Category: app.readString(qs, "category", ""),
		Tag:      app.readString(qs, "tag", ""),
	}
	f := app.readFilters(qs, v)

	if !v.Valid() {
		app.failedValidationErrorResponse(w, r, v.Errors)
		return
	}

	posts, metadata, err := app.postService.ListPosts(r.Context(), filter, f)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"posts": posts, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type createPostRequest struct {
	Title           string             `json:"title"`
	Content         string             `json:"content"`
	Slug            string             `json:"slug"`
	Excerpt         string             `json:"excerpt"`
	Status          postservice.Status `json:"status"`
	Category        string             `json:"category"`
	Tags            []string           `json:"tags"`
	FeaturedImage   string             `json:"featured_image"`
	MetaDescription string             `json:"meta_description"`
	FocusKeyword    string             `json:"focus_keyword"`
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.PostsCreate)
	if !ok {
		return
	}

	var input createPostRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	post, err := app.postService.CreatePost(r.Context(), actor, &postservice.CreatePostInput{
		Title:           input.Title,
		Content:         input.Content,
		Slug:            input.Slug,
		Excerpt:         input.Excerpt,
		Status:          input.Status,
		Category:        input.Category,
		Tags:            input.Tags,
		FeaturedImage:   input.FeaturedImage,
		MetaDescription: input.MetaDescription,
		FocusKeyword:    input.FocusKeyword,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/posts/%s", post.ID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"post": post}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	post, err := app.postService.GetPost(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"post": post}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type updatePostRequest struct {
	Title           *string             `json:"title"`
	Content         *string             `json:"content"`
	Slug            *string             `json:"slug"`
	Excerpt         *string             `json:"excerpt"`
	Status          *postservice.Status `json:"status"`
	Category        *string             `json:"category"`
	Tags            *[]string           `json:"tags"`
	FeaturedImage   *string             `json:"featured_image"`
	MetaDescription *string             `json:"meta_description"`
	FocusKeyword    *string             `json:"focus_keyword"`
}

func (in updatePostRequest) toInput() *postservice.UpdatePostInput {
	return &postservice.UpdatePostInput{
		Title:           in.Title,
		Content:         in.Content,
		Slug:            in.Slug,
		Excerpt:         in.Excerpt,
		Status:          in.Status,
		Category:        in.Category,
		Tags:            in.Tags,
		FeaturedImage:   in.FeaturedImage,
		MetaDescription: in.MetaDescription,
		FocusKeyword:    in.FocusKeyword,
	}
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.PostsUpdate)
	if !ok {
		return
	}

	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	var input updatePostRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	post, err := app.postService.UpdatePost(r.Context(), actor, id, input.toInput())
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"post": post}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.PostsDelete)
	if !ok {
		return
	}

	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundErrorResponse(w, r)
		return
	}

	err = app.postService.DeletePost(r.Context(), actor, id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "post successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type bulkUpdateRequest struct {
	Posts []struct {
		ID   uuid.UUID         `json:"id"`
		Data updatePostRequest `json:"data"`
	} `json:"posts"`
}

func (app *application) bulkUpdatePostsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.PostsBulkUpdate)
	if !ok {
		return
	}

	var input bulkUpdateRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	items := make([]postservice.BulkUpdateItem, len(input.Posts))
	for i, p := range input.Posts {
		items[i] = postservice.BulkUpdateItem{ID: p.ID, Data: *p.Data.toInput()}
	}

	n, err := app.postService.BulkUpdate(r.Context(), actor, items)
	if err != nil {
		app.bulkErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"updated": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (app *application) bulkDeletePostsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.PostsDelete)
	if !ok {
		return
	}

	var input bulkDeleteRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	n, err := app.postService.BulkDelete(r.Context(), actor, input.IDs)
	if err != nil {
		app.bulkErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"deleted": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// bulkErrorResponse reports a rejected batch. Nothing in the batch was written.
func (app *application) bulkErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrForbidden):
		app.writeErrorResponse(w, r, http.StatusForbidden, "you can only modify your own posts")
	case errors.Is(err, common.ErrRecordNotFound):
		app.writeErrorResponse(w, r, http.StatusNotFound, "one or more posts were not found")
	default:
		app.serviceErrorResponse(w, r, err)
	}
}
