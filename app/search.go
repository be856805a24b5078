package main

import (
	"net/http"

	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/searchservice"
)

// searchHandler is public. Signed in callers with users:read also get user results.
func (app *application) searchHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := common.NewValidator()

	params := searchservice.Params{
		Query:    app.readString(qs, "query", ""),
		Type:     searchservice.Type(app.readString(qs, "type", string(searchservice.TypeAll))),
		Author:   app.readString(qs, "author", ""),
		DateFrom: app.readTime(qs, "date_from", v),
		DateTo:   app.readTime(qs, "date_to", v),
		Page:     app.readInt(qs, "page", common.DefaultPage, v),
		Limit:    app.readInt(qs, "limit", common.DefaultLimit, v),
	}

	if !v.Valid() {
		app.failedValidationErrorResponse(w, r, v.Errors)
		return
	}

	results, err := app.searchService.Search(r.Context(), app.optionalIdentity(w, r), params)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"results": results}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
