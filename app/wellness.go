package main

import (
	"net/http"

	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
	"github.com/sushihentaime/threadline/internal/wellnessservice"
)

type createWellnessRequest struct {
	Mood        wellnessservice.Mood `json:"mood"`
	StressLevel int                  `json:"stress_level"`
	Notes       string               `json:"notes"`
}

func (app *application) createWellnessEntryHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.WellnessCreate)
	if !ok {
		return
	}

	var input createWellnessRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	entry, err := app.wellnessService.CreateEntry(r.Context(), actor, input.Mood, input.StressLevel, input.Notes)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"entry": entry}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) listWellnessEntriesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.authorize(w, r, rbac.WellnessRead)
	if !ok {
		return
	}

	v := common.NewValidator()
	f := app.readFilters(r.URL.Query(), v)
	if !v.Valid() {
		app.failedValidationErrorResponse(w, r, v.Errors)
		return
	}

	entries, metadata, err := app.wellnessService.ListEntries(r.Context(), actor, f)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"entries": entries, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
