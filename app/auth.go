package main

import (
	"net/http"

	"github.com/sushihentaime/threadline/internal/rbac"
)

// authenticate resolves the caller or writes a 401 response.
func (app *application) authenticate(w http.ResponseWriter, r *http.Request) (*rbac.Identity, bool) {
	w.Header().Add("Vary", "Authorization")

	identity, err := app.authorizer.Authenticate(r)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return nil, false
	}

	return identity, true
}

// authorize resolves the caller and checks permission, writing a 401 or 403 response on failure.
func (app *application) authorize(w http.ResponseWriter, r *http.Request, permission rbac.Permission) (*rbac.Identity, bool) {
	w.Header().Add("Vary", "Authorization")

	identity, err := app.authorizer.AuthorizePermission(r, permission)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return nil, false
	}

	return identity, true
}

// optionalIdentity returns the caller when a valid credential is present and nil otherwise.
func (app *application) optionalIdentity(w http.ResponseWriter, r *http.Request) *rbac.Identity {
	w.Header().Add("Vary", "Authorization")

	identity, err := app.authorizer.Authenticate(r)
	if err != nil {
		return nil
	}

	return identity
}
