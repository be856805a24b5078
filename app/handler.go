package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
	"github.com/sushihentaime/threadline/internal/userservice"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) signupHandler(w http.ResponseWriter, r *http.Request) {
	var input signupRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, err := app.userService.Signup(r.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrDuplicateEmail):
			app.conflictResponse(w, r, errors.New("a user with this email address already exists"))
		default:
			app.serviceErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input loginRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	session, err := app.userService.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	http.SetCookie(w, app.sessionCookie(session.Token, session.Expiry))

	err = app.writeJSON(w, http.StatusOK, envelope{"token": session.Token, "expiry": session.Expiry, "user": session.User}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// logoutHandler clears the session cookie. Sessions are stateless, so a bearer token stays valid until it expires.
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie := app.sessionCookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)

	err := app.writeJSON(w, http.StatusOK, envelope{"message": "logged out"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     rbac.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   app.config.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	}
}

type requestResetRequest struct {
	Email string `json:"email"`
}

func (app *application) requestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var input requestResetRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	err = app.userService.RequestPasswordReset(r.Context(), input.Email)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": userservice.ResetRequestedMessage}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (app *application) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var input resetPasswordRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	err = app.userService.ResetPassword(r.Context(), input.Token, input.Password)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "your password has been reset"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := app.authenticate(w, r)
	if !ok {
		return
	}

	user, err := app.userService.GetUser(r.Context(), identity.ID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			app.invalidAuthenticationTokenResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user, "permissions": rbac.RolePermissions(user.Role)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
