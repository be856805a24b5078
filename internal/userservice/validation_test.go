package userservice

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

func TestValidateName(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "empty", input: "", valid: false},
		{name: "whitespace", input: "   ", valid: false},
		{name: "single letter", input: "a", valid: true},
		{name: "full name", input: "Ada Lovelace", valid: true},
		{name: "too long", input: strings.Repeat("a", 101), valid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := common.NewValidator()
			validateName(v, tc.input)
			if v.Valid() != tc.valid {
				t.Errorf("expected %v, got %v", tc.valid, v.Valid())
				for _, e := range v.Errors {
					t.Log(e)
				}
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	testCases := []struct {
		email string
		valid bool
	}{
		{email: "", valid: false},
		{email: "a", valid: false},
		{email: "a@", valid: false},
		{email: "a@b", valid: false},
		{email: "a@b.c", valid: false},
		{email: "a@b.com", valid: true},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			v := common.NewValidator()
			validateEmail(v, tc.email)
			if v.Valid() != tc.valid {
				t.Errorf("expected %v, got %v", tc.valid, v.Valid())
				for _, e := range v.Errors {
					t.Log(e)
				}
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	testCases := []struct {
		password string
		valid    bool
		message  string
	}{
		{password: "", valid: false, message: "must be provided"},
		{password: "Ab1!", valid: false, message: "must be at least 8 characters long"},
		{password: "password1!", valid: false, message: "must contain at least one uppercase letter"},
		{password: "PASSWORD1!", valid: false, message: "must contain at least one lowercase letter"},
		{password: "Password!!", valid: false, message: "must contain at least one number"},
		{password: "Password123", valid: false, message: "must contain at least one special character (!@#$%^&*)"},
		{password: "Password123_", valid: false, message: "must contain at least one special character (!@#$%^&*)"},
		{password: "Password!23", valid: true},
		{password: "Sup3r#Secret", valid: true},
	}

	for _, tc := range testCases {
		t.Run(tc.password, func(t *testing.T) {
			v := common.NewValidator()
			validatePassword(v, tc.password)
			if v.Valid() != tc.valid {
				t.Errorf("expected %v, got %v", tc.valid, v.Valid())
			}
			if tc.message != "" && v.Errors["password"] != tc.message {
				t.Errorf("expected message %q, got %q", tc.message, v.Errors["password"])
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	token, err := newToken(uuid.Nil, PasswordResetTokenTime, TokenScopePasswordReset)
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name  string
		token string
		valid bool
	}{
		{name: "generated", token: token.Plain, valid: true},
		{name: "empty", token: "", valid: false},
		{name: "short", token: "ABC", valid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := common.NewValidator()
			ValidateToken(v, tc.token)
			if v.Valid() != tc.valid {
				t.Errorf("expected %v, got %v", tc.valid, v.Valid())
			}
		})
	}
}

func TestValidateRole(t *testing.T) {
	for _, role := range rbac.Roles() {
		v := common.NewValidator()
		validateRole(v, role)
		if !v.Valid() {
			t.Errorf("expected %s to be valid", role)
		}
	}

	v := common.NewValidator()
	validateRole(v, rbac.Role("owner"))
	if v.Valid() {
		t.Error("expected unknown role to be rejected")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Reader@Example.COM "); got != "reader@example.com" {
		t.Errorf("unexpected normalized email %q", got)
	}
}
