package userservice

import (
	"regexp"
	"strings"

	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

var (
	EmailRX     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	UppercaseRX = regexp.MustCompile("[A-Z]")
	LowercaseRX = regexp.MustCompile("[a-z]")
	NumberRX    = regexp.MustCompile("[0-9]")
	SymbolRX    = regexp.MustCompile(`[!@#$%^&*]`)
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(v *common.Validator, name string) {
	v.Check(strings.TrimSpace(name) != "", "name", "must be provided")
	v.Check(v.CheckStringLength(name, 0, 100), "name", "must not be more than 100 characters long")
}

func validateEmail(v *common.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(EmailRX.MatchString(email), "email", "must be a valid email address")
}

func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(len(password) >= 8, "password", "must be at least 8 characters long")
	v.Check(len(password) <= 72, "password", "must not be more than 72 bytes long")
	v.Check(UppercaseRX.MatchString(password), "password", "must contain at least one uppercase letter")
	v.Check(LowercaseRX.MatchString(password), "password", "must contain at least one lowercase letter")
	v.Check(NumberRX.MatchString(password), "password", "must contain at least one number")
	v.Check(SymbolRX.MatchString(password), "password", "must contain at least one special character (!@#$%^&*)")
}

func ValidateToken(v *common.Validator, token string) {
	v.Check(token != "", "token", "must be provided")
	v.Check(len(token) == 26, "token", "invalid token")
}

func validateRole(v *common.Validator, role rbac.Role) {
	v.Check(role.Valid(), "role", "must be one of admin, editor or reader")
}
