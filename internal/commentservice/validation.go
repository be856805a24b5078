package commentservice

import (
	"strings"

	"github.com/sushihentaime/threadline/internal/common"
)

func validateContent(v *common.Validator, content string) {
	v.Check(strings.TrimSpace(content) != "", "content", "must be provided")
	v.Check(v.CheckStringLength(content, 0, MaxContentLength), "content", "must not be more than 5000 characters long")
}

// prepareContent validates raw comment content and returns it with script blocks removed. Content that is
// nothing but script is rejected as empty.
func prepareContent(content string) (string, error) {
	v := common.NewValidator()
	validateContent(v, content)
	if v.Valid() {
		content = common.SanitizeMarkdown(content)
		validateContent(v, content)
	}

	if !v.Valid() {
		return "", v.ValidationError()
	}

	return content, nil
}
