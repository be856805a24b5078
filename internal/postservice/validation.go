package postservice

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(strings.TrimSpace(title) != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 0, 200), "title", "must not be more than 200 characters long")
}

func validateContent(v *common.Validator, content string) {
	v.Check(strings.TrimSpace(content) != "", "content", "must be provided")
}

func validateSlug(v *common.Validator, slug string) {
	v.Check(slug != "", "slug", "must contain at least one letter or number")
	v.Check(v.CheckStringLength(slug, 0, 200), "slug", "must not be more than 200 characters long")
}

func validateStatus(v *common.Validator, status Status) {
	v.Check(common.PermittedValue(status, StatusDraft, StatusPublished, StatusArchived), "status", "must be one of draft, published or archived")
}

func validateExcerpt(v *common.Validator, excerpt string) {
	v.Check(v.CheckStringLength(excerpt, 0, 500), "excerpt", "must not be more than 500 characters long")
}

func validateMetaDescription(v *common.Validator, description string) {
	v.Check(v.CheckStringLength(description, 0, 160), "meta_description", "must not be more than 160 characters long")
}

func validateFeaturedImage(v *common.Validator, image string) {
	if image == "" {
		return
	}

	u, err := url.ParseRequestURI(image)
	v.Check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "", "featured_image", "must be a valid http(s) URL")
}

func validateTags(v *common.Validator, tags []string) {
	v.Check(len(tags) <= 20, "tags", "must not contain more than 20 tags")
	v.Check(common.Unique(tags), "tags", "must not contain duplicate values")
	for _, tag := range tags {
		v.Check(strings.TrimSpace(tag) != "", "tags", "must not contain empty values")
		v.Check(v.CheckStringLength(tag, 0, 50), "tags", "must not contain tags longer than 50 characters")
	}
}

func validateCategory(v *common.Validator, category string) {
	v.Check(v.CheckStringLength(category, 0, 100), "category", "must not be more than 100 characters long")
}

func validateIDs(v *common.Validator, field string, ids []uuid.UUID) {
	v.Check(len(ids) > 0, field, "must contain at least one post")
	v.Check(len(ids) <= MaxBulkItems, field, "must not contain more than 100 posts")
	v.Check(common.Unique(ids), field, "must not contain duplicate posts")
}

func validateCreate(v *common.Validator, in *CreatePostInput) {
	validateTitle(v, in.Title)
	validateContent(v, in.Content)
	validateSlug(v, in.Slug)
	validateStatus(v, in.Status)
	validateExcerpt(v, in.Excerpt)
	validateCategory(v, in.Category)
	validateTags(v, in.Tags)
	validateFeaturedImage(v, in.FeaturedImage)
	validateMetaDescription(v, in.MetaDescription)
}

func validateUpdate(v *common.Validator, in *UpdatePostInput) {
	if in.Title != nil {
		validateTitle(v, *in.Title)
	}
	if in.Content != nil {
		validateContent(v, *in.Content)
	}
	if in.Slug != nil {
		validateSlug(v, Slugify(*in.Slug))
	}
	if in.Status != nil {
		validateStatus(v, *in.Status)
	}
	if in.Excerpt != nil {
		validateExcerpt(v, *in.Excerpt)
	}
	if in.Category != nil {
		validateCategory(v, *in.Category)
	}
	if in.Tags != nil {
		validateTags(v, *in.Tags)
	}
	if in.FeaturedImage != nil {
		validateFeaturedImage(v, *in.FeaturedImage)
	}
	if in.MetaDescription != nil {
		validateMetaDescription(v, *in.MetaDescription)
	}
}

// validateBulkItems checks every item's update. Errors are keyed by the item's position, as in posts.0.title.
func validateBulkItems(v *common.Validator, items []BulkUpdateItem) {
	for i := range items {
		iv := common.NewValidator()
		validateUpdate(iv, &items[i].Data)
		for field, message := range iv.Errors {
			v.AddError(fmt.Sprintf("posts.%d.%s", i, field), message)
		}
	}
}
