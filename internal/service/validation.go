package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/model"
)

// Field limits for a recommendation, measured in characters after trimming.
const (
	MaxTitleLength = 120
	MaxBlurbLength = 300
)

// CreateInput is what a caller may supply when posting a recommendation.
// Owner, creation time and the staff-pick flag are assigned by the server.
type CreateInput struct {
	Title string `json:"title" validate:"required,max=120"`
	Genre string `json:"genre" validate:"required,oneof=horror action comedy drama sci-fi thriller documentary animation other"`
	Link  string `json:"link"  validate:"omitempty,url"`
	Blurb string `json:"blurb" validate:"required,max=300"`
}

// normalize trims every field in place.
func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Genre = strings.TrimSpace(in.Genre)
	in.Link = strings.TrimSpace(in.Link)
	in.Blurb = strings.TrimSpace(in.Blurb)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the package-wide validator. validator.Validate caches
// struct metadata and is safe for concurrent use, so one instance is shared.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateCreate checks a normalized CreateInput and returns the first failing
// field as apperror.ValidationFailed.
func validateCreate(in *CreateInput) error {
	err := getValidator().Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating recommendation: %w", err)
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	return apperror.ValidationFailed(field, validationMessage(field, fe.Tag()))
}

// validationMessage turns a failed tag into the text shown next to the field.
func validationMessage(field, tag string) string {
	switch {
	case tag == "required":
		return fmt.Sprintf("%s is required", field)
	case field == "title" && tag == "max":
		return fmt.Sprintf("title must be at most %d characters", MaxTitleLength)
	case field == "blurb" && tag == "max":
		return fmt.Sprintf("blurb must be at most %d characters", MaxBlurbLength)
	case field == "genre":
		names := make([]string, len(model.Genres))
		for i, g := range model.Genres {
			names[i] = string(g)
		}
		return "genre must be one of: " + strings.Join(names, ", ")
	case field == "link":
		return "link must be a valid URL"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
