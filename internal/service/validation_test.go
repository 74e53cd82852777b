package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/hypeshelf/internal/apperror"
)

func TestValidateCreate_Messages(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateInput
		field   string
		message string
	}{
		{
			name:    "title too long",
			in:      CreateInput{Title: strings.Repeat("x", 121), Genre: "drama", Blurb: "b"},
			field:   "title",
			message: "title must be at most 120 characters",
		},
		{
			name:    "blurb too long",
			in:      CreateInput{Title: "t", Genre: "drama", Blurb: strings.Repeat("x", 301)},
			field:   "blurb",
			message: "blurb must be at most 300 characters",
		},
		{
			name:    "missing title",
			in:      CreateInput{Genre: "drama", Blurb: "b"},
			field:   "title",
			message: "title is required",
		},
		{
			name:    "bad link",
			in:      CreateInput{Title: "t", Genre: "drama", Link: "not a url", Blurb: "b"},
			field:   "link",
			message: "link must be a valid URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCreate(&tt.in)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("validateCreate() error = %v, want *apperror.AppError", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
			if appErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.message)
			}
		})
	}
}

func TestValidateCreate_GenreMessageListsGenres(t *testing.T) {
	err := validateCreate(&CreateInput{Title: "t", Genre: "romance", Blurb: "b"})
	if err == nil {
		t.Fatal("validateCreate() accepted an unknown genre")
	}
	if !strings.Contains(err.Error(), "sci-fi") {
		t.Errorf("message %q does not list the allowed genres", err.Error())
	}
}
