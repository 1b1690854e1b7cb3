// Package validation holds the ordered rule set a feedback draft must pass
// before it is persisted. Only the first violated rule is reported.
package validation

import (
	"strings"

	"github.com/NomadCrew/feedback-hub-backend/errors"
	"github.com/NomadCrew/feedback-hub-backend/types"
)

// Rule violations, comparable with errors.Is.
var (
	ErrMissingName     = errors.ValidationFailed(errors.CodeMissingName, "Please enter your name")
	ErrInvalidEmail    = errors.ValidationFailed(errors.CodeInvalidEmail, "Please enter a valid email address")
	ErrMissingRating   = errors.ValidationFailed(errors.CodeMissingRating, "Please select a rating")
	ErrInvalidRating   = errors.ValidationFailed(errors.CodeInvalidRating, "Rating must be between 1 and 5")
	ErrMissingCategory = errors.ValidationFailed(errors.CodeMissingCategory, "Please select a category")
	ErrInvalidCategory = errors.ValidationFailed(errors.CodeInvalidCategory, "Please select one of the listed categories")
)

type rule func(d *types.FeedbackDraft) *errors.AppError

// rules run in this order.
var rules = []rule{
	func(d *types.FeedbackDraft) *errors.AppError {
		if strings.TrimSpace(d.Name) == "" {
			return ErrMissingName
		}
		return nil
	},
	func(d *types.FeedbackDraft) *errors.AppError {
		email := strings.TrimSpace(d.Email)
		if email == "" || !strings.Contains(email, "@") {
			return ErrInvalidEmail
		}
		return nil
	},
	func(d *types.FeedbackDraft) *errors.AppError {
		if d.Rating < types.MinRating {
			return ErrMissingRating
		}
		return nil
	},
	func(d *types.FeedbackDraft) *errors.AppError {
		if d.Rating > types.MaxRating {
			return ErrInvalidRating
		}
		return nil
	},
	func(d *types.FeedbackDraft) *errors.AppError {
		if d.Category == "" {
			return ErrMissingCategory
		}
		return nil
	},
	func(d *types.FeedbackDraft) *errors.AppError {
		if !d.Category.IsValid() {
			return ErrInvalidCategory
		}
		return nil
	},
}

// ValidateDraft returns the first violated rule, or nil when the draft may be
// submitted. The message field is never checked.
func ValidateDraft(d *types.FeedbackDraft) error {
	for _, r := range rules {
		if err := r(d); err != nil {
			return err
		}
	}
	return nil
}
