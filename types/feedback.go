package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is the fixed set of feedback topics.
type Category string

const (
	CategoryUI          Category = "UI"
	CategoryPerformance Category = "Performance"
	CategoryFeature     Category = "Feature"
	CategoryOther       Category = "Other"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{CategoryUI, CategoryPerformance, CategoryFeature, CategoryOther}

// IsValid reports whether c is one of the enumerated categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryUI, CategoryPerformance, CategoryFeature, CategoryOther:
		return true
	}
	return false
}

const (
	MinRating = 1
	MaxRating = 5
)

// TimestampLayout is the text form of CreatedAt wherever a provider stores it as a string.
const TimestampLayout = time.RFC3339Nano

// FeedbackDraft is the in-progress entry held by a form. Zero values mean
// "unset": empty strings, rating 0, empty category.
type FeedbackDraft struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Rating   int      `json:"rating"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// IsEmpty reports whether every field is unset.
func (d FeedbackDraft) IsEmpty() bool {
	return d == FeedbackDraft{}
}

// FeedbackRecord is a validated, normalized, persisted feedback entry.
// Message is nil when the submitter left it blank.
type FeedbackRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Rating    int       `json:"rating"`
	Category  Category  `json:"category"`
	Message   *string   `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedbackCreate is the request body of POST /v1/feedback. Binding only
// bounds field sizes; the ordered rule set decides validity.
type FeedbackCreate struct {
	Name     string `json:"name" binding:"max=100"`
	Email    string `json:"email" binding:"max=255"`
	Rating   int    `json:"rating"`
	Category string `json:"category" binding:"max=32"`
	Message  string `json:"message" binding:"max=5000"`
}

// Draft converts the request body into a form draft.
func (r FeedbackCreate) Draft() FeedbackDraft {
	return FeedbackDraft{
		Name:     r.Name,
		Email:    r.Email,
		Rating:   r.Rating,
		Category: Category(r.Category),
		Message:  r.Message,
	}
}

// FeedbackSubmitted is the 201 response body.
type FeedbackSubmitted struct {
	Status   string          `json:"status"`
	Feedback *FeedbackRecord `json:"feedback"`
}

// ErrMalformedRecord marks a stored entry that does not decode into a FeedbackRecord.
var ErrMalformedRecord = errors.New("malformed feedback record")

// RawFeedback is the untyped shape a provider hands back before boundary
// validation. Pointer fields distinguish missing from zero.
type RawFeedback struct {
	ID        string  `json:"id,omitempty"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Rating    *int    `json:"rating"`
	Category  *string `json:"category"`
	Message   *string `json:"message"`
	CreatedAt *string `json:"createdAt"`
}

// ToRecord validates a raw provider payload and converts it into a record.
// Blank messages become nil.
func (r RawFeedback) ToRecord() (FeedbackRecord, error) {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return FeedbackRecord{}, malformed(r.ID, "name is missing")
	}
	if r.Email == nil || !strings.Contains(*r.Email, "@") {
		return FeedbackRecord{}, malformed(r.ID, "email is missing or invalid")
	}
	if r.Rating == nil || *r.Rating < MinRating || *r.Rating > MaxRating {
		return FeedbackRecord{}, malformed(r.ID, "rating is missing or out of range")
	}
	if r.Category == nil || !Category(*r.Category).IsValid() {
		return FeedbackRecord{}, malformed(r.ID, "category is missing or unknown")
	}
	if r.CreatedAt == nil {
		return FeedbackRecord{}, malformed(r.ID, "createdAt is missing")
	}
	createdAt, err := time.Parse(TimestampLayout, *r.CreatedAt)
	if err != nil {
		return FeedbackRecord{}, malformed(r.ID, fmt.Sprintf("createdAt %q is not a timestamp", *r.CreatedAt))
	}

	return FeedbackRecord{
		ID:        r.ID,
		Name:      *r.Name,
		Email:     *r.Email,
		Rating:    *r.Rating,
		Category:  Category(*r.Category),
		Message:   OptionalText(r.Message),
		CreatedAt: createdAt,
	}, nil
}

// OptionalText trims s and returns nil when nothing is left.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func malformed(id, reason string) error {
	if id == "" {
		return fmt.Errorf("%w: %s", ErrMalformedRecord, reason)
	}
	return fmt.Errorf("%w: %s: %s", ErrMalformedRecord, id, reason)
}

// LatestStatus is the state of the latest-feedback projection.
type LatestStatus string

const (
	LatestLoading     LatestStatus = "loading"
	LatestEmpty       LatestStatus = "empty"
	LatestPresent     LatestStatus = "present"
	LatestUnavailable LatestStatus = "unavailable"
)

// LatestState is what the projection exposes for display. Feedback is set
// only when Status is LatestPresent. Version is the refresh signal value the
// state was derived for.
type LatestState struct {
	Status   LatestStatus    `json:"status"`
	Feedback *FeedbackRecord `json:"feedback,omitempty"`
	Version  uint64          `json:"version"`
}
