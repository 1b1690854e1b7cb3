package docs

import "time"

// Models referenced from the handler annotations. They mirror the JSON the
// handlers write and are not used at runtime.

// FeedbackRequest is the body of a feedback submission
// @Description Feedback submission
type FeedbackRequest struct {
	// Submitter name, required after trimming
	Name string `json:"name" example:"Ada Lovelace"`

	// Submitter email, must contain "@"
	Email string `json:"email" example:"ada@example.com"`

	// Rating from 1 to 5
	Rating int `json:"rating" example:"5"`

	// One of UI, Performance, Feature, Other
	Category string `json:"category" example:"UI"`

	// Optional free text; blank is stored as absent
	Message string `json:"message,omitempty" example:"The new dashboard is great"`
}

// FeedbackResponse is one stored feedback entry
// @Description Stored feedback
type FeedbackResponse struct {
	ID        string    `json:"id" example:"0190a1b2-0000-7000-8000-000000000001"`
	Name      string    `json:"name" example:"Ada Lovelace"`
	Email     string    `json:"email" example:"ada@example.com"`
	Rating    int       `json:"rating" example:"5"`
	Category  string    `json:"category" example:"UI"`
	Message   *string   `json:"message" example:"The new dashboard is great"`
	CreatedAt time.Time `json:"createdAt" example:"2025-06-01T10:30:00.123456Z"`
}

// SubmitFeedbackResponse wraps the stored record
// @Description Result of a successful submission
type SubmitFeedbackResponse struct {
	Status   string           `json:"status" example:"Feedback submitted successfully"`
	Feedback FeedbackResponse `json:"feedback"`
}

// LatestFeedbackResponse is the latest-feedback projection
// @Description Latest feedback state
type LatestFeedbackResponse struct {
	// One of loading, empty, present, unavailable
	Status string `json:"status" example:"present"`

	// Set only when status is present
	Feedback *FeedbackResponse `json:"feedback,omitempty"`

	// Refresh signal value the state was derived for
	Version uint64 `json:"version" example:"3"`
}

// ErrorResponse represents an error response
// @Description Error information
type ErrorResponse struct {
	Type    string `json:"type" example:"VALIDATION_ERROR"`
	Code    string `json:"code" example:"invalid_email"`
	Message string `json:"message" example:"Please enter a valid email address"`
	Details string `json:"details,omitempty"`
}
