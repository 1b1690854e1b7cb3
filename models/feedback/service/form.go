package service

import (
	"context"
	"sync"

	apperrors "github.com/NomadCrew/feedback-hub-backend/errors"
	"github.com/NomadCrew/feedback-hub-backend/types"
)

// ErrSubmissionInProgress is returned by Form.Submit while an earlier
// submission from the same form has not finished.
var ErrSubmissionInProgress = apperrors.SubmissionInProgress()

// Form is one feedback form instance: an editable draft plus the flag that
// keeps a second submission out while one is in flight.
type Form struct {
	mu       sync.Mutex
	draft    types.FeedbackDraft
	inFlight bool
}

func NewForm() *Form {
	return &Form{}
}

func (f *Form) SetName(v string) {
	f.mu.Lock()
	f.draft.Name = v
	f.mu.Unlock()
}

func (f *Form) SetEmail(v string) {
	f.mu.Lock()
	f.draft.Email = v
	f.mu.Unlock()
}

func (f *Form) SetRating(v int) {
	f.mu.Lock()
	f.draft.Rating = v
	f.mu.Unlock()
}

func (f *Form) SetCategory(v types.Category) {
	f.mu.Lock()
	f.draft.Category = v
	f.mu.Unlock()
}

func (f *Form) SetMessage(v string) {
	f.mu.Lock()
	f.draft.Message = v
	f.mu.Unlock()
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() types.FeedbackDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// InFlight reports whether a submission is running.
func (f *Form) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Submit hands the current draft to s. The draft is cleared only when the
// record was stored; on any error it is left as it was so it can be retried.
func (f *Form) Submit(ctx context.Context, s Submitter) (*types.FeedbackRecord, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	f.inFlight = true
	draft := f.draft
	f.mu.Unlock()

	return f.finish(s.Submit(ctx, draft))
}

// SubmitDraft installs d as the draft and submits it. Installing and claiming
// the form happen under one lock, so a concurrent caller either sees
// ErrSubmissionInProgress or submits after this one has finished, never with
// the other caller's draft.
func (f *Form) SubmitDraft(ctx context.Context, s Submitter, d types.FeedbackDraft) (*types.FeedbackRecord, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	f.inFlight = true
	f.draft = d
	f.mu.Unlock()

	return f.finish(s.Submit(ctx, d))
}

func (f *Form) finish(rec *types.FeedbackRecord, err error) (*types.FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		return nil, err
	}
	f.draft = types.FeedbackDraft{}
	return rec, nil
}
