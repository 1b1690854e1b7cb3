// Package feedback holds the record-level rules shared by the submission
// pipeline, the latest-feedback projection and the storage providers.
package feedback

import (
	"github.com/NomadCrew/feedback-hub-backend/types"
)

// SelectLatest returns the record with the greatest CreatedAt, compared as
// instants rather than text. Among equal timestamps the one that arrived
// first wins, so the result depends only on the provider's ordering.
func SelectLatest(records []types.FeedbackRecord) (types.FeedbackRecord, bool) {
	if len(records) == 0 {
		return types.FeedbackRecord{}, false
	}

	latest := 0
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[latest].CreatedAt) {
			latest = i
		}
	}
	return records[latest], true
}
