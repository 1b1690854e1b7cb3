package feedback

import (
	"github.com/NomadCrew/feedback-hub-backend/types"
	"go.uber.org/zap"
)

// DecodeRecords converts raw provider payloads into records, preserving their
// order. Entries that fail boundary validation are logged and skipped.
func DecodeRecords(raws []types.RawFeedback, log *zap.SugaredLogger) []types.FeedbackRecord {
	records := make([]types.FeedbackRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := raw.ToRecord()
		if err != nil {
			log.Warnw("Skipping malformed feedback entry", "id", raw.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}
