package ledger

import "github.com/Ramsey-B/fern/pkg/models"

// Classify derives the skip reason of an unresolved row from its missing flags.
// A single absent flag counts as missing; when both flags are absent the reason is UNKNOWN.
// If the backend returned the row with both flags false, SOURCE_MISSING is reported.
func Classify(row models.UnresolvedRow) models.ReasonCode {
	if row.SourceMissing == nil && row.TargetMissing == nil {
		return models.ReasonUnknown
	}

	sourceMissing := row.SourceMissing == nil || *row.SourceMissing
	targetMissing := row.TargetMissing == nil || *row.TargetMissing

	switch {
	case sourceMissing && targetMissing:
		return models.ReasonBothMissing
	case sourceMissing:
		return models.ReasonSourceMissing
	case targetMissing:
		return models.ReasonTargetMissing
	default:
		return models.ReasonSourceMissing
	}
}
