package models

// ReasonCode classifies why a source row did not produce a merge
type ReasonCode string

const (
	ReasonNullID        ReasonCode = "NULL_ID"
	ReasonNullType      ReasonCode = "NULL_TYPE"
	ReasonSourceMissing ReasonCode = "SOURCE_MISSING"
	ReasonTargetMissing ReasonCode = "TARGET_MISSING"
	ReasonBothMissing   ReasonCode = "BOTH_MISSING"
	ReasonUnknown       ReasonCode = "UNKNOWN"
)

// IsNullSkip reports whether the reason is decided before any backend call
func (r ReasonCode) IsNullSkip() bool {
	return r == ReasonNullID || r == ReasonNullType
}

// UnresolvedRow is returned by the merge executor for each row whose endpoints did not both resolve.
// A nil flag means the backend response did not carry it.
type UnresolvedRow struct {
	SourceID      string
	TargetID      string
	SourceFamily  Family
	TargetFamily  Family
	SourceMissing *bool
	TargetMissing *bool
}

// SkipRecord is one line of the skip detail log
type SkipRecord struct {
	SourceID   string
	TargetID   string
	SourceType string
	TargetType string
	Reason     ReasonCode
	Field      string
}
