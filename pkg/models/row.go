package models

// SourceRow is one projected row from a relational table, keyed by column name
type SourceRow map[string]any

// String returns the column as a string, or "" when absent or null
func (r SourceRow) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	return ""
}

// EdgeRow is a sanitised relationship row ready for the merge executor
type EdgeRow struct {
	SourceID     string
	SourceFamily Family
	TargetID     string
	TargetFamily Family
	MergeKey     any
	Props        map[string]any
}

// NodeRow is a sanitised node row (or grouped set of rows) ready for upsert
type NodeRow struct {
	ID    string
	Props map[string]any
	// Rows is the number of source rows folded into this node
	Rows int
}
