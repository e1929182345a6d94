package models

// ColumnKind is the graph property type a source column is converted to
type ColumnKind string

const (
	// ColumnAuto passes scalars through, converting bytes to strings and decimals to floats
	ColumnAuto        ColumnKind = "auto"
	ColumnString      ColumnKind = "string"
	ColumnDecimal     ColumnKind = "decimal"
	ColumnInt         ColumnKind = "int"
	ColumnBool        ColumnKind = "bool"
	ColumnStringArray ColumnKind = "string_array"
)

// BatchStats describes one processed batch
type BatchStats struct {
	Batch             int
	Rows              int
	Successful        int
	SkippedNull       int
	SkippedUnresolved int
	Seconds           float64
	Failed            bool
}
