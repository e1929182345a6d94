package loader

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// identifier renders an id column as a normalised string; "" means null
func identifier(v any, chain []string) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case []byte:
		s = string(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		s = fmt.Sprint(t)
	}
	return normalizers.ApplyChain(s, chain...)
}

// convert maps a driver value onto a graph property value of the given kind. nil stays nil.
func convert(v any, kind models.ColumnKind) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch kind {
	case models.ColumnString:
		return toString(v), nil
	case models.ColumnDecimal:
		return toFloat(v)
	case models.ColumnInt:
		return toInt(v)
	case models.ColumnBool:
		return toBool(v)
	case models.ColumnStringArray:
		return toStringArray(v)
	case models.ColumnAuto, "":
		switch t := v.(type) {
		case []byte:
			return string(t), nil
		case time.Time:
			return t.UTC().Format(time.RFC3339), nil
		case decimal.Decimal:
			return t.InexactFloat64(), nil
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown column kind %q", kind)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// toFloat converts arbitrary precision decimals to float64; precision loss is accepted
func toFloat(v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case decimal.Decimal:
		return t.InexactFloat64(), nil
	case []byte, string:
		s := strings.TrimSpace(toString(t))
		if s == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", s, err)
		}
		return d.InexactFloat64(), nil
	}
	return nil, fmt.Errorf("cannot convert %T to decimal", v)
}

func toInt(v any) (any, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return nil, fmt.Errorf("%v is not an integer", t)
		}
		return int64(t), nil
	case []byte, string:
		s := strings.TrimSpace(toString(t))
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", s, err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", v)
}

func toBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case []byte, string:
		s := strings.ToLower(strings.TrimSpace(toString(t)))
		switch s {
		case "":
			return nil, nil
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", s)
		}
		return b, nil
	}
	return nil, fmt.Errorf("cannot convert %T to boolean", v)
}

// toStringArray accepts Postgres array literals, JSON arrays and driver slices. Order is kept
// and null elements are dropped.
func toStringArray(v any) (any, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case pq.StringArray:
		return []string(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e != nil {
				out = append(out, toString(e))
			}
		}
		return out, nil
	case []byte, string:
		s := strings.TrimSpace(toString(t))
		switch {
		case s == "":
			return []string{}, nil
		case strings.HasPrefix(s, "["):
			var elems []any
			if err := json.Unmarshal([]byte(s), &elems); err != nil {
				return nil, fmt.Errorf("invalid JSON array: %w", err)
			}
			return toStringArray(elems)
		case strings.HasPrefix(s, "{"):
			var elems []sql.NullString
			if err := (pq.GenericArray{A: &elems}).Scan([]byte(s)); err != nil {
				return nil, fmt.Errorf("invalid array literal: %w", err)
			}
			out := make([]string, 0, len(elems))
			for _, e := range elems {
				if e.Valid {
					out = append(out, e.String)
				}
			}
			return out, nil
		}
		// a bare scalar is a one element array
		return []string{s}, nil
	}
	return nil, fmt.Errorf("cannot convert %T to string array", v)
}
