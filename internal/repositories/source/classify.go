package source

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/lib/pq"

	fernerrors "github.com/Ramsey-B/fern/pkg/errors"
)

// Classify maps a database error onto the load error taxonomy, naming the object involved
func Classify(err error, object string) error {
	if err == nil {
		return nil
	}

	var le *fernerrors.LoadError
	if errors.As(err, &le) {
		return le
	}

	kind := fernerrors.KindSource

	var pqErr *pq.Error
	switch {
	case errors.Is(err, context.Canceled):
		kind = fernerrors.KindInterrupted
	case errors.As(err, &pqErr):
		switch pqErr.Code {
		case "42P01", "42703", "3F000", "42P02":
			kind = fernerrors.KindSchema
		default:
			switch pqErr.Code.Class() {
			case "08", "28", "57":
				kind = fernerrors.KindConnection
			}
		}
	case errors.Is(err, driver.ErrBadConn):
		kind = fernerrors.KindConnection
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such column"), strings.Contains(msg, "does not exist"):
			kind = fernerrors.KindSchema
		case strings.Contains(msg, "connection refused"), strings.Contains(msg, "unable to open database"), strings.Contains(msg, "i/o timeout"):
			kind = fernerrors.KindConnection
		}
	}

	return fernerrors.NewLoadErrorf(kind, "%w", err).AddObject(object)
}
