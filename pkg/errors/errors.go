package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the category of a load failure
type Kind string

const (
	KindConnection  Kind = "connection"
	KindSchema      Kind = "schema"
	KindSource      Kind = "source"
	KindBatch       Kind = "batch"
	KindConfig      Kind = "config"
	KindInterrupted Kind = "interrupted"
)

// LoadError is a failure that ends a loader run
type LoadError struct {
	Kind    Kind
	Loader  string
	Object  string
	Batch   int
	Message string
	Err     error
}

func NewLoadError(kind Kind, msg string) *LoadError {
	return &LoadError{
		Kind:    kind,
		Message: msg,
	}
}

// NewLoadErrorf creates a LoadError with a formatted message, wrapping the first error argument
func NewLoadErrorf(kind Kind, format string, args ...any) *LoadError {
	e := &LoadError{Kind: kind}
	for _, arg := range args {
		if err, ok := arg.(error); ok && strings.Contains(format, "%w") {
			e.Err = err
			break
		}
	}
	e.Message = fmt.Sprintf(strings.Replace(format, "%w", "%v", 1), args...)
	return e
}

// Wrap converts err into a LoadError of the given kind unless it already is one
func Wrap(kind Kind, err error) *LoadError {
	if err == nil {
		return nil
	}

	var le *LoadError
	if errors.As(err, &le) {
		return le
	}

	return &LoadError{
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	}
}

func (e *LoadError) Error() string {
	path := []string{}
	if e.Loader != "" {
		path = append(path, fmt.Sprintf("loader '%s'", e.Loader))
	}
	if e.Batch > 0 {
		path = append(path, fmt.Sprintf("batch %d", e.Batch))
	}
	if e.Object != "" {
		path = append(path, fmt.Sprintf("object '%s'", e.Object))
	}

	msg := fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	if len(path) == 0 {
		return msg
	}

	return strings.Join(path, " -> ") + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) AddLoader(name string) *LoadError {
	e.Loader = name
	return e
}

func (e *LoadError) AddObject(name string) *LoadError {
	e.Object = name
	return e
}

func (e *LoadError) AddBatch(n int) *LoadError {
	e.Batch = n
	return e
}

// IsKind reports whether err is a LoadError of the given kind
func IsKind(err error, kind Kind) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not a LoadError
func KindOf(err error) Kind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}
