package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	// KindTransient covers network failures, timeouts, rate limits and
	// 5xx-equivalent responses; retrying the same input may succeed.
	KindTransient ErrorKind = "TRANSIENT"
	// KindPermanent covers rejected content, bad credentials and malformed
	// images; retrying the same input will not change the outcome.
	KindPermanent ErrorKind = "PERMANENT"
	// KindSchemaMismatch means the backend answered but not with the
	// structured payload the prompt contract demands.
	KindSchemaMismatch ErrorKind = "SCHEMA_MISMATCH"
)

type ExtractionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func Transient(err error) *ExtractionError {
	return &ExtractionError{Kind: KindTransient, Err: err}
}

func Permanent(err error) *ExtractionError {
	return &ExtractionError{Kind: KindPermanent, Err: err}
}

func SchemaMismatch(err error) *ExtractionError {
	return &ExtractionError{Kind: KindSchemaMismatch, Err: err}
}

// IsTransient reports whether err is a retry-eligible extraction failure.
func IsTransient(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Kind == KindTransient
}

var transientMarkers = []string{
	"429",
	"RESOURCE_EXHAUSTED",
	"500",
	"502",
	"503",
	"504",
	"UNAVAILABLE",
	"timeout",
	"connection",
}

// classifyRemoteErr maps a backend call error to the extraction taxonomy.
// The AI SDKs surface HTTP status and gRPC codes in error strings, so the
// classification is textual, same as the rate-limit detection the backends
// themselves rely on.
func classifyRemoteErr(err error) *ExtractionError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(err)
	}
	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Transient(err)
		}
	}
	return Permanent(err)
}

// classifyStatus maps an HTTP status to the extraction taxonomy.
func classifyStatus(status int, err error) *ExtractionError {
	if status == 429 || status >= 500 {
		return Transient(err)
	}
	return Permanent(err)
}
