package domain

import (
	"errors"
	"fmt"
)

// Per-record failure kinds. Batch runners isolate these and fold them into
// summaries; they never abort a whole refresh.
var (
	ErrFetch = errors.New("fetch failure")
	ErrParse = errors.New("parse failure")
)

// FetchError marks a network/HTTP failure against one target. Retryable.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError marks a single malformed record; the record is skipped and the
// batch continues.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parse: " + e.Reason }
func (e *ParseError) Is(target error) bool { return target == ErrParse }
