// Package dataset loads timetable records from data files and school CSV
// exports.
package dataset

import "fmt"

// Kind classifies a dataset failure.
type Kind string

const (
	// KindMissing means the dataset file does not exist or cannot be read.
	KindMissing Kind = "missing"
	// KindMalformed means the file is not parseable in its format.
	KindMalformed Kind = "malformed"
	// KindInvalid means the data parsed but does not match the record contract.
	KindInvalid Kind = "invalid"
)

// Error reports why a dataset could not be loaded.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dataset %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("dataset %s (%s): %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so callers can test
// errors.Is(err, &dataset.Error{Kind: dataset.KindMissing}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
