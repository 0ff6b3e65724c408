package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrNotTIFF reports a file whose header or IFD cannot be decoded.
	ErrNotTIFF = errors.New("not a readable tiff")
	// ErrMissingTag reports a required instrument tag that is absent.
	ErrMissingTag = errors.New("missing metadata tag")
	// ErrMalformedTag reports a tag whose value cannot be read.
	ErrMalformedTag = errors.New("malformed metadata tag")
)

// ExtractionError describes why a single file was excluded.
type ExtractionError struct {
	Path  string
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
