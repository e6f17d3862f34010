package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnsupportedMedia  = errors.New("unsupported media type")
	ErrExtraction        = errors.New("extraction failed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrTitleGeneration   = errors.New("title generation failed")
	ErrGeneration        = errors.New("answer generation failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrNotFound          = errors.New("not found")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyCorpus       = errors.New("no records in content class")

	ErrNoFile       = fmt.Errorf("%w: no file supplied", ErrValidation)
	ErrMissingField = fmt.Errorf("%w: missing required field", ErrValidation)
)

// UnsupportedMediaError reports a declared media type with no extractor.
type UnsupportedMediaError struct {
	MediaType string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported media type: %q", e.MediaType)
}

func (e *UnsupportedMediaError) Is(target error) bool { return target == ErrUnsupportedMedia }

// ExtractionError carries the media kind whose bytes could not be turned into text.
type ExtractionError struct {
	Kind MediaKind
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extracting %s: no text", e.Kind)
	}
	return fmt.Sprintf("extracting %s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// MissingField builds a validation error naming the absent field.
func MissingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}
