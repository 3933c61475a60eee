package domain

import (
	"errors"
	"fmt"
)

// Error kinds. ErrInvalidInput and ErrExtraction abort a pipeline run;
// ErrStorage surfaces as a warning alongside an otherwise-successful result;
// ErrTemporary marks retryable backend failures.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrExtraction       = errors.New("extraction failed")
	ErrStorage          = errors.New("storage failure")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
