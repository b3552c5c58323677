package source

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDocument = errors.New("malformed document")
	ErrMalformedDate     = errors.New("malformed date")
	ErrMissingColumn     = errors.New("missing column")
	ErrNotFound          = errors.New("document not found")
)

// DecodeError locates a decoding failure inside a document. Index is the
// position of the offending entry (or CSV line), -1 when not applicable.
type DecodeError struct {
	Document string
	Index    int
	Field    string
	Err      error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("%s[%d].%s: %v", e.Document, e.Index, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %v", e.Document, e.Field, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Document, e.Err)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(doc string, index int, field string, err error) *DecodeError {
	return &DecodeError{Document: doc, Index: index, Field: field, Err: err}
}
