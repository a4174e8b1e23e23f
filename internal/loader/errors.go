package loader

import (
	"errors"
	"fmt"
)

// Kind classifies a load failure.
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindCorrupt           Kind = "corrupt"
	KindEmpty             Kind = "empty"
	KindEncoding          Kind = "encoding"
	KindTooLarge          Kind = "too_large"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorrupt           = errors.New("file is corrupt or unreadable")
	ErrEmptyFile         = errors.New("file contains no data")
	ErrEncoding          = errors.New("unreadable text encoding")
	ErrTooLarge          = errors.New("file exceeds configured limits")
)

var kindErrors = map[Kind]error{
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindCorrupt:           ErrCorrupt,
	KindEmpty:             ErrEmptyFile,
	KindEncoding:          ErrEncoding,
	KindTooLarge:          ErrTooLarge,
}

// LoadError is returned for every failure to turn a file into tables. It
// matches its kind's sentinel with errors.Is and also unwraps to the cause.
type LoadError struct {
	Kind     Kind
	Filename string
	Err      error
}

func newLoadError(kind Kind, filename string, err error) *LoadError {
	return &LoadError{Kind: kind, Filename: filename, Err: err}
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", e.Filename, kindErrors[e.Kind])
	}
	return fmt.Sprintf("load %s: %s: %v", e.Filename, kindErrors[e.Kind], e.Err)
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *LoadError) Unwrap() []error {
	errs := []error{kindErrors[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Hint returns a short message telling the user what to do next.
func (e *LoadError) Hint() string {
	switch e.Kind {
	case KindUnsupportedFormat:
		return "Upload an .xlsx, .xls or .csv export."
	case KindCorrupt:
		return "The file could not be parsed. Re-export it from the exchange and try again."
	case KindEmpty:
		return "The file has no rows with data. Check that you exported the right account and period."
	case KindEncoding:
		return "Save the CSV as UTF-8 and upload it again."
	case KindTooLarge:
		return "Split the export into smaller periods or raise the configured limits."
	}
	return ""
}
