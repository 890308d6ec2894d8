package extractor

import "fmt"

// UnsupportedFormatError reports a filename whose suffix is none of the
// supported document types. It is a caller error, not a service fault.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Filename)
}

// ExtractionError reports document bytes that could not be parsed as their
// declared format.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s content: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
