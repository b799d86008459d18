package recordsource

import "errors"

var (
	// ErrEmptyFile is returned when the uploaded file has no content.
	ErrEmptyFile = errors.New("file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrHeaderNotFound is returned when no row carries all the columns
	// the record kind requires.
	ErrHeaderNotFound = errors.New("required headers not found in file")

	// ErrNoDataRows is returned when the header was found but no row
	// below it has all required fields filled.
	ErrNoDataRows = errors.New("no valid data rows found after headers")
)
