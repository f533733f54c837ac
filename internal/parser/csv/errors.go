package csv

import "fmt"

// MalformedRowError reports a row-level structural failure: wrong field
// count, data after a trailing delimiter, or an unterminated final record.
// The byte stream itself is invalid, so the error is fatal for the stream.
type MalformedRowError struct {
	Path string
	Row  int // absolute 0-based row; rendered 1-based
	Msg  string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("fail to parse CSV %s:%d %s", e.Path, e.Row+1, e.Msg)
}

// MalformedFieldError reports a field whose bytes do not parse as the
// column's declared type. It is fatal for the whole batch: no partial-row
// commit happens.
type MalformedFieldError struct {
	Path   string
	Row    int // absolute 0-based row; rendered 1-based
	Column int
	Name   string
	Raw    []byte
	Err    error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("fail to parse CSV %s:%d column %d (%s): %v, [column_data=%q]",
		e.Path, e.Row+1, e.Column, e.Name, e.Err, e.Raw)
}

func (e *MalformedFieldError) Unwrap() error { return e.Err }

// InternalError reports a violated sizing invariant. It indicates a bug in
// this package rather than bad input data and is always fatal.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}
