// Package format holds the per-stream text format settings used by the CSV
// ingestion path. Settings are captured once when a stream is opened and are
// immutable afterwards, so field decoders never consult ambient global state.
package format

import (
	"fmt"
	"time"
)

// Default layouts used by the date and timestamp field decoders when the
// pipeline config does not override them.
const (
	DefaultDateLayout      = "2006-01-02"
	DefaultTimestampLayout = "2006-01-02 15:04:05"
)

// DefaultNullMarker is the byte sequence that denotes an explicit NULL field,
// distinct from an empty field.
var DefaultNullMarker = []byte(`\N`)

// ConfigurationError reports invalid format or pipeline settings. It is fatal
// at open time and never retried.
type ConfigurationError struct {
	Setting string
	Msg     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid setting %q: %s", e.Setting, e.Msg)
}

// Terminator selects how records end. It is a tagged variant: either the
// lenient CRLF mode (accepts "\r", "\n" and "\r\n"), or a single arbitrary
// byte. The zero value is CRLF mode.
type Terminator struct {
	any bool
	b   byte
}

// CRLF returns the default terminator, accepting "\r", "\n" and "\r\n".
func CRLF() Terminator { return Terminator{} }

// Any returns a terminator that matches exactly the byte b.
func Any(b byte) Terminator { return Terminator{any: true, b: b} }

// IsCRLF reports whether t is in CRLF mode.
func (t Terminator) IsCRLF() bool { return !t.any }

// Matches reports whether c terminates a record under t.
func (t Terminator) Matches(c byte) bool {
	if t.any {
		return c == t.b
	}
	return c == '\r' || c == '\n'
}

func (t Terminator) String() string {
	if t.any {
		return fmt.Sprintf("%q", string(t.b))
	}
	return "CRLF"
}

// Settings is the immutable per-stream format configuration.
type Settings struct {
	FieldDelimiter  byte
	RecordDelimiter Terminator
	Quote           byte
	NullMarker      []byte
	EmptyAsDefault  bool
	HeaderRows      int // header rows skipped before data starts
	Location        *time.Location
	DateLayout      string
	TimestampLayout string
}

// Option mutates a Settings under construction.
type Option func(*Settings)

// WithFieldDelimiter sets the field delimiter byte.
func WithFieldDelimiter(b byte) Option { return func(s *Settings) { s.FieldDelimiter = b } }

// WithRecordDelimiter sets the record terminator variant.
func WithRecordDelimiter(t Terminator) Option { return func(s *Settings) { s.RecordDelimiter = t } }

// WithQuote sets the quote byte.
func WithQuote(b byte) Option { return func(s *Settings) { s.Quote = b } }

// WithNullMarker sets the byte sequence treated as an explicit NULL.
func WithNullMarker(m []byte) Option { return func(s *Settings) { s.NullMarker = m } }

// WithEmptyAsDefault controls whether empty fields produce the column default.
func WithEmptyAsDefault(v bool) Option { return func(s *Settings) { s.EmptyAsDefault = v } }

// WithHeaderRows sets how many leading rows are skipped as headers.
func WithHeaderRows(n int) Option { return func(s *Settings) { s.HeaderRows = n } }

// WithLocation sets the timezone passed through to date/timestamp decoders.
func WithLocation(loc *time.Location) Option { return func(s *Settings) { s.Location = loc } }

// WithLayouts overrides the date and timestamp layouts.
func WithLayouts(date, ts string) Option {
	return func(s *Settings) {
		s.DateLayout = date
		s.TimestampLayout = ts
	}
}

// New builds a validated Settings. Defaults follow common CSV practice:
// comma-delimited, double-quoted, CRLF-terminated, `\N` for NULL, UTC.
func New(opts ...Option) (*Settings, error) {
	s := &Settings{
		FieldDelimiter:  ',',
		RecordDelimiter: CRLF(),
		Quote:           '"',
		NullMarker:      DefaultNullMarker,
		Location:        time.UTC,
		DateLayout:      DefaultDateLayout,
		TimestampLayout: DefaultTimestampLayout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.FieldDelimiter == 0 {
		return nil, &ConfigurationError{Setting: "field_delimiter", Msg: "must be one byte"}
	}
	if s.Quote == 0 {
		return nil, &ConfigurationError{Setting: "quote", Msg: "must be one byte"}
	}
	if s.FieldDelimiter == s.Quote {
		return nil, &ConfigurationError{Setting: "field_delimiter", Msg: "must differ from quote"}
	}
	if s.RecordDelimiter.Matches(s.FieldDelimiter) {
		return nil, &ConfigurationError{Setting: "record_delimiter", Msg: "must differ from field delimiter"}
	}
	if len(s.NullMarker) == 0 {
		return nil, &ConfigurationError{Setting: "null_marker", Msg: "must not be empty"}
	}
	if s.HeaderRows < 0 {
		return nil, &ConfigurationError{Setting: "header_rows", Msg: "must be >= 0"}
	}
	if s.Location == nil {
		s.Location = time.UTC
	}
	return s, nil
}

// ParseQuote validates a quote setting given as a string. Exactly one byte is
// accepted; anything else is a configuration error.
func ParseQuote(v string) (byte, error) {
	if len(v) != 1 {
		return 0, &ConfigurationError{Setting: "quote", Msg: "can only contain one char"}
	}
	return v[0], nil
}

// ParseRecordDelimiter maps a config string onto a Terminator. The empty
// string, "\r\n" and "crlf" select CRLF mode; any single byte selects that
// byte.
func ParseRecordDelimiter(v string) (Terminator, error) {
	switch v {
	case "", "\r\n", "crlf", "CRLF":
		return CRLF(), nil
	}
	if len(v) != 1 {
		return Terminator{}, &ConfigurationError{
			Setting: "record_delimiter",
			Msg:     "must be CRLF or a single char",
		}
	}
	return Any(v[0]), nil
}
