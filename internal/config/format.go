package config

import (
	"time"

	"csvingest/internal/format"
)

// FormatSettings resolves the pipeline's format options bag into validated,
// immutable per-stream settings. Option errors (for example a multi-byte
// quote) surface as *format.ConfigurationError.
func (p Pipeline) FormatSettings() (*format.Settings, error) {
	opts := []format.Option{
		format.WithFieldDelimiter(p.Format.Byte("field_delimiter", ',')),
		format.WithEmptyAsDefault(p.Format.Bool("empty_as_default", false)),
		format.WithHeaderRows(p.Format.Int("header_rows", 0)),
	}

	if p.Format.Has("quote") {
		q, err := format.ParseQuote(p.Format.String("quote", `"`))
		if err != nil {
			return nil, err
		}
		opts = append(opts, format.WithQuote(q))
	}

	term, err := format.ParseRecordDelimiter(p.Format.String("record_delimiter", ""))
	if err != nil {
		return nil, err
	}
	opts = append(opts, format.WithRecordDelimiter(term))

	if m := p.Format.String("null_marker", ""); m != "" {
		opts = append(opts, format.WithNullMarker([]byte(m)))
	}

	if tz := p.Format.String("timezone", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, &format.ConfigurationError{Setting: "timezone", Msg: err.Error()}
		}
		opts = append(opts, format.WithLocation(loc))
	}

	date := p.Format.String("date_layout", format.DefaultDateLayout)
	ts := p.Format.String("timestamp_layout", format.DefaultTimestampLayout)
	opts = append(opts, format.WithLayouts(date, ts))

	return format.New(opts...)
}
