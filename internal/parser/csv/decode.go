package csv

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"csvingest/internal/columns"
	"csvingest/internal/format"
	"csvingest/internal/schema"
)

// decodeFn parses one trimmed, unescaped field into its column builder. The
// whole slice must be consumed; trailing junk is a parse error.
type decodeFn func(raw []byte, b columns.Builder) error

// Decoder turns row batches into typed column values. The per-column decode
// table is built once from the schema at construction, so decoding a field
// is a single indexed call rather than a per-field type dispatch.
//
// A Decoder is stateless after construction and safe for concurrent use on
// distinct batches, as long as each builder set has a single caller.
type Decoder struct {
	fs        *format.Settings
	numFields int
	cols      []schema.Column
	fns       []decodeFn
}

// NewDecoder builds the decode capability table for the schema.
func NewDecoder(fs *format.Settings, sch *schema.Schema) (*Decoder, error) {
	if fs == nil {
		return nil, &format.ConfigurationError{Setting: "format", Msg: "settings required"}
	}
	cols := sch.Columns()
	fns := make([]decodeFn, len(cols))
	for i, c := range cols {
		fn, err := decoderFor(c, fs)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return &Decoder{fs: fs, numFields: sch.NumFields(), cols: cols, fns: fns}, nil
}

// Decode appends every field of the batch to the matching column builder.
//
// Per field: trim ASCII whitespace; an empty field produces the column
// default when empty_as_default is set; the null marker produces NULL;
// anything else goes through the column's decode function. The first field
// failure aborts the whole batch with a MalformedFieldError carrying the
// absolute row, column and raw bytes — nothing is rolled back, the caller
// discards the builders.
func (d *Decoder) Decode(batch *RowBatch, builders []columns.Builder) error {
	if len(builders) != d.numFields {
		return &InternalError{Msg: fmt.Sprintf(
			"schema has %d columns but %d builders were supplied", d.numFields, len(builders))}
	}
	fieldStart := 0
	for i := range batch.RowEnds {
		base := i * d.numFields
		for c := 0; c < d.numFields; c++ {
			fieldEnd := batch.FieldEnds[base+c]
			raw := batch.Data[fieldStart:fieldEnd]
			if err := d.decodeField(raw, builders[c], d.fns[c]); err != nil {
				return &MalformedFieldError{
					Path:   batch.Path,
					Row:    batch.StartRow + i,
					Column: c,
					Name:   d.cols[c].Name,
					Raw:    append([]byte(nil), raw...),
					Err:    err,
				}
			}
			fieldStart = fieldEnd
		}
	}
	return nil
}

func (d *Decoder) decodeField(raw []byte, b columns.Builder, fn decodeFn) error {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 && d.fs.EmptyAsDefault {
		b.AppendDefault()
		return nil
	}
	if bytes.Equal(v, d.fs.NullMarker) {
		b.AppendNull()
		return nil
	}
	return fn(v, b)
}

// decoderFor returns the decode capability for one column. Builders are
// type-asserted per call; a mismatch means the caller paired the wrong
// builders with this schema and surfaces as an internal error.
func decoderFor(c schema.Column, fs *format.Settings) (decodeFn, error) {
	switch c.Type {
	case schema.TypeInt64:
		return func(raw []byte, b columns.Builder) error {
			ib, ok := b.(*columns.Int64)
			if !ok {
				return builderMismatch(c, b)
			}
			v, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("bad int64: %w", err)
			}
			ib.Append(v)
			return nil
		}, nil

	case schema.TypeFloat64:
		return func(raw []byte, b columns.Builder) error {
			fb, ok := b.(*columns.Float64)
			if !ok {
				return builderMismatch(c, b)
			}
			v, err := strconv.ParseFloat(string(raw), 64)
			if err != nil {
				return fmt.Errorf("bad float64: %w", err)
			}
			fb.Append(v)
			return nil
		}, nil

	case schema.TypeBool:
		return func(raw []byte, b columns.Builder) error {
			bb, ok := b.(*columns.Bool)
			if !ok {
				return builderMismatch(c, b)
			}
			v, err := strconv.ParseBool(string(raw))
			if err != nil {
				return fmt.Errorf("bad bool: %w", err)
			}
			bb.Append(v)
			return nil
		}, nil

	case schema.TypeString:
		return func(raw []byte, b columns.Builder) error {
			sb, ok := b.(*columns.String)
			if !ok {
				return builderMismatch(c, b)
			}
			sb.Append(string(raw))
			return nil
		}, nil

	case schema.TypeDate:
		layout, loc := fs.DateLayout, fs.Location
		return func(raw []byte, b columns.Builder) error {
			tb, ok := b.(*columns.Time)
			if !ok {
				return builderMismatch(c, b)
			}
			v, err := time.ParseInLocation(layout, string(raw), loc)
			if err != nil {
				return fmt.Errorf("bad date: %w", err)
			}
			tb.Append(v)
			return nil
		}, nil

	case schema.TypeTimestamp:
		layout, loc := fs.TimestampLayout, fs.Location
		return func(raw []byte, b columns.Builder) error {
			tb, ok := b.(*columns.Time)
			if !ok {
				return builderMismatch(c, b)
			}
			v, err := time.ParseInLocation(layout, string(raw), loc)
			if err != nil {
				return fmt.Errorf("bad timestamp: %w", err)
			}
			tb.Append(v)
			return nil
		}, nil
	}
	return nil, &format.ConfigurationError{
		Setting: "schema",
		Msg:     fmt.Sprintf("column %q has unsupported type %q", c.Name, c.Type),
	}
}

func builderMismatch(c schema.Column, b columns.Builder) error {
	return &InternalError{Msg: fmt.Sprintf(
		"column %q declared %s but builder holds %s", c.Name, c.Type, b.Type())}
}
