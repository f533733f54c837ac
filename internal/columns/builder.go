// Package columns implements in-memory, append-only column builders. One
// builder accumulates the values of a single column across the rows of a
// batch; the ingestion core only ever appends, it never reads values back.
//
// NULLs are tracked in a validity bitmap rather than boxed values, so a
// builder stays a flat typed slice plus one bit per row.
package columns

import (
	"fmt"
	"time"

	"csvingest/internal/bitmap"
	"csvingest/internal/schema"
)

// Builder is the append-only contract the row decoder writes through.
// AppendDefault produces the column's default value (zero value unless the
// builder was constructed with an explicit default).
type Builder interface {
	Name() string
	Type() schema.Type
	AppendNull()
	AppendDefault()
	Len() int

	// Value returns the i-th appended value as a driver-friendly any
	// (nil for NULL). It exists for the storage sinks; the decoder never
	// calls it.
	Value(i int) any
}

// ForSchema builds one empty builder per schema column, in schema order.
func ForSchema(s *schema.Schema) []Builder {
	out := make([]Builder, s.NumFields())
	for i, c := range s.Columns() {
		out[i] = ForColumn(c)
	}
	return out
}

// ForColumn builds an empty builder for a single column.
func ForColumn(c schema.Column) Builder {
	switch c.Type {
	case schema.TypeInt64:
		return NewInt64(c.Name)
	case schema.TypeFloat64:
		return NewFloat64(c.Name)
	case schema.TypeBool:
		return NewBool(c.Name)
	case schema.TypeDate, schema.TypeTimestamp:
		return NewTime(c.Name, c.Type)
	default:
		return NewString(c.Name)
	}
}

// Rows materializes builders into row-oriented [][]any for COPY/INSERT style
// sinks. All builders must have equal length.
func Rows(builders []Builder) ([][]any, error) {
	if len(builders) == 0 {
		return nil, nil
	}
	n := builders[0].Len()
	for _, b := range builders[1:] {
		if b.Len() != n {
			return nil, fmt.Errorf("columns: ragged builders: %q has %d rows, %q has %d",
				builders[0].Name(), n, b.Name(), b.Len())
		}
	}
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		row := make([]any, len(builders))
		for c, b := range builders {
			row[c] = b.Value(i)
		}
		rows[i] = row
	}
	return rows, nil
}

// Int64 is an append-only int64 column.
type Int64 struct {
	name   string
	values []int64
	nulls  *bitmap.Bitmap
}

func NewInt64(name string) *Int64 {
	return &Int64{name: name, nulls: bitmap.New(0)}
}

func (b *Int64) Name() string      { return b.name }
func (b *Int64) Type() schema.Type { return schema.TypeInt64 }
func (b *Int64) Len() int          { return len(b.values) }

func (b *Int64) Append(v int64) {
	b.values = append(b.values, v)
	b.nulls.Append(false)
}

func (b *Int64) AppendNull() {
	b.values = append(b.values, 0)
	b.nulls.Append(true)
}

func (b *Int64) AppendDefault() { b.Append(0) }

func (b *Int64) Value(i int) any {
	if b.nulls.Has(i) {
		return nil
	}
	return b.values[i]
}

// Float64 is an append-only float64 column.
type Float64 struct {
	name   string
	values []float64
	nulls  *bitmap.Bitmap
}

func NewFloat64(name string) *Float64 {
	return &Float64{name: name, nulls: bitmap.New(0)}
}

func (b *Float64) Name() string      { return b.name }
func (b *Float64) Type() schema.Type { return schema.TypeFloat64 }
func (b *Float64) Len() int          { return len(b.values) }

func (b *Float64) Append(v float64) {
	b.values = append(b.values, v)
	b.nulls.Append(false)
}

func (b *Float64) AppendNull() {
	b.values = append(b.values, 0)
	b.nulls.Append(true)
}

func (b *Float64) AppendDefault() { b.Append(0) }

func (b *Float64) Value(i int) any {
	if b.nulls.Has(i) {
		return nil
	}
	return b.values[i]
}

// Bool is an append-only bool column.
type Bool struct {
	name   string
	values []bool
	nulls  *bitmap.Bitmap
}

func NewBool(name string) *Bool {
	return &Bool{name: name, nulls: bitmap.New(0)}
}

func (b *Bool) Name() string      { return b.name }
func (b *Bool) Type() schema.Type { return schema.TypeBool }
func (b *Bool) Len() int          { return len(b.values) }

func (b *Bool) Append(v bool) {
	b.values = append(b.values, v)
	b.nulls.Append(false)
}

func (b *Bool) AppendNull() {
	b.values = append(b.values, false)
	b.nulls.Append(true)
}

func (b *Bool) AppendDefault() { b.Append(false) }

func (b *Bool) Value(i int) any {
	if b.nulls.Has(i) {
		return nil
	}
	return b.values[i]
}

// String is an append-only string column.
type String struct {
	name   string
	values []string
	nulls  *bitmap.Bitmap
}

func NewString(name string) *String {
	return &String{name: name, nulls: bitmap.New(0)}
}

func (b *String) Name() string      { return b.name }
func (b *String) Type() schema.Type { return schema.TypeString }
func (b *String) Len() int          { return len(b.values) }

func (b *String) Append(v string) {
	b.values = append(b.values, v)
	b.nulls.Append(false)
}

func (b *String) AppendNull() {
	b.values = append(b.values, "")
	b.nulls.Append(true)
}

func (b *String) AppendDefault() { b.Append("") }

func (b *String) Value(i int) any {
	if b.nulls.Has(i) {
		return nil
	}
	return b.values[i]
}

// Time is an append-only date/timestamp column.
type Time struct {
	name   string
	typ    schema.Type
	values []time.Time
	nulls  *bitmap.Bitmap
}

func NewTime(name string, typ schema.Type) *Time {
	return &Time{name: name, typ: typ, nulls: bitmap.New(0)}
}

func (b *Time) Name() string      { return b.name }
func (b *Time) Type() schema.Type { return b.typ }
func (b *Time) Len() int          { return len(b.values) }

func (b *Time) Append(v time.Time) {
	b.values = append(b.values, v)
	b.nulls.Append(false)
}

func (b *Time) AppendNull() {
	b.values = append(b.values, time.Time{})
	b.nulls.Append(true)
}

func (b *Time) AppendDefault() { b.Append(time.Time{}) }

func (b *Time) Value(i int) any {
	if b.nulls.Has(i) {
		return nil
	}
	return b.values[i]
}
