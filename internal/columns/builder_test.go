package columns

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"csvingest/internal/schema"
)

func TestForColumnTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  schema.Type
		want schema.Type
	}{
		{schema.TypeInt64, schema.TypeInt64},
		{schema.TypeFloat64, schema.TypeFloat64},
		{schema.TypeBool, schema.TypeBool},
		{schema.TypeString, schema.TypeString},
		{schema.TypeDate, schema.TypeDate},
		{schema.TypeTimestamp, schema.TypeTimestamp},
	}
	for _, tt := range tests {
		b := ForColumn(schema.Column{Name: "c", Type: tt.typ})
		if b.Type() != tt.want {
			t.Fatalf("ForColumn(%s).Type() = %s, want %s", tt.typ, b.Type(), tt.want)
		}
		if b.Name() != "c" || b.Len() != 0 {
			t.Fatalf("fresh builder for %s: name=%q len=%d", tt.typ, b.Name(), b.Len())
		}
	}
}

func TestBuilderNullAndDefault(t *testing.T) {
	t.Parallel()

	ib := NewInt64("n")
	ib.Append(7)
	ib.AppendNull()
	ib.AppendDefault()

	if ib.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ib.Len())
	}
	if got := ib.Value(0); got != int64(7) {
		t.Fatalf("Value(0) = %v, want 7", got)
	}
	if got := ib.Value(1); got != nil {
		t.Fatalf("Value(1) = %v, want nil for NULL", got)
	}
	if got := ib.Value(2); got != int64(0) {
		t.Fatalf("Value(2) = %v, want the zero default", got)
	}

	// A default is a real value, not a NULL, even when it looks like one.
	sb := NewString("s")
	sb.AppendDefault()
	sb.AppendNull()
	if got := sb.Value(0); got != "" {
		t.Fatalf("String default = %v, want empty string", got)
	}
	if got := sb.Value(1); got != nil {
		t.Fatalf("String null = %v, want nil", got)
	}

	tb := NewTime("d", schema.TypeDate)
	tb.Append(time.Date(2025, 11, 9, 0, 0, 0, 0, time.UTC))
	tb.AppendNull()
	if tb.Value(0).(time.Time).IsZero() {
		t.Fatal("appended time should round-trip")
	}
	if tb.Value(1) != nil {
		t.Fatal("time null should be nil")
	}
}

func TestRowsMaterialization(t *testing.T) {
	t.Parallel()

	sch, err := schema.New([]schema.Column{
		{Name: "id", Type: schema.TypeInt64},
		{Name: "ok", Type: schema.TypeBool},
		{Name: "city", Type: schema.TypeString},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	builders := ForSchema(sch)

	builders[0].(*Int64).Append(1)
	builders[1].(*Bool).Append(true)
	builders[2].(*String).Append("Brno")

	builders[0].(*Int64).AppendNull()
	builders[1].(*Bool).AppendDefault()
	builders[2].(*String).Append("Praha")

	rows, err := Rows(builders)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	want := [][]any{
		{int64(1), true, "Brno"},
		{nil, false, "Praha"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %#v, want %#v", rows, want)
	}
}

func TestRowsRaggedBuilders(t *testing.T) {
	t.Parallel()

	a := NewInt64("a")
	b := NewString("b")
	a.Append(1)
	a.Append(2)
	b.Append("only one")

	_, err := Rows([]Builder{a, b})
	if err == nil || !strings.Contains(err.Error(), "ragged") {
		t.Fatalf("err = %v, want a ragged-builders error", err)
	}
}

func TestRowsEmpty(t *testing.T) {
	t.Parallel()

	rows, err := Rows(nil)
	if err != nil || rows != nil {
		t.Fatalf("Rows(nil) = %v, %v; want nil, nil", rows, err)
	}
}
