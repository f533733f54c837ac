package csv

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"csvingest/internal/format"
	"csvingest/internal/schema"
)

func mustSchema(t *testing.T, names ...string) *schema.Schema {
	t.Helper()
	cols := make([]schema.Column, len(names))
	for i, n := range names {
		cols[i] = schema.Column{Name: n, Type: schema.TypeString}
	}
	sch, err := schema.New(cols)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return sch
}

// collectRows feeds the chunks through a fresh aligner and returns every
// row's fields, in order. Close is called at the end and its error returned.
func collectRows(t *testing.T, fs *format.Settings, sch *schema.Schema, chunks ...[]byte) ([][]string, error) {
	t.Helper()
	st, err := Open(fs, sch, "test.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	nf := sch.NumFields()

	var rows [][]string
	for _, chunk := range chunks {
		batches, err := st.Align(chunk)
		if err != nil {
			return nil, err
		}
		for _, b := range batches {
			if verr := b.Validate(nf); verr != nil {
				t.Fatalf("batch failed validation: %v", verr)
			}
			for i := 0; i < b.NumRows(); i++ {
				fields := make([]string, nf)
				for c := 0; c < nf; c++ {
					fields[c] = string(b.Field(i, c, nf))
				}
				rows = append(rows, fields)
			}
		}
	}
	return rows, st.Close()
}

func TestAlignSingleChunk(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t)
	sch := mustSchema(t, "id", "name")

	st, err := Open(fs, sch, "trips.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	batches, err := st.Align([]byte("1,aa\n2,bb\n"))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}

	b := batches[0]
	if b.Path != "trips.csv" || b.BatchID != 0 || b.StartRow != 0 {
		t.Fatalf("batch meta = %q/%d/%d, want trips.csv/0/0", b.Path, b.BatchID, b.StartRow)
	}
	if string(b.Data) != "1aa2bb" {
		t.Fatalf("Data = %q, want %q", b.Data, "1aa2bb")
	}
	if !reflect.DeepEqual(b.RowEnds, []int{3, 6}) {
		t.Fatalf("RowEnds = %v, want [3 6]", b.RowEnds)
	}
	if !reflect.DeepEqual(b.FieldEnds, []int{1, 3, 4, 6}) {
		t.Fatalf("FieldEnds = %v, want [1 3 4 6]", b.FieldEnds)
	}
	if err := b.Validate(2); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := string(b.Field(1, 1, 2)); got != "bb" {
		t.Fatalf("Field(1,1) = %q, want %q", got, "bb")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if st.Rows() != 2 {
		t.Fatalf("Rows = %d, want 2", st.Rows())
	}
}

// TestAlignChunkSplitSweep splits one stream at every possible byte
// boundary, including inside quoted sections and between CR and LF, and
// requires identical rows regardless of the split.
func TestAlignChunkSplitSweep(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t, format.WithHeaderRows(1))
	sch := mustSchema(t, "id", "name")

	input := []byte("id,name\r\n1,\"a,b\"\r\n2,\"x\"\"y\"\r\n33,zz\r\n")
	want := [][]string{{"1", "a,b"}, {"2", `x"y`}, {"33", "zz"}}

	for split := 0; split <= len(input); split++ {
		rows, err := collectRows(t, fs, sch, input[:split], input[split:])
		if err != nil {
			t.Fatalf("split %d: %v", split, err)
		}
		if !reflect.DeepEqual(rows, want) {
			t.Fatalf("split %d: rows = %q, want %q", split, rows, want)
		}
	}

	// Degenerate chunking: one byte at a time.
	chunks := make([][]byte, len(input))
	for i := range input {
		chunks[i] = input[i : i+1]
	}
	rows, err := collectRows(t, fs, sch, chunks...)
	if err != nil {
		t.Fatalf("byte-at-a-time: %v", err)
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("byte-at-a-time: rows = %q, want %q", rows, want)
	}
}

func TestAlignFieldCountPolicy(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t)
	sch := mustSchema(t, "a", "b")

	tests := []struct {
		name    string
		input   string
		want    [][]string
		wantErr string
	}{
		{
			name:  "exact count",
			input: "1,2\n",
			want:  [][]string{{"1", "2"}},
		},
		{
			name:  "trailing delimiter tolerated",
			input: "1,2,\n",
			want:  [][]string{{"1", "2"}},
		},
		{
			name:    "too few fields",
			input:   "1\n",
			wantErr: "expect 2 fields, only found 1",
		},
		{
			name:    "data after trailing delimiter",
			input:   "1,2,3\n",
			wantErr: "row ends with a delimiter, but has data after it",
		},
		{
			name:    "too many fields",
			input:   "1,2,3,4\n",
			wantErr: "too many fields, expect 2, got 4",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows, err := collectRows(t, fs, sch, []byte(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want substring %q", err, tt.wantErr)
				}
				var mre *MalformedRowError
				if !errors.As(err, &mre) {
					t.Fatalf("err type = %T, want *MalformedRowError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(rows, tt.want) {
				t.Fatalf("rows = %q, want %q", rows, tt.want)
			}
		})
	}
}

// TestAlignExtremeFieldSurplus verifies that a row with far more delimiters
// than the schema allows fails with a row error rather than growing the
// scratch table forever.
func TestAlignExtremeFieldSurplus(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t)
	sch := mustSchema(t, "a", "b")

	_, err := collectRows(t, fs, sch, []byte("1,2,3,4,5,6,7,8,9,10,11,12\n"))
	if err == nil || !strings.Contains(err.Error(), "too many fields") {
		t.Fatalf("err = %v, want a too-many-fields error", err)
	}
}

func TestAlignHeaderRows(t *testing.T) {
	t.Parallel()
	sch := mustSchema(t, "a", "b")

	t.Run("headers are skipped and validated", func(t *testing.T) {
		t.Parallel()
		fs := mustSettings(t, format.WithHeaderRows(2))
		rows, err := collectRows(t, fs, sch, []byte("h1,h2\nh1,h2\n1,2\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(rows, [][]string{{"1", "2"}}) {
			t.Fatalf("rows = %q, want [[1 2]]", rows)
		}
	})

	t.Run("header with wrong field count fails", func(t *testing.T) {
		t.Parallel()
		fs := mustSettings(t, format.WithHeaderRows(1))
		_, err := collectRows(t, fs, sch, []byte("lonely\n1,2\n"))
		if err == nil || !strings.Contains(err.Error(), "expect 2 fields") {
			t.Fatalf("err = %v, want a field count error for the header", err)
		}
	})

	t.Run("header split across chunks", func(t *testing.T) {
		t.Parallel()
		fs := mustSettings(t, format.WithHeaderRows(1))
		rows, err := collectRows(t, fs, sch,
			[]byte("h1,"), []byte("h2\n1,2\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(rows, [][]string{{"1", "2"}}) {
			t.Fatalf("rows = %q, want [[1 2]]", rows)
		}
	})
}

// TestAlignRowNumbering checks that diagnostics carry the absolute row
// number across batches and headers, rendered 1-based.
func TestAlignRowNumbering(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t, format.WithHeaderRows(1))
	sch := mustSchema(t, "a", "b")

	st, err := Open(fs, sch, "n.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.Align([]byte("h1,h2\n1,2\n3,4\n")); err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	_, err = st.Align([]byte("bad\n"))
	var mre *MalformedRowError
	if !errors.As(err, &mre) {
		t.Fatalf("err = %v, want *MalformedRowError", err)
	}
	if mre.Row != 3 {
		t.Fatalf("Row = %d, want 3 (header plus two data rows precede it)", mre.Row)
	}
	if got := mre.Error(); !strings.Contains(got, "n.csv:4") {
		t.Fatalf("Error() = %q, want a 1-based n.csv:4 reference", got)
	}
}

func TestAlignBatchMetadata(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t, format.WithHeaderRows(1))
	sch := mustSchema(t, "a", "b")

	st, err := Open(fs, sch, "m.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first, err := st.Align([]byte("h1,h2\n1,2\n"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := st.Align([]byte("3,4\n5,6\n"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("batch counts = %d,%d, want 1,1", len(first), len(second))
	}
	if first[0].BatchID != 0 || second[0].BatchID != 1 {
		t.Fatalf("BatchIDs = %d,%d, want 0,1", first[0].BatchID, second[0].BatchID)
	}
	if first[0].StartRow != 1 || second[0].StartRow != 2 {
		t.Fatalf("StartRows = %d,%d, want 1,2", first[0].StartRow, second[0].StartRow)
	}
}

func TestAlignEmptyAndPartialChunks(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t)
	sch := mustSchema(t, "a", "b")

	st, err := Open(fs, sch, "p.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if batches, err := st.Align(nil); err != nil || batches != nil {
		t.Fatalf("Align(nil) = %v, %v; want nil, nil", batches, err)
	}

	// Several chunks that never complete a row produce no batches.
	for _, chunk := range []string{"1", ",", "a"} {
		batches, err := st.Align([]byte(chunk))
		if err != nil {
			t.Fatalf("Align(%q): %v", chunk, err)
		}
		if len(batches) != 0 {
			t.Fatalf("Align(%q) emitted a batch for a partial row", chunk)
		}
	}

	batches, err := st.Align([]byte("b\n"))
	if err != nil {
		t.Fatalf("final chunk: %v", err)
	}
	if len(batches) != 1 || batches[0].NumRows() != 1 {
		t.Fatalf("batches = %v, want one single-row batch", batches)
	}
	if got := string(batches[0].Field(0, 1, 2)); got != "ab" {
		t.Fatalf("field = %q, want %q", got, "ab")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestAlignCloseResidualTail(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t)
	sch := mustSchema(t, "a", "b")

	st, err := Open(fs, sch, "r.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.Align([]byte("1,2\n3,four")); err != nil {
		t.Fatalf("Align: %v", err)
	}
	err = st.Close()
	if err == nil || !strings.Contains(err.Error(), "unexpected end of input") {
		t.Fatalf("Close = %v, want an unexpected-end error", err)
	}
}

func TestOpenRejectsBadInputs(t *testing.T) {
	t.Parallel()
	fs := mustSettings(t)
	sch := mustSchema(t, "a")

	if _, err := Open(nil, sch, "x"); err == nil {
		t.Fatal("Open with nil settings should fail")
	}
	if _, err := Open(fs, nil, "x"); err == nil {
		t.Fatal("Open with nil schema should fail")
	}
}
