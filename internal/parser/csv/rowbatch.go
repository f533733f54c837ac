package csv

import "fmt"

// RowBatch is an immutable bundle of complete decoded rows emitted by one
// Align call. Data holds the unescaped field bytes of all rows concatenated,
// with no delimiters or terminators between them; RowEnds and FieldEnds are
// absolute offsets into Data.
//
// FieldEnds is flattened: exactly numFields entries per row, in row-major
// order. A field's start is the previous field's end (the row start for the
// first field), so the offsets alone reconstruct every slice.
type RowBatch struct {
	Data      []byte
	RowEnds   []int
	FieldEnds []int

	Path     string
	BatchID  int64
	StartRow int // absolute row number of the first row, headers included
}

// NumRows returns the number of complete rows in the batch.
func (b *RowBatch) NumRows() int { return len(b.RowEnds) }

// Row returns the Data slice covering row i.
func (b *RowBatch) Row(i int) []byte {
	return b.Data[b.rowStart(i):b.RowEnds[i]]
}

// Field returns the Data slice covering column c of row i, quoting already
// resolved. numFields must match the batch's layout.
func (b *RowBatch) Field(i, c, numFields int) []byte {
	start := b.rowStart(i)
	if c > 0 {
		start = b.FieldEnds[i*numFields+c-1]
	}
	return b.Data[start:b.FieldEnds[i*numFields+c]]
}

func (b *RowBatch) rowStart(i int) int {
	if i == 0 {
		return 0
	}
	return b.RowEnds[i-1]
}

// Validate checks the structural invariants of the batch: row ends
// non-decreasing (a row of all-empty fields decodes to zero bytes) and
// ending at len(Data), field ends non-decreasing within a row, and each
// row's last field end equal to the row end. It exists for tests and
// debugging; Align only emits batches that satisfy it.
func (b *RowBatch) Validate(numFields int) error {
	if numFields <= 0 {
		return fmt.Errorf("rowbatch: numFields must be > 0")
	}
	if len(b.RowEnds)*numFields != len(b.FieldEnds) {
		return fmt.Errorf("rowbatch: %d rows * %d fields != %d field ends",
			len(b.RowEnds), numFields, len(b.FieldEnds))
	}
	prevRowEnd := 0
	for i, end := range b.RowEnds {
		if i > 0 && end < b.RowEnds[i-1] {
			return fmt.Errorf("rowbatch: row ends decrease at row %d", i)
		}
		prev := prevRowEnd
		for c := 0; c < numFields; c++ {
			fe := b.FieldEnds[i*numFields+c]
			if fe < prev {
				return fmt.Errorf("rowbatch: field end decreases at row %d col %d", i, c)
			}
			prev = fe
		}
		if prev != end {
			return fmt.Errorf("rowbatch: row %d last field end %d != row end %d", i, prev, end)
		}
		prevRowEnd = end
	}
	if n := len(b.RowEnds); n > 0 && b.RowEnds[n-1] != len(b.Data) {
		return fmt.Errorf("rowbatch: last row end %d != data length %d",
			b.RowEnds[n-1], len(b.Data))
	}
	return nil
}
