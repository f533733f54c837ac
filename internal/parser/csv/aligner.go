package csv

import (
	"fmt"

	"csvingest/internal/format"
	"csvingest/internal/schema"
)

// fieldEndsSlack is extra scratch capacity beyond the schema's field count,
// so a row with a few surplus delimiters is diagnosed with an exact count
// instead of a capacity error.
const fieldEndsSlack = 6

// AlignerState owns all state carried across chunks of one input stream:
// the tokenizer, the undecoded tail of a partial record, the in-progress
// field-end table, the absolute row counter and the header rows still to
// skip.
//
// One AlignerState serves exactly one stream and is mutated only by Align
// and Close. It holds no locks; independent streams use independent states.
type AlignerState struct {
	tok       *Tokenizer
	fs        *format.Settings
	path      string
	numFields int

	tail       []byte // decoded bytes past the last completed row
	fieldEnds  []int  // scratch: record-relative ends of the current record
	nEnds      int    // valid prefix of fieldEnds
	out        []byte // per-call decode buffer, reused
	rows       int    // absolute rows seen, skipped headers included
	rowsToSkip int
	batchID    int64
}

// Open creates the per-stream aligner. Settings and schema must already be
// validated; path is only used in diagnostics.
func Open(fs *format.Settings, sch *schema.Schema, path string) (*AlignerState, error) {
	if fs == nil {
		return nil, &format.ConfigurationError{Setting: "format", Msg: "settings required"}
	}
	if sch == nil || sch.NumFields() == 0 {
		return nil, &format.ConfigurationError{Setting: "schema", Msg: "at least one column required"}
	}
	return &AlignerState{
		tok:        NewTokenizer(fs),
		fs:         fs,
		path:       path,
		numFields:  sch.NumFields(),
		fieldEnds:  make([]int, sch.NumFields()+fieldEndsSlack),
		rowsToSkip: fs.HeaderRows,
	}, nil
}

// Align consumes one chunk and returns the completed rows, if any, as a
// single RowBatch. Bytes past the last completed row are carried to the
// next call; many consecutive calls may legitimately return no batch.
//
// Any returned error is fatal for the stream.
func (a *AlignerState) Align(chunk []byte) ([]*RowBatch, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	// Decoded output never exceeds raw input, so one input-sized buffer
	// holds everything this call can produce.
	if cap(a.out) < len(chunk) {
		a.out = make([]byte, len(chunk))
	}
	out := a.out[:len(chunk)]

	buf := chunk
	for a.rowsToSkip > 0 {
		if len(buf) == 0 {
			return nil, nil
		}
		res, nin, _, nend := a.tok.ReadRecord(buf, out, a.fieldEnds[a.nEnds:])
		buf = buf[nin:]
		a.nEnds += nend

		switch res {
		case ReadInputEmpty:
			return nil, nil
		case ReadOutputFull:
			return nil, &InternalError{Msg: fmt.Sprintf(
				"decoded more than %d input bytes in header of %s", len(chunk), a.path)}
		case ReadEndsFull:
			return nil, a.malformed(a.rows, fmt.Sprintf(
				"too many fields, expect %d, got more than %d", a.numFields, len(a.fieldEnds)))
		case ReadRecord:
			if err := a.checkFieldCount(a.rows); err != nil {
				return nil, err
			}
			a.nEnds = 0
			a.rows++
			a.rowsToSkip--
		case ReadEnd:
			return nil, &InternalError{Msg: "tokenizer reported end of stream mid-chunk"}
		}
	}

	batch := &RowBatch{
		Path:     a.path,
		BatchID:  a.batchID,
		StartRow: a.rows,
	}
	tailLen := len(a.tail)
	outPos := 0
	batchEnd := 0 // outPos at the last completed row boundary
	// The tail is exactly the decoded prefix of the record in progress, so
	// the current record starts at offset 0 of the batch data.
	recordStart := 0

	for len(buf) > 0 {
		res, nin, nout, nend := a.tok.ReadRecord(buf, out[outPos:], a.fieldEnds[a.nEnds:])
		buf = buf[nin:]
		a.nEnds += nend
		outPos += nout

		switch res {
		case ReadInputEmpty:
			// Partial record; carried forward below.
		case ReadOutputFull:
			return nil, &InternalError{Msg: fmt.Sprintf(
				"decoded more than %d input bytes in %s", len(chunk), a.path)}
		case ReadEndsFull:
			return nil, a.malformed(a.rows+batch.NumRows(), fmt.Sprintf(
				"too many fields, expect %d, got more than %d", a.numFields, len(a.fieldEnds)))
		case ReadRecord:
			row := a.rows + batch.NumRows()
			if err := a.checkFieldCount(row); err != nil {
				return nil, err
			}
			for c := 0; c < a.numFields; c++ {
				batch.FieldEnds = append(batch.FieldEnds, recordStart+a.fieldEnds[c])
			}
			rowEnd := tailLen + outPos
			batch.RowEnds = append(batch.RowEnds, rowEnd)
			a.nEnds = 0
			batchEnd = outPos
			recordStart = rowEnd
		case ReadEnd:
			return nil, &InternalError{Msg: "tokenizer reported end of stream mid-chunk"}
		}
	}

	if batch.NumRows() == 0 {
		a.tail = append(a.tail, out[:outPos]...)
		return nil, nil
	}

	data := make([]byte, 0, tailLen+batchEnd)
	data = append(data, a.tail...)
	data = append(data, out[:batchEnd]...)
	batch.Data = data
	a.tail = append(a.tail[:0], out[batchEnd:outPos]...)
	a.batchID++
	a.rows += batch.NumRows()
	return []*RowBatch{batch}, nil
}

// Close ends the stream. A residual tail whose record never saw its
// terminator makes the stream invalid.
func (a *AlignerState) Close() error {
	if len(a.tail) > 0 || a.nEnds > 0 || a.tok.InRecord() {
		return a.malformed(a.rows, "unexpected end of input")
	}
	return nil
}

// Rows returns the number of absolute rows consumed so far, including
// skipped header rows.
func (a *AlignerState) Rows() int { return a.rows }

// checkFieldCount enforces the per-record field count policy: exactly
// numFields, or numFields+1 when the surplus trailing field is empty (a row
// ending in a delimiter).
func (a *AlignerState) checkFieldCount(row int) error {
	n := a.nEnds
	switch {
	case n < a.numFields:
		return a.malformed(row, fmt.Sprintf("expect %d fields, only found %d", a.numFields, n))
	case n > a.numFields+1:
		return a.malformed(row, fmt.Sprintf("too many fields, expect %d, got %d", a.numFields, n))
	case n == a.numFields+1 && a.fieldEnds[a.numFields] != a.fieldEnds[a.numFields-1]:
		return a.malformed(row, "row ends with a delimiter, but has data after it")
	}
	return nil
}

func (a *AlignerState) malformed(row int, msg string) error {
	return &MalformedRowError{Path: a.path, Row: row, Msg: msg}
}
