// Package csv is the streaming CSV ingestion front-end: a resumable byte
// tokenizer, a chunk aligner that assembles complete rows, and a row decoder
// that feeds typed column builders.
//
// The package never performs I/O. Callers deliver raw bytes in arbitrarily
// sized chunks; a chunk may split a row, a field, a quoted section or even a
// two-byte record terminator, and the output is identical to parsing the
// whole stream in one call.
package csv

import "csvingest/internal/format"

// ReadResult tags the outcome of one Tokenizer.ReadRecord invocation.
type ReadResult int

const (
	// ReadInputEmpty means the input was exhausted before a record
	// completed. Decoded progress is retained; call again with more input.
	ReadInputEmpty ReadResult = iota
	// ReadOutputFull means the output buffer is too small for the decoded
	// bytes. The offending byte is left unconsumed.
	ReadOutputFull
	// ReadEndsFull means the field-end table is exhausted. The offending
	// byte is left unconsumed.
	ReadEndsFull
	// ReadRecord means one record completed; its field ends are recorded.
	ReadRecord
	// ReadEnd means end of stream with nothing pending.
	ReadEnd
)

func (r ReadResult) String() string {
	switch r {
	case ReadInputEmpty:
		return "InputEmpty"
	case ReadOutputFull:
		return "OutputFull"
	case ReadEndsFull:
		return "EndsFull"
	case ReadRecord:
		return "Record"
	case ReadEnd:
		return "End"
	}
	return "Unknown"
}

type tokState uint8

const (
	stateStartField tokState = iota // at the start of a field (or record)
	stateSkipLF                     // record ended on CR; swallow one LF
	stateInField                    // inside an unquoted field
	stateInQuoted                   // inside a quoted field
	stateQuoteInQuoted              // quote seen inside a quoted field
)

// Tokenizer is a resumable byte-level CSV scanner. It understands quoting,
// doubled-quote escaping and the record terminator, and is the only place in
// the package where quote rules are interpreted.
//
// Field end offsets written to the ends table are relative to the first
// decoded byte of the current record, and remain consistent when a record
// spans multiple ReadRecord calls.
type Tokenizer struct {
	delim byte
	quote byte
	term  format.Terminator

	state  tokState
	recLen int // decoded bytes of the in-progress record, across calls
	fields int // field ends recorded for the in-progress record
}

// NewTokenizer builds a Tokenizer from validated settings.
func NewTokenizer(fs *format.Settings) *Tokenizer {
	return &Tokenizer{
		delim: fs.FieldDelimiter,
		quote: fs.Quote,
		term:  fs.RecordDelimiter,
	}
}

// InRecord reports whether a record is partially scanned: some bytes or
// field boundaries of the current record have been seen but its terminator
// has not.
func (t *Tokenizer) InRecord() bool {
	if t.state == stateSkipLF {
		return false
	}
	return t.state != stateStartField || t.recLen > 0 || t.fields > 0
}

// ReadRecord scans input until one record completes or a buffer runs out.
// Unescaped field bytes are written to output (never more bytes than were
// consumed), and each completed field appends its end offset to ends.
//
// It returns the result tag, bytes consumed from input, bytes written to
// output and field ends recorded. Passing empty input signals end of stream:
// a pending record is finalized and returned once, after which ReadEnd is
// reported.
func (t *Tokenizer) ReadRecord(input, output []byte, ends []int) (res ReadResult, nin, nout, nend int) {
	if len(input) == 0 {
		if t.state == stateSkipLF {
			t.state = stateStartField
		}
		if !t.InRecord() {
			return ReadEnd, 0, 0, 0
		}
		if len(ends) == 0 {
			return ReadEndsFull, 0, 0, 0
		}
		ends[0] = t.recLen
		t.reset()
		return ReadRecord, 0, 0, 1
	}

	for nin < len(input) {
		c := input[nin]
		switch t.state {
		case stateSkipLF:
			t.state = stateStartField
			if c == '\n' {
				nin++
			}
			// Reprocess c as the start of the next record otherwise.

		case stateStartField:
			switch {
			case c == t.quote:
				t.state = stateInQuoted
				nin++
			case c == t.delim:
				if nend >= len(ends) {
					return ReadEndsFull, nin, nout, nend
				}
				ends[nend] = t.recLen
				nend++
				t.fields++
				nin++
			case t.term.Matches(c):
				return t.endRecord(c, input, output, ends, nin, nout, nend)
			default:
				if nout >= len(output) {
					return ReadOutputFull, nin, nout, nend
				}
				output[nout] = c
				nout++
				t.recLen++
				t.state = stateInField
				nin++
			}

		case stateInField:
			switch {
			case c == t.delim:
				if nend >= len(ends) {
					return ReadEndsFull, nin, nout, nend
				}
				ends[nend] = t.recLen
				nend++
				t.fields++
				t.state = stateStartField
				nin++
			case t.term.Matches(c):
				return t.endRecord(c, input, output, ends, nin, nout, nend)
			default:
				if nout >= len(output) {
					return ReadOutputFull, nin, nout, nend
				}
				output[nout] = c
				nout++
				t.recLen++
				nin++
			}

		case stateInQuoted:
			if c == t.quote {
				t.state = stateQuoteInQuoted
				nin++
				break
			}
			// Delimiters and terminators are literal inside quotes.
			if nout >= len(output) {
				return ReadOutputFull, nin, nout, nend
			}
			output[nout] = c
			nout++
			t.recLen++
			nin++

		case stateQuoteInQuoted:
			switch {
			case c == t.quote:
				// Doubled quote: one literal quote byte.
				if nout >= len(output) {
					return ReadOutputFull, nin, nout, nend
				}
				output[nout] = c
				nout++
				t.recLen++
				t.state = stateInQuoted
				nin++
			case c == t.delim:
				if nend >= len(ends) {
					return ReadEndsFull, nin, nout, nend
				}
				ends[nend] = t.recLen
				nend++
				t.fields++
				t.state = stateStartField
				nin++
			case t.term.Matches(c):
				return t.endRecord(c, input, output, ends, nin, nout, nend)
			default:
				// Data after a closing quote. Be lenient and treat it as
				// ordinary field content.
				if nout >= len(output) {
					return ReadOutputFull, nin, nout, nend
				}
				output[nout] = c
				nout++
				t.recLen++
				t.state = stateInField
				nin++
			}
		}
	}
	return ReadInputEmpty, nin, nout, nend
}

// endRecord records the final field end and completes the record. In CRLF
// mode a record terminated by CR arms the LF skip so a following LF, even in
// the next chunk, is consumed silently.
func (t *Tokenizer) endRecord(c byte, input, output []byte, ends []int, nin, nout, nend int) (ReadResult, int, int, int) {
	if nend >= len(ends) {
		return ReadEndsFull, nin, nout, nend
	}
	ends[nend] = t.recLen
	nend++
	nin++
	t.reset()
	if t.term.IsCRLF() && c == '\r' {
		t.state = stateSkipLF
	}
	return ReadRecord, nin, nout, nend
}

func (t *Tokenizer) reset() {
	t.state = stateStartField
	t.recLen = 0
	t.fields = 0
}
