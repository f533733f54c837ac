// Package probe samples the head of a CSV file and infers a destination
// schema from it. It is a best-effort helper for bootstrapping pipeline
// configs: the sampler is deliberately lenient (malformed or misaligned rows
// are skipped) because its output is reviewed by a human before use.
package probe

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"csvingest/internal/config"
	"csvingest/internal/schema"
)

// Options controls a single probe run.
type Options struct {
	// Path is the local CSV file to sample.
	Path string

	// MaxBytes limits how much of the file head is read. Zero selects the
	// default of 64 KiB.
	MaxBytes int

	// Delimiter is the field delimiter. Zero selects ','.
	Delimiter rune

	// MaxRows caps the number of sampled data rows used for inference.
	// Zero selects the default of 10000.
	MaxRows int
}

// Result holds the inferred schema plus enough context to audit it.
type Result struct {
	// Headers are the raw header fields as read from the file.
	Headers []string

	// Schema pairs normalized column names with inferred types, in file
	// order.
	Schema *schema.Schema

	// SampledRows is the number of data rows that contributed to the
	// inference.
	SampledRows int
}

const (
	defaultMaxBytes = 64 << 10
	defaultMaxRows  = 10000
)

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Probe samples the head of opts.Path and infers one column per header.
func Probe(opts Options) (*Result, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = defaultMaxRows
	}

	data, err := sampleHead(opts.Path, opts.MaxBytes)
	if err != nil {
		return nil, err
	}

	headers, rows, err := readSample(data, opts.Delimiter, opts.MaxRows)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("probe %s: no usable header row in the first %d bytes", opts.Path, opts.MaxBytes)
	}

	cols := make([]schema.Column, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		name := normalizeFieldName(h)
		// Deduplicate by suffixing; normalized headers collide often.
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name] = 1
		cols[i] = schema.Column{Name: name, Type: inferColumnType(column(rows, i))}
	}

	sch, err := schema.New(cols)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", opts.Path, err)
	}

	return &Result{
		Headers:     headers,
		Schema:      sch,
		SampledRows: len(rows),
	}, nil
}

// PipelineSkeleton wraps a probe result in a runnable pipeline config with
// placeholder storage settings.
func PipelineSkeleton(opts Options, res *Result) config.Pipeline {
	format := config.Options{
		"header_rows": 1,
	}
	if opts.Delimiter != 0 && opts.Delimiter != ',' {
		format["field_delimiter"] = string(opts.Delimiter)
	}
	job := strings.TrimSuffix(normalizeFieldName(filepathBase(opts.Path)), "_csv")
	return config.Pipeline{
		Job:     job,
		Source:  config.Source{Paths: []string{opts.Path}},
		Format:  format,
		Schema:  *res.Schema,
		Storage: config.Storage{Kind: "postgres", DB: config.DBConfig{DSN: "CHANGE_ME", Table: job}},
	}
}

func filepathBase(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// sampleHead reads at most n bytes from the start of the file and trims the
// tail back to the last newline so the sample ends on a record boundary.
func sampleHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	buf = buf[:read]

	if read == n {
		// The sample likely cut a record in half; drop the partial tail.
		if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
			buf = buf[:i+1]
		}
	}
	return buf, nil
}

// readSample parses the sampled bytes leniently: parse errors, empty lines
// and rows whose field count differs from the header are skipped so that a
// few bad rows cannot poison the inference.
func readSample(data []byte, delim rune, maxRows int) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var headers []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil, nil, nil
		}
		if err != nil || len(rec) == 0 {
			continue
		}
		headers = stripUTF8BOM(rec)
		break
	}

	rows := make([][]string, 0, 64)
	want := len(headers)
	for len(rows) < maxRows {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) == 0 {
			continue
		}
		if len(rec) != want {
			continue
		}
		rows = append(rows, rec)
	}
	return headers, rows, nil
}

// stripUTF8BOM removes a UTF-8 BOM from the first header field if present.
func stripUTF8BOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	return headers
}

func column(rows [][]string, i int) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}

// inferColumnType guesses the narrowest type all non-empty sampled values
// satisfy. Columns with no usable values default to string.
func inferColumnType(values []string) schema.Type {
	nonEmpty := nonEmptyTrimmed(values)
	if len(nonEmpty) == 0 {
		return schema.TypeString
	}
	if allMatch(nonEmpty, isInt) {
		return schema.TypeInt64
	}
	if allMatch(nonEmpty, isBool) {
		return schema.TypeBool
	}
	if allMatch(nonEmpty, isFloat) {
		return schema.TypeFloat64
	}

	allDate := true
	anyTime := false
	for _, v := range nonEmpty {
		ok, hasTime := parseDateOrTimestamp(v)
		if !ok {
			allDate = false
			break
		}
		if hasTime {
			anyTime = true
		}
	}
	if allDate {
		if anyTime {
			return schema.TypeTimestamp
		}
		return schema.TypeDate
	}
	return schema.TypeString
}

// nonEmptyTrimmed returns the non-empty, trimmed values.
func nonEmptyTrimmed(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isBool accepts common textual booleans. 1/0 deliberately count as int
// first, so a 1/0 column infers as int64.
func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "t", "f", "yes", "no", "y", "n", "1", "0":
		return true
	default:
		return false
	}
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation. Ints parse as floats too;
// that is fine because the int check runs first, so a mixed column like
// "9.5" and "10" still infers as float.
func isFloat(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// parseDateOrTimestamp tries timestamps first, then dates, and reports
// whether a time component was present.
func parseDateOrTimestamp(s string) (ok bool, hasTime bool) {
	st := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, st); err == nil {
			return true, true
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, st); err == nil {
			return true, false
		}
	}
	return false, false
}

// normalizeFieldName converts arbitrary header text into a lowercase ASCII
// identifier suitable for SQL schemas:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func normalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}
