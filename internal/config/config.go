// Package config defines the canonical, JSON-serializable configuration
// model for an ingestion run. It is intentionally small and explicit so that
// pipeline files can be loaded from disk and passed through the program
// without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "job":    "trips",
//	  "source": { "paths": ["data/trips.csv"], "chunk_size": 1048576 },
//	  "format": { "field_delimiter": ",", "header_rows": 1 },
//	  "schema": [
//	    { "name": "id",     "type": "int64" },
//	    { "name": "city",   "type": "string" }
//	  ],
//	  "storage": { "kind": "postgres", "db": { "dsn": "...", "table": "public.trips" } }
//	}
package config

import (
	"encoding/json"

	"csvingest/internal/schema"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels metrics and log lines.
	Job string `json:"job"`

	// Source describes the input files and how they are chunked.
	Source Source `json:"source"`

	// Format is the free-form options bag for the CSV format settings.
	// Recognized keys: field_delimiter, record_delimiter, quote,
	// null_marker, empty_as_default, header_rows, timezone, date_layout,
	// timestamp_layout.
	Format Options `json:"format"`

	// Schema is the ordered destination column list; its length fixes the
	// expected field count per row.
	Schema schema.Schema `json:"schema"`

	// Storage selects the sink that receives decoded batches.
	Storage Storage `json:"storage"`

	// Runtime controls concurrency and buffering.
	Runtime RuntimeConfig `json:"runtime"`
}

// Source identifies the input files of a run. Each path is one independent
// stream with its own aligner state.
type Source struct {
	// Paths lists the local CSV files to ingest.
	Paths []string `json:"paths"`

	// ChunkSize is the read size in bytes fed to the aligner per call.
	// Zero selects the default (1 MiB).
	ChunkSize int `json:"chunk_size"`
}

// Storage selects the sink used to persist decoded batches.
type Storage struct {
	// Kind selects the sink implementation: "postgres", "sqlite", "mssql".
	Kind string `json:"kind"`

	// DB configures the selected database sink.
	DB DBConfig `json:"db"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn"`

	// Table is the target table name (e.g. "public.trips").
	Table string `json:"table"`
}

// RuntimeConfig controls concurrency, batching and channel buffer sizes.
type RuntimeConfig struct {
	// DecodeWorkers is the number of goroutines decoding and flushing row
	// batches per stream. Zero selects the default (2).
	DecodeWorkers int `json:"decode_workers"`

	// BatchBuffer is the capacity of the aligned-batch channel. Zero
	// selects the default (4).
	BatchBuffer int `json:"batch_buffer"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so float64 is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Byte returns the first byte of a string value for key, or def if the key
// is missing or the value empty. Useful for single-byte settings such as the
// field delimiter.
func (o Options) Byte(key string, def byte) byte {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return s[0]
		}
	}
	return def
}

// Has reports whether key is present at all.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// UnmarshalJSON decodes a missing or null options object to a non-nil empty
// map, so call sites never need a nil check.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
