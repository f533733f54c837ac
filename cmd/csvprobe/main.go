// Command csvprobe samples the head of a CSV file, infers a column schema,
// and prints it as JSON. With -pipeline it prints a full pipeline config
// skeleton instead, ready to be edited and fed to the ingest binary.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"unicode/utf8"

	"csvingest/internal/probe"
)

var (
	flagPath      = flag.String("path", "", "local CSV file to sample")
	flagBytes     = flag.Int("bytes", 64<<10, "number of bytes to sample from the start of the file")
	flagRows      = flag.Int("rows", 10000, "maximum number of data rows used for type inference")
	flagDelimiter = flag.String("delimiter", ",", "CSV field delimiter (single character)")
	flagPipeline  = flag.Bool("pipeline", false, "print a pipeline config skeleton instead of the bare schema")
)

func main() {
	flag.Parse()

	if *flagPath == "" {
		fmt.Fprintln(os.Stderr, "csvprobe: -path is required")
		os.Exit(2)
	}

	delim := ','
	if *flagDelimiter != "" {
		if r, _ := utf8.DecodeRuneInString(*flagDelimiter); r != utf8.RuneError {
			delim = r
		}
	}

	opts := probe.Options{
		Path:      *flagPath,
		MaxBytes:  *flagBytes,
		MaxRows:   *flagRows,
		Delimiter: delim,
	}
	res, err := probe.Probe(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvprobe: %v\n", err)
		os.Exit(1)
	}

	var out any = res.Schema
	if *flagPipeline {
		out = probe.PipelineSkeleton(opts, res)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "csvprobe: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "sampled %d rows from %s\n", res.SampledRows, *flagPath)
}
