// Package pipeline executes a full ingestion run: it streams each input file
// in chunks through its own aligner, decodes the resulting row batches into
// typed column builders, and flushes them to the configured storage backend.
//
// Concurrency model, per input file:
//
//	Reader (chunks → Align; strictly sequential, owns the AlignerState)
//	     → bounded channel of row batches
//	     → N decode workers (Decode into fresh builders → CopyFrom)
//
// Independent files run fully in parallel; they share no mutable state.
// Back-pressure comes from the bounded channel, so peak memory stays around
// O(files * batch_buffer * chunk_size). Any Malformed* error cancels the
// whole run; the byte stream is invalid and there is nothing to retry.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"csvingest/internal/columns"
	"csvingest/internal/config"
	"csvingest/internal/format"
	"csvingest/internal/metrics"
	csvparser "csvingest/internal/parser/csv"
	"csvingest/internal/storage"
)

const (
	defaultChunkSize     = 1 << 20
	defaultDecodeWorkers = 2
	defaultBatchBuffer   = 4
)

// Function variables used to introduce test seams. In production these point
// to real implementations; tests can override them.
var newRepositoryFn = storage.New

// counters holds cross-goroutine statistics for one run. All fields are
// updated atomically.
type counters struct {
	bytes    atomic.Int64 // raw bytes fed to aligners
	aligned  atomic.Int64 // rows assembled into batches
	inserted atomic.Int64 // rows reported inserted by the sink
	batches  atomic.Int64 // row batches flushed
}

// Run executes the pipeline described by spec and returns the first fatal
// error. It logs a per-file fingerprint and an end-of-run summary.
func Run(ctx context.Context, spec config.Pipeline) error {
	fs, err := spec.FormatSettings()
	if err != nil {
		return err
	}
	sch := &spec.Schema

	dec, err := csvparser.NewDecoder(fs, sch)
	if err != nil {
		return err
	}

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:  spec.Storage.Kind,
		DSN:   spec.Storage.DB.DSN,
		Table: spec.Storage.DB.Table,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	chunkSize := spec.Source.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	workers := spec.Runtime.DecodeWorkers
	if workers <= 0 {
		workers = defaultDecodeWorkers
	}
	buffer := spec.Runtime.BatchBuffer
	if buffer <= 0 {
		buffer = defaultBatchBuffer
	}

	runID := uuid.New()
	log.Printf("run %s: job=%s files=%d chunk=%d workers=%d",
		runID, spec.Job, len(spec.Source.Paths), chunkSize, workers)

	var c counters
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range spec.Source.Paths {
		path := path
		g.Go(func() error {
			stepStart := time.Now()
			err := ingestFile(gctx, spec, fs, dec, repo, path, chunkSize, workers, buffer, &c)
			metrics.RecordStep(spec.Job, "ingest_file", err, time.Since(stepStart))
			return err
		})
	}
	err = g.Wait()

	metrics.RecordRows(spec.Job, "aligned", c.aligned.Load())
	metrics.RecordRows(spec.Job, "inserted", c.inserted.Load())
	metrics.RecordBatches(spec.Job, c.batches.Load())
	log.Printf("run %s: done in %s: bytes=%d rows=%d inserted=%d batches=%d err=%v",
		runID, time.Since(start).Round(time.Millisecond),
		c.bytes.Load(), c.aligned.Load(), c.inserted.Load(), c.batches.Load(), err)
	return err
}

// ingestFile streams one file through its own aligner. The reader goroutine
// is the only one touching the AlignerState; decode workers receive immutable
// batches and each builds its own column builders.
func ingestFile(
	ctx context.Context,
	spec config.Pipeline,
	fs *format.Settings,
	dec *csvparser.Decoder,
	repo storage.Repository,
	path string,
	chunkSize, workers, buffer int,
	c *counters,
) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	adviseSequential(f)

	st, err := csvparser.Open(fs, &spec.Schema, path)
	if err != nil {
		return err
	}

	out := make(chan *csvparser.RowBatch, buffer)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for batch := range out {
				if err := flushBatch(gctx, spec, dec, repo, batch, c); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(out)
		hash := xxh3.New()
		buf := make([]byte, chunkSize)
		for {
			n, rerr := f.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				_, _ = hash.Write(chunk)
				c.bytes.Add(int64(n))
				batches, aerr := st.Align(chunk)
				if aerr != nil {
					return aerr
				}
				for _, b := range batches {
					c.aligned.Add(int64(b.NumRows()))
					select {
					case out <- b:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return fmt.Errorf("read %s: %w", path, rerr)
			}
		}
		if err := st.Close(); err != nil {
			return err
		}
		log.Printf("reader %s: rows=%d xxh3=%016x", path, st.Rows(), hash.Sum64())
		return nil
	})

	return g.Wait()
}

// flushBatch decodes one row batch into fresh builders and bulk-inserts the
// materialized rows.
func flushBatch(
	ctx context.Context,
	spec config.Pipeline,
	dec *csvparser.Decoder,
	repo storage.Repository,
	batch *csvparser.RowBatch,
	c *counters,
) error {
	builders := columns.ForSchema(&spec.Schema)
	if err := dec.Decode(batch, builders); err != nil {
		return err
	}
	rows, err := columns.Rows(builders)
	if err != nil {
		return err
	}
	n, err := repo.CopyFrom(ctx, spec.Schema.Names(), rows)
	if err != nil {
		return fmt.Errorf("flush batch %d of %s: %w", batch.BatchID, batch.Path, err)
	}
	c.inserted.Add(n)
	c.batches.Add(1)
	return nil
}
