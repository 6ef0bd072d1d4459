package export

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/centralrepo/centralrepo/internal/model"
)

// RowSource is the slice of the record store the pipeline reads from.
// Count sizes the partitioning when more than one reader runs;
// StreamRange walks one ORDER BY id window and hands each record to fn.
type RowSource interface {
	Count(ctx context.Context) (int64, error)
	StreamRange(ctx context.Context, limit, offset int64, fn func(model.Record) error) error
}

// Options controls the pipeline shape. Zero values fall back to a
// single worker and an unbuffered hand-off.
type Options struct {
	Readers      int
	Transformers int
	QueueDepth   int
}

func (o Options) normalize() Options {
	if o.Readers < 1 {
		o.Readers = 1
	}
	if o.Transformers < 1 {
		o.Transformers = 1
	}
	if o.QueueDepth < 0 {
		o.QueueDepth = 0
	}
	return o
}

// Stream runs the export pipeline and returns a reader producing the
// CSV byte stream: header first, then one line per record. Row order
// is only guaranteed with a single reader; with several, rows arrive
// in whatever order the workers produce them.
//
// The first worker error terminates the stream: the consumer sees it
// from Read after the already-buffered output drains. Closing the
// returned reader cancels the workers.
func Stream(ctx context.Context, src RowSource, columns []string, opts Options) io.ReadCloser {
	opts = opts.normalize()
	pr, pw := io.Pipe()

	go func() {
		err := run(ctx, src, columns, opts, pw)
		pw.CloseWithError(err)
	}()

	return pr
}

func run(ctx context.Context, src RowSource, columns []string, opts Options, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := w.Write(Header(columns)); err != nil {
		return err
	}

	rows := make(chan model.Record, opts.QueueDepth)
	out := make(chan []byte, opts.QueueDepth)

	var firstErr error
	var errOnce sync.Once
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	var readers sync.WaitGroup
	for i, window := range partition(ctx, src, opts.Readers, fail) {
		readers.Add(1)
		go func(id int, limit, offset int64) {
			defer readers.Done()
			err := src.StreamRange(ctx, limit, offset, func(rec model.Record) error {
				select {
				case rows <- rec:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				slog.Warn("export reader failed", "reader", id, "error", err)
				fail(err)
			}
		}(i, window.limit, window.offset)
	}

	var transformers sync.WaitGroup
	for i := 0; i < opts.Transformers; i++ {
		transformers.Add(1)
		go func() {
			defer transformers.Done()
			for rec := range rows {
				line := EncodeRow(&rec, columns)
				select {
				case out <- line:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		readers.Wait()
		close(rows)
		transformers.Wait()
		close(out)
	}()

	for line := range out {
		if _, err := w.Write(line); err != nil {
			// Consumer went away; unblock the workers and bail.
			cancel()
			for range out {
			}
			return err
		}
	}

	return firstErr
}

type window struct {
	limit  int64
	offset int64
}

// partition splits the result set into contiguous ORDER BY id windows,
// one per reader. A single reader skips the COUNT round trip and scans
// the whole set. When the count fails the pipeline degrades to one
// full-scan reader and reports the error at stream end.
func partition(ctx context.Context, src RowSource, readers int, fail func(error)) []window {
	if readers == 1 {
		return []window{{limit: 0, offset: 0}}
	}
	total, err := src.Count(ctx)
	if err != nil {
		fail(err)
		return nil
	}
	if total == 0 {
		return nil
	}
	perReader := (total + int64(readers) - 1) / int64(readers)
	var windows []window
	for offset := int64(0); offset < total; offset += perReader {
		windows = append(windows, window{limit: perReader, offset: offset})
	}
	return windows
}
