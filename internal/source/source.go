// Package source reads migration records from CSV, XLSX and JSON exports
// and groups them into batches.
package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/migrate-cli/internal/model"
)

// Format identifies a record file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Options configures Open.
type Options struct {
	Format    Format // detected from the extension when empty
	Delimiter rune
	Sheet     string
	TrimSpace bool
}

// Stream is an open record source. Records and Errs are closed together
// once the source is exhausted.
type Stream struct {
	Records <-chan model.Record
	Errs    <-chan error
	// Total is the record count when known up front, else 0.
	Total int

	closeFn func() error
}

// Close releases the underlying file.
func (s *Stream) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", eris.Errorf("source: unsupported file type %q", filepath.Ext(path))
}

// Open starts streaming records from path.
func Open(ctx context.Context, path string, opts Options) (*Stream, error) {
	format, err := resolveFormat(path, opts)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		_, records, err := ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet, TrimSpace: opts.TrimSpace})
		if err != nil {
			return nil, err
		}
		recCh := make(chan model.Record, len(records))
		for _, r := range records {
			recCh <- r
		}
		close(recCh)
		errCh := make(chan error)
		close(errCh)
		return &Stream{Records: recCh, Errs: errCh, Total: len(records)}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", path)
	}

	var recCh <-chan model.Record
	var errCh <-chan error
	if format == FormatJSON {
		recCh, errCh = DecodeJSONArray[model.Record](ctx, f)
	} else {
		recCh, errCh = StreamCSV(ctx, f, CSVOptions{Delimiter: delimiterFor(path, opts), TrimSpace: opts.TrimSpace, LazyQuotes: true})
	}
	return &Stream{Records: recCh, Errs: errCh, closeFn: f.Close}, nil
}

// Headers returns the field names of a record file: the header row for
// CSV and XLSX, the sorted union of keys of the first records for JSON.
func Headers(ctx context.Context, path string, opts Options) ([]string, error) {
	format, err := resolveFormat(path, opts)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		header, _, err := ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet, TrimSpace: true})
		return header, err
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSVHeader(f, CSVOptions{Delimiter: delimiterFor(path, opts), TrimSpace: true, LazyQuotes: true})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s, err := Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close() //nolint:errcheck

	const sample = 50
	seen := make(map[string]struct{})
	n := 0
	for rec := range s.Records {
		for k := range rec {
			seen[k] = struct{}{}
		}
		if n++; n >= sample {
			break
		}
	}
	if n < sample {
		if err := <-s.Errs; err != nil {
			return nil, err
		}
	}

	fields := make([]string, 0, len(seen))
	for k := range seen {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields, nil
}

// Batches groups records into slices of at most size. The output channel
// closes after the input closes or ctx is done; a partial final batch is
// still delivered.
func Batches(ctx context.Context, records <-chan model.Record, size int) <-chan []model.Record {
	if size <= 0 {
		size = 500
	}
	out := make(chan []model.Record)

	go func() {
		defer close(out)
		batch := make([]model.Record, 0, size)
		send := func() bool {
			select {
			case out <- batch:
				batch = make([]model.Record, 0, size)
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case rec, ok := <-records:
				if !ok {
					if len(batch) > 0 {
						send()
					}
					return
				}
				batch = append(batch, rec)
				if len(batch) == size && !send() {
					return
				}
			}
		}
	}()

	return out
}

func resolveFormat(path string, opts Options) (Format, error) {
	if opts.Format != "" {
		return opts.Format, nil
	}
	return DetectFormat(path)
}

func delimiterFor(path string, opts Options) rune {
	if opts.Delimiter != 0 {
		return opts.Delimiter
	}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}
