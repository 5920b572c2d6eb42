package source

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/migrate-cli/internal/model"
)

// CSVOptions configures the streaming CSV reader. The first row is always
// the header.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HeaderCh   chan<- []string // optional: receives the header row
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV rows as records keyed by the header row. Both
// channels are closed when the input is exhausted or ctx is done.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan model.Record, <-chan error) {
	recCh := make(chan model.Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		reader := newCSVReader(r, opts)

		header, err := readHeader(reader, opts.TrimSpace)
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- err
			return
		}
		if opts.HeaderCh != nil {
			select {
			case opts.HeaderCh <- header:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
				return
			}
		}

		for line := 2; ; line++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read row %d", line)
				return
			}

			select {
			case recCh <- toRecord(header, row, opts.TrimSpace):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return recCh, errCh
}

// ReadCSVHeader returns the header row of a CSV input.
func ReadCSVHeader(r io.Reader, opts CSVOptions) ([]string, error) {
	header, err := readHeader(newCSVReader(r, opts), opts.TrimSpace)
	if err == io.EOF {
		return nil, eris.New("csv: empty input")
	}
	return header, err
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow ragged rows
	return reader
}

func readHeader(reader *csv.Reader, trim bool) ([]string, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if trim {
			h = strings.TrimSpace(h)
		}
		header[i] = h
	}
	return header, nil
}

// toRecord maps cells onto header names. Cells beyond the header are
// dropped; columns missing from a short row are absent from the record.
func toRecord(header, cells []string, trim bool) model.Record {
	rec := make(model.Record, len(header))
	for i, name := range header {
		if i >= len(cells) || name == "" {
			continue
		}
		v := cells[i]
		if trim {
			v = strings.TrimSpace(v)
		}
		rec[name] = v
	}
	return rec
}
