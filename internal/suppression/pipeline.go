package suppression

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// Processor drives one file pass: header detection, per-row normalization,
// and accumulation. Per-line diagnostics go to Diag; parse-level failures
// abort the run.
type Processor struct {
	Normalizer Normalizer
	Diag       io.Writer
}

// Run consumes the CSV reader to EOF and returns the pass summary. CSV row
// order determines processing order. Diagnostics carry the physical line a
// record starts on, which differs from the record number when a quoted field
// spans lines.
func (p *Processor) Run(ctx context.Context, r *csv.Reader, acc *Accumulator) (Summary, error) {
	var header []string

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv parse errors already carry their own line position
			return acc.Summary(), fmt.Errorf("reading input: %w", err)
		}
		line, _ := r.FieldPos(0)

		if header == nil {
			hdr, isData, err := DetectHeader(row)
			if err != nil {
				return acc.Summary(), err
			}
			header = hdr
			if !isData {
				continue
			}
		}

		rec, st, err := p.Normalizer.Row(header, row, line)
		if err != nil {
			return acc.Summary(), err
		}
		for _, d := range st.Diagnostics {
			if p.Diag != nil {
				fmt.Fprintln(p.Diag, d)
			}
		}
		if err := acc.Add(ctx, rec, st); err != nil {
			return acc.Summary(), err
		}
	}

	return acc.Close(ctx)
}
