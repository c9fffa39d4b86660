package csvio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/tuck1s/sparkySuppress/internal/sparkpost"
)

// EntryWriter writes suppression entries as CSV rows under a configured
// ordered property list. Remote fields outside the list are dropped; missing
// ones are left blank.
type EntryWriter struct {
	w          *csv.Writer
	properties []string
}

// NewEntryWriter writes the header row immediately.
func NewEntryWriter(out io.Writer, properties []string) (*EntryWriter, error) {
	if len(properties) == 0 {
		return nil, fmt.Errorf("no output properties configured")
	}
	ew := &EntryWriter{w: csv.NewWriter(out), properties: properties}
	if err := ew.w.Write(properties); err != nil {
		return nil, err
	}
	return ew, nil
}

// WriteEntry implements the fetcher's sink.
func (ew *EntryWriter) WriteEntry(e sparkpost.SuppressionEntry) error {
	row := make([]string, len(ew.properties))
	for i, p := range ew.properties {
		row[i] = e.Field(p)
	}
	return ew.w.Write(row)
}

// Flush flushes buffered rows and reports any write error.
func (ew *EntryWriter) Flush() error {
	ew.w.Flush()
	return ew.w.Error()
}
