// Package csvio reads input suppression files under a configurable set of
// character encodings and writes retrieved entries back out as CSV.
package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/tuck1s/sparkySuppress/internal/pkg/logger"
)

// Reader is a CSV reader over a file decoded with the first configured
// encoding that reads the whole file cleanly.
type Reader struct {
	file *os.File
	csv  *csv.Reader

	// Encoding is the candidate that was selected.
	Encoding string
	// Lines is the physical line count found during the validation pass.
	Lines int
}

// Open tries the candidate encodings in order, validating each against the
// entire file, and returns a Reader positioned at the start using the first
// encoding that works. Failing all candidates is fatal for the run.
func Open(path string, encodings []string) (*Reader, error) {
	if len(encodings) == 0 {
		encodings = []string{"utf-8"}
	}

	var lastErr error
	for _, name := range encodings {
		enc, isUTF8, err := lookupEncoding(name)
		if err != nil {
			return nil, err
		}

		logger.Info("trying file encoding", "file", path, "encoding", name)
		lines, err := validateEncoding(path, enc, isUTF8)
		if err != nil {
			logger.Warn("encoding rejected", "encoding", name, "reason", err.Error())
			lastErr = err
			continue
		}
		logger.Info("file reads ok", "encoding", name, "lines", lines)

		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r := &Reader{
			file:     f,
			csv:      newCSVReader(transform.NewReader(f, enc.NewDecoder())),
			Encoding: name,
			Lines:    lines,
		}
		return r, nil
	}
	return nil, fmt.Errorf("file %s unreadable under configured encodings %v: %w", path, encodings, lastErr)
}

// Read returns the next CSV row.
func (r *Reader) Read() ([]string, error) { return r.csv.Read() }

// CSV exposes the underlying csv.Reader.
func (r *Reader) CSV() *csv.Reader { return r.csv }

// Close closes the underlying file.
func (r *Reader) Close() error { return r.file.Close() }

func newCSVReader(src io.Reader) *csv.Reader {
	cr := csv.NewReader(bufio.NewReaderSize(src, 1024*1024))
	cr.FieldsPerRecord = -1 // length mismatches are checked per-row with line numbers
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

// lookupEncoding resolves an IANA encoding name, also reporting whether the
// name means UTF-8. utf-8 resolves even where the index returns a nil
// Encoding for the native charset.
func lookupEncoding(name string) (encoding.Encoding, bool, error) {
	name = strings.TrimSpace(name)
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, false, fmt.Errorf("unknown character encoding %q: %w", name, err)
	}
	isUTF8 := strings.EqualFold(name, "utf-8") ||
		strings.EqualFold(name, "utf8") ||
		strings.EqualFold(name, "csUTF8")
	if enc == nil {
		// ianaindex maps some names (notably UTF-8 aliases) to nil
		return encoding.Nop, isUTF8, nil
	}
	return enc, isUTF8, nil
}

// validateEncoding streams the whole file through the candidate decoder,
// counting lines and rejecting the encoding on the first byte sequence it
// cannot represent. UTF-8 candidates go through the strict validator
// instead: the decoder would mask bad bytes as U+FFFD, a rune a UTF-8 file
// may legitimately contain. The line number makes the diagnostic actionable.
func validateEncoding(path string, enc encoding.Encoding, isUTF8 bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var tr transform.Transformer = encoding.UTF8Validator
	if !isUTF8 {
		tr = enc.NewDecoder()
	}

	br := bufio.NewReader(transform.NewReader(f, tr))
	lines := 0
	for {
		chunk, err := br.ReadString('\n')
		if chunk != "" {
			lines++
			// A replacement rune out of a non-UTF-8 decoder marks an
			// input byte it could not map.
			if !isUTF8 && (!utf8.ValidString(chunk) || strings.ContainsRune(chunk, utf8.RuneError)) {
				return lines, fmt.Errorf("near line %d: invalid byte sequence for this encoding", lines)
			}
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			if lines == 0 {
				lines = 1
			}
			return lines, fmt.Errorf("near line %d: %w", lines, err)
		}
	}
}
