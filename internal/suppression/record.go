// Package suppression implements the local-file side of suppression-list
// synchronization: row normalization, in-file deduplication, batching, and
// the remote actions a batch can be fed to.
package suppression

import (
	"fmt"
	"regexp"
	"strings"
)

// recognizedFields is the closed set of CSV field names accepted in a header
// row. transactional/non_transactional are the deprecated flag columns.
var recognizedFields = map[string]bool{
	"recipient":         true,
	"type":              true,
	"source":            true,
	"description":       true,
	"created":           true,
	"updated":           true,
	"subaccount_id":     true,
	"transactional":     true,
	"non_transactional": true,
}

// Syntax-only check: deliverability is deliberately not verified.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Record is a normalized suppression-list entry built from one CSV row.
// The recognized field set is closed, so the shape is fixed rather than an
// open per-row mapping.
type Record struct {
	Recipient   string
	Type        string
	Description string
}

// identityKey is the in-file deduplication key. Two records with the same
// recipient but different types are distinct entries.
type identityKey struct {
	recipient string
	typ       string
}

// RowStatus carries per-row bookkeeping out of the normalizer.
type RowStatus struct {
	Valid       bool
	Defaulted   bool     // type fell back to the configured default
	Diagnostics []string // per-line messages, recoverable
}

// DetectHeader inspects the first CSV row. A row containing a "recipient"
// field is a header and every field name must be recognized. A single-cell
// row holding a bare email address gets a synthesized [recipient] header and
// is treated as data.
func DetectHeader(first []string) (header []string, isData bool, err error) {
	for _, cell := range first {
		if strings.TrimSpace(cell) == "recipient" {
			hdr := make([]string, len(first))
			for i, c := range first {
				name := strings.TrimSpace(c)
				if !recognizedFields[name] {
					return nil, false, fmt.Errorf("unexpected .csv file field name found: %q", name)
				}
				hdr[i] = name
			}
			return hdr, false, nil
		}
	}
	if len(first) == 1 && strings.Contains(first[0], "@") {
		return []string{"recipient"}, true, nil
	}
	return nil, false, fmt.Errorf(`invalid .csv file header - must contain "recipient" field`)
}

// Normalizer turns raw CSV rows into Records, applying configured defaults.
type Normalizer struct {
	TypeDefault        string
	DescriptionDefault string
}

// Row normalizes one data row against the established header. A cell-count
// mismatch is returned as an error and aborts the whole run; everything else
// is recoverable and reported through the RowStatus.
func (n *Normalizer) Row(header, row []string, line int) (Record, RowStatus, error) {
	var st RowStatus

	if len(row) != len(header) {
		return Record{}, st, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(row))
	}

	// Field name to trimmed cell value, empty cells omitted
	fields := make(map[string]string, len(header))
	for i, name := range header {
		if v := strings.TrimSpace(row[i]); v != "" {
			fields[name] = v
		}
	}

	recip, ok := fields["recipient"]
	if !ok {
		st.Diagnostics = append(st.Diagnostics, fmt.Sprintf("Line %d: missing recipient", line))
		return Record{}, st, nil
	}
	recip = strings.ToLower(recip)
	if !emailRegex.MatchString(recip) {
		st.Diagnostics = append(st.Diagnostics, fmt.Sprintf("Line %d: %s is not a valid email address", line, recip))
		return Record{}, st, nil
	}
	st.Valid = true

	typ, defaulted, diag := n.resolveType(fields, line)
	st.Defaulted = defaulted
	if diag != "" {
		st.Diagnostics = append(st.Diagnostics, diag)
	}

	desc, ok := fields["description"]
	if !ok {
		desc = n.DescriptionDefault
	}

	return Record{Recipient: recip, Type: typ, Description: desc}, st, nil
}

// resolveType prefers the new-style "type" field over the deprecated dual
// boolean flags. Anything that does not resolve cleanly falls back to the
// configured default and is counted as defaulted.
func (n *Normalizer) resolveType(fields map[string]string, line int) (typ string, defaulted bool, diag string) {
	if t, ok := fields["type"]; ok {
		t = strings.ToLower(stripQuotes(t))
		if t == "transactional" || t == "non_transactional" {
			return t, false, ""
		}
		return n.TypeDefault, true, fmt.Sprintf("Line %d: invalid \"type\" = %s, using default %s", line, fields["type"], n.TypeDefault)
	}

	tr, trOK := fields["transactional"]
	nt, ntOK := fields["non_transactional"]
	if trOK && ntOK {
		trVal, trErr := parseBoolToken(tr)
		ntVal, ntErr := parseBoolToken(nt)
		if trErr == nil && ntErr == nil {
			switch {
			case trVal && !ntVal:
				return "transactional", false, ""
			case ntVal && !trVal:
				return "non_transactional", false, ""
			}
			return n.TypeDefault, true, fmt.Sprintf("Line %d: ambiguous transactional/non_transactional flags, using default %s", line, n.TypeDefault)
		}
		bad := tr
		if trErr == nil {
			bad = nt
		}
		return n.TypeDefault, true, fmt.Sprintf("Line %d: invalid flag value %q, using default %s", line, bad, n.TypeDefault)
	}

	return n.TypeDefault, true, ""
}

// stripQuotes removes surrounding single or double quote characters that
// survive spreadsheet exports.
func stripQuotes(s string) string {
	return strings.Trim(s, `"'`)
}

func parseBoolToken(s string) (bool, error) {
	switch strings.ToLower(stripQuotes(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean token: %q", s)
}
