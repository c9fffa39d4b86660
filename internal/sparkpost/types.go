package sparkpost

import (
	"fmt"
	"strconv"
)

// Suppression entry types recognized by the API
const (
	TypeTransactional    = "transactional"
	TypeNonTransactional = "non_transactional"
)

// ValidType reports whether s is one of the two suppression entry types
func ValidType(s string) bool {
	return s == TypeTransactional || s == TypeNonTransactional
}

// SuppressionEntry represents a single suppression-list record on the wire
type SuppressionEntry struct {
	Recipient    string `json:"recipient"`
	Type         string `json:"type,omitempty"`
	Description  string `json:"description,omitempty"`
	Source       string `json:"source,omitempty"`
	Created      string `json:"created,omitempty"`
	Updated      string `json:"updated,omitempty"`
	SubaccountID int    `json:"subaccount_id,omitempty"`
}

// Field returns the entry value for a named output property. Unknown
// property names yield an empty string so output columns can be configured
// freely.
func (e SuppressionEntry) Field(name string) string {
	switch name {
	case "recipient":
		return e.Recipient
	case "type":
		return e.Type
	case "description":
		return e.Description
	case "source":
		return e.Source
	case "created":
		return e.Created
	case "updated":
		return e.Updated
	case "subaccount_id":
		if e.SubaccountID == 0 {
			return ""
		}
		return strconv.Itoa(e.SubaccountID)
	default:
		return ""
	}
}

// Link represents a hypermedia link in an API response
type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// SearchResponse represents one page of suppression-list search results
type SearchResponse struct {
	Results    []SuppressionEntry `json:"results"`
	TotalCount int                `json:"total_count"`
	Links      []Link             `json:"links"`
}

// SearchParams holds query parameters for a suppression-list search request
type SearchParams struct {
	Cursor  string
	PerPage int
	From    string // composed local timestamp with UTC offset, optional
	To      string
}

// APIError is a non-success API response. The body is kept verbatim (it is
// not always JSON) so callers can log whatever diagnostic the remote sent.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}
