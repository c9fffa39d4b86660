package suppression

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/tuck1s/sparkySuppress/internal/pkg/logger"
	"github.com/tuck1s/sparkySuppress/internal/sparkpost"
)

// Searcher pages through the remote suppression list. *sparkpost.Client
// satisfies this.
type Searcher interface {
	SearchSuppressions(ctx context.Context, p sparkpost.SearchParams) (*sparkpost.SearchResponse, error)
}

// EntrySink receives fetched entries as they arrive; pages are never
// buffered across calls.
type EntrySink interface {
	WriteEntry(e sparkpost.SuppressionEntry) error
}

// Fetcher drives cursor-based retrieval of the remote list into a sink.
type Fetcher struct {
	Client   Searcher
	PerPage  int
	Progress io.Writer // per-page human-readable report, may be nil
}

// Run pages from the initial cursor until the response carries no "next"
// link. From/to are optional composed timestamps bounding the retrieval; the
// total count is reported once, from the first page. Returns the number of
// entries written to the sink.
func (f *Fetcher) Run(ctx context.Context, sink EntrySink, from, to string) (int, error) {
	params := sparkpost.SearchParams{
		Cursor:  "initial",
		PerPage: f.PerPage,
		From:    from,
		To:      to,
	}

	page := 1
	written := 0

	for {
		start := time.Now()
		res, err := f.Client.SearchSuppressions(ctx, params)
		if err != nil {
			return written, err
		}

		for _, e := range res.Results {
			if err := sink.WriteEntry(e); err != nil {
				return written, fmt.Errorf("writing output: %w", err)
			}
			written++
		}
		elapsed := time.Since(start)

		if params.Cursor == "initial" {
			f.progressf("Total entries to fetch: %d\n", res.TotalCount)
		}
		f.progressf("Page %8d: got %6d entries in %2.3f seconds\n", page, len(res.Results), elapsed.Seconds())
		logger.Info("page fetched", "page", page, "rows", len(res.Results), "elapsed_ms", elapsed.Milliseconds())

		next := ""
		for _, l := range res.Links {
			switch l.Rel {
			case "next":
				cursor, err := cursorFromHref(l.Href)
				if err != nil {
					return written, err
				}
				next = cursor
			case "first", "last", "previous":
				// informational only
			default:
				return written, fmt.Errorf("unexpected link in response: rel=%q href=%q", l.Rel, l.Href)
			}
		}
		if next == "" {
			return written, nil
		}
		params.Cursor = next
		page++
	}
}

func (f *Fetcher) progressf(format string, args ...interface{}) {
	if f.Progress != nil {
		fmt.Fprintf(f.Progress, format, args...)
	}
}

func cursorFromHref(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parsing next link %q: %w", href, err)
	}
	cursor := u.Query().Get("cursor")
	if cursor == "" {
		return "", fmt.Errorf("next link %q has no cursor parameter", href)
	}
	return cursor, nil
}
