package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// RecordSeq walks one paginated collection lazily, yielding records in the
// order the API returns them. The sequence is finite and not restartable:
// once Next reports false, check Err for the terminal error.
//
//	seq := client.Records("courses/1/files", q)
//	for seq.Next(ctx) {
//		... seq.Record() ...
//	}
//	if err := seq.Err(); err != nil { ... }
type RecordSeq struct {
	client *Client
	next   string // absolute URL of the next request, "" when exhausted

	buf  []json.RawMessage
	idx  int
	cur  json.RawMessage
	page int
	err  error
}

// Records starts a lazy sequence over the collection at path (relative to
// /api/v1). query goes on the first request only; later requests follow the
// Link header verbatim, which already carries the paging params.
func (c *Client) Records(path string, query url.Values) *RecordSeq {
	return &RecordSeq{
		client: c,
		next:   c.apiURL(path, query),
	}
}

// Next advances the sequence, fetching the next page when the buffered one
// runs out. It returns false when no records remain or a page fetch failed.
func (s *RecordSeq) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	for s.idx >= len(s.buf) {
		if s.next == "" {
			return false
		}
		if err := s.fetchPage(ctx); err != nil {
			s.err = err
			return false
		}
	}
	s.cur = s.buf[s.idx]
	s.idx++
	return true
}

// Record returns the record Next advanced to.
func (s *RecordSeq) Record() json.RawMessage { return s.cur }

// Err returns the first page-fetch error, or nil after a clean walk.
func (s *RecordSeq) Err() error { return s.err }

// Page returns how many pages have been fetched so far.
func (s *RecordSeq) Page() int { return s.page }

func (s *RecordSeq) fetchPage(ctx context.Context) error {
	header, body, err := s.client.get(ctx, s.next)
	if err != nil {
		return fmt.Errorf("page %d: %w", s.page+1, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return fmt.Errorf("page %d: parse array: %w", s.page+1, err)
	}

	s.page++
	s.buf = records
	s.idx = 0
	s.next = parseNextLink(header.Get("Link"))
	return nil
}

// parseNextLink extracts the rel="next" target from an RFC 5988 Link header:
//
//	<https://x/api/v1/courses/1/files?page=2>; rel="next",<...>; rel="first"
//
// Returns "" when there is no next page. Canvas percent-encodes query values,
// so splitting on commas is safe.
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segs[1:] {
			p := strings.TrimSpace(param)
			if p == `rel="next"` || p == "rel=next" {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
