package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"canvas-mirror/internal/httpx"
)

func TestParseNextLink(t *testing.T) {
	testCases := []struct {
		name     string
		header   string
		expected string
	}{
		{
			"canvas style with next",
			`<https://canvas.test/api/v1/courses/1/files?page=2&per_page=10>; rel="next",<https://canvas.test/api/v1/courses/1/files?page=1&per_page=10>; rel="first",<https://canvas.test/api/v1/courses/1/files?page=3&per_page=10>; rel="last"`,
			"https://canvas.test/api/v1/courses/1/files?page=2&per_page=10",
		},
		{
			"last page without next",
			`<https://canvas.test/api/v1/courses/1/files?page=1>; rel="first",<https://canvas.test/api/v1/courses/1/files?page=3>; rel="current"`,
			"",
		},
		{
			"unquoted rel",
			`<https://canvas.test/api/v1/courses/1/pages?page=5>; rel=next`,
			"https://canvas.test/api/v1/courses/1/pages?page=5",
		},
		{"empty header", "", ""},
		{"garbage", "not a link header", ""},
		{"missing angle brackets", `https://canvas.test/x; rel="next"`, ""},
	}

	for _, tc := range testCases {
		if got := parseNextLink(tc.header); got != tc.expected {
			t.Errorf("%s: parseNextLink = %q, want %q", tc.name, got, tc.expected)
		}
	}
}

// newPagedServer serves pages of 10 sequential ids under /api/v1/courses/1/files
// and records the raw query of every request it saw.
func newPagedServer(t *testing.T, totalPages int) (*httptest.Server, *[]string) {
	t.Helper()

	var queries []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/courses/1/files" {
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		queries = append(queries, r.URL.RawQuery)

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}

		records := make([]map[string]any, 0, 10)
		for i := 1; i <= 10; i++ {
			records = append(records, map[string]any{"id": (page-1)*10 + i})
		}

		if page < totalPages {
			w.Header().Set("Link", fmt.Sprintf(
				`<http://%s/api/v1/courses/1/files?page=%d&per_page=10>; rel="next",<http://%s/api/v1/courses/1/files?page=1&per_page=10>; rel="first"`,
				r.Host, page+1, r.Host))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestRecordsWalksAllPagesInOrder(t *testing.T) {
	srv, queries := newPagedServer(t, 3)

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()

	q := url.Values{}
	q.Set("per_page", "10")
	seq := c.Records("courses/1/files", q)

	var ids []int
	for seq.Next(context.Background()) {
		var rec struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(seq.Record(), &rec); err != nil {
			t.Fatalf("Unmarshal record: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	if err := seq.Err(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(ids) != 30 {
		t.Fatalf("Expected 30 records, got %d", len(ids))
	}
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("Expected record %d to have id %d, got %d", i, i+1, id)
		}
	}

	if seq.Page() != 3 {
		t.Errorf("Expected 3 pages fetched, got %d", seq.Page())
	}

	// First request carries the caller's params, later ones follow the Link
	// header verbatim.
	if len(*queries) != 3 {
		t.Fatalf("Expected 3 requests, got %d", len(*queries))
	}
	if (*queries)[0] != "per_page=10" {
		t.Errorf("Expected first query 'per_page=10', got %q", (*queries)[0])
	}
	if (*queries)[1] != "page=2&per_page=10" {
		t.Errorf("Expected second query from Link header, got %q", (*queries)[1])
	}
}

func TestRecordsEmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()

	seq := c.Records("courses/1/files", nil)
	if seq.Next(context.Background()) {
		t.Error("Expected Next to be false for empty collection")
	}
	if err := seq.Err(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestRecordsStopsOnPageFailure(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/api/v1/courses/1/files?page=2>; rel="next"`, r.Host))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id": 1}, {"id": 2}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()
	c.Retry = httpx.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Retry5xx: true}

	seq := c.Records("courses/1/files", nil)

	var yielded int
	for seq.Next(context.Background()) {
		yielded++
	}

	if yielded != 2 {
		t.Errorf("Expected 2 records before the failure, got %d", yielded)
	}
	if seq.Err() == nil {
		t.Error("Expected error from failed page, got nil")
	}
	if StatusOf(seq.Err()) != 500 {
		t.Errorf("Expected status 500 behind error, got %d", StatusOf(seq.Err()))
	}
	// First page once, second page twice (one retry)
	if requests != 3 {
		t.Errorf("Expected 3 requests, got %d", requests)
	}
}
