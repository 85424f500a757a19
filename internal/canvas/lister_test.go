package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"canvas-mirror/internal/httpx"
)

func TestListFilesMapsAndSkipsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/courses/7/files" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 1, "display_name": "syllabus.pdf", "url": "https://files.test/1", "size": 2048, "content-type": "application/pdf", "updated_at": "2024-01-02T03:04:05Z"},
			{"id": 2, "display_name": "no-url.txt"},
			{"id": "not-a-number", "display_name": "bad-id"},
			{"id": 3, "display_name": "", "filename": "fallback.docx", "url": "https://files.test/3"}
		]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()

	files, err := c.ListFiles(context.Background(), "7")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("Expected 2 files after skipping malformed records, got %d", len(files))
	}

	first := files[0]
	if first.ID != 1 || first.DisplayName != "syllabus.pdf" {
		t.Errorf("Expected file {1 syllabus.pdf}, got %+v", first)
	}
	if first.DownloadURL != "https://files.test/1" {
		t.Errorf("Expected DownloadURL 'https://files.test/1', got %q", first.DownloadURL)
	}
	if first.Size != 2048 || first.ContentType != "application/pdf" {
		t.Errorf("Expected size/content-type mapped, got %+v", first)
	}

	// display_name falls back to filename
	if files[1].DisplayName != "fallback.docx" {
		t.Errorf("Expected DisplayName 'fallback.docx', got %q", files[1].DisplayName)
	}
}

func TestListPagesSkipsWithoutSlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"page_id": 10, "url": "intro", "title": "Introduction"},
			{"page_id": 11, "title": "No slug here"},
			{"page_id": 12, "url": "syllabus", "title": ""}
		]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()

	pages, err := c.ListPages(context.Background(), "7")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(pages))
	}
	if pages[0].Slug != "intro" || pages[0].Title != "Introduction" {
		t.Errorf("Expected {intro Introduction}, got %+v", pages[0])
	}
	if pages[0].Body != "" {
		t.Errorf("Expected stub without body, got %q", pages[0].Body)
	}
	// empty title falls back to the slug
	if pages[1].Title != "syllabus" {
		t.Errorf("Expected title fallback to slug, got %q", pages[1].Title)
	}
}

func TestGetPageFetchesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/courses/7/pages/course-intro" {
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"page_id": 10, "url": "course-intro", "title": "Intro", "body": "<p>hello</p>"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()

	page, err := c.GetPage(context.Background(), "7", "course-intro")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if page.Body != "<p>hello</p>" {
		t.Errorf("Expected body to be fetched, got %q", page.Body)
	}
	if page.ID != 10 || page.Slug != "course-intro" {
		t.Errorf("Expected {10 course-intro}, got %+v", page)
	}
}

func TestListModuleItemsAndFileInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/courses/7/modules/3/items":
			fmt.Fprint(w, `[
				{"id": 100, "title": "Week 1 slides", "position": 1, "type": "File", "content_id": 55},
				{"id": 101, "title": "Week 1 reading", "position": 2, "type": "Page", "page_url": "week-1-reading"},
				{"id": 102, "title": "External", "position": 3, "type": "ExternalUrl", "external_url": "https://example.org"}
			]`)
		case "/api/v1/files/55":
			fmt.Fprint(w, `{"id": 55, "display_name": "slides.pptx", "url": "https://files.test/55", "size": 9000}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()

	items, err := c.ListModuleItems(context.Background(), "7", 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].Type != "File" || items[0].ContentID != 55 {
		t.Errorf("Expected file item with content_id 55, got %+v", items[0])
	}
	if items[1].PageSlug != "week-1-reading" {
		t.Errorf("Expected page slug mapped, got %+v", items[1])
	}

	info, err := c.FileInfo(context.Background(), 55)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if info.DisplayName != "slides.pptx" || info.DownloadURL != "https://files.test/55" {
		t.Errorf("Expected file info mapped, got %+v", info)
	}
}

func TestListFilesReturnsPartialOnPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, `{"error": "boom"}`, http.StatusBadGateway)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/api/v1/courses/7/files?page=2>; rel="next"`, r.Host))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id": 1, "display_name": "a.txt", "url": "https://files.test/1"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	c.HTTP = srv.Client()
	c.Retry = httpx.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Retry5xx: true}

	files, err := c.ListFiles(context.Background(), "7")
	if err == nil {
		t.Fatal("Expected error from failed page, got nil")
	}
	if len(files) != 1 {
		t.Errorf("Expected the records gathered before the failure, got %d", len(files))
	}
}
