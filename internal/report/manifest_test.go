package report

import (
	"bytes"
	"strings"
	"testing"

	"canvas-mirror/internal/domain"
)

func TestWriteManifest(t *testing.T) {
	artifacts := []Artifact{
		OK("file", "55", "syllabus.pdf", "all_files/syllabus.pdf", 2048),
		Failed("page", "intro", "Intro, part 1", domain.KindNetwork),
	}

	var buf bytes.Buffer
	if err := WriteManifest(&buf, "run-123", artifacts); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "\r\n") {
		t.Error("Expected CRLF line endings")
	}

	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}

	expectedHeader := "RUN_ID,RESOURCE_TYPE,RESOURCE_ID,TITLE,PATH,BYTES,STATUS,ERROR_KIND"
	if lines[0] != expectedHeader {
		t.Errorf("Expected header %q, got %q", expectedHeader, lines[0])
	}

	if lines[1] != "run-123,file,55,syllabus.pdf,all_files/syllabus.pdf,2048,ok," {
		t.Errorf("Unexpected ok row: %q", lines[1])
	}

	// titles with commas get quoted by the csv writer
	if !strings.Contains(lines[2], `"Intro, part 1"`) {
		t.Errorf("Expected quoted title, got %q", lines[2])
	}
	if !strings.HasSuffix(lines[2], ",0,failed,network") {
		t.Errorf("Expected failed status and kind, got %q", lines[2])
	}
}

func TestWriteManifestEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteManifest(&buf, "run-123", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := strings.Count(buf.String(), "\r\n"); got != 1 {
		t.Errorf("Expected only the header line, got %d", got)
	}
}
