package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"canvas-mirror/internal/domain"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Artifact is one manifest row: a resource the run processed and where its
// local copy ended up.
type Artifact struct {
	ResourceType string // "file", "page", "module", "assignment", "front_page"
	ResourceID   string
	Title        string
	Path         string // relative to the download dir, empty when nothing was written
	Bytes        int64
	Status       string
	ErrorKind    string // empty when Status is ok
}

// OK builds the row for a resource whose artifact landed on disk.
func OK(resourceType, id, title, path string, bytes int64) Artifact {
	return Artifact{
		ResourceType: resourceType,
		ResourceID:   id,
		Title:        title,
		Path:         path,
		Bytes:        bytes,
		Status:       StatusOK,
	}
}

// Failed builds the row for a resource the run had to give up on.
func Failed(resourceType, id, title string, kind domain.ErrorKind) Artifact {
	return Artifact{
		ResourceType: resourceType,
		ResourceID:   id,
		Title:        title,
		Status:       StatusFailed,
		ErrorKind:    string(kind),
	}
}

// Keep header order EXACT, downstream ingestion matches by position.
var manifestHeader = []string{
	"RUN_ID",
	"RESOURCE_TYPE",
	"RESOURCE_ID",
	"TITLE",
	"PATH",
	"BYTES",
	"STATUS",
	"ERROR_KIND",
}

// WriteManifest writes one row per processed resource.
func WriteManifest(w io.Writer, runID string, artifacts []Artifact) error {
	cw := csv.NewWriter(w)
	// match typical spreadsheet expectations
	cw.UseCRLF = true

	if err := cw.Write(manifestHeader); err != nil {
		return err
	}

	for _, a := range artifacts {
		row := []string{
			runID,
			a.ResourceType,
			a.ResourceID,
			a.Title,
			a.Path,
			strconv.FormatInt(a.Bytes, 10),
			a.Status,
			a.ErrorKind,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
