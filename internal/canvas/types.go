package canvas

import "canvas-mirror/internal/domain"

/* -------- Wire shapes -------- */

// Only the fields the mirror actually uses; the API sends many more.

type fileRecord struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	ContentType string `json:"content-type"` // hyphenated in the API, not a typo
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	UpdatedAt   string `json:"updated_at"`
}

func (r fileRecord) toDomain() domain.FileResource {
	name := r.DisplayName
	if name == "" {
		name = r.Filename
	}
	return domain.FileResource{
		ID:          r.ID,
		DisplayName: name,
		DownloadURL: r.URL,
		Size:        r.Size,
		ContentType: r.ContentType,
		UpdatedAt:   r.UpdatedAt,
	}
}

type pageRecord struct {
	PageID    int64  `json:"page_id"`
	URL       string `json:"url"` // the slug
	Title     string `json:"title"`
	Body      string `json:"body"` // present on single-page fetches only
	Published bool   `json:"published"`
	FrontPage bool   `json:"front_page"`
}

func (r pageRecord) toDomain() domain.PageResource {
	title := r.Title
	if title == "" {
		title = r.URL
	}
	return domain.PageResource{
		ID:    r.PageID,
		Slug:  r.URL,
		Title: title,
		Body:  r.Body,
	}
}

type moduleRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type moduleItemRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Position    int    `json:"position"`
	Type        string `json:"type"`
	ContentID   int64  `json:"content_id"`
	PageURL     string `json:"page_url"`
	ExternalURL string `json:"external_url"`
}

func (r moduleItemRecord) toDomain() domain.ModuleItem {
	return domain.ModuleItem{
		ID:          r.ID,
		Title:       r.Title,
		Type:        r.Type,
		Position:    r.Position,
		ContentID:   r.ContentID,
		PageSlug:    r.PageURL,
		ExternalURL: r.ExternalURL,
	}
}

type assignmentRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
}

func (r assignmentRecord) toDomain() domain.Assignment {
	return domain.Assignment{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		HTMLURL:     r.HTMLURL,
	}
}
