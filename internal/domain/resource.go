package domain

// FileResource is the canonical representation of a course file attachment.
// The Canvas client maps wire records into this model, and everything
// downstream (downloader, manifest, run driver) works from it.
type FileResource struct {
	ID          int64
	DisplayName string // name as shown in the course, basis for the artifact filename
	DownloadURL string // pre-authorized URL, may carry a verifier query param
	Size        int64  // bytes as reported by the API, 0 when unknown
	ContentType string
	UpdatedAt   string // ISO string if available
}

// PageResource is a wiki page. Listing endpoints return stubs without Body;
// the client fills Body through a second fetch keyed by Slug.
type PageResource struct {
	ID    int64
	Slug  string // URL-safe identifier, e.g. "course-syllabus"
	Title string
	Body  string // raw HTML as served by the API
}

// Module groups resources in the order instructors arranged them.
type Module struct {
	ID       int64
	Name     string
	Position int
	Items    []ModuleItem
}

// ModuleItem points at one resource inside a module. Which reference field is
// populated depends on Type.
type ModuleItem struct {
	ID          int64
	Title       string
	Type        string // "File", "Page", "Assignment", "ExternalUrl", "SubHeader", ...
	Position    int
	ContentID   int64  // set when Type is File or Assignment
	PageSlug    string // set when Type is Page
	ExternalURL string // set when Type is ExternalUrl
}

// Assignment is a course assignment with its HTML description.
type Assignment struct {
	ID          int64
	Name        string
	Description string
	HTMLURL     string
}
