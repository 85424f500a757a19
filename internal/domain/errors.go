package domain

import "fmt"

// ErrorKind buckets failures by how the run driver must react to them.
type ErrorKind string

const (
	// KindAuth covers rejected or insufficient credentials. Always fatal.
	KindAuth ErrorKind = "auth"
	// KindNetwork covers connection failures and HTTP errors that survived
	// the retry budget.
	KindNetwork ErrorKind = "network"
	// KindRateLimit means the API kept answering 429 past the retry budget.
	KindRateLimit ErrorKind = "rate_limit"
	// KindIO covers local filesystem failures while writing artifacts.
	KindIO ErrorKind = "io"
	// KindParse covers malformed records and HTML the renderer could not parse.
	KindParse ErrorKind = "parse"
)

// Fatal reports whether an error of this kind aborts the whole run. Every
// other kind is recorded against its resource and the run moves on.
func (k ErrorKind) Fatal() bool { return k == KindAuth }

// ResourceError ties a failure to the resource that caused it so the summary
// and the manifest can report per-resource outcomes.
type ResourceError struct {
	Resource string // human-readable label, e.g. `file 123 "syllabus.pdf"`
	Kind     ErrorKind
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Resource, e.Kind, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
