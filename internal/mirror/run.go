// Package mirror drives one full download pass over a single course: files,
// pages, modules, assignments and the front page, strictly in that order, one
// resource at a time. Per-resource failures are counted and logged but never
// stop the run; only rejected credentials or a listing failure before anything
// has listed successfully abort it.
package mirror

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"canvas-mirror/internal/canvas"
	"canvas-mirror/internal/config"
	"canvas-mirror/internal/domain"
	"canvas-mirror/internal/download"
	"canvas-mirror/internal/render"
	"canvas-mirror/internal/report"
	"canvas-mirror/internal/sftpclient"
)

// Summary is what one run leaves behind besides the artifact tree.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Errors    []domain.ResourceError
}

// Runner holds the wired pipeline plus the state of one pass. A Runner is
// single-use: create a fresh one per run.
type Runner struct {
	Client   *canvas.Client
	Fetcher  *download.Fetcher
	Renderer *render.Renderer
	Log      zerolog.Logger

	CourseID string
	Root     string

	// nil disables the upload step
	SFTP *sftpclient.Config

	runID     string
	listingOK bool
	succeeded int
	failed    int
	errs      []domain.ResourceError
	artifacts []report.Artifact
}

// NewRunner wires the full pipeline from config. log is shared by every stage.
func NewRunner(cfg config.Config, log zerolog.Logger) *Runner {
	client := canvas.New(cfg.BaseURL, cfg.AccessToken)
	client.PerPage = cfg.PerPage
	client.Retry.MaxAttempts = cfg.MaxAttempts
	client.HTTP.Timeout = cfg.HTTPTimeout()
	client.Log = log

	fetcher := download.New(cfg.AccessToken)
	fetcher.MaxAttempts = cfg.MaxAttempts
	fetcher.Log = log

	r := &Runner{
		Client:   client,
		Fetcher:  fetcher,
		Renderer: render.New(cfg.BaseURL),
		Log:      log,
		CourseID: cfg.CourseID,
		Root:     cfg.DownloadDir,
		runID:    uuid.NewString(),
	}
	if cfg.SFTPEnabled() {
		r.SFTP = &sftpclient.Config{
			Host:                  cfg.SFTPHost,
			Port:                  cfg.SFTPPort,
			User:                  cfg.SFTPUser,
			Pass:                  cfg.SFTPPass,
			RemoteDir:             cfg.SFTPDir,
			InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		}
	}
	return r
}

// Run executes the whole pass. The returned Summary is valid even when err is
// non-nil; it covers whatever completed before the abort.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if err := os.MkdirAll(r.Root, 0o755); err != nil {
		return r.summary(), fmt.Errorf("mirror: create download dir: %w", err)
	}

	start := time.Now()
	r.Log.Info().
		Str("course", r.CourseID).
		Str("dir", r.Root).
		Str("run_id", r.runID).
		Msg("mirror run starting")

	steps := []func(context.Context) error{
		r.files,
		r.pages,
		r.modules,
		r.assignments,
		r.frontPage,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return r.summary(), err
		}
	}

	r.writeManifest()
	if r.SFTP != nil {
		r.uploadMirror(ctx)
	}

	// Resumen final
	sum := r.summary()
	r.Log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("mirror run finished")
	return sum, nil
}

/* -------- Files -------- */

func (r *Runner) files(ctx context.Context) error {
	r.Log.Info().Msg("listing course files")
	files, err := r.Client.ListFiles(ctx, r.CourseID)
	if err == nil || len(files) > 0 {
		r.listingOK = true
	}
	if err != nil {
		if ferr := r.listingFailed("files", err); ferr != nil {
			return ferr
		}
	}
	if len(files) == 0 {
		r.Log.Info().Msg("no files found")
		return nil
	}

	dir := filepath.Join(r.Root, "all_files")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.fail("files", "all_files", "", domain.KindIO, err)
		return nil
	}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mirror: canceled: %w", err)
		}
		r.Log.Info().Int("index", i+1).Int("total", len(files)).Str("file", f.DisplayName).Msg("processing file")
		if err := r.fileArtifact(ctx, f.ID, dir, "file"); err != nil {
			return err
		}
	}
	return nil
}

// fileArtifact re-fetches the file record for a fresh download URL, then
// streams it into destDir. Listing URLs carry verifier tokens that may have
// expired by the time the download turn comes.
func (r *Runner) fileArtifact(ctx context.Context, fileID int64, destDir, typ string) error {
	id := strconv.FormatInt(fileID, 10)

	info, err := r.Client.FileInfo(ctx, fileID)
	if err != nil {
		if canvas.StatusOf(err) == http.StatusUnauthorized {
			return fmt.Errorf("mirror: file %s info: %w", id, err)
		}
		r.fail(typ, id, "", canvas.Classify(err), err)
		return nil
	}

	name := download.SanitizeName(info.DisplayName, "file_"+id)
	dest := filepath.Join(destDir, name)
	n, kind, err := r.Fetcher.Fetch(ctx, info.DownloadURL, dest, info.Size)
	if err != nil {
		r.fail(typ, id, name, kind, err)
		return nil
	}
	r.ok(report.OK(typ, id, name, r.rel(dest), n))
	return nil
}

/* -------- Pages -------- */

func (r *Runner) pages(ctx context.Context) error {
	r.Log.Info().Msg("listing course pages")
	stubs, err := r.Client.ListPages(ctx, r.CourseID)
	if err == nil || len(stubs) > 0 {
		r.listingOK = true
	}
	if err != nil {
		if ferr := r.listingFailed("pages", err); ferr != nil {
			return ferr
		}
	}
	if len(stubs) == 0 {
		r.Log.Info().Msg("no pages found or pages disabled")
		return nil
	}

	dir := filepath.Join(r.Root, "all_pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.fail("pages", "all_pages", "", domain.KindIO, err)
		return nil
	}
	for _, stub := range stubs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mirror: canceled: %w", err)
		}
		if err := r.pageArtifact(ctx, stub, dir); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) pageArtifact(ctx context.Context, stub domain.PageResource, destDir string) error {
	page, err := r.Client.GetPage(ctx, r.CourseID, stub.Slug)
	if err != nil {
		switch canvas.StatusOf(err) {
		case http.StatusUnauthorized:
			return fmt.Errorf("mirror: page %s: %w", stub.Slug, err)
		case http.StatusNotFound:
			r.Log.Warn().Str("slug", stub.Slug).Msg("page missing or disabled, skipping")
			return nil
		}
		r.fail("page", stub.Slug, stub.Title, canvas.Classify(err), err)
		return nil
	}

	doc, rerr := r.Renderer.Render(page.Title, page.Body)
	if rerr != nil {
		r.Log.Warn().Err(rerr).Str("slug", page.Slug).Msg("body failed to parse, keeping raw")
	}

	name := download.SanitizeName(page.Title, page.Slug)
	dest := filepath.Join(destDir, name+".html")
	r.Log.Info().Str("page", name+".html").Msg("saving page")
	if err := os.WriteFile(dest, []byte(doc), 0o644); err != nil {
		r.fail("page", page.Slug, page.Title, domain.KindIO, err)
		return nil
	}
	r.ok(report.OK("page", page.Slug, page.Title, r.rel(dest), int64(len(doc))))

	// attachments the body links through /files/{id} land next to the page
	return r.embedded(ctx, page.Body, destDir)
}

// embedded downloads every file the fragment references via /files/{id} links.
func (r *Runner) embedded(ctx context.Context, fragment, destDir string) error {
	for _, id := range render.FileLinks(fragment) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mirror: canceled: %w", err)
		}
		if err := r.fileArtifact(ctx, id, destDir, "embedded_file"); err != nil {
			return err
		}
	}
	return nil
}

/* -------- Modules -------- */

func (r *Runner) modules(ctx context.Context) error {
	r.Log.Info().Msg("listing modules")
	mods, err := r.Client.ListModules(ctx, r.CourseID)
	if err == nil || len(mods) > 0 {
		r.listingOK = true
	}
	if err != nil {
		if ferr := r.listingFailed("modules", err); ferr != nil {
			return ferr
		}
	}
	if len(mods) == 0 {
		r.Log.Info().Msg("no modules found")
		return nil
	}

	for _, m := range mods {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mirror: canceled: %w", err)
		}
		if err := r.moduleArtifacts(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// moduleArtifacts processes one module: its own directory, every item
// dispatched by type, and a combined HTML document when any page content
// accumulated.
func (r *Runner) moduleArtifacts(ctx context.Context, mod domain.Module) error {
	id := strconv.FormatInt(mod.ID, 10)
	dirName := download.SanitizeName(fmt.Sprintf("%d_%s", mod.ID, mod.Name), "module_"+id)
	moduleDir := filepath.Join(r.Root, dirName)
	if err := os.MkdirAll(moduleDir, 0o755); err != nil {
		r.fail("module", id, mod.Name, domain.KindIO, err)
		return nil
	}
	r.Log.Info().Int64("module", mod.ID).Str("name", mod.Name).Msg("processing module")

	items, err := r.Client.ListModuleItems(ctx, r.CourseID, mod.ID)
	if err != nil {
		if canvas.StatusOf(err) == http.StatusUnauthorized {
			return fmt.Errorf("mirror: module %s items: %w", id, err)
		}
		r.fail("module", id, mod.Name, canvas.Classify(err), err)
		if len(items) == 0 {
			return nil
		}
		// partial item list; keep what came through
	}

	var sections []render.Section
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mirror: canceled: %w", err)
		}

		switch item.Type {
		case "File":
			if err := r.fileArtifact(ctx, item.ContentID, moduleDir, "module_file"); err != nil {
				return err
			}
		case "Page":
			sec, err := r.modulePage(ctx, item, moduleDir)
			if err != nil {
				return err
			}
			if sec != nil {
				sections = append(sections, *sec)
			}
		case "ExternalUrl":
			r.Log.Info().Str("title", item.Title).Str("url", item.ExternalURL).Msg("external link item")
			sections = append(sections, render.Section{Title: item.Title, HTML: render.ExternalLinkSection(item.ExternalURL)})
		case "ExternalTool":
			r.Log.Info().Str("title", item.Title).Msg("external tool item")
			sections = append(sections, render.Section{Title: item.Title, HTML: render.ExternalToolSection()})
		default:
			r.Log.Debug().Str("type", item.Type).Str("title", item.Title).Msg("unhandled module item type")
		}
	}

	if len(sections) == 0 {
		return nil
	}
	combined := r.Renderer.Combined(sections)
	dest := filepath.Join(moduleDir, dirName+"_combined_pages.html")
	if err := os.WriteFile(dest, []byte(combined), 0o644); err != nil {
		r.fail("module", id, mod.Name, domain.KindIO, err)
		return nil
	}
	r.ok(report.OK("module", id, mod.Name, r.rel(dest), int64(len(combined))))
	return nil
}

// modulePage turns a Page item into a section of the module's combined
// document and downloads the attachments its body references. Pages that
// answer 404 are skipped without failing the module.
func (r *Runner) modulePage(ctx context.Context, item domain.ModuleItem, moduleDir string) (*render.Section, error) {
	page, err := r.Client.GetPage(ctx, r.CourseID, item.PageSlug)
	if err != nil {
		switch canvas.StatusOf(err) {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("mirror: page %s: %w", item.PageSlug, err)
		case http.StatusNotFound:
			r.Log.Warn().Str("slug", item.PageSlug).Str("title", item.Title).Msg("page disabled or not accessible, skipping")
			return nil, nil
		}
		r.fail("module_page", item.PageSlug, item.Title, canvas.Classify(err), err)
		return nil, nil
	}

	cleaned, cerr := r.Renderer.CleanFragment(page.Body)
	if cerr != nil {
		r.Log.Warn().Err(cerr).Str("slug", page.Slug).Msg("body failed to parse, keeping raw")
		cleaned = "<pre>" + html.EscapeString(page.Body) + "</pre>"
	}

	if err := r.embedded(ctx, page.Body, moduleDir); err != nil {
		return nil, err
	}

	title := page.Title
	if title == "" {
		title = item.Title
	}
	return &render.Section{Title: title, HTML: cleaned}, nil
}

/* -------- Assignments -------- */

func (r *Runner) assignments(ctx context.Context) error {
	r.Log.Info().Msg("listing assignments")
	list, err := r.Client.ListAssignments(ctx, r.CourseID)
	if err == nil || len(list) > 0 {
		r.listingOK = true
	}
	if err != nil {
		if ferr := r.listingFailed("assignments", err); ferr != nil {
			return ferr
		}
	}
	if len(list) == 0 {
		r.Log.Info().Msg("no assignments found")
		return nil
	}

	dir := filepath.Join(r.Root, "assignments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.fail("assignments", "assignments", "", domain.KindIO, err)
		return nil
	}
	for _, a := range list {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mirror: canceled: %w", err)
		}
		id := strconv.FormatInt(a.ID, 10)
		doc, rerr := r.Renderer.Render(a.Name, a.Description)
		if rerr != nil {
			r.Log.Warn().Err(rerr).Str("assignment", a.Name).Msg("description failed to parse, keeping raw")
		}

		name := download.SanitizeName(a.Name, "assignment_"+id)
		dest := filepath.Join(dir, name+".html")
		r.Log.Info().Str("assignment", name).Msg("saving assignment")
		if err := os.WriteFile(dest, []byte(doc), 0o644); err != nil {
			r.fail("assignment", id, a.Name, domain.KindIO, err)
			continue
		}
		r.ok(report.OK("assignment", id, a.Name, r.rel(dest), int64(len(doc))))
	}
	return nil
}

/* -------- Front page -------- */

func (r *Runner) frontPage(ctx context.Context) error {
	page, err := r.Client.FrontPage(ctx, r.CourseID)
	if err != nil {
		switch canvas.StatusOf(err) {
		case http.StatusUnauthorized:
			return fmt.Errorf("mirror: front page: %w", err)
		case http.StatusNotFound:
			r.Log.Info().Msg("course has no front page")
			return nil
		}
		r.fail("front_page", r.CourseID, "", canvas.Classify(err), err)
		return nil
	}

	doc, rerr := r.Renderer.Render(page.Title, page.Body)
	if rerr != nil {
		r.Log.Warn().Err(rerr).Str("slug", page.Slug).Msg("body failed to parse, keeping raw")
	}

	title := download.SanitizeName(page.Title, "HomePage")
	dest := filepath.Join(r.Root, title+"_frontpage.html")
	r.Log.Info().Str("path", dest).Msg("saving front page")
	if err := os.WriteFile(dest, []byte(doc), 0o644); err != nil {
		r.fail("front_page", page.Slug, page.Title, domain.KindIO, err)
		return nil
	}
	r.ok(report.OK("front_page", page.Slug, page.Title, r.rel(dest), int64(len(doc))))
	return nil
}

/* -------- Manifest, upload, bookkeeping -------- */

func (r *Runner) writeManifest() {
	dest := filepath.Join(r.Root, "manifest.csv")
	f, err := os.Create(dest)
	if err != nil {
		r.fail("manifest", "manifest.csv", "", domain.KindIO, err)
		return
	}
	if err := report.WriteManifest(f, r.runID, r.artifacts); err != nil {
		f.Close()
		r.fail("manifest", "manifest.csv", "", domain.KindIO, err)
		return
	}
	if err := f.Close(); err != nil {
		r.fail("manifest", "manifest.csv", "", domain.KindIO, err)
		return
	}
	r.Log.Info().Str("path", dest).Int("rows", len(r.artifacts)).Msg("manifest written")
}

func (r *Runner) uploadMirror(ctx context.Context) {
	r.Log.Info().Str("host", r.SFTP.Host).Str("remote_dir", r.SFTP.RemoteDir).Msg("uploading mirror over sftp")
	if err := sftpclient.UploadDir(ctx, *r.SFTP, r.Root); err != nil {
		r.fail("sftp", r.SFTP.Host, "", domain.KindNetwork, err)
		return
	}
	r.Log.Info().Msg("sftp upload complete")
}

// listingFailed decides what a collection listing error means. 401 always
// aborts. Before anything has listed successfully a failure means the token
// or the course id is wrong, so the run aborts too. Afterwards 403 is a
// restricted area and 404 a disabled one; either way the section is skipped
// with whatever was accumulated.
func (r *Runner) listingFailed(section string, err error) error {
	if canvas.StatusOf(err) == http.StatusUnauthorized {
		return fmt.Errorf("mirror: list %s: %w", section, err)
	}
	if !r.listingOK {
		return fmt.Errorf("mirror: list %s: %w", section, err)
	}
	r.Log.Warn().Err(err).Str("section", section).Int("status", canvas.StatusOf(err)).Msg("section unavailable, skipping")
	return nil
}

func (r *Runner) ok(a report.Artifact) {
	r.succeeded++
	r.artifacts = append(r.artifacts, a)
}

func (r *Runner) fail(typ, id, title string, kind domain.ErrorKind, err error) {
	r.failed++
	r.errs = append(r.errs, domain.ResourceError{Resource: typ + " " + id, Kind: kind, Err: err})
	r.artifacts = append(r.artifacts, report.Failed(typ, id, title, kind))
	r.Log.Warn().Err(err).Str("type", typ).Str("id", id).Str("kind", string(kind)).Msg("resource failed")
}

// rel reports dest relative to the mirror root with forward slashes, the form
// stored in the manifest.
func (r *Runner) rel(dest string) string {
	rel, err := filepath.Rel(r.Root, dest)
	if err != nil {
		return filepath.ToSlash(dest)
	}
	return filepath.ToSlash(rel)
}

func (r *Runner) summary() Summary {
	return Summary{
		RunID:     r.runID,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Errors:    r.errs,
	}
}
