package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"canvas-mirror/internal/devutil"
	"canvas-mirror/internal/domain"
)

// Listers walk whole collections eagerly and map wire records into domain
// values. Malformed records are skipped with a warning; a page-level failure
// returns whatever was accumulated so far alongside the error.

func (c *Client) ListFiles(ctx context.Context, courseID string) ([]domain.FileResource, error) {
	seq := c.Records(fmt.Sprintf("courses/%s/files", courseID), c.pageQuery())

	var out []domain.FileResource
	for seq.Next(ctx) {
		var rec fileRecord
		if err := json.Unmarshal(seq.Record(), &rec); err != nil {
			c.Log.Warn().Err(err).Msg("skipping unreadable file record")
			continue
		}
		if rec.ID == 0 || rec.URL == "" {
			c.Log.Warn().
				Interface("record", devutil.Pick(rec, "id", "display_name")).
				Msg("skipping file record without id or download url")
			continue
		}
		out = append(out, rec.toDomain())
	}
	if err := seq.Err(); err != nil {
		// devolvemos lo que juntamos, para no perder todo el run
		return out, fmt.Errorf("canvas: list files: %w", err)
	}
	return out, nil
}

// ListPages returns page stubs in listing order; Body stays empty until
// GetPage fetches the full page by slug.
func (c *Client) ListPages(ctx context.Context, courseID string) ([]domain.PageResource, error) {
	seq := c.Records(fmt.Sprintf("courses/%s/pages", courseID), c.pageQuery())

	var out []domain.PageResource
	for seq.Next(ctx) {
		var rec pageRecord
		if err := json.Unmarshal(seq.Record(), &rec); err != nil {
			c.Log.Warn().Err(err).Msg("skipping unreadable page record")
			continue
		}
		if rec.URL == "" {
			c.Log.Warn().
				Interface("record", devutil.Pick(rec, "page_id", "title")).
				Msg("skipping page record without slug")
			continue
		}
		out = append(out, rec.toDomain())
	}
	if err := seq.Err(); err != nil {
		return out, fmt.Errorf("canvas: list pages: %w", err)
	}
	return out, nil
}

// GetPage fetches one page with its body.
func (c *Client) GetPage(ctx context.Context, courseID, slug string) (domain.PageResource, error) {
	var rec pageRecord
	path := fmt.Sprintf("courses/%s/pages/%s", courseID, url.PathEscape(slug))
	if err := c.GetJSON(ctx, path, nil, &rec); err != nil {
		return domain.PageResource{}, err
	}
	return rec.toDomain(), nil
}

// FrontPage fetches the course front page. Courses without one answer 404.
func (c *Client) FrontPage(ctx context.Context, courseID string) (domain.PageResource, error) {
	var rec pageRecord
	if err := c.GetJSON(ctx, fmt.Sprintf("courses/%s/front_page", courseID), nil, &rec); err != nil {
		return domain.PageResource{}, err
	}
	return rec.toDomain(), nil
}

func (c *Client) ListModules(ctx context.Context, courseID string) ([]domain.Module, error) {
	seq := c.Records(fmt.Sprintf("courses/%s/modules", courseID), c.pageQuery())

	var out []domain.Module
	for seq.Next(ctx) {
		var rec moduleRecord
		if err := json.Unmarshal(seq.Record(), &rec); err != nil {
			c.Log.Warn().Err(err).Msg("skipping unreadable module record")
			continue
		}
		if rec.ID == 0 {
			c.Log.Warn().
				Interface("record", devutil.Pick(rec, "name", "position")).
				Msg("skipping module record without id")
			continue
		}
		out = append(out, domain.Module{ID: rec.ID, Name: rec.Name, Position: rec.Position})
	}
	if err := seq.Err(); err != nil {
		return out, fmt.Errorf("canvas: list modules: %w", err)
	}
	return out, nil
}

func (c *Client) ListModuleItems(ctx context.Context, courseID string, moduleID int64) ([]domain.ModuleItem, error) {
	path := fmt.Sprintf("courses/%s/modules/%d/items", courseID, moduleID)
	seq := c.Records(path, c.pageQuery())

	var out []domain.ModuleItem
	for seq.Next(ctx) {
		var rec moduleItemRecord
		if err := json.Unmarshal(seq.Record(), &rec); err != nil {
			c.Log.Warn().Err(err).Int64("module_id", moduleID).Msg("skipping unreadable module item")
			continue
		}
		out = append(out, rec.toDomain())
	}
	if err := seq.Err(); err != nil {
		return out, fmt.Errorf("canvas: list module %d items: %w", moduleID, err)
	}
	return out, nil
}

func (c *Client) ListAssignments(ctx context.Context, courseID string) ([]domain.Assignment, error) {
	seq := c.Records(fmt.Sprintf("courses/%s/assignments", courseID), c.pageQuery())

	var out []domain.Assignment
	for seq.Next(ctx) {
		var rec assignmentRecord
		if err := json.Unmarshal(seq.Record(), &rec); err != nil {
			c.Log.Warn().Err(err).Msg("skipping unreadable assignment record")
			continue
		}
		if rec.ID == 0 {
			c.Log.Warn().
				Interface("record", devutil.Pick(rec, "name")).
				Msg("skipping assignment record without id")
			continue
		}
		out = append(out, rec.toDomain())
	}
	if err := seq.Err(); err != nil {
		return out, fmt.Errorf("canvas: list assignments: %w", err)
	}
	return out, nil
}

// FileInfo fetches one file's metadata; module items only carry the id.
func (c *Client) FileInfo(ctx context.Context, fileID int64) (domain.FileResource, error) {
	var rec fileRecord
	if err := c.GetJSON(ctx, fmt.Sprintf("files/%d", fileID), nil, &rec); err != nil {
		return domain.FileResource{}, err
	}
	return rec.toDomain(), nil
}

func (c *Client) pageQuery() url.Values {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage()))
	return q
}
