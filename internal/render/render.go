package render

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// styleBlock is inlined into every generated document so artifacts read
// decently offline.
const styleBlock = `<style>
  body {
    font-family: Arial, sans-serif;
    margin: 20px;
    line-height: 1.6;
    background: #f9f9f9;
  }
  h2 {
    margin-top: 1.5rem;
    color: #003366;
  }
  hr {
    margin: 1.5rem 0;
    border: 0;
    height: 1px;
    background: #ccc;
  }
  a {
    color: #007c92;
    text-decoration: none;
  }
  a:hover {
    text-decoration: underline;
  }
  .embedded-video {
    margin: 1rem 0;
    background: #fff;
    padding: 10px;
    border: 1px solid #ccc;
  }
</style>`

// Renderer turns raw page bodies into standalone offline documents.
type Renderer struct {
	base *url.URL // resolves relative links; nil leaves them untouched
}

func New(baseURL string) *Renderer {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}
	return &Renderer{base: base}
}

// Render cleans a page body and wraps it in a standalone document with the
// page title as document title and heading. When the body cannot be parsed
// the raw text is preserved under <pre> and the parse error is returned
// along with that fallback document.
func (r *Renderer) Render(title, body string) (string, error) {
	cleaned, err := r.CleanFragment(body)
	if err != nil {
		fallback := "<pre>" + html.EscapeString(body) + "</pre>"
		return r.wrap(title, fallback), fmt.Errorf("render %q: %w", title, err)
	}
	return r.wrap(title, cleaned), nil
}

// CleanFragment strips scripts, inline styles, stylesheet links, meta tags
// and 1x1 tracking pixels from an HTML fragment, normalizes YouTube embeds
// and resolves relative links. The result comes back as a fragment again,
// without html/body wrappers.
func (r *Renderer) CleanFragment(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link[rel='stylesheet'], meta").Remove()
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if sel.AttrOr("width", "") == "1" && sel.AttrOr("height", "") == "1" {
			sel.Remove()
		}
	})

	fixYouTubeEmbeds(doc)
	r.resolveLinks(doc)

	return doc.Find("body").Html()
}

func fixYouTubeEmbeds(doc *goquery.Document) {
	doc.Find("iframe").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		if fixed := fixYouTubeSrc(src); fixed != src {
			sel.SetAttr("src", fixed)
		}
	})
}

// fixYouTubeSrc normalizes a YouTube embed src to the canonical
// https://www.youtube.com/embed/{id} form. Bodies pasted from old editors
// carry protocol-relative, path-only and nocookie variants.
func fixYouTubeSrc(src string) string {
	i := strings.Index(src, "embed/")
	if i < 0 {
		return src
	}
	rest := src[i+len("embed/"):]
	if rest == "" {
		return src
	}
	return "https://www.youtube.com/embed/" + rest
}

func (r *Renderer) resolveLinks(doc *goquery.Document) {
	if r.base == nil {
		return
	}

	resolve := func(sel *goquery.Selection, attr string) {
		val, ok := sel.Attr(attr)
		if !ok || val == "" || strings.HasPrefix(val, "#") {
			return
		}
		ref, err := url.Parse(val)
		if err != nil || ref.IsAbs() {
			return
		}
		sel.SetAttr(attr, r.base.ResolveReference(ref).String())
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) { resolve(s, "href") })
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) { resolve(s, "src") })
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) { resolve(s, "src") })
}

func (r *Renderer) wrap(title, content string) string {
	esc := html.EscapeString(title)

	var b strings.Builder
	b.WriteString("<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + esc + "</title>\n")
	b.WriteString(styleBlock)
	b.WriteString("\n</head>\n<body>\n")
	b.WriteString("<h1>" + esc + "</h1>\n")
	b.WriteString(content)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

// Section is one entry of a combined module document.
type Section struct {
	Title string
	HTML  string // already cleaned
}

// Combined builds the single-file module document: all sections in module
// order, separated by rules, under the shared style.
func (r *Renderer) Combined(sections []Section) string {
	var b strings.Builder
	b.WriteString("<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString(styleBlock)
	b.WriteString("\n</head>\n<body>\n")
	for _, s := range sections {
		b.WriteString("<h2>" + html.EscapeString(s.Title) + "</h2>\n")
		b.WriteString(s.HTML)
		b.WriteString("\n<hr>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// ExternalLinkSection is the offline stand-in for an ExternalUrl module item.
func ExternalLinkSection(rawURL string) string {
	esc := html.EscapeString(rawURL)
	return fmt.Sprintf(`<p>External link: <a href="%s">%s</a></p>`, esc, esc)
}

// ExternalToolSection is the stand-in for LTI items, which have no offline form.
func ExternalToolSection() string {
	return "<p>External Tool (LTI)</p>"
}

// FileLinks returns the ids of API file links referenced by anchors in the
// fragment, in document order without duplicates. Attachments are embedded
// as /courses/{course}/files/{id}/download style hrefs.
func FileLinks(fragment string) []int64 {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	seen := map[int64]bool{}
	var ids []int64
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		id := fileIDFromHref(href)
		if id > 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	})
	return ids
}

// fileIDFromHref pulls 67890 out of '/courses/12345/files/67890/download'.
// Returns 0 when href does not reference a file.
func fileIDFromHref(href string) int64 {
	_, after, found := strings.Cut(href, "/files/")
	if !found {
		return 0
	}
	if i := strings.IndexAny(after, "/?"); i >= 0 {
		after = after[:i]
	}
	id, err := strconv.ParseInt(after, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
