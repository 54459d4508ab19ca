// internal/sink/markdown.go
package sink

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// maxFilenameLength bounds archive file names, in bytes
const maxFilenameLength = 200

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// MarkdownArchive writes one Markdown document per record that carries raw
// detail markup. Records are append-only, so each snapshot converts only the
// positions past the last one written.
type MarkdownArchive struct {
	dir string

	mu      sync.Mutex
	written int
}

// NewMarkdownArchive creates the archive directory
func NewMarkdownArchive(dir string) (*MarkdownArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &MarkdownArchive{dir: dir}, nil
}

// Path returns the document path used for r
func (a *MarkdownArchive) Path(r models.CaseRecord) string {
	name := r.CaseNumber
	if name == "" {
		name = r.RowID
	}
	return filepath.Join(a.dir, SanitizeFilename(name)+".md")
}

// Snapshot converts and writes the records not yet archived. A shorter
// record set than last time starts the archive over.
func (a *MarkdownArchive) Snapshot(ctx context.Context, records []models.CaseRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.written > len(records) {
		a.written = 0
	}
	converted := 0
	for i := a.written; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := records[i]
		if r.RawHTML != "" {
			doc, err := RenderMarkdown(r)
			if err != nil {
				return fmt.Errorf("failed to convert %s: %w", r.CaseNumber, err)
			}
			if err := writeAtomic(a.Path(r), []byte(doc)); err != nil {
				return fmt.Errorf("failed to write %s: %w", r.CaseNumber, err)
			}
			converted++
		}
		a.written = i + 1
	}
	log.Debug().Int("documents", converted).Int("archived", a.written).Str("dir", a.dir).Msg("Markdown archive written")
	return nil
}

// RenderMarkdown converts the record's detail markup, headed by its listing fields
func RenderMarkdown(r models.CaseRecord) (string, error) {
	cleaned, err := CleanHTML(r.RawHTML)
	if err != nil {
		return "", err
	}

	converter := md.NewConverter(siteRoot(r.DetailURL), true, nil)
	converter.Use(plugin.GitHubFlavored())
	body, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", firstNonEmpty(r.Title, r.CaseNumber))
	fmt.Fprintf(&b, "| 字段 | 值 |\n|---|---|\n")
	for _, kv := range [][2]string{
		{"案号", r.CaseNumber},
		{"文书类型", r.DocType},
		{"案由", r.CaseReason},
		{"承办部门", r.Department},
		{"审理程序", r.Level},
		{"结案日期", r.CloseDate},
		{"来源", r.DetailURL},
	} {
		fmt.Fprintf(&b, "| %s | %s |\n", kv[0], strings.ReplaceAll(kv[1], "|", `\|`))
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}

// CleanHTML drops scripts, styles and form controls and strips attributes
// other than link targets.
func CleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas").Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		var kept []html.Attribute
		for _, attr := range node.Attr {
			if (node.Data == "a" && (attr.Key == "href" || attr.Key == "title")) ||
				(node.Data == "img" && (attr.Key == "src" || attr.Key == "alt")) ||
				((node.Data == "td" || node.Data == "th") && (attr.Key == "colspan" || attr.Key == "rowspan")) {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SanitizeFilename makes s safe to use as a file name on common filesystems
func SanitizeFilename(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(s, "_")
	s = strings.Trim(strings.TrimSpace(s), ".")
	if s == "" {
		return "untitled"
	}
	for len(s) > maxFilenameLength {
		r := []rune(s)
		s = string(r[:len(r)-1])
	}
	return s
}

func siteRoot(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
