// internal/browser/selector.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/casecrawl/internal/crawler"
)

// query is a selector translated for chromedp and for in-page lookups
type query struct {
	expr  string
	xpath bool
}

func parseSelector(sel string) query {
	if text, ok := crawler.ParseTextSelector(sel); ok {
		return query{expr: fmt.Sprintf("//*[normalize-space(text())=%s]", xpathLiteral(strings.TrimSpace(text))), xpath: true}
	}
	return query{expr: sel}
}

func (q query) by() chromedp.QueryOption {
	if q.xpath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (q query) kind() string {
	if q.xpath {
		return "xpath"
	}
	return "css"
}

// xpathLiteral quotes s for use in an XPath expression
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
