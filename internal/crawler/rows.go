// internal/crawler/rows.go
package crawler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/law-makers/casecrawl/pkg/models"
)

const (
	// RowSelector matches the result rows of the listing table
	RowSelector = `tr[id^="tr"]`

	// DefaultDetailBase is the detail view endpoint the row token is appended to
	DefaultDetailBase = "https://www.hshfy.sh.cn/shfy/web/flws_view.jsp"

	minCells = 7
)

var detailTokenPattern = regexp.MustCompile(`showone\('([^']+)'\)`)

// ExtractRow parses one listing row. It has no side effects on the surface.
func ExtractRow(el Element, pageNumber, rowIndex int, detailBase string) (models.CaseListing, error) {
	if len(el.Cells) < minCells {
		return models.CaseListing{}, NewError(ErrCodeRowParse, "short row", ErrInsufficientCells).
			WithDetail("page", pageNumber).
			WithDetail("index", rowIndex).
			WithDetail("cells", len(el.Cells))
	}

	rowID, _ := el.Attr("id")
	if rowID == "" {
		rowID = fmt.Sprintf("tr_%d_%d", pageNumber, rowIndex)
	}

	onclick, _ := el.Attr("onclick")
	token := DetailToken(onclick)

	cells := make([]string, minCells)
	for i := 0; i < minCells; i++ {
		text := el.Cells[i]
		if i >= 3 && i <= 5 {
			text = strings.ReplaceAll(text, "&nbsp;", "")
		}
		cells[i] = strings.TrimSpace(text)
	}

	return models.CaseListing{
		RowID:       rowID,
		CaseNumber:  cells[0],
		Title:       cells[1],
		DocType:     cells[2],
		CaseReason:  cells[3],
		Department:  cells[4],
		Level:       cells[5],
		CloseDate:   cells[6],
		DetailParam: token,
		DetailURL:   DetailURL(detailBase, token),
		RowIndex:    rowIndex,
		PageNumber:  pageNumber,
	}, nil
}

// DetailToken pulls the showone('...') argument out of an inline handler
func DetailToken(onclick string) string {
	m := detailTokenPattern.FindStringSubmatch(onclick)
	if m == nil {
		return ""
	}
	return m[1]
}

// DetailURL joins the detail base and token. An empty token yields no URL.
func DetailURL(base, token string) string {
	if token == "" {
		return ""
	}
	if base == "" {
		base = DefaultDetailBase
	}
	return base + "?pa=" + token
}
