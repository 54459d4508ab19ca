package models

import "time"

// CaseListing represents one row of the search-result listing
type CaseListing struct {
	RowID       string `json:"row_id"`
	CaseNumber  string `json:"case_number"`
	Title       string `json:"title"`
	DocType     string `json:"doc_type"`
	CaseReason  string `json:"case_reason"`
	Department  string `json:"department"`
	Level       string `json:"level"`
	CloseDate   string `json:"close_date"`
	DetailParam string `json:"detail_param"`
	DetailURL   string `json:"detail_url"`
	RowIndex    int    `json:"row_index"`
	PageNumber  int    `json:"page_number"`
}

// CaseRecord is a CaseListing merged with the content of its detail view.
// DetailURL on the embedded listing holds the URL the detail surface actually
// ended up on.
type CaseRecord struct {
	CaseListing
	DetailText    string    `json:"detail_text"`
	FetchedAt     time.Time `json:"detail_fetched_at"`
	ContentLength int       `json:"content_length"`

	// RawHTML is only populated when the detail archive is enabled.
	RawHTML string `json:"-"`
}

// Stats holds the counters of a crawl session
type Stats struct {
	DiscoveredTotal int `json:"discovered_total"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	Dropped         int `json:"dropped"`
	PagesVisited    int `json:"pages_visited"`
}

// PagerLink describes one candidate control found in the pager region
type PagerLink struct {
	Index   int    `json:"index"`
	Href    string `json:"href"`
	OnClick string `json:"onclick"`
	Text    string `json:"text"`
}

// PagerState is a snapshot of the pager region taken before each advance
type PagerState struct {
	Found       bool        `json:"found"`
	Links       []PagerLink `json:"links"`
	CurrentPage string      `json:"currentPage"`
	HTML        string      `json:"html"`
}
