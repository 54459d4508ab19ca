package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/law-makers/casecrawl/pkg/models"
)

func sampleRecords() []models.CaseRecord {
	fetched := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	return []models.CaseRecord{
		{
			CaseListing: models.CaseListing{
				RowID: "tr1", CaseNumber: "（2024）沪01民初1号", Title: "合同纠纷 <一审>",
				DocType: "判决书", CaseReason: "合同纠纷", Department: "民一庭", Level: "一审",
				CloseDate: "2024-04-30", DetailParam: "A", DetailURL: "https://example.test/view?pa=A",
				RowIndex: 0, PageNumber: 1,
			},
			DetailText:    "正文, 含逗号",
			FetchedAt:     fetched,
			ContentLength: 120,
			RawHTML:       `<html><body><h2>判决</h2><p>正文 <a href="/law/1">法条</a></p><script>x()</script></body></html>`,
		},
		{
			CaseListing: models.CaseListing{
				RowID: "tr2", CaseNumber: "（2024）沪01民初2号", Title: "借款纠纷",
				DetailParam: "B", DetailURL: "https://example.test/view?pa=B", RowIndex: 1, PageNumber: 1,
			},
			FetchedAt: fetched,
		},
	}
}

func TestFileSinkSnapshotIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir, time.Date(2024, 5, 1, 9, 4, 5, 0, time.Local))
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	if want := filepath.Join(dir, "cases_20240501_090405.json"); s.JSONPath() != want {
		t.Errorf("JSONPath() = %s, want %s", s.JSONPath(), want)
	}

	ctx := context.Background()
	if err := s.Snapshot(ctx, sampleRecords()); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	first, err := os.ReadFile(s.JSONPath())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Snapshot(ctx, sampleRecords()); err != nil {
		t.Fatalf("second Snapshot() error = %v", err)
	}
	second, err := os.ReadFile(s.JSONPath())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated snapshot changed the JSON export")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("output files = %d, want 3", len(entries))
	}
}

func TestEncodeJSON(t *testing.T) {
	data, err := EncodeJSON(sampleRecords())
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}
	if !bytes.Contains(data, []byte("合同纠纷 <一审>")) {
		t.Error("JSON export escaped text")
	}
	if bytes.Contains(data, []byte("<script>")) {
		t.Error("JSON export contains raw HTML")
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if got := decoded[0]["detail_fetched_at"]; got != "2024-05-01T08:30:00Z" {
		t.Errorf("detail_fetched_at = %v", got)
	}
	if _, ok := decoded[0]["row_id"]; !ok {
		t.Error("listing fields not flattened into the record")
	}

	empty, err := EncodeJSON(nil)
	if err != nil || strings.TrimSpace(string(empty)) != "[]" {
		t.Errorf("EncodeJSON(nil) = %q, %v", empty, err)
	}
}

func TestEncodeCSV(t *testing.T) {
	for _, withText := range []bool{true, false} {
		data, err := EncodeCSV(sampleRecords(), withText)
		if err != nil {
			t.Fatalf("EncodeCSV() error = %v", err)
		}
		if !bytes.HasPrefix(data, []byte(utf8BOM)) {
			t.Fatal("CSV export lacks byte order mark")
		}

		rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
		if err != nil {
			t.Fatalf("export is not valid CSV: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want 3", len(rows))
		}
		if diff := cmp.Diff(columns(withText), rows[0]); diff != "" {
			t.Errorf("header mismatch (-want +got):\n%s", diff)
		}

		hasText := false
		for _, h := range rows[0] {
			hasText = hasText || h == "detail_text"
		}
		if hasText != withText {
			t.Errorf("withText=%v: detail_text column present = %v", withText, hasText)
		}
		if rows[1][1] != "（2024）沪01民初1号" {
			t.Errorf("case_number = %q", rows[1][1])
		}
	}
}

func TestFileSinkSkipsSimpleCSVWithoutText(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	records := sampleRecords()[1:]
	if err := s.Snapshot(context.Background(), records); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if _, err := os.Stat(s.SimpleCSVPath()); !os.IsNotExist(err) {
		t.Errorf("simple CSV written without detail text: %v", err)
	}
	if _, err := os.Stat(s.CSVPath()); err != nil {
		t.Errorf("full CSV missing: %v", err)
	}
}

func TestSQLiteSinkReplacesContents(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cases.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	records := sampleRecords()
	if err := s.Snapshot(ctx, records); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if err := s.Snapshot(ctx, records[:1]); err != nil {
		t.Fatalf("second Snapshot() error = %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	if err := s.Snapshot(ctx, records); err != nil {
		t.Fatalf("third Snapshot() error = %v", err)
	}
	got, err := s.CaseNumbers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{records[0].CaseNumber, records[1].CaseNumber}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CaseNumbers() mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkdownArchive(t *testing.T) {
	dir := t.TempDir()
	a, err := NewMarkdownArchive(dir)
	if err != nil {
		t.Fatal(err)
	}
	records := sampleRecords()
	if err := a.Snapshot(context.Background(), records); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("documents = %d, want 1 (records without markup are skipped)", len(entries))
	}

	doc, err := os.ReadFile(a.Path(records[0]))
	if err != nil {
		t.Fatal(err)
	}
	text := string(doc)
	for _, want := range []string{"# 合同纠纷 <一审>", "| 案号 | （2024）沪01民初1号 |", "## 判决", "https://example.test/law/1"} {
		if !strings.Contains(text, want) {
			t.Errorf("document lacks %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "x()") {
		t.Error("script content leaked into document")
	}
}

func TestMarkdownArchiveConvertsOnlyNewRecords(t *testing.T) {
	dir := t.TempDir()
	a, err := NewMarkdownArchive(dir)
	if err != nil {
		t.Fatal(err)
	}
	records := sampleRecords()
	third := records[0]
	third.CaseNumber = "（2024）沪01民初3号"
	records = append(records, third)
	ctx := context.Background()

	if err := a.Snapshot(ctx, records[:2]); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	first := a.Path(records[0])
	if err := os.Remove(first); err != nil {
		t.Fatal(err)
	}

	if err := a.Snapshot(ctx, records); err != nil {
		t.Fatalf("second Snapshot() error = %v", err)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Errorf("already archived record converted again: %v", err)
	}
	if _, err := os.Stat(a.Path(third)); err != nil {
		t.Errorf("new record not archived: %v", err)
	}

	// a shorter set means a new run: everything is written again
	if err := a.Snapshot(ctx, records[:1]); err != nil {
		t.Fatalf("third Snapshot() error = %v", err)
	}
	if _, err := os.Stat(first); err != nil {
		t.Errorf("restarted archive skipped the first record: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"（2024）沪01民初1号": "（2024）沪01民初1号",
		"a/b\\c:d":       "a_b_c_d",
		"  ..  ":         "untitled",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("案", 100)); len(got) > maxFilenameLength {
		t.Errorf("long name not shortened: %d bytes", len(got))
	}
}

type failingSink struct{ err error }

func (f failingSink) Snapshot(context.Context, []models.CaseRecord) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	errA := errors.New("disk full")
	errB := errors.New("locked")
	counter := &countingSink{}

	err := Multi{failingSink{errA}, counter, failingSink{errB}}.Snapshot(context.Background(), sampleRecords())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Snapshot() error = %v, want both failures", err)
	}
	if counter.calls != 1 {
		t.Errorf("healthy sink called %d times, want 1", counter.calls)
	}

	if err := (Multi{counter}).Snapshot(context.Background(), nil); err != nil {
		t.Errorf("Snapshot() error = %v", err)
	}
}

type countingSink struct{ calls int }

func (c *countingSink) Snapshot(context.Context, []models.CaseRecord) error {
	c.calls++
	return nil
}
