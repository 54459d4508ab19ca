// internal/sink/file.go
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// StampLayout formats the session timestamp embedded in file names
const StampLayout = "20060102_150405"

const utf8BOM = "\ufeff"

// csvColumns is the column order of the CSV exports
var csvColumns = []string{
	"row_id", "case_number", "title", "doc_type", "case_reason", "department",
	"level", "close_date", "detail_param", "detail_url", "row_index",
	"page_number", "detail_text", "detail_fetched_at", "content_length",
}

// FileSink rewrites a JSON file and two CSV files on every snapshot. File
// names carry the timestamp the sink was created with.
type FileSink struct {
	dir   string
	stamp string
}

// NewFileSink creates the output directory and fixes the file name stamp
func NewFileSink(dir string, startedAt time.Time) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSink{dir: dir, stamp: startedAt.Format(StampLayout)}, nil
}

// JSONPath returns the path of the structured export
func (s *FileSink) JSONPath() string {
	return filepath.Join(s.dir, "cases_"+s.stamp+".json")
}

// CSVPath returns the path of the full CSV export
func (s *FileSink) CSVPath() string {
	return filepath.Join(s.dir, "cases_"+s.stamp+".csv")
}

// SimpleCSVPath returns the path of the CSV export without detail text
func (s *FileSink) SimpleCSVPath() string {
	return filepath.Join(s.dir, "simple_cases_"+s.stamp+".csv")
}

// Snapshot overwrites all exports with records
func (s *FileSink) Snapshot(ctx context.Context, records []models.CaseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeJSON(records)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.JSONPath(), data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	full, err := EncodeCSV(records, true)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.CSVPath(), full); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	if hasDetailText(records) {
		simple, err := EncodeCSV(records, false)
		if err != nil {
			return err
		}
		if err := writeAtomic(s.SimpleCSVPath(), simple); err != nil {
			return fmt.Errorf("failed to write simple CSV: %w", err)
		}
	}

	log.Debug().Int("records", len(records)).Str("dir", s.dir).Msg("Files written")
	return nil
}

// EncodeJSON renders records as indented JSON without HTML escaping
func EncodeJSON(records []models.CaseRecord) ([]byte, error) {
	if records == nil {
		records = []models.CaseRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeCSV renders records as BOM-prefixed CSV. Without withText the
// detail_text column is left out.
func EncodeCSV(records []models.CaseRecord, withText bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)

	header := columns(withText)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := make([]string, 0, len(header))
		for _, col := range header {
			row = append(row, field(r, col))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func columns(withText bool) []string {
	if withText {
		return csvColumns
	}
	out := make([]string, 0, len(csvColumns)-1)
	for _, c := range csvColumns {
		if c != "detail_text" {
			out = append(out, c)
		}
	}
	return out
}

func field(r models.CaseRecord, col string) string {
	switch col {
	case "row_id":
		return r.RowID
	case "case_number":
		return r.CaseNumber
	case "title":
		return r.Title
	case "doc_type":
		return r.DocType
	case "case_reason":
		return r.CaseReason
	case "department":
		return r.Department
	case "level":
		return r.Level
	case "close_date":
		return r.CloseDate
	case "detail_param":
		return r.DetailParam
	case "detail_url":
		return r.DetailURL
	case "row_index":
		return strconv.Itoa(r.RowIndex)
	case "page_number":
		return strconv.Itoa(r.PageNumber)
	case "detail_text":
		return r.DetailText
	case "detail_fetched_at":
		if r.FetchedAt.IsZero() {
			return ""
		}
		return r.FetchedAt.Format(time.RFC3339)
	case "content_length":
		return strconv.Itoa(r.ContentLength)
	}
	return ""
}

func hasDetailText(records []models.CaseRecord) bool {
	for _, r := range records {
		if r.DetailText != "" {
			return true
		}
	}
	return false
}

// writeAtomic replaces path with data through a temp file in the same directory
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
