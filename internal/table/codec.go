// Package table encodes and decodes the keyword queue as a CSV table: a
// header row of column names followed by one row per record.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

// Canonical column names, in the order they are written.
const (
	ColKeyword       = "keyword"
	ColStatus        = "status"
	ColStage         = "stage"
	ColIntent        = "intent"
	ColPriority      = "priority"
	ColTitle         = "title"
	ColExcerpt       = "excerpt"
	ColURL           = "url"
	ColLastGenerated = "last_generated"
)

var canonical = []string{
	ColKeyword, ColStatus, ColStage, ColIntent, ColPriority,
	ColTitle, ColExcerpt, ColURL, ColLastGenerated,
}

var canonicalSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(canonical))
	for _, c := range canonical {
		set[c] = struct{}{}
	}
	return set
}()

const utf8BOM = "\uFEFF"

// Columns returns the header Encode writes for records: the canonical
// columns followed by the first record's extra columns in sorted order.
func Columns(records []models.KeywordRecord) []string {
	cols := append([]string(nil), canonical...)
	if len(records) == 0 || len(records[0].Extra) == 0 {
		return cols
	}
	extra := make([]string, 0, len(records[0].Extra))
	for k := range records[0].Extra {
		if _, ok := canonicalSet[k]; ok {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// Encode serializes records into CSV. Every row carries every column.
// Line breaks inside a quoted field come back from Decode as "\n": the CSV
// reader folds "\r\n" within quotes, so values with CR LF do not round-trip
// byte for byte.
func Encode(records []models.KeywordRecord) ([]byte, error) {
	cols := Columns(records)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("table: write header: %w", err)
	}
	row := make([]string, len(cols))
	for _, rec := range records {
		for i, c := range cols {
			row[i] = field(rec, c)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("table: write row %q: %w", rec.Keyword, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("table: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a CSV table. Blank rows are skipped and rows shorter than
// the header are padded with empty cells. Unknown status values decode as
// queued. A missing header, or one without a keyword column, yields
// apperr.ErrMalformedTable.
func Decode(raw []byte) ([]models.KeywordRecord, error) {
	raw = bytes.TrimPrefix(raw, []byte(utf8BOM))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: header row missing", apperr.ErrMalformedTable)
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: line %d: %v", apperr.ErrMalformedTable, perr.Line, perr.Err)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedTable, err)
	}

	header := make([]string, len(rows[0]))
	pos := make(map[string]int, len(header))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		header[i] = h
		if _, dup := pos[h]; !dup && h != "" {
			pos[h] = i
		}
	}
	if _, ok := pos[ColKeyword]; !ok {
		return nil, fmt.Errorf("%w: header has no %q column", apperr.ErrMalformedTable, ColKeyword)
	}

	var extraCols []string
	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		if _, ok := canonicalSet[h]; ok || h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		extraCols = append(extraCols, h)
	}

	out := make([]models.KeywordRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		cell := func(col string) string {
			i, ok := pos[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		rec := models.KeywordRecord{
			Keyword:       cell(ColKeyword),
			Status:        models.NormalizeStatus(cell(ColStatus)),
			Stage:         models.Stage(cell(ColStage)),
			Intent:        models.Intent(cell(ColIntent)),
			Priority:      models.Priority(cell(ColPriority)),
			Title:         cell(ColTitle),
			Excerpt:       cell(ColExcerpt),
			URL:           cell(ColURL),
			LastGenerated: cell(ColLastGenerated),
		}
		if len(extraCols) > 0 {
			rec.Extra = make(map[string]string, len(extraCols))
			for _, c := range extraCols {
				rec.Extra[c] = cell(c)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func field(rec models.KeywordRecord, col string) string {
	switch col {
	case ColKeyword:
		return rec.Keyword
	case ColStatus:
		return string(rec.Status)
	case ColStage:
		return string(rec.Stage)
	case ColIntent:
		return string(rec.Intent)
	case ColPriority:
		return string(rec.Priority)
	case ColTitle:
		return rec.Title
	case ColExcerpt:
		return rec.Excerpt
	case ColURL:
		return rec.URL
	case ColLastGenerated:
		return rec.LastGenerated
	default:
		return rec.Extra[col]
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
