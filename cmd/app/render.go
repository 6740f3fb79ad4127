package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/starford/inkwell/internal/index"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/pipeline"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

// printResult writes the outcome message and, for partial success, a
// separate warning line.
func printResult(w io.Writer, res pipeline.Result) {
	colorize := shouldColorize(w)
	fmt.Fprintln(w, paint(res.Message, ansiGreen, colorize))
	if res.Partial() {
		fmt.Fprintln(w, paint("warning: "+res.Warning, ansiYellow, colorize))
	}
}

func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{
			Number:      col,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func statusColor(s models.Status) string {
	switch s {
	case models.StatusPublished:
		return ansiGreen
	case models.StatusFailed:
		return ansiRed
	case models.StatusGenerating:
		return ansiYellow
	default:
		return ""
	}
}

func keywordTable(records []models.KeywordRecord, colorize bool) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Keyword,
			paint(string(r.Status), statusColor(r.Status), colorize),
			string(r.Stage),
			string(r.Intent),
			string(r.Priority),
			r.URL,
			r.LastGenerated,
		})
	}
	return renderTable([]string{"Keyword", "Status", "Stage", "Intent", "Priority", "URL", "Last Generated"}, rows)
}

func contentTable(arts []models.ContentArtifact, total int) string {
	rows := make([][]string, 0, len(arts))
	for _, a := range arts {
		rows = append(rows, []string{a.Slug, a.Title, a.URL, strconv.Itoa(len(a.Tags))})
	}
	return renderTable([]string{"Slug", "Title", "URL", "Tags"}, rows, 4) +
		fmt.Sprintf("\n%d of %d", len(arts), total)
}

func searchTable(results []index.SearchResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Slug, r.Title, r.Snippet})
	}
	return renderTable([]string{"Slug", "Title", "Snippet"}, rows)
}

func historyTable(ops []index.Operation, colorize bool) string {
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		color := ""
		switch op.Outcome {
		case index.OutcomeFailed:
			color = ansiRed
		case index.OutcomePartial:
			color = ansiYellow
		}
		msg := op.Message
		if op.Warning != "" {
			msg += " (" + op.Warning + ")"
		}
		rows = append(rows, []string{
			op.CreatedAt.Local().Format(time.DateTime),
			op.Name,
			op.Subject,
			op.Actor,
			paint(string(op.Outcome), color, colorize),
			msg,
		})
	}
	return renderTable([]string{"Time", "Operation", "Subject", "Actor", "Outcome", "Message"}, rows)
}
