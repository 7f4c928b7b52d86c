package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderResults(w io.Writer, cols []string, records [][]any, format string) error {
	switch format {
	case "json":
		return renderJSON(w, cols, records)
	case "csv":
		return renderCSV(w, cols, records)
	case "table", "":
		return renderTable(w, cols, records)
	default:
		return fmt.Errorf("unknown format %q: use table, json, or csv", format)
	}
}

func renderTable(w io.Writer, cols []string, records [][]any) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, record := range records {
		row := make(table.Row, len(cols))
		for i := range cols {
			row[i] = formatValue(record[i])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(records))
	return nil
}

func renderJSON(w io.Writer, cols []string, records [][]any) error {
	results := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = record[i]
		}
		results = append(results, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func renderCSV(w io.Writer, cols []string, records [][]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, record := range records {
		row := make([]string, len(cols))
		for i := range cols {
			row[i] = formatValue(record[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
