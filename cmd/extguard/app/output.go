package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/matcher"
	"github.com/stacklok/extguard/internal/service"
	pkgsync "github.com/stacklok/extguard/internal/sync"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	headerCells := make([]any, 0, len(header))
	for _, h := range header {
		headerCells = append(headerCells, h)
	}
	table.Header(headerCells...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeBatch(w io.Writer, format string, result *pkgsync.BatchResult) error {
	if format == outputJSON {
		return writeJSON(w, result)
	}
	rows := make([][]string, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		rows = append(rows, []string{o.Name, string(o.Phase), o.Reason, strconv.Itoa(o.RecordCount), o.Message})
	}
	if err := renderTable(w, []string{"Source", "Phase", "Reason", "Records", "Message"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d succeeded, %d failed, %d skipped\n", result.Succeeded, result.Failed, result.Skipped)
	return err
}

func writeOutcome(w io.Writer, format string, o *pkgsync.SourceOutcome) error {
	if format == outputJSON {
		return writeJSON(w, o)
	}
	return renderTable(w, []string{"Source", "Phase", "Reason", "Records", "Message"},
		[][]string{{o.Name, string(o.Phase), o.Reason, strconv.Itoa(o.RecordCount), o.Message}})
}

func writeRecords(w io.Writer, format string, records []lists.Record) error {
	if format == outputJSON {
		return writeJSON(w, records)
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.ID, r.Name, r.Category, r.Type, r.Source})
	}
	return renderTable(w, []string{"ID", "Name", "Category", "Type", "Source"}, rows)
}

func writeScan(w io.Writer, format string, result *matcher.Result) error {
	if format == outputJSON {
		return writeJSON(w, result)
	}
	rows := make([][]string, 0, len(result.Flagged))
	for _, f := range result.Flagged {
		categories := make([]string, 0, len(f.Matches))
		sources := make([]string, 0, len(f.Matches))
		for _, m := range f.Matches {
			categories = appendUnique(categories, m.Category)
			sources = appendUnique(sources, m.Source)
		}
		rows = append(rows, []string{
			f.Extension.ID,
			f.Extension.Name,
			strconv.FormatBool(f.Extension.Enabled),
			strings.Join(categories, ", "),
			strings.Join(sources, ", "),
		})
	}
	if len(rows) > 0 {
		if err := renderTable(w, []string{"ID", "Name", "Enabled", "Category", "Sources"}, rows); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d flagged, %d clear\n", result.Count(), len(result.Clear))
	return err
}

func writeSources(w io.Writer, format string, infos []service.SourceInfo) error {
	if format == outputJSON {
		return writeJSON(w, infos)
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		format, enabled, url := "-", "-", "-"
		if d := info.Descriptor; d != nil {
			format = d.NormalizedFormat()
			enabled = strconv.FormatBool(d.Enabled)
			if d.HasURL() {
				url = d.URL
			}
		}
		phase := "-"
		if info.Status != nil {
			phase = string(info.Status.Phase)
		}
		if info.Error != "" {
			phase = "error: " + info.Error
		}
		rows = append(rows, []string{
			info.Name, format, enabled, strconv.Itoa(info.RecordCount), formatTime(info.LastUpdate), phase, url,
		})
	}
	return renderTable(w, []string{"Name", "Format", "Enabled", "Records", "Last Update", "Status", "URL"}, rows)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
