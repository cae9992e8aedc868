package notifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"MASentinel/internal/model"
)

// RenderSummary renders a plain-text table of every flagged symbol, sorted
// by display name. Used for console output and the /status command.
func RenderSummary(res *model.ScanResult) string {
	if res == nil {
		return "no scan has completed yet"
	}
	records := append([]model.SymbolRecord(nil), res.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		ni, nj := displayName(records[i]), displayName(records[j])
		if ni != nj {
			return ni < nj
		}
		return records[i].Symbol < records[j].Symbol
	})

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Symbol", "Name", "Daily", "Weekly"})
	for _, r := range records {
		t.AppendRow(table.Row{r.Symbol, displayName(r), touchCell(r.Daily), touchCell(r.Weekly)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d flagged", len(records), res.Scanned), "", ""})
	return t.Render()
}

func displayName(r model.SymbolRecord) string {
	if r.Name == "" {
		return r.Symbol
	}
	return r.Name
}

func touchCell(touches []model.Touch) string {
	if len(touches) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(touches))
	for _, t := range touches {
		tag := "near"
		if t.Kind == model.BrokenBelow {
			tag = "below"
		}
		parts = append(parts, fmt.Sprintf("MA%d %s %s", t.Window, tag, FormatGap(t.GapPct)))
	}
	return strings.Join(parts, "\n")
}
