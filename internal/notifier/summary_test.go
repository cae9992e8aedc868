package notifier

import (
	"strings"
	"testing"

	"MASentinel/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestRenderSummary_SortedByName(t *testing.T) {
	res := &model.ScanResult{
		Scanned: 5,
		Records: []model.SymbolRecord{
			{Symbol: "ZZZ", Name: "Zeta Labs", Weekly: []model.Touch{{Window: 365, GapPct: 0.5, Kind: model.Near}}},
			{Symbol: "AAA", Name: "Alpha Inc", Daily: []model.Touch{{Window: 200, GapPct: -3.1, Kind: model.BrokenBelow}}},
		},
	}
	out := RenderSummary(res)

	assert.Less(t, strings.Index(out, "Alpha Inc"), strings.Index(out, "Zeta Labs"))
	assert.Contains(t, out, "MA200 below -3.10%")
	assert.Contains(t, out, "MA365 near +0.50%")
	assert.Contains(t, strings.ToLower(out), "2 of 5 flagged")
	assert.Equal(t, "Zeta Labs", res.Records[0].Name, "input must not be reordered")
}

func TestRenderSummary_NoResult(t *testing.T) {
	assert.Equal(t, "no scan has completed yet", RenderSummary(nil))
}
