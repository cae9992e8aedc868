package notifier

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"MASentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	kst   = time.FixedZone("KST", 9*60*60)
	runAt = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
)

func manyBuckets(perBucket int) []model.AlertBucket {
	var buckets []model.AlertBucket
	for _, key := range []model.BucketKey{
		{Timeframe: model.Daily, Kind: model.Near},
		{Timeframe: model.Daily, Kind: model.BrokenBelow},
		{Timeframe: model.Weekly, Kind: model.Near},
	} {
		b := model.AlertBucket{Key: key}
		for i := 0; i < perBucket; i++ {
			sym := fmt.Sprintf("S%03d", i)
			name := fmt.Sprintf("Example Holdings %03d Corporation", i)
			b.Entries = append(b.Entries,
				model.BucketEntry{Symbol: sym, Name: name, Touch: model.Touch{Window: 200, GapPct: -0.42, Kind: key.Kind}},
				model.BucketEntry{Symbol: sym, Name: name, Touch: model.Touch{Window: 365, GapPct: 0.87, Kind: key.Kind}},
			)
		}
		buckets = append(buckets, b)
	}
	return buckets
}

func bodies(parts []model.MessagePart) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p.Body...)
	}
	return out
}

func TestPack_SplitsLongAlert(t *testing.T) {
	buckets := manyBuckets(40)
	p := NewPacker(4000, kst)

	lines := p.RenderLines(buckets, runAt)
	require.Greater(t, len(strings.Join(lines, "\n")), 9000)

	parts := p.Pack(buckets, runAt)
	require.GreaterOrEqual(t, len(parts), 3)
	for i, part := range parts {
		assert.Equal(t, i+1, part.Index)
		assert.LessOrEqual(t, TextLen(part.Text()), 4000)
		if i > 0 {
			require.NotEmpty(t, part.Header)
			assert.Contains(t, part.Header[0], fmt.Sprintf("(cont. %d)", i+1))
		}
	}
	assert.Equal(t, lines, bodies(parts))
}

func TestPack_InvariantsAcrossLimits(t *testing.T) {
	buckets := manyBuckets(25)
	for _, limit := range []int{256, 300, 512, 1000, 2048, 4096} {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			p := NewPacker(limit, kst)
			parts := p.Pack(buckets, runAt)
			for _, part := range parts {
				text := part.Text()
				assert.LessOrEqual(t, TextLen(text), limit)
				assert.LessOrEqual(t, utf8.RuneCountInString(text), limit)

				last := part.Body[len(part.Body)-1]
				assert.False(t, strings.HasPrefix(last, "📍") || strings.HasPrefix(last, "🔻"),
					"part %d ends with a section title", part.Index)
				assert.False(t, strings.HasPrefix(last, "• "),
					"part %d ends with a symbol line", part.Index)
			}
			assert.Equal(t, p.RenderLines(buckets, runAt), bodies(parts))
		})
	}
}

func TestPack_RepeatsSectionTitleOnContinuation(t *testing.T) {
	buckets := manyBuckets(30)[:1]
	parts := NewPacker(512, kst).Pack(buckets, runAt)
	require.Greater(t, len(parts), 1)

	title := sectionTitle(buckets[0].Key)
	assert.Equal(t, title, parts[0].Body[1])
	for _, part := range parts[1:] {
		require.GreaterOrEqual(t, len(part.Header), 2)
		assert.Equal(t, title+" (cont.)", part.Header[1])
	}
}

func TestPack_SingleShortMessage(t *testing.T) {
	buckets := []model.AlertBucket{
		{
			Key: model.BucketKey{Timeframe: model.Daily, Kind: model.BrokenBelow},
			Entries: []model.BucketEntry{
				{Symbol: "XYZ", Name: "XYZ Corp", Touch: model.Touch{Window: 200, GapPct: -1, Kind: model.BrokenBelow}},
			},
		},
		{Key: model.BucketKey{Timeframe: model.Weekly, Kind: model.Near}},
	}
	parts := NewPacker(0, kst).Pack(buckets, runAt)
	require.Len(t, parts, 1)
	assert.Empty(t, parts[0].Header)
	assert.Equal(t, []string{
		"📬 <b>Long-term MA proximity scan</b> (2024-01-03 00:04:05 KST)",
		"🔻 <b>Daily · broke below MA</b>",
		"• XYZ Corp (XYZ)",
		"    MA200 -1.00% ▼",
	}, parts[0].Body)
}

func TestPack_NoSignal(t *testing.T) {
	empty := []model.AlertBucket{
		{Key: model.BucketKey{Timeframe: model.Daily, Kind: model.Near}},
		{Key: model.BucketKey{Timeframe: model.Weekly, Kind: model.BrokenBelow}},
	}
	for _, buckets := range [][]model.AlertBucket{nil, empty} {
		parts := NewPacker(4000, kst).Pack(buckets, runAt)
		require.Len(t, parts, 1)
		require.Len(t, parts[0].Body, 2)
		assert.Contains(t, parts[0].Body[0], "2024-01-03 00:04:05 KST")
		assert.Equal(t, noSignalText, parts[0].Body[1])
	}
}

func TestPack_TruncatesOversizedLine(t *testing.T) {
	buckets := []model.AlertBucket{{
		Key: model.BucketKey{Timeframe: model.Daily, Kind: model.Near},
		Entries: []model.BucketEntry{
			{Symbol: "LONG", Name: strings.Repeat("N", 600), Touch: model.Touch{Window: 200, Kind: model.Near}},
		},
	}}
	parts := NewPacker(256, kst).Pack(buckets, runAt)
	for _, part := range parts {
		assert.LessOrEqual(t, TextLen(part.Text()), 256)
	}
	var found bool
	for _, line := range bodies(parts) {
		if strings.HasPrefix(line, "• NNN") {
			found = true
			assert.True(t, strings.HasSuffix(line, "…"))
		}
	}
	assert.True(t, found)
}

func TestSymbolLine_EscapesHTML(t *testing.T) {
	line := symbolLine(model.BucketEntry{Symbol: "T", Name: "AT&T <Inc>"})
	assert.Equal(t, "• AT&amp;T &lt;Inc&gt; (T)", line)
	assert.Equal(t, "• ABC", symbolLine(model.BucketEntry{Symbol: "ABC", Name: "ABC"}))
}

func TestFormatGap(t *testing.T) {
	assert.Equal(t, "-0.42%", FormatGap(-0.42))
	assert.Equal(t, "+1.23%", FormatGap(1.234))
	assert.Equal(t, "0.00%", FormatGap(0.001))
	assert.Equal(t, "0.00%", FormatGap(-0.004))
}

func TestTextLen_CountsUTF16Units(t *testing.T) {
	assert.Equal(t, 3, TextLen("abc"))
	assert.Equal(t, 2, TextLen("📬"))
	assert.Equal(t, 1, TextLen("·"))
}

func TestPack_KeepsLinesWholeWhenRunsExceedAPart(t *testing.T) {
	var entries []model.BucketEntry
	for i := 0; i < 6; i++ {
		sym := fmt.Sprintf("L%d", i)
		name := strings.Repeat("n", 118)
		entries = append(entries,
			model.BucketEntry{Symbol: sym, Name: name, Touch: model.Touch{Window: 200, GapPct: -0.3, Kind: model.Near}},
			model.BucketEntry{Symbol: sym, Name: name, Touch: model.Touch{Window: 240, GapPct: 0.4, Kind: model.Near}},
		)
	}
	buckets := []model.AlertBucket{{Key: model.BucketKey{Timeframe: model.Daily, Kind: model.Near}, Entries: entries}}

	p := NewPacker(143, kst)
	lines := p.RenderLines(buckets, runAt)
	for _, l := range lines {
		require.LessOrEqual(t, TextLen(l), 143)
	}
	// symbol line plus its first detail line is longer than one part
	require.Greater(t, TextLen(lines[2])+1+TextLen(lines[3]), 143)

	parts := p.Pack(buckets, runAt)
	for _, part := range parts {
		assert.LessOrEqual(t, TextLen(part.Text()), 143)
	}
	assert.Equal(t, lines, bodies(parts))
	for _, l := range bodies(parts) {
		assert.False(t, strings.HasSuffix(l, "…"))
	}
}
