package notifier

import (
	"fmt"
	"html"
	"math"
	"time"
	"unicode/utf16"

	"MASentinel/internal/model"
)

// DefaultMaxLength leaves margin under Telegram's 4096 character limit.
const DefaultMaxLength = 4000

const noSignalText = "No moving-average proximity signal detected in this scan."

// TextLen measures s in UTF-16 code units, the unit Telegram counts in.
// It is never smaller than the rune count.
func TextLen(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// Packer renders alert buckets and splits them into MessageParts of at
// most MaxLength.
type Packer struct {
	MaxLength int
	Location  *time.Location
}

// NewPacker creates a Packer rendering timestamps in loc.
func NewPacker(maxLength int, loc *time.Location) *Packer {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Packer{MaxLength: maxLength, Location: loc}
}

type lineKind int

const (
	kindHeader lineKind = iota
	kindTitle
	kindSymbol
	kindDetail
)

type renderedLine struct {
	text   string
	kind   lineKind
	title  string // section title the line belongs to
	symbol string // symbol line the detail belongs to
}

// keepWithNext holds titles and symbol lines on the same part as the line
// that follows them.
func (l renderedLine) keepWithNext() bool {
	return l.kind == kindTitle || l.kind == kindSymbol
}

func (p *Packer) header(runAt time.Time) string {
	return fmt.Sprintf("📬 <b>Long-term MA proximity scan</b> (%s)",
		runAt.In(p.Location).Format("2006-01-02 15:04:05 MST"))
}

func (p *Packer) continuation(index int) string {
	return fmt.Sprintf("📬 <b>Long-term MA proximity scan</b> (cont. %d)", index)
}

func sectionTitle(key model.BucketKey) string {
	icon, label := "📍", "near MA"
	if key.Kind == model.BrokenBelow {
		icon, label = "🔻", "broke below MA"
	}
	return fmt.Sprintf("%s <b>%s · %s</b>", icon, key.Timeframe.Label(), label)
}

func symbolLine(e model.BucketEntry) string {
	if e.Name == "" || e.Name == e.Symbol {
		return "• " + html.EscapeString(e.Symbol)
	}
	return fmt.Sprintf("• %s (%s)", html.EscapeString(e.Name), html.EscapeString(e.Symbol))
}

// FormatGap renders a gap percentage with an explicit sign; values that
// round to zero print unsigned.
func FormatGap(pct float64) string {
	r := math.Round(pct*100) / 100
	if r == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%+.2f%%", r)
}

func detailLine(t model.Touch) string {
	marker := "●"
	switch {
	case t.GapPct > 0:
		marker = "▲"
	case t.GapPct < 0:
		marker = "▼"
	}
	return fmt.Sprintf("    MA%d %s %s", t.Window, FormatGap(t.GapPct), marker)
}

func (p *Packer) render(buckets []model.AlertBucket, runAt time.Time) []renderedLine {
	lines := []renderedLine{{text: p.header(runAt), kind: kindHeader}}
	for _, b := range buckets {
		if len(b.Entries) == 0 {
			continue
		}
		title := sectionTitle(b.Key)
		lines = append(lines, renderedLine{text: title, kind: kindTitle, title: title})
		prev := ""
		var sym string
		for _, e := range b.Entries {
			if e.Symbol != prev {
				sym = symbolLine(e)
				lines = append(lines, renderedLine{text: sym, kind: kindSymbol, title: title, symbol: sym})
				prev = e.Symbol
			}
			lines = append(lines, renderedLine{text: detailLine(e.Touch), kind: kindDetail, title: title, symbol: sym})
		}
	}
	return lines
}

// RenderLines returns every body line Pack distributes, in order.
func (p *Packer) RenderLines(buckets []model.AlertBucket, runAt time.Time) []string {
	rendered := p.render(buckets, runAt)
	if len(rendered) == 1 {
		return []string{rendered[0].text, noSignalText}
	}
	out := make([]string, len(rendered))
	for i, l := range rendered {
		out[i] = l.text
	}
	return out
}

// Pack renders buckets into one or more parts. Every part's Text is at most
// MaxLength long and lines are never split across parts. A section title
// shares its part with its first body line whenever both fit in one part.
// Only a line longer than a whole part is truncated. Empty buckets yield a
// single no-signal part.
func (p *Packer) Pack(buckets []model.AlertBucket, runAt time.Time) []model.MessagePart {
	lines := p.render(buckets, runAt)
	if len(lines) == 1 {
		lines = append(lines, renderedLine{text: noSignalText, kind: kindDetail})
	}

	b := &partBuilder{max: p.MaxLength, continuation: p.continuation}
	b.start(nil)
	for i := range lines {
		run := []string{lines[i].text}
		for j := i; j < len(lines)-1 && lines[j].keepWithNext(); j++ {
			run = append(run, lines[j+1].text)
		}
		continuing := i > 0 && lines[i-1].keepWithNext()
		switch {
		case !continuing && !b.fits(run...) && len(b.cur.Body) > 0:
			b.seal(&lines[i])
		case continuing && !b.fits(lines[i].text) && len(b.cur.Body) > 0:
			// The run cannot share one part; keep the line whole instead.
			b.seal(&lines[i])
		}
		b.add(truncate(lines[i].text, b.room()))
	}
	b.parts = append(b.parts, b.cur)
	return b.parts
}

type partBuilder struct {
	max          int
	continuation func(int) string
	parts        []model.MessagePart
	cur          model.MessagePart
	size         int
}

func (b *partBuilder) start(next *renderedLine) {
	b.cur = model.MessagePart{Index: len(b.parts) + 1}
	b.size = 0
	if b.cur.Index == 1 {
		return
	}
	header := []string{b.continuation(b.cur.Index)}
	if next != nil && next.kind != kindTitle && next.title != "" {
		header = append(header, next.title+" (cont.)")
		if next.kind == kindDetail && next.symbol != "" {
			header = append(header, next.symbol+" (cont.)")
		}
	}
	// Repeated context never takes more than half a part.
	for len(header) > 1 && joinedLen(header) > b.max/2 {
		header = header[:len(header)-1]
	}
	header[0] = truncate(header[0], b.max/2)
	// Context lines give way to a body line that fits a part on its own.
	if next != nil && TextLen(next.text) <= b.max {
		for len(header) > 0 && joinedLen(header)+1+TextLen(next.text) > b.max {
			header = header[:len(header)-1]
		}
	}
	b.cur.Header = header
	b.size = joinedLen(header)
}

func (b *partBuilder) seal(next *renderedLine) {
	b.parts = append(b.parts, b.cur)
	b.start(next)
}

func (b *partBuilder) empty() bool {
	return len(b.cur.Header) == 0 && len(b.cur.Body) == 0
}

// room is the length still available for one more line.
func (b *partBuilder) room() int {
	if b.empty() {
		return b.max - b.size
	}
	return b.max - b.size - 1
}

func (b *partBuilder) fits(texts ...string) bool {
	total := b.size
	for i, t := range texts {
		if i > 0 || !b.empty() {
			total++
		}
		total += TextLen(t)
	}
	return total <= b.max
}

func (b *partBuilder) add(text string) {
	if !b.empty() {
		b.size++
	}
	b.size += TextLen(text)
	b.cur.Body = append(b.cur.Body, text)
}

func joinedLen(lines []string) int {
	n := 0
	for i, l := range lines {
		if i > 0 {
			n++
		}
		n += TextLen(l)
	}
	return n
}

// truncate shortens s to at most limit units, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	if TextLen(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	for len(runes) > 0 && TextLen(string(runes))+1 > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
