package watchlist

import (
	"context"
	"strings"
)

// Source supplies the ordered list of symbols to scan.
type Source interface {
	LoadSymbols(ctx context.Context) ([]string, error)
}

// Normalize trims and upper-cases symbols, dropping blanks and repeats while
// keeping first-seen order.
func Normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ParseList splits a comma or whitespace separated symbol list.
func ParseList(s string) []string {
	return Normalize(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	}))
}

// StaticSource serves a fixed list, usually from config.
type StaticSource struct {
	Symbols []string
}

func NewStaticSource(symbols []string) *StaticSource {
	return &StaticSource{Symbols: Normalize(symbols)}
}

func (s *StaticSource) LoadSymbols(context.Context) ([]string, error) {
	return append([]string(nil), s.Symbols...), nil
}
