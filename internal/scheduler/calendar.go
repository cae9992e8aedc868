package scheduler

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar decides which days a daemon scan runs on.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Location *time.Location
}

// NewTradingCalendar loads the exchange calendar for an ISO 10383 MIC such
// as "xnys" or "xkrx". Unknown MICs fall back to Monday to Friday in loc.
func NewTradingCalendar(mic string, loc *time.Location) *TradingCalendar {
	if loc == nil {
		loc = time.UTC
	}
	if mic = strings.ToLower(strings.TrimSpace(mic)); mic != "" {
		if cal := calendar.GetCalendar(mic); cal != nil {
			if cal.Loc != nil {
				loc = cal.Loc
			}
			return &TradingCalendar{Calendar: cal, Location: loc}
		}
		log.Printf("[WARN] no trading calendar for MIC %q, using weekdays", mic)
	}
	return &TradingCalendar{Fallback: true, Location: loc}
}

func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	t = t.In(tc.Location)
	if tc.Fallback || tc.Calendar == nil {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(t)
}

// DateKey is the exchange-local date of t, used as the daemon's guard key.
func (tc *TradingCalendar) DateKey(t time.Time) string {
	return t.In(tc.Location).Format("2006-01-02")
}
