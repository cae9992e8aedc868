package model

import (
	"strings"
	"time"
)

// Classification is the kind of proximity a touch reports.
type Classification string

const (
	Near        Classification = "NEAR"
	BrokenBelow Classification = "BROKEN_BELOW"
)

// Touch is one window's classification of the latest close.
// GapPct = (close - MA) / MA * 100.
type Touch struct {
	Window int
	GapPct float64
	Kind   Classification
}

// SymbolRecord holds the touches found for one symbol on each timeframe.
type SymbolRecord struct {
	Symbol string
	Name   string
	Daily  []Touch
	Weekly []Touch
}

// Touches returns the touch list for tf.
func (r *SymbolRecord) Touches(tf Timeframe) []Touch {
	switch tf {
	case Daily:
		return r.Daily
	case Weekly:
		return r.Weekly
	}
	return nil
}

// SetTouches replaces the touch list for tf.
func (r *SymbolRecord) SetTouches(tf Timeframe, touches []Touch) {
	switch tf {
	case Daily:
		r.Daily = touches
	case Weekly:
		r.Weekly = touches
	}
}

// HasTouches reports whether either timeframe produced a touch.
func (r *SymbolRecord) HasTouches() bool {
	return len(r.Daily) > 0 || len(r.Weekly) > 0
}

// ScanResult is the outcome of one pass over the watch-list.
// Records keep watch-list order and only include symbols with touches.
type ScanResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Scanned    int
	Records    []SymbolRecord
}

// BucketKey identifies one of the four alert buckets.
type BucketKey struct {
	Timeframe Timeframe
	Kind      Classification
}

// BucketEntry is one symbol's touch inside a bucket. A symbol touching
// several windows yields several entries.
type BucketEntry struct {
	Symbol string
	Name   string
	Touch  Touch
}

// AlertBucket groups entries by timeframe and classification.
type AlertBucket struct {
	Key     BucketKey
	Entries []BucketEntry
}

// MessagePart is one transport-bounded chunk of alert text. Header holds
// continuation lines repeated for readability; Body holds rendered lines
// that appear exactly once across all parts.
type MessagePart struct {
	Index  int
	Header []string
	Body   []string
}

// Lines returns header and body lines in order.
func (p MessagePart) Lines() []string {
	lines := make([]string, 0, len(p.Header)+len(p.Body))
	lines = append(lines, p.Header...)
	return append(lines, p.Body...)
}

// Text renders the part as sent to the transport.
func (p MessagePart) Text() string {
	return strings.Join(p.Lines(), "\n")
}
