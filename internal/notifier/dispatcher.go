package notifier

import (
	"context"
	"log"

	"MASentinel/internal/model"
)

// DispatchFailure records one part that a sink could not deliver.
type DispatchFailure struct {
	Part int
	Sink string
	Err  error
}

// DispatchReport summarizes a Dispatch call.
type DispatchReport struct {
	Parts    int
	Sent     int
	Failures []DispatchFailure
}

// OK reports whether every part reached every sink.
func (r DispatchReport) OK() bool { return len(r.Failures) == 0 }

// Dispatcher sends parts in order to every configured sink.
type Dispatcher struct {
	Sinks []Sink
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{Sinks: sinks}
}

// Dispatch delivers parts one after another. A failed part is logged and
// recorded; the remaining parts are still attempted. Cancelling ctx stops
// the loop.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, parts []model.MessagePart) DispatchReport {
	report := DispatchReport{Parts: len(parts)}
	for _, part := range parts {
		if ctx.Err() != nil {
			log.Printf("[WARN] dispatch cancelled before part %d/%d", part.Index, len(parts))
			return report
		}
		msg := Message{RunID: runID, Part: part, Total: len(parts)}
		for _, sink := range d.Sinks {
			if err := sink.Deliver(ctx, msg); err != nil {
				log.Printf("[ERROR] deliver part %d/%d via %s: %v", part.Index, len(parts), sink.Name(), err)
				report.Failures = append(report.Failures, DispatchFailure{Part: part.Index, Sink: sink.Name(), Err: err})
				continue
			}
			report.Sent++
		}
	}
	log.Printf("[INFO] dispatched %d part(s): %d deliveries, %d failures", len(parts), report.Sent, len(report.Failures))
	return report
}
