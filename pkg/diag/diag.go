// Package diag carries failures that are deliberately not returned to callers
// (fire-and-forget publishes, dropped change reports) so they stay observable.
package diag

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Kind classifies a diagnostic event.
type Kind string

// Event kinds
const (
	CommandPublishFailed  Kind = "command_publish_failed"
	EventForwardFailed    Kind = "event_forward_failed"
	ReportDroppedNoToken  Kind = "report_dropped_no_token"
	ReportDroppedNoOwner  Kind = "report_dropped_no_owner"
	TelemetryDecodeFailed Kind = "telemetry_decode_failed"
	StatePersistFailed    Kind = "state_persist_failed"
)

// Event is one swallowed failure.
type Event struct {
	Kind     Kind
	DeviceID string
	UserID   string
	Err      error
	At       time.Time
}

// Sink receives diagnostic events. Implementations must not block.
type Sink interface {
	Report(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Report(e Event) { f(e) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(Event) {})

// LogSink writes events through zerolog.
type LogSink struct {
	Logger *zerolog.Logger
}

func (s LogSink) Report(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = &log.Logger
	}
	logger.Warn().
		Err(e.Err).
		Str("kind", string(e.Kind)).
		Str("device_id", e.DeviceID).
		Str("user_id", e.UserID).
		Msg("diagnostic")
}

// Recorder keeps counts per kind and the most recent events.
type Recorder struct {
	mu     sync.Mutex
	counts map[Kind]int
	recent []Event
	limit  int
}

// NewRecorder creates a Recorder keeping up to limit recent events.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{counts: make(map[Kind]int), limit: limit}
}

func (r *Recorder) Report(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[e.Kind]++
	r.recent = append(r.recent, e)
	if len(r.recent) > r.limit {
		r.recent = r.recent[len(r.recent)-r.limit:]
	}
}

// Count returns how many events of kind were reported.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

// Counts returns a snapshot of all counters.
func (r *Recorder) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[string(k)] = v
	}
	return out
}

// Recent returns a copy of the retained events, oldest first.
func (r *Recorder) Recent() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.recent...)
}

// Multi fans an event out to several sinks.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Report(e)
			}
		}
	})
}
