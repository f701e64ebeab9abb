package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

const defaultSpanRetention = 256

// SpanRecord is one finished service operation.
type SpanRecord struct {
	Seq        uint64    `json:"seq"`
	Operation  string    `json:"operation"`
	OK         bool      `json:"ok"`
	Kind       ErrorKind `json:"kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONTracer writes every finished span as a JSON line and keeps the most
// recent ones in memory.
type JSONTracer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	now    func() time.Time
	seq    uint64
	keep   int
	recent []SpanRecord
}

// NewJSONTracer returns a tracer writing to w. A nil w only retains spans.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{now: time.Now, keep: defaultSpanRetention}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Recent returns the retained spans, oldest first.
func (t *JSONTracer) Recent() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.recent...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: t.now().UTC()}
}

func (t *JSONTracer) finish(rec SpanRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	rec.Seq = t.seq
	t.recent = append(t.recent, rec)
	if len(t.recent) > t.keep {
		t.recent = append(t.recent[:0], t.recent[len(t.recent)-t.keep:]...)
	}
	if t.enc != nil {
		_ = t.enc.Encode(rec)
	}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
}

func (s *jsonSpan) End(err error) {
	rec := SpanRecord{
		Operation:  s.operation,
		OK:         err == nil,
		StartedAt:  s.started,
		DurationMS: float64(s.tracer.now().Sub(s.started)) / float64(time.Millisecond),
	}
	if err != nil {
		rec.Kind = KindOf(err)
		rec.Error = err.Error()
	}
	s.tracer.finish(rec)
}
