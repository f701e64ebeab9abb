package core

import (
	"context"
	"expvar"
	"fmt"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes lifecycle counters as one expvar map:
//
//	operations    "<op>.success" / "<op>.error" counts
//	operation_ms  accumulated milliseconds per operation
//	transitions   "<from>-><to>" counts
//	deliveries    "<event>.delivered" / "<event>.failed" counts
//
// It serves deployments that scrape /debug/vars instead of Prometheus.
type ExpvarMetricsRecorder struct {
	name        string
	operations  *expvar.Map
	durationsMS *expvar.Map
	transitions *expvar.Map
	deliveries  *expvar.Map
}

// NewExpvarMetricsRecorder publishes the recorder under name, generating a
// unique name when empty. Reusing a name already holding a map resets it, so
// a process may reopen its service without expvar panicking on re-publish.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("volunteercore_lifecycle_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	root, ok := expvar.Get(name).(*expvar.Map)
	if ok {
		root.Init()
	} else {
		root = expvar.NewMap(name)
	}
	r := &ExpvarMetricsRecorder{
		name:        name,
		operations:  new(expvar.Map).Init(),
		durationsMS: new(expvar.Map).Init(),
		transitions: new(expvar.Map).Init(),
		deliveries:  new(expvar.Map).Init(),
	}
	root.Set("operations", r.operations)
	root.Set("operation_ms", r.durationsMS)
	root.Set("transitions", r.transitions)
	root.Set("deliveries", r.deliveries)
	return r
}

// Name returns the expvar key the recorder is published under.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	r.operations.Add(operation+"."+outcome, 1)
	r.durationsMS.AddFloat(operation, float64(duration)/float64(time.Millisecond))
}

// ObserveTransition implements LifecycleMetrics.
func (r *ExpvarMetricsRecorder) ObserveTransition(from, to Status) {
	r.transitions.Add(string(from)+"->"+string(to), 1)
}

// ObserveDispatch implements LifecycleMetrics.
func (r *ExpvarMetricsRecorder) ObserveDispatch(event Event, delivered, failed int) {
	if delivered > 0 {
		r.deliveries.Add(string(event)+".delivered", int64(delivered))
	}
	if failed > 0 {
		r.deliveries.Add(string(event)+".failed", int64(failed))
	}
}
