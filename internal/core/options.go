package core

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Clock supplies timestamps for created and updated records.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now returns the current time from the wrapped function.
func (f ClockFunc) Now() time.Time { return f() }

type serviceOptions struct {
	clock               Clock
	logger              logrus.FieldLogger
	metrics             MetricsRecorder
	tracer              Tracer
	dispatchConcurrency int
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  discardLogger(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithTracer sets the tracer used to wrap every operation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithDispatchConcurrency bounds parallel notification sends per event.
func WithDispatchConcurrency(n int) ServiceOption {
	return func(o *serviceOptions) {
		o.dispatchConcurrency = n
	}
}
