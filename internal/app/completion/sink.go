// Package completion provides the completion sink invoked when a session finishes naturally.
package completion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/stillpoint/internal/domain/practice"
)

// DefaultTimeout bounds a single sink call.
const DefaultTimeout = 10 * time.Second

// Sink persists a practice record.
type Sink interface {
	OnComplete(ctx context.Context, rec practice.Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec practice.Record) error

// OnComplete calls f.
func (f SinkFunc) OnComplete(ctx context.Context, rec practice.Record) error {
	return f(ctx, rec)
}

// Multi fans a record out to several sinks. All sinks are called;
// failures are combined.
type Multi []Sink

// OnComplete calls every sink in order.
func (m Multi) OnComplete(ctx context.Context, rec practice.Record) error {
	var errs error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.OnComplete(ctx, rec); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// SinkError reports a failed or panicking sink call.
type SinkError struct {
	Record practice.Record
	Err    error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("completion sink failed: session=%s timeline=%s: %v", e.Record.SessionID, e.Record.TimelineID, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Reporter receives sink failures.
type Reporter interface {
	Report(err *SinkError)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err *SinkError)

// Report calls f.
func (f ReporterFunc) Report(err *SinkError) {
	f(err)
}

// LogReporter reports sink failures to the global logger.
type LogReporter struct{}

// Report logs err.
func (LogReporter) Report(err *SinkError) {
	zlog.Error().Err(err.Err).
		Str("session_id", err.Record.SessionID).
		Str("timeline_id", err.Record.TimelineID).
		Msg("completion: sink failed")
}

// Dispatcher runs sink calls asynchronously so that the caller never waits
// on persistence.
type Dispatcher struct {
	sink     Sink
	reporter Reporter
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil sink makes Dispatch a no-op;
// a nil reporter logs failures; a non-positive timeout uses DefaultTimeout.
func NewDispatcher(sink Sink, reporter Reporter, timeout time.Duration) *Dispatcher {
	if reporter == nil {
		reporter = LogReporter{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		sink:     sink,
		reporter: reporter,
		timeout:  timeout,
	}
}

// Dispatch hands rec to the sink on a new goroutine and returns immediately.
func (d *Dispatcher) Dispatch(rec practice.Record) {
	if d.sink == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.call(rec); err != nil {
			d.reporter.Report(&SinkError{Record: rec, Err: err})
		}
	}()
}

// Wait blocks until every dispatched call has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) call(rec practice.Record) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("sink panicked: %v", r)
		}
	}()

	zlog.Debug().Msgf("completion: dispatching record: session=%s timeline=%s elapsed=%v",
		rec.SessionID, rec.TimelineID, rec.TotalElapsed)

	return d.sink.OnComplete(ctx, rec)
}
