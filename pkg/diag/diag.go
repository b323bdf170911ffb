// Package diag reports anomalies found while reading possibly malformed
// binaries without aborting the whole read.
package diag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
)

// ErrBadImage marks an error describing malformed input.
var ErrBadImage = errors.New("bad image")

// Listener receives reports of malformed input. Implementations decide
// whether a report is logged, collected or escalated.
type Listener interface {
	BadImage(err error)
}

// BadImage reports a malformed-input message to l and returns the zero
// value of T, the fallback used by lazily resolved fields.
func BadImage[T any](l Listener, format string, args ...any) T {
	var zero T
	if l != nil {
		l.BadImage(fmt.Errorf("%w: %s", ErrBadImage, fmt.Sprintf(format, args...)))
	}
	return zero
}

// Diagnostics collects every report in order. It is safe for concurrent
// use, since lazy fields may be resolved from several goroutines.
type Diagnostics struct {
	mu   sync.Mutex
	errs []error
}

func (d *Diagnostics) BadImage(err error) {
	d.mu.Lock()
	d.errs = append(d.errs, err)
	d.mu.Unlock()
}

// Errors returns a copy of the collected reports.
func (d *Diagnostics) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errs...)
}

// Len returns the number of collected reports.
func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.errs)
}

// Err joins the collected reports, or returns nil when there are none.
func (d *Diagnostics) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.errs...)
}

// LogListener writes reports to a commonlog logger at warning level.
type LogListener struct {
	Log commonlog.Logger
}

// NewLogListener returns a listener logging under the given logger name.
func NewLogListener(name string) *LogListener {
	return &LogListener{Log: commonlog.GetLogger(name)}
}

func (l *LogListener) BadImage(err error) {
	l.Log.Warningf("%s", err)
}

// Strict keeps the first report so a caller can fail the read afterwards.
type Strict struct {
	mu  sync.Mutex
	err error
}

func (s *Strict) BadImage(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Err returns the first report, if any.
func (s *Strict) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Tee forwards every report to each listener.
type Tee []Listener

func (t Tee) BadImage(err error) {
	for _, l := range t {
		if l != nil {
			l.BadImage(err)
		}
	}
}

// Discard ignores every report.
var Discard Listener = discard{}

type discard struct{}

func (discard) BadImage(error) {}
