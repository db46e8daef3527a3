package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/probe"
)

// fakeProber returns whatever fn decides for each call number (1-based).
type fakeProber struct {
	calls atomic.Int32
	fn    func(n int) (probe.RawResult, error)
}

func (f *fakeProber) Probe(ctx context.Context, host string, timeout time.Duration, packetSize int) (probe.RawResult, error) {
	n := int(f.calls.Add(1))
	if f.fn == nil {
		return probe.RawResult{Success: true, Stdout: "64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=1.5 ms"}, nil
	}
	return f.fn(n)
}

// fakeStore records appends and can fail them.
type fakeStore struct {
	mu   sync.Mutex
	rows []domain.ProbeOutcome
	fail bool
	n    int
}

func (f *fakeStore) Append(ctx context.Context, o *domain.ProbeOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	if f.fail {
		return errors.New("disk full")
	}
	f.rows = append(f.rows, *o)
	return nil
}

func (f *fakeStore) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	return nil, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func (f *fakeStore) saved() []domain.ProbeOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProbeOutcome(nil), f.rows...)
}

// fakeSub is an in-memory subscriber.
type fakeSub struct {
	id      string
	mu      sync.Mutex
	msgs    []any
	onClose []func()
	closed  bool
	sendErr error
}

func newSub(id string) *fakeSub { return &fakeSub{id: id} }

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Send(msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSub) OnClose(fn func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		fn()
		return
	}
	f.onClose = append(f.onClose, fn)
	f.mu.Unlock()
}

func (f *fakeSub) close() {
	f.mu.Lock()
	f.closed = true
	fns := f.onClose
	f.onClose = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeSub) messages() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.msgs...)
}

func (f *fakeSub) pings() []PingEvent {
	var out []PingEvent
	for _, m := range f.messages() {
		if p, ok := m.(PingEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeSub) finishedCount() int {
	n := 0
	for _, m := range f.messages() {
		if m == Finished() {
			n++
		}
	}
	return n
}

func (f *fakeSub) failWith(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func waitFor(t interface {
	Helper()
	Fatalf(string, ...any)
}, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
