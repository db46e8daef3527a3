package session

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/pingmonitor/internal/domain"
)

// Session is one bounded monitoring run. The engine owns it; subscribers are
// only referenced.
type Session struct {
	ID        string
	Request   domain.ProbeRequest
	StartedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	subsMu sync.RWMutex
	subs   map[string]Subscriber

	// sendMu orders fan-out against the terminal event.
	sendMu     sync.Mutex
	finished   bool
	finishOnce sync.Once

	mu         sync.Mutex
	stopReason string
	summary    Summary
	latencySum float64
	latencyN   int
}

// Summary counts what a session observed.
type Summary struct {
	Ticks         int      `json:"ticks"`
	Successes     int      `json:"successes"`
	Failures      int      `json:"failures"`
	MeanLatencyMS *float64 `json:"meanLatencyMs"`
}

func newSession(parent context.Context, id string, req domain.ProbeRequest, startedAt time.Time, subs []Subscriber) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:        id,
		Request:   req,
		StartedAt: startedAt,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		subs:      make(map[string]Subscriber, len(subs)),
	}
	for _, sub := range subs {
		s.subs[sub.ID()] = sub
	}
	return s
}

// Done is closed once the session has finished and sent its terminal event.
func (s *Session) Done() <-chan struct{} { return s.done }

// Subscribers returns a snapshot of the current subscriber set.
func (s *Session) Subscribers() []Subscriber {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	out := make([]Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

func (s *Session) SubscriberCount() int {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs)
}

func (s *Session) removeSubscriber(id string) (remaining int, removed bool) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, ok := s.subs[id]; ok {
		delete(s.subs, id)
		removed = true
	}
	return len(s.subs), removed
}

// stop asks the run loop to end the session early. The first reason wins.
func (s *Session) stop(reason string) {
	s.mu.Lock()
	if s.stopReason == "" {
		s.stopReason = reason
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopReason == "" {
		return "cancelled"
	}
	return s.stopReason
}

func (s *Session) record(o domain.ProbeOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Ticks++
	if !o.Success {
		s.summary.Failures++
		return
	}
	s.summary.Successes++
	if o.ResponseTimeMS != nil {
		s.latencySum += *o.ResponseTimeMS
		s.latencyN++
		mean := s.latencySum / float64(s.latencyN)
		s.summary.MeanLatencyMS = &mean
	}
}

// Summary returns the counts observed so far.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.summary
	if out.MeanLatencyMS != nil {
		v := *out.MeanLatencyMS
		out.MeanLatencyMS = &v
	}
	return out
}
