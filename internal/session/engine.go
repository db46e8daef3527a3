package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/metrics"
	"github.com/hamed0406/pingmonitor/internal/notify"
	"github.com/hamed0406/pingmonitor/internal/probe"
	"github.com/hamed0406/pingmonitor/internal/repo"
)

// ErrClosed is returned by Start after Shutdown.
var ErrClosed = errors.New("session engine is shut down")

type Options struct {
	TickInterval time.Duration // default 1s
	StoreTimeout time.Duration // default 2s
	// StopWhenUnwatched ends a session once its subscriber set is empty.
	// Otherwise the session keeps probing and persisting until its duration
	// elapses.
	StopWhenUnwatched bool
	Platform          probe.Platform
	Metrics           *metrics.Metrics
	Notifier          notify.Notifier
}

// Engine runs monitoring sessions. Each session ticks on its own goroutine
// and each tick runs its probe-parse-persist-notify pipeline without waiting
// for the previous one.
type Engine struct {
	logger   *zap.Logger
	prober   probe.Prober
	store    repo.ResultStore
	opts     Options
	now      func() time.Time
	seq      atomic.Uint64
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	sessions map[string]*Session
}

func NewEngine(logger *zap.Logger, prober probe.Prober, store repo.ResultStore, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		logger:   logger,
		prober:   prober,
		store:    store,
		opts:     opts,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Start begins a session for req with the given subscribers and returns
// without waiting for any probe. An empty subscriber set is logged, not
// rejected.
func (e *Engine) Start(req domain.ProbeRequest, subs []Subscriber) (*Session, error) {
	now := e.now()
	id := fmt.Sprintf("%s-%d", now.UTC().Format("20060102T150405"), e.seq.Add(1))
	s := newSession(e.ctx, id, req, now, subs)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		s.cancel()
		return nil, ErrClosed
	}
	e.sessions[s.ID] = s
	e.wg.Add(1)
	e.mu.Unlock()

	log := e.logger.With(zap.String("session_id", s.ID), zap.String("host", req.Host))
	log.Info("session_started",
		zap.Int("timeout_ms", req.TimeoutMS),
		zap.Int("packet_size", req.PacketSizeBytes),
		zap.Int("duration_ms", req.DurationMS),
		zap.Int("subscribers", len(subs)),
	)
	if len(subs) == 0 {
		log.Warn("session_without_subscribers")
	}
	e.opts.Metrics.SessionStarted()

	e.fanout(s, Info("Started monitoring "+req.Host))
	for _, sub := range subs {
		subID := sub.ID()
		sub.OnClose(func() { e.detach(s, subID) })
	}

	go e.run(s, log)
	return s, nil
}

// Active returns the sessions that have not finished yet.
func (e *Engine) Active() []*Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	return out
}

// Shutdown stops every session (each sends its terminal event) and waits for
// in-flight pipelines. When ctx expires first, outstanding probes are
// cancelled.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	for _, s := range sessions {
		s.stop("shutdown")
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		return ctx.Err()
	}
}

func (e *Engine) run(s *Session, log *zap.Logger) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for tick := 1; ; tick++ {
		select {
		case <-s.ctx.Done():
			e.finish(s, log, s.reason())
			return
		case now := <-ticker.C:
			if s.SubscriberCount() == 0 {
				if e.opts.StopWhenUnwatched {
					e.finish(s, log, "no subscribers")
					return
				}
				log.Debug("session_unwatched_tick", zap.Int("tick", tick))
			}
			if now.Sub(s.StartedAt) >= s.Request.Duration() {
				ticker.Stop()
				e.pipeline(s, log, tick)
				e.finish(s, log, "duration elapsed")
				return
			}
			e.wg.Add(1)
			go func(tick int) {
				defer e.wg.Done()
				e.pipeline(s, log, tick)
			}(tick)
		}
	}
}

// pipeline runs one tick: probe, parse, persist, notify. Failures stay
// inside the tick.
func (e *Engine) pipeline(s *Session, log *zap.Logger, tick int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tick_panic", zap.Int("tick", tick), zap.Any("panic", r))
			e.fanout(s, Error(fmt.Sprintf("tick %d failed: %v", tick, r)))
		}
	}()
	e.opts.Metrics.Tick()

	req := s.Request
	out := domain.ProbeOutcome{
		Host:            req.Host,
		PacketSizeBytes: req.PacketSizeBytes,
		TimeoutMS:       req.TimeoutMS,
	}

	raw, err := e.prober.Probe(e.ctx, req.Host, req.Timeout(), req.PacketSizeBytes)
	switch {
	case err != nil:
		log.Warn("tick_probe_invocation_error", zap.Int("tick", tick), zap.Error(err))
		out.ErrorDetail = domain.String(err.Error())
	case raw.Success:
		out.Success = true
		out.ResponseTimeMS = raw.LatencyMS
		if out.ResponseTimeMS == nil {
			if ms, ok := probe.ParseLatency(raw.Stdout, e.opts.Platform); ok {
				out.ResponseTimeMS = &ms
			} else {
				log.Debug("tick_latency_unknown", zap.Int("tick", tick))
			}
		}
	default:
		detail := raw.Detail
		if detail == "" {
			detail = "no reply"
		}
		out.ErrorDetail = &detail
	}

	s.record(out)
	e.opts.Metrics.Probe(out.Success, out.ResponseTimeMS)

	out.Timestamp = e.now().UTC()
	sctx, cancel := context.WithTimeout(e.ctx, e.opts.StoreTimeout)
	if err := e.store.Append(sctx, &out); err != nil {
		e.opts.Metrics.StorageError()
		log.Warn("tick_storage_error", zap.Int("tick", tick), zap.Error(err))
	}
	cancel()

	log.Debug("tick_done",
		zap.Int("tick", tick),
		zap.Bool("success", out.Success),
		zap.Float64p("latency_ms", out.ResponseTimeMS),
		zap.Stringp("error", out.ErrorDetail),
	)
	e.fanout(s, Ping(out))
}

// fanout sends msg to every live subscriber unless the session has already
// sent its terminal event. Subscribers that fail are pruned.
func (e *Engine) fanout(s *Session, msg any) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.finished {
		return
	}
	for _, sub := range s.Subscribers() {
		if err := sub.Send(msg); err != nil {
			e.opts.Metrics.FanoutError()
			e.logger.Info("subscriber_send_failed",
				zap.String("session_id", s.ID),
				zap.String("subscriber", sub.ID()),
				zap.Error(err),
			)
			e.detach(s, sub.ID())
		}
	}
}

// detach removes a subscriber from a session; it never touches the
// transport itself.
func (e *Engine) detach(s *Session, subID string) {
	remaining, removed := s.removeSubscriber(subID)
	if !removed {
		return
	}
	e.logger.Debug("subscriber_detached",
		zap.String("session_id", s.ID),
		zap.String("subscriber", subID),
		zap.Int("remaining", remaining),
	)
	if remaining == 0 && e.opts.StopWhenUnwatched {
		s.stop("no subscribers")
	}
}

// finish sends the terminal event and releases the session. Only the first
// call has any effect.
func (e *Engine) finish(s *Session, log *zap.Logger, reason string) {
	s.finishOnce.Do(func() {
		s.sendMu.Lock()
		for _, sub := range s.Subscribers() {
			if err := sub.Send(Finished()); err != nil {
				log.Debug("subscriber_finish_send_failed", zap.String("subscriber", sub.ID()), zap.Error(err))
			}
		}
		s.finished = true
		s.sendMu.Unlock()
		s.cancel()

		e.mu.Lock()
		delete(e.sessions, s.ID)
		e.mu.Unlock()
		e.opts.Metrics.SessionFinished()

		sum := s.Summary()
		log.Info("session_finished",
			zap.String("reason", reason),
			zap.Duration("elapsed", e.now().Sub(s.StartedAt)),
			zap.Int("ticks", sum.Ticks),
			zap.Int("successes", sum.Successes),
			zap.Int("failures", sum.Failures),
			zap.Float64p("mean_latency_ms", sum.MeanLatencyMS),
		)
		close(s.done)

		if e.opts.Notifier != nil {
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := e.opts.Notifier.Notify(ctx, summaryMessage(s, sum, reason)); err != nil {
					log.Warn("notify_error", zap.Error(err))
				}
			}()
		}
	})
}

func summaryMessage(s *Session, sum Summary, reason string) notify.Message {
	latency := "n/a"
	if sum.MeanLatencyMS != nil {
		latency = fmt.Sprintf("%.1f ms", *sum.MeanLatencyMS)
	}
	return notify.Message{
		Title: FinishedMessage + ": " + s.Request.Host,
		Text: fmt.Sprintf(
			"Host: %s\nTicks: %d\nReplies: %d\nFailures: %d\nMean latency: %s\nStarted: %s\nEnded: %s",
			s.Request.Host, sum.Ticks, sum.Successes, sum.Failures, latency,
			s.StartedAt.UTC().Format(time.RFC3339), reason,
		),
	}
}
