// Package delivery sends reply batches at their scheduled times.
//
// A single loop decides when messages are due. The sends themselves run on
// a bounded worker pool with one lane per recipient, so a slow recipient
// never delays another and each recipient's messages keep their due order.
// Sends are attempted once. Failures are logged and counted.
package delivery

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/originalcoast/igbot/internal/bot"
	"github.com/originalcoast/igbot/internal/config"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Sender delivers one message to one recipient.
type Sender interface {
	SendMessage(ctx context.Context, recipientID string, msg igapi.Message) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config holds configuration for creating a Scheduler.
type Config struct {
	Sender  Sender
	Clock   Clock // Optional; defaults to wall time
	Workers int   // Optional; concurrent sends, defaults to config.DeliveryWorkers
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Scheduler queues messages until they are due and then sends them.
type Scheduler struct {
	sender  Sender
	clock   Clock
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	q       queue
	lanes   map[string][]*item // due messages per recipient with an active worker
	seq     uint64
	closed  bool
	running bool

	pool errgroup.Group

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Scheduler. Call Run to start sending.
func New(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("error")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = config.DeliveryWorkers
	}
	s := &Scheduler{
		sender:  cfg.Sender,
		clock:   clock,
		logger:  log.WithModule("delivery"),
		metrics: cfg.Metrics,
		lanes:   make(map[string][]*item),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.pool.SetLimit(workers)
	return s
}

// Schedule queues batch for recipientID relative to now. It never blocks on sending.
// Batches scheduled after Shutdown are dropped.
func (s *Scheduler) Schedule(recipientID string, batch []bot.Scheduled) {
	if len(batch) == 0 {
		return
	}
	now := s.clock.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.WithField("recipient", recipientID).
			WithField("messages", len(batch)).
			Warn("Scheduler closed; dropping replies")
		return
	}
	for _, sc := range batch {
		s.seq++
		heap.Push(&s.q, &item{
			recipient: recipientID,
			msg:       sc.Message,
			due:       now.Add(sc.Delay),
			seq:       s.seq,
		})
	}
	depth := s.q.Len()
	s.mu.Unlock()

	s.metrics.SetDeliveryQueueDepth(depth)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued messages.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Len()
}

// Tick hands every due message to the workers, waits until each has been
// attempted and returns how many there were. It must not be called while
// Run is active.
func (s *Scheduler) Tick(ctx context.Context) int {
	due := s.popDue(s.clock.Now())
	s.dispatch(ctx, due)
	_ = s.pool.Wait()
	return len(due)
}

// Run hands due messages to the workers until ctx is cancelled or Shutdown
// is called. Sends already handed over outlive ctx; Shutdown waits for them.
// It returns immediately if already running or shut down.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running || s.closed {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer close(s.done)

	sendCtx := context.WithoutCancel(ctx)
	for {
		s.dispatch(sendCtx, s.popDue(s.clock.Now()))

		var timer <-chan time.Time
		if wait, ok := s.nextWait(); ok {
			timer = s.clock.After(wait)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.wake:
		case <-timer:
		}
	}
}

// Shutdown stops Run, immediately attempts every queued message and waits
// for all sends to finish. It returns ctx's error if ctx ends first; sends
// that had not started by then are abandoned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	running := s.running
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })

	if running {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	pending := make([]*item, 0, s.q.Len())
	for s.q.Len() > 0 {
		pending = append(pending, heap.Pop(&s.q).(*item))
	}
	s.mu.Unlock()
	s.metrics.SetDeliveryQueueDepth(0)

	if len(pending) > 0 {
		s.logger.WithField("messages", len(pending)).Info("Flushing queued replies")
	}
	s.dispatch(ctx, pending)

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		_ = s.pool.Wait()
	}()
	select {
	case <-idle:
	case <-ctx.Done():
	}
	return ctx.Err()
}

func (s *Scheduler) popDue(now time.Time) []*item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*item
	for s.q.Len() > 0 && !s.q[0].due.After(now) {
		due = append(due, heap.Pop(&s.q).(*item))
	}
	if len(due) > 0 {
		s.metrics.SetDeliveryQueueDepth(s.q.Len())
	}
	return due
}

func (s *Scheduler) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.q.Len() == 0 {
		return 0, false
	}
	return max(s.q[0].due.Sub(s.clock.Now()), 0), true
}

// dispatch appends items to their recipients' lanes and starts a worker for
// every lane that has none. It blocks while the pool is full.
func (s *Scheduler) dispatch(ctx context.Context, items []*item) {
	for _, it := range items {
		s.mu.Lock()
		pending, active := s.lanes[it.recipient]
		s.lanes[it.recipient] = append(pending, it)
		s.mu.Unlock()
		if active {
			continue
		}

		recipient := it.recipient
		s.pool.Go(func() error {
			s.drain(ctx, recipient)
			return nil
		})
	}
}

// drain sends the recipient's lane in order until it is empty.
func (s *Scheduler) drain(ctx context.Context, recipient string) {
	for {
		s.mu.Lock()
		pending := s.lanes[recipient]
		if len(pending) == 0 {
			delete(s.lanes, recipient)
			s.mu.Unlock()
			return
		}
		it := pending[0]
		s.lanes[recipient] = pending[1:]
		s.mu.Unlock()

		s.send(ctx, it)
	}
}

func (s *Scheduler) send(ctx context.Context, it *item) {
	log := s.logger.WithField("recipient", it.recipient)
	if err := ctx.Err(); err != nil {
		s.metrics.RecordDelivery("abandoned", 0)
		log.WithError(err).Warn("Context done; abandoning reply")
		return
	}
	lag := s.clock.Now().Sub(it.due).Seconds()

	if err := s.sender.SendMessage(ctx, it.recipient, it.msg); err != nil {
		s.metrics.RecordDelivery("failed", lag)
		log.WithError(err).Error("Unable to send message")
		return
	}
	s.metrics.RecordDelivery("sent", lag)
	log.Debug("Message sent")
}
