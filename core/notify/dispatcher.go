package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/netutil"
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent delivering a single message.
	MaxDuration time.Duration
}

type job struct {
	phone string
	text  string
}

// Dispatcher delivers messages asynchronously through an underlying sender.
// It implements Notifier; Send enqueues and returns immediately, which keeps
// notification delivery best-effort for callers. Failures are logged and
// counted, never surfaced.
type Dispatcher struct {
	sender Notifier
	opts   Options
	jobs   chan job
	mu     sync.RWMutex // guards closed against a concurrent close(jobs)
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(sender Notifier, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 15 * time.Second
	}

	d := &Dispatcher{
		sender: sender,
		opts:   opts,
		jobs:   make(chan job, opts.QueueSize),
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}

	return d
}

// Send enqueues the message for asynchronous delivery. It never blocks: when
// the queue is saturated or the dispatcher is closed the message is dropped
// with a warning, matching the fire-and-forget notification contract.
func (d *Dispatcher) Send(_ context.Context, phone, text string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.Warn(logger.Background(), "wa", "send.drop",
			slog.String("phone", phone),
			slog.String("cause", "dispatcher closed"),
		)
		return nil
	}

	select {
	case d.jobs <- job{phone: phone, text: text}:
	default:
		d.errs.Add(1)
		logger.Warn(logger.Background(), "wa", "send.drop",
			slog.String("phone", phone),
			slog.String("cause", "queue full"),
			slog.Int("queue_len", len(d.jobs)),
		)
	}
	return nil
}

// ErrorCount returns the number of dropped or failed deliveries.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops workers and waits for them to finish processing queued jobs.
// The queue channel is closed only once every in-flight Send has released the
// read lock, so a concurrent Send cannot hit a closed channel.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		err := d.sender.Send(ctx, j.phone, j.text)
		if err == nil {
			logger.Debug(ctx, "wa", "send.success",
				slog.String("phone", j.phone),
				slog.Int("attempt", attempt),
				slog.Duration("duration", logger.Took(start)),
			)
			return
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := d.opts.RetryBackoff * time.Duration(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
		case <-timer.C:
			logger.Debug(ctx, "wa", "send.retry",
				slog.String("phone", j.phone),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
			)
			continue
		}
		break
	}

	d.errs.Add(1)
	logger.Error(ctx, "wa", "send.fail",
		slog.String("phone", j.phone),
		slog.Int("attempts", attempts),
		slog.String("err", lastErr.Error()),
		slog.Duration("duration", logger.Took(start)),
	)
}
