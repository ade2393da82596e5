// Package sender runs outbound side effects (Telegram API calls, receipt
// e-mails) on a bounded worker pool with retries, so handlers never block on
// slow collaborators.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("sender: queue full")

	secretRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// Name tags log lines, e.g. "tg.sender" or "notify.sender".
	Name         string
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
	// Retryable decides whether a failed attempt is repeated. Defaults to netutil.ShouldRetry.
	Retryable func(error) bool
	// Classify maps an error to a short error_kind label for logs.
	Classify func(error) string
}

// Job is a unit of outbound work. Run receives a context bounded by MaxDuration
// and must be idempotent if retries are desired.
type Job func(ctx context.Context) error

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      Job
}

// Dispatcher executes outbound calls asynchronously with retries.
type Dispatcher struct {
	opts Options
	jobs chan job
	mu   sync.RWMutex
	stop bool
	once sync.Once
	wg   sync.WaitGroup
	errs atomic.Uint64
	done atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Name == "" {
		opts.Name = "sender"
	}
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
		opts.MaxDuration = 12 * time.Second
	}
	if opts.Retryable == nil {
		opts.Retryable = netutil.ShouldRetry
	}
	if opts.Classify == nil {
		opts.Classify = classifyError
	}

	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules run for asynchronous execution. The job keeps the values of
// ctx (rid, user ids) but not its cancellation, so a finished handler does not
// abort the send.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run Job) error {
	if run == nil {
		return errors.New("sender: nil job")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stop {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed after all attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// DoneCount returns the number of jobs that completed successfully.
func (d *Dispatcher) DoneCount() uint64 {
	return d.done.Load()
}

// Close stops accepting jobs and waits for queued jobs to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.stop = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, d.opts.Name, "send.start", d.logAttrs(j)...)

	attempts := d.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		lastErr = d.runSafe(ctx, j)
		if lastErr == nil {
			d.done.Add(1)
			attrs := append(d.logAttrs(j), slog.Duration("duration", time.Since(start)))
			if attempt > 1 {
				attrs = append(attrs, slog.Int("attempts", attempt))
			}
			logger.Debug(ctx, d.opts.Name, "send.success", attrs...)
			return
		}
		if !d.opts.Retryable(lastErr) || attempt == attempts {
			break
		}

		delay := d.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(ctx, d.opts.Name, "send.retry.backoff",
			append(d.logAttrs(j), slog.Int("attempts", attempt), slog.Duration("backoff", delay))...,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			attempt = attempts
		case <-timer.C:
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, d.opts.Name, "send.fail",
		append(d.logAttrs(j),
			slog.String("err", redact(lastErr)),
			slog.String("err_code", d.opts.Classify(lastErr)),
			slog.Int("attempts", attempts),
			slog.Duration("duration", time.Since(start)),
		)...,
	)
}

// runSafe converts a panicking job into an error so one bad job cannot kill a worker.
func (d *Dispatcher) runSafe(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return j.run(ctx)
}

type panicError struct{ value any }

func (p *panicError) Error() string   { return "sender: job panicked" }
func (p *panicError) Retryable() bool { return false }

func (d *Dispatcher) logAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("op", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var p *panicError
	if errors.As(err, &p) {
		return "panic"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}
	return "unknown"
}

// redact prevents accidental leakage of bot tokens in logs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return secretRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
