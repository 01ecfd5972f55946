package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/metrics"
	"ppecatalog/internal/repos"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 5
	DefaultBackoff     = 30 * time.Second
	MaxBackoff         = time.Hour
	batchSize          = 20
)

// Backoff is the wait after a failed attempt: base doubled per previous
// attempt, capped at MaxBackoff.
func Backoff(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = DefaultBackoff
	}
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// Dispatcher drains the outbox through a Mailer.
type Dispatcher struct {
	outbox      repos.Outbox
	mailer      Mailer
	log         *zap.Logger
	interval    time.Duration
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithInterval(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.interval = d
		}
	}
}

func WithMaxAttempts(n int) DispatcherOption {
	return func(x *Dispatcher) {
		if n > 0 {
			x.maxAttempts = n
		}
	}
}

func WithBackoff(base time.Duration) DispatcherOption {
	return func(x *Dispatcher) { x.backoff = base }
}

func WithNow(now func() time.Time) DispatcherOption {
	return func(x *Dispatcher) { x.now = now }
}

func NewDispatcher(outbox repos.Outbox, mailer Mailer, log *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		outbox:      outbox,
		mailer:      mailer,
		log:         log,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		now:         time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run flushes the outbox every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("outbox_dispatcher_started",
		zap.Duration("interval", d.interval), zap.Int("max_attempts", d.maxAttempts))
	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		if _, err := d.Flush(ctx); err != nil && ctx.Err() == nil {
			d.log.Error("outbox_flush_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			d.log.Info("outbox_dispatcher_stopped")
			return nil
		case <-t.C:
		}
	}
}

// Stats counts the outcomes of one Flush.
type Stats struct {
	Sent, Retried, Failed int
}

// Flush makes one delivery attempt for every due notification.
func (d *Dispatcher) Flush(ctx context.Context) (Stats, error) {
	var st Stats
	due, err := d.outbox.Due(ctx, d.now(), batchSize)
	if err != nil {
		return st, err
	}
	for _, n := range due {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		if err := d.deliver(ctx, n, &st); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification, st *Stats) error {
	fields := []zap.Field{zap.String("notification_id", n.ID), zap.String("kind", string(n.Kind)), zap.Int("attempt", n.Attempts+1)}

	sendErr := d.mailer.Send(ctx, Message{To: n.To, ReplyTo: n.ReplyTo, Subject: n.Subject, Body: n.Body})
	if sendErr == nil {
		st.Sent++
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
		d.log.Info("notification_sent", fields...)
		return d.outbox.MarkSent(ctx, n.ID, d.now())
	}

	fields = append(fields, zap.Error(sendErr))
	if n.Attempts+1 >= d.maxAttempts {
		st.Failed++
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
		d.log.Error("notification_failed", fields...)
		return d.outbox.MarkFailed(ctx, n.ID, sendErr.Error())
	}
	next := d.now().Add(Backoff(d.backoff, n.Attempts))
	st.Retried++
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "retry").Inc()
	d.log.Warn("notification_retry", append(fields, zap.Time("next_attempt_at", next))...)
	return d.outbox.MarkRetry(ctx, n.ID, sendErr.Error(), next)
}
