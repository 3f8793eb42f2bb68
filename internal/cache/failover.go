package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/tdh8316/profilescan/internal/model"
)

// Nop caches nothing: every lookup misses and writes are dropped.
type Nop struct{}

func (Nop) Init(context.Context) error { return nil }

func (Nop) Lookup(context.Context, string, string) (model.Result, bool, error) {
	return model.Result{}, false, nil
}

func (Nop) Upsert(context.Context, string, model.Result) error { return nil }

func (Nop) Close() error { return nil }

// Failover runs on primary until its first I/O error, then logs a warning
// once and behaves like Nop for the rest of its life. Errors caused by the
// caller's context ending are reported as a miss without degrading. Callers
// never see a storage error from it.
type Failover struct {
	primary Store
	logger  logrus.FieldLogger

	degraded atomic.Bool
	once     sync.Once
}

func NewFailover(primary Store, logger logrus.FieldLogger) *Failover {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Failover{primary: primary, logger: logger}
}

// Degraded reports whether the primary store has been abandoned.
func (f *Failover) Degraded() bool {
	return f.degraded.Load()
}

func (f *Failover) trip(op string, err error) {
	f.degraded.Store(true)
	f.once.Do(func() {
		f.logger.WithError(err).WithField("op", op).Warn("cache unavailable; continuing without cache")
	})
}

// callerGone reports whether err came from the caller's own context rather
// than from the store. Those errors never degrade the store.
func callerGone(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (f *Failover) Init(ctx context.Context) error {
	if f.Degraded() {
		return nil
	}
	if err := f.primary.Init(ctx); err != nil && !callerGone(ctx, err) {
		f.trip("init", err)
	}
	return nil
}

func (f *Failover) Lookup(ctx context.Context, username, site string) (model.Result, bool, error) {
	if f.Degraded() {
		return model.Result{}, false, nil
	}
	res, ok, err := f.primary.Lookup(ctx, username, site)
	if err != nil {
		if !callerGone(ctx, err) {
			f.trip("lookup", err)
		}
		return model.Result{}, false, nil
	}
	return res, ok, nil
}

func (f *Failover) Upsert(ctx context.Context, username string, result model.Result) error {
	if f.Degraded() {
		return nil
	}
	if err := f.primary.Upsert(ctx, username, result); err != nil && !callerGone(ctx, err) {
		f.trip("upsert", err)
	}
	return nil
}

func (f *Failover) Close() error {
	return f.primary.Close()
}
