package scan

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/profilescan/internal/model"
	"github.com/tdh8316/profilescan/internal/platforms"
)

type Scanner struct {
	prober   *Prober
	cache    Cache
	cfg      Config
	logger   logrus.FieldLogger
	recorder Recorder
}

func NewScanner(prober *Prober, cache Cache, cfg Config, logger logrus.FieldLogger, recorder Recorder) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 32
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Scanner{
		prober:   prober,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
	}
}

// Scan reports exactly one result per platform: served from a live cache
// entry, or freshly probed and then written back. onResult, if set, is
// called from worker goroutines as each probe completes.
//
// When ctx is cancelled outstanding probes fail fast and are still
// reported; the returned error is then ctx.Err().
func (s *Scanner) Scan(
	ctx context.Context,
	username string,
	list platforms.List,
	onResult func(model.Result),
) (model.Report, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.Report{}, ErrEmptyUsername
	}
	if s.cache == nil {
		return model.Report{}, fmt.Errorf("scanner has no cache")
	}

	report := model.Report{
		ScanID:    uuid.NewString(),
		Username:  username,
		StartedAt: time.Now(),
	}
	log := s.logger.WithFields(logrus.Fields{"scan_id": report.ScanID, "username": username})

	if err := s.cache.Init(ctx); err != nil {
		log.WithError(err).Warn("cache init failed; scanning without cache")
	}

	// All lookups happen before any probe is dispatched.
	var toProbe platforms.List
	for _, pl := range list {
		cached, ok, err := s.cache.Lookup(ctx, username, pl.Name)
		if err != nil {
			log.WithError(err).WithField("site", pl.Name).Warn("cache lookup failed; treating as uncached")
		}
		s.recorder.ObserveCacheLookup(ok)
		if ok {
			cached.Site = pl.Name
			cached.Cached = true
			report.Cached = append(report.Cached, cached)
			continue
		}
		toProbe = append(toProbe, pl)
	}

	report.Probed = s.probeAll(ctx, log, username, toProbe, onResult)

	// Results produced by our own cancellation say nothing about the site.
	cancelled := ctx.Err() != nil
	for _, res := range report.Probed {
		if cancelled && !definitive(res.Status) {
			continue
		}
		if err := s.cache.Upsert(context.WithoutCancel(ctx), username, res); err != nil {
			log.WithError(err).WithField("site", res.Site).Warn("cache write failed")
		}
	}

	for _, res := range report.All() {
		if res.Found() {
			report.Found++
		}
	}
	report.Total = len(report.Cached) + len(report.Probed)
	report.Interrupted = cancelled
	report.Duration = time.Since(report.StartedAt)

	log.WithFields(logrus.Fields{
		"cached": len(report.Cached),
		"probed": len(report.Probed),
		"found":  report.Found,
	}).Debug("scan complete")

	return report, ctx.Err()
}

// probeAll fans out one probe per platform over the worker pool and returns
// the results in list order.
func (s *Scanner) probeAll(
	ctx context.Context,
	log logrus.FieldLogger,
	username string,
	list platforms.List,
	onResult func(model.Result),
) []model.Result {
	workers := min(s.cfg.Concurrency, len(list))
	if workers == 0 {
		return nil
	}

	out := make([]model.Result, len(list))
	jobs := make(chan int) // Indexes into list.

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := s.prober.Probe(ctx, username, list[i])
				log.WithFields(logrus.Fields{
					"site":    res.Site,
					"verdict": res.Status,
					"code":    res.HTTPCode,
					"elapsed": res.ResponseTime,
				}).Debug("probe finished")
				s.recorder.ObserveProbe(res)
				if onResult != nil {
					onResult(res)
				}
				out[i] = res
			}
		}()
	}

	// Every platform is dispatched even after cancellation so each one
	// yields a result; cancelled probes return immediately.
	for i := range list {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

func definitive(v model.Verdict) bool {
	return v == model.VerdictFound || v == model.VerdictNotFound
}

type nopRecorder struct{}

func (nopRecorder) ObserveProbe(model.Result) {}
func (nopRecorder) ObserveCacheLookup(bool) {}
