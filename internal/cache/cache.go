// Package cache persists probe results per (username, platform) and serves
// them back while they are younger than the staleness horizon.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tdh8316/profilescan/internal/model"
)

const (
	DefaultHorizon = 24 * time.Hour
	DefaultPath    = "scan_data.db"
)

// Store is implemented by every backend. A write replaces any prior entry
// for the same key; entries older than the horizon are treated as absent
// but left in place.
type Store interface {
	Init(ctx context.Context) error
	Lookup(ctx context.Context, username, site string) (model.Result, bool, error)
	Upsert(ctx context.Context, username string, result model.Result) error
	Close() error
}

type Options struct {
	Horizon time.Duration
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Horizon <= 0 {
		o.Horizon = DefaultHorizon
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Open picks a backend from dsn:
//
//	"" or a file path or sqlite://path  SQLite file (default scan_data.db)
//	redis://... rediss://...          Redis
//	postgres://... postgresql://...   PostgreSQL
//	none, off                         no cache
func Open(ctx context.Context, dsn string, opts Options) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)

	switch {
	case lower == "none" || lower == "off":
		return Nop{}, nil
	case strings.HasPrefix(lower, "redis://") || strings.HasPrefix(lower, "rediss://"):
		return NewRedisStore(dsn, opts)
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return NewPostgresStore(ctx, dsn, opts)
	case strings.HasPrefix(lower, "sqlite://"):
		return NewSQLiteStore(dsn[len("sqlite://"):], opts)
	case strings.Contains(dsn, "://"):
		return nil, errors.Errorf("unsupported cache dsn %q", dsn)
	case dsn == "":
		return NewSQLiteStore(DefaultPath, opts)
	default:
		return NewSQLiteStore(dsn, opts)
	}
}

// entry is the persisted shape shared by the backends.
type entry struct {
	Username     string  `json:"username"`
	Site         string  `json:"site_name"`
	URL          string  `json:"url"`
	Status       string  `json:"status"`
	HTTPCode     int     `json:"http_code"`
	ResponseTime float64 `json:"response_time"`
	Timestamp    float64 `json:"timestamp"` // unix seconds
}

func newEntry(username string, r model.Result, now time.Time) entry {
	return entry{
		Username:     username,
		Site:         r.Site,
		URL:          r.URL,
		Status:       string(r.Status),
		HTTPCode:     r.HTTPCode,
		ResponseTime: r.ResponseTime,
		Timestamp:    unixSeconds(now),
	}
}

// result rebuilds the cached Result. Entries with a status this version
// does not know are reported as unusable.
func (e entry) result() (model.Result, bool) {
	status := model.Verdict(e.Status)
	if !status.Valid() {
		return model.Result{}, false
	}
	return model.Result{
		Site:         e.Site,
		URL:          e.URL,
		Status:       status,
		HTTPCode:     e.HTTPCode,
		ResponseTime: e.ResponseTime,
		Cached:       true,
	}, true
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// cutoff is the oldest timestamp still inside the horizon.
func (o Options) cutoff() float64 {
	return unixSeconds(o.Now().Add(-o.Horizon))
}
