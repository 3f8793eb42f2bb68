package scan

import (
	"context"
	"errors"
	"time"

	"github.com/tdh8316/profilescan/internal/model"
)

var ErrEmptyUsername = errors.New("empty username")

// Cache is the result store consulted before probing and filled after.
type Cache interface {
	Init(ctx context.Context) error
	Lookup(ctx context.Context, username, site string) (model.Result, bool, error)
	Upsert(ctx context.Context, username string, result model.Result) error
}

// Recorder receives scan events for metrics.
type Recorder interface {
	ObserveProbe(result model.Result)
	ObserveCacheLookup(hit bool)
}

type Config struct {
	// Concurrency is the number of probe workers. The HTTP client's
	// connection ceiling still bounds requests on the wire.
	Concurrency int
}

type ProberConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	// UserAgent returns the identity for each request.
	UserAgent func() string
}
