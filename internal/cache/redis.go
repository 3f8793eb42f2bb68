package cache

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/tdh8316/profilescan/internal/model"
)

const redisKeyPrefix = "profilescan:result"

// RedisStore keeps one JSON value per (username, site) that expires with the
// horizon.
type RedisStore struct {
	client *redis.Client
	opts   Options
}

func NewRedisStore(rawURL string, opts Options) (*RedisStore, error) {
	ro, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return &RedisStore{client: redis.NewClient(ro), opts: opts.withDefaults()}, nil
}

// redisKey escapes both parts so a ':' inside a username or site name
// cannot make two pairs share a key.
func redisKey(username, site string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, url.QueryEscape(username), url.QueryEscape(site))
}

// Init checks connectivity; Redis needs no schema.
func (s *RedisStore) Init(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx).Err(), "redis ping")
}

func (s *RedisStore) Lookup(ctx context.Context, username, site string) (model.Result, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(username, site)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Result{}, false, nil
	}
	if err != nil {
		return model.Result{}, false, errors.Wrapf(err, "lookup %s/%s", username, site)
	}

	var e entry
	if err := sonic.Unmarshal(raw, &e); err != nil {
		return model.Result{}, false, errors.Wrapf(err, "decode %s/%s", username, site)
	}
	// The key TTL and the stored timestamp can disagree when the clock or
	// horizon changed between runs; the timestamp decides.
	if e.Timestamp < s.opts.cutoff() {
		return model.Result{}, false, nil
	}
	res, ok := e.result()
	return res, ok, nil
}

func (s *RedisStore) Upsert(ctx context.Context, username string, result model.Result) error {
	raw, err := sonic.Marshal(newEntry(username, result, s.opts.Now()))
	if err != nil {
		return errors.Wrap(err, "encode entry")
	}
	err = s.client.Set(ctx, redisKey(username, result.Site), raw, s.opts.Horizon).Err()
	return errors.Wrapf(err, "upsert %s/%s", username, result.Site)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
