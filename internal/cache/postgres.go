package cache

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tdh8316/profilescan/internal/model"
)

// PostgresStore shares one results table between machines.
type PostgresStore struct {
	db   *pgxpool.Pool
	opts Options
}

func NewPostgresStore(ctx context.Context, connStr string, opts Options) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}
	return &PostgresStore{db: db, opts: opts.withDefaults()}, nil
}

func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS results (
		username TEXT NOT NULL,
		site_name TEXT NOT NULL,
		url TEXT,
		status TEXT,
		http_code INTEGER,
		response_time DOUBLE PRECISION,
		"timestamp" DOUBLE PRECISION,
		PRIMARY KEY (username, site_name)
	)`)
	return errors.Wrap(err, "create results table")
}

func (s *PostgresStore) Lookup(ctx context.Context, username, site string) (model.Result, bool, error) {
	e := entry{Username: username, Site: site}
	err := s.db.QueryRow(ctx,
		`SELECT url, status, http_code, response_time, "timestamp" FROM results
		 WHERE username = $1 AND site_name = $2 AND "timestamp" >= $3`,
		username, site, s.opts.cutoff(),
	).Scan(&e.URL, &e.Status, &e.HTTPCode, &e.ResponseTime, &e.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Result{}, false, nil
	}
	if err != nil {
		return model.Result{}, false, errors.Wrapf(err, "lookup %s/%s", username, site)
	}
	res, ok := e.result()
	return res, ok, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, username string, result model.Result) error {
	e := newEntry(username, result, s.opts.Now())
	_, err := s.db.Exec(ctx,
		`INSERT INTO results (username, site_name, url, status, http_code, response_time, "timestamp")
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (username, site_name) DO UPDATE SET
		   url = EXCLUDED.url, status = EXCLUDED.status, http_code = EXCLUDED.http_code,
		   response_time = EXCLUDED.response_time, "timestamp" = EXCLUDED."timestamp"`,
		e.Username, e.Site, e.URL, e.Status, e.HTTPCode, e.ResponseTime, e.Timestamp,
	)
	return errors.Wrapf(err, "upsert %s/%s", username, result.Site)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
