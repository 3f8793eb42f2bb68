package cache

import (
	"context"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tdh8316/profilescan/internal/model"
)

const createResultsTable = `CREATE TABLE IF NOT EXISTS results (
	username TEXT,
	site_name TEXT,
	url TEXT,
	status TEXT,
	http_code INTEGER,
	response_time REAL,
	timestamp REAL,
	PRIMARY KEY (username, site_name)
)`

type resultRow struct {
	Username     string  `gorm:"column:username;primaryKey"`
	SiteName     string  `gorm:"column:site_name;primaryKey"`
	URL          string  `gorm:"column:url"`
	Status       string  `gorm:"column:status"`
	HTTPCode     int     `gorm:"column:http_code"`
	ResponseTime float64 `gorm:"column:response_time"`
	Timestamp    float64 `gorm:"column:timestamp"`
}

func (resultRow) TableName() string { return "results" }

// SQLiteStore keeps results in a local database file.
type SQLiteStore struct {
	db   *gorm.DB
	opts Options
}

func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "sqlite handle")
	}
	// One connection serialises writers on the file.
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, opts: opts.withDefaults()}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	return errors.Wrap(s.db.WithContext(ctx).Exec(createResultsTable).Error, "create results table")
}

func (s *SQLiteStore) Lookup(ctx context.Context, username, site string) (model.Result, bool, error) {
	var row resultRow
	err := s.db.WithContext(ctx).
		Where("username = ? AND site_name = ? AND timestamp >= ?", username, site, s.opts.cutoff()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Result{}, false, nil
	}
	if err != nil {
		return model.Result{}, false, errors.Wrapf(err, "lookup %s/%s", username, site)
	}
	res, ok := entry{
		Username:     row.Username,
		Site:         row.SiteName,
		URL:          row.URL,
		Status:       row.Status,
		HTTPCode:     row.HTTPCode,
		ResponseTime: row.ResponseTime,
		Timestamp:    row.Timestamp,
	}.result()
	return res, ok, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, username string, result model.Result) error {
	e := newEntry(username, result, s.opts.Now())
	row := resultRow{
		Username:     e.Username,
		SiteName:     e.Site,
		URL:          e.URL,
		Status:       e.Status,
		HTTPCode:     e.HTTPCode,
		ResponseTime: e.ResponseTime,
		Timestamp:    e.Timestamp,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}, {Name: "site_name"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	return errors.Wrapf(err, "upsert %s/%s", username, result.Site)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
