package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tdh8316/profilescan/internal/monitoring"
	"github.com/tdh8316/profilescan/internal/platforms"
	"github.com/tdh8316/profilescan/internal/scan"
)

// DefaultScanTimeout bounds a single scan request. Requests still running at
// the deadline are cancelled and the partial report is returned.
const DefaultScanTimeout = 90 * time.Second

// Server exposes scans over HTTP.
type Server struct {
	addr        string
	scanTimeout time.Duration
	router      http.Handler
	httpServer  *http.Server
	scanner     *scan.Scanner
	platforms   platforms.List
	metrics     *monitoring.Metrics
	logger      logrus.FieldLogger
}

func NewServer(addr string, sc *scan.Scanner, list platforms.List, m *monitoring.Metrics, l logrus.FieldLogger) *Server {
	if l == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		l = discard
	}
	s := &Server{
		addr:        addr,
		scanTimeout: DefaultScanTimeout,
		scanner:     sc,
		platforms:   list,
		metrics:     m,
		logger:      l,
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// A scan waits for its slowest probe.
		WriteTimeout: 2 * time.Minute,
	}
	return s
}

// SetScanTimeout changes the per-request scan deadline; d <= 0 restores the
// default.
func (s *Server) SetScanTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultScanTimeout
	}
	s.scanTimeout = d
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving until Shutdown; it returns http.ErrServerClosed then.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("api listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
