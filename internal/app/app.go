package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/profilescan/internal/api"
	"github.com/tdh8316/profilescan/internal/cache"
	"github.com/tdh8316/profilescan/internal/cli"
	"github.com/tdh8316/profilescan/internal/config"
	"github.com/tdh8316/profilescan/internal/httpx"
	"github.com/tdh8316/profilescan/internal/model"
	"github.com/tdh8316/profilescan/internal/monitoring"
	"github.com/tdh8316/profilescan/internal/output"
	"github.com/tdh8316/profilescan/internal/platforms"
	"github.com/tdh8316/profilescan/internal/scan"
)

func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 2
	}

	opts, username, err := cli.Parse(args, *cfg, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	if opts.NoColor {
		color.NoColor = true
	}
	logger := newLogger(stderr, opts)
	printer := output.NewPrinter(stdout, opts.NoColor)

	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:     opts.Timeout,
		MaxConns:    opts.MaxConns,
		WithTor:     opts.WithTor,
		TorProxyURL: opts.ProxyURL,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize HTTP client: %v\n", err)
		return 1
	}

	list := loadPlatforms(ctx, httpClient, opts, printer)

	store := openCache(ctx, opts, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("cache close failed")
		}
	}()

	metrics := monitoring.NewMetrics()
	prober := scan.NewProber(httpClient, scan.ProberConfig{Timeout: opts.Timeout})
	scanner := scan.NewScanner(prober, store, scan.Config{Concurrency: opts.Concurrency}, logger, metrics)

	if opts.ServeAddr != "" {
		return serve(ctx, api.NewServer(opts.ServeAddr, scanner, list, metrics, logger), stderr)
	}

	if username == "" {
		username = promptUsername(stdout, stdin)
		if username == "" {
			fmt.Fprintln(stderr, "no username provided")
			return 2
		}
	}

	printer.Start(username)

	var onResult func(model.Result)
	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(len(list),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("Probing platforms"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowIts(),
			progressbar.OptionClearOnFinish(),
		)
		onResult = func(model.Result) { _ = bar.Add(1) }
	}

	report, err := scanner.Scan(ctx, username, list, onResult)
	if bar != nil {
		_ = bar.Finish()
	}
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !interrupted {
		fmt.Fprintf(stderr, "scan error for %q: %v\n", username, err)
		return 1
	}
	metrics.IncScans()

	printer.Report(report)
	if interrupted {
		printer.Notice("Scan interrupted; unfinished platforms are reported as ERROR.")
	}

	if opts.Export != "" {
		path, err := output.Export(opts.ResultsDir, report, opts.Export)
		if err != nil {
			fmt.Fprintf(stderr, "failed to export report: %v\n", err)
			return 1
		}
		printer.Info("Report saved to " + path)
	}

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			fmt.Fprintf(stderr, "failed to write metrics %q: %v\n", opts.MetricsFile, err)
			return 1
		}
	}

	if interrupted {
		return 1
	}
	return 0
}

func newLogger(stderr io.Writer, opts cli.Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: opts.NoColor,
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.WarnLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// loadPlatforms optionally refreshes the platform file, loads it and applies
// --platforms. Problems are reported and never abort the run.
func loadPlatforms(ctx context.Context, client httpx.Doer, opts cli.Options, printer *output.Printer) platforms.List {
	if opts.Update {
		err := platforms.UpdateFromRemote(ctx, client, httpx.RandomUserAgent(), platforms.SherlockDataURL, opts.SitesFile)
		if err != nil {
			printer.Notice(fmt.Sprintf("Failed to update %s: %v (using existing)", opts.SitesFile, err))
		} else {
			printer.Info("Updated " + opts.SitesFile)
		}
	}

	list, notice, err := platforms.Load(opts.SitesFile)
	if err != nil {
		printer.Notice(err.Error())
	}
	if notice != "" {
		printer.Notice(string(notice))
	}

	if len(opts.Platforms) == 0 {
		return list
	}

	filtered, unknown := platforms.Filter(list, opts.Platforms)
	if len(unknown) > 0 {
		printer.Notice("Unknown platforms ignored: " + strings.Join(unknown, ", "))
	}
	if len(unknown) == len(opts.Platforms) {
		printer.Notice("No matching platforms found; using all platforms.")
		return filtered
	}
	printer.Info(fmt.Sprintf("Using %d platform(s)", len(filtered)))
	return filtered
}

// openCache opens the configured backend behind a Failover. A backend that
// cannot even be opened is replaced by the no-op store.
func openCache(ctx context.Context, opts cli.Options, logger logrus.FieldLogger) cache.Store {
	backend, err := cache.Open(ctx, opts.CacheDSN, cache.Options{Horizon: opts.CacheHorizon})
	if err != nil {
		logger.WithError(err).WithField("dsn", opts.CacheDSN).Warn("cache unavailable; continuing without cache")
		backend = cache.Nop{}
	}
	return cache.NewFailover(backend, logger)
}

func serve(ctx context.Context, srv *api.Server, stderr io.Writer) int {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		fmt.Fprintf(stderr, "server error: %v\n", err)
		return 1
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(stderr, "server shutdown: %v\n", err)
		return 1
	}
	return 0
}

func promptUsername(stdout io.Writer, stdin io.Reader) string {
	fmt.Fprint(stdout, "Enter username to scan: ")
	r := bufio.NewReader(stdin)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
