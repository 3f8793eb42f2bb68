package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/tdh8316/profilescan/internal/config"
	"github.com/tdh8316/profilescan/internal/output"
)

var ErrHelp = errors.New("help requested")

type Options struct {
	NoColor  bool
	Verbose  bool
	Update   bool
	WithTor  bool
	Progress bool

	Platforms    []string
	Export       string
	ResultsDir   string
	SitesFile    string
	CacheDSN     string
	CacheHorizon time.Duration
	Timeout      time.Duration
	MaxConns     int
	Concurrency  int
	ProxyURL     string
	MetricsFile  string
	ServeAddr    string
}

const usageText = `
usage:
  profilescan [flags] [USERNAME]
  profilescan --serve ADDR

positional arguments:
  USERNAME              username to scan (prompted when omitted)

flags:
  -h, --help            show this help message and exit
  -v, --verbose         debug logging to stderr
  --no-color            disable colored stdout output
  --update              refresh the platform file from the Sherlock repository
  -t, --tor             route probes through the SOCKS5 proxy
  --progress            show a progress bar on stderr while probing

options:
  --platforms A,B,...   platforms to check, case-insensitive (default: all)
  --export FORMAT       write a report: json or txt
  --results DIR         export directory (default: results)
  --sites PATH          platform config file (default: sites.json)
  --cache DSN           cache: file path, sqlite://, redis://, postgres:// or none (default: scan_data.db)
  --timeout SECONDS     per-probe timeout (default: 30)
  --max-connections N   simultaneous HTTP connections (default: 10)
  --concurrency N       probe workers (default: 32)
  --proxy URL           proxy used with --tor (default: socks5://127.0.0.1:9050)
  --metrics-file PATH   write Prometheus metrics in textfile format after the scan
  --serve ADDR          serve the HTTP API on ADDR instead of scanning

Every option also reads PROFILESCAN_<NAME> from the environment, and a config
file named by PROFILESCAN_CONFIG.
`

// Parse reads args on top of the loaded defaults and returns the options and
// the username, which is empty when none was given.
func Parse(args []string, defaults config.Config, stdout, stderr io.Writer) (Options, string, error) {
	opts := Options{CacheHorizon: defaults.CacheHorizon}
	var (
		help         bool
		platformsCSV string
		timeoutS     int
	)

	fs := flag.NewFlagSet("profilescan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usageText)
	}

	// Help
	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	// Behavior flags
	fs.BoolVar(&opts.NoColor, "no-color", defaults.NoColor, "disable colored output")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose output")
	fs.BoolVar(&opts.Verbose, "verbose", false, "verbose output")
	fs.BoolVar(&opts.Update, "update", false, "update platform file before run")
	fs.BoolVar(&opts.WithTor, "t", false, "use tor proxy")
	fs.BoolVar(&opts.WithTor, "tor", false, "use tor proxy")
	fs.BoolVar(&opts.Progress, "progress", false, "show progress bar")

	// Options
	fs.StringVar(&platformsCSV, "platforms", "", "comma-separated platform list")
	fs.StringVar(&opts.Export, "export", "", "export format (json or txt)")
	fs.StringVar(&opts.ResultsDir, "results", defaults.ResultsDir, "export directory")
	fs.StringVar(&opts.SitesFile, "sites", defaults.SitesFile, "platform config path")
	fs.StringVar(&opts.CacheDSN, "cache", defaults.CacheDSN, "cache backend")
	fs.IntVar(&timeoutS, "timeout", defaults.TimeoutSeconds, "request timeout in seconds")
	fs.IntVar(&opts.MaxConns, "max-connections", defaults.MaxConnections, "max simultaneous connections")
	fs.IntVar(&opts.Concurrency, "concurrency", defaults.Concurrency, "probe workers")
	fs.StringVar(&opts.ProxyURL, "proxy", defaults.ProxyURL, "proxy URL for --tor")
	fs.StringVar(&opts.MetricsFile, "metrics-file", "", "Prometheus textfile path")
	fs.StringVar(&opts.ServeAddr, "serve", defaults.ServeAddr, "HTTP API listen address")

	if err := fs.Parse(args); err != nil {
		return Options{}, "", err
	}
	if help {
		fs.Usage()
		return Options{}, "", ErrHelp
	}

	if opts.Export != "" && !output.ValidFormat(opts.Export) {
		return Options{}, "", fmt.Errorf("invalid --export %q: expected json or txt", opts.Export)
	}
	if fs.NArg() > 1 {
		return Options{}, "", fmt.Errorf("expected one username, got %d", fs.NArg())
	}

	if timeoutS <= 0 {
		// Don't allow zero or negative timeouts; reset to default.
		timeoutS = 30
		if opts.NoColor {
			fmt.Fprintf(stdout, "[!] Invalid timeout value; using default of 30 seconds.\n")
		} else {
			fmt.Fprintf(stdout, "[%s] Invalid timeout value; using default of %s.\n",
				color.HiRedString("!"),
				color.HiYellowString("30 seconds"),
			)
		}
	}
	opts.Timeout = time.Duration(timeoutS) * time.Second

	if opts.MaxConns <= 0 {
		opts.MaxConns = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 32
	}

	if platformsCSV != "" {
		raw := strings.Split(platformsCSV, ",")
		opts.Platforms = make([]string, 0, len(raw))
		for _, s := range raw {
			s = strings.TrimSpace(s)
			if s != "" {
				opts.Platforms = append(opts.Platforms, s)
			}
		}
	}

	return opts, strings.TrimSpace(fs.Arg(0)), nil
}
