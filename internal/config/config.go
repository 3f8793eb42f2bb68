package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/tdh8316/profilescan/internal/cache"
	"github.com/tdh8316/profilescan/internal/httpx"
	"github.com/tdh8316/profilescan/internal/platforms"
)

// EnvPrefix namespaces every environment variable, e.g. PROFILESCAN_CACHE_DSN.
const EnvPrefix = "PROFILESCAN"

// FileEnv names the variable holding an optional config file path.
const FileEnv = EnvPrefix + "_CONFIG"

// Config stores the defaults that command-line flags start from.
type Config struct {
	SitesFile      string        `mapstructure:"sites_file"`
	CacheDSN       string        `mapstructure:"cache_dsn"`
	CacheHorizon   time.Duration `mapstructure:"cache_horizon"`
	ResultsDir     string        `mapstructure:"results_dir"`
	TimeoutSeconds int           `mapstructure:"timeout"`
	MaxConnections int           `mapstructure:"max_connections"`
	Concurrency    int           `mapstructure:"concurrency"`
	ProxyURL       string        `mapstructure:"proxy_url"`
	NoColor        bool          `mapstructure:"no_color"`
	ServeAddr      string        `mapstructure:"serve_addr"`
}

// Load reads built-in defaults, then the file named by PROFILESCAN_CONFIG
// (any format viper knows by extension), then PROFILESCAN_* variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("sites_file", platforms.DefaultFile)
	v.SetDefault("cache_dsn", cache.DefaultPath)
	v.SetDefault("cache_horizon", cache.DefaultHorizon)
	v.SetDefault("results_dir", "results")
	v.SetDefault("timeout", int(httpx.DefaultTimeout/time.Second))
	v.SetDefault("max_connections", httpx.DefaultMaxConns)
	v.SetDefault("concurrency", 32)
	v.SetDefault("proxy_url", httpx.DefaultTorProxyURL)
	v.SetDefault("no_color", false)
	v.SetDefault("serve_addr", "")

	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &cfg, nil
}
