package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Seen job store backends.
const (
	SeenStoreSQLite = "sqlite"
	SeenStoreRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	Port       int               `toml:"port"`
	DBPath     string            `toml:"db"`
	LogLevel   string            `toml:"log_level"`
	LogFormat  string            `toml:"log_format"`
	SeenStore  string            `toml:"seen_store"`
	Monitor    MonitorConfig     `toml:"monitor"`
	Redis      RedisConfig       `toml:"redis"`
	Notify     NotifyConfig      `toml:"notify"`
	Connectors []ConnectorConfig `toml:"connector"`

	// ConfigFile is the TOML file that was read, if any.
	ConfigFile string `toml:"-"`
}

// MonitorConfig tunes the watch loop.
type MonitorConfig struct {
	CheckInterval      time.Duration `toml:"check_interval"`
	QuotaCheckInterval time.Duration `toml:"quota_check_interval"`
	DailyLimit         int           `toml:"daily_limit"`
	ItemDelay          time.Duration `toml:"item_delay"`
	ApplyDelayMin      time.Duration `toml:"apply_delay_min"`
	ApplyDelayMax      time.Duration `toml:"apply_delay_max"`
	ManualDelayMin     time.Duration `toml:"manual_delay_min"`
	ManualDelayMax     time.Duration `toml:"manual_delay_max"`
	AutoStart          bool          `toml:"auto_start"`
}

// RedisConfig is used by the redis seen store and event publisher.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	SeenKey  string `toml:"seen_key"`
}

// NotifyConfig selects notification transports.
type NotifyConfig struct {
	Email  EmailConfig  `toml:"email"`
	Events EventsConfig `toml:"events"`
}

// EmailConfig configures delivery through Amazon SES.
type EmailConfig struct {
	Enabled bool   `toml:"enabled"`
	Region  string `toml:"region"`
	From    string `toml:"from"`
}

// EventsConfig configures redis pub/sub events.
type EventsConfig struct {
	Enabled bool   `toml:"enabled"`
	Prefix  string `toml:"prefix"`
}

// ConnectorConfig defines one platform connector backed by a command. Name
// is the display form stamped on jobs and must equal Platform ignoring case.
type ConnectorConfig struct {
	Platform string        `toml:"platform"`
	Name     string        `toml:"name"`
	Command  string        `toml:"command"`
	Dir      string        `toml:"dir"`
	Timeout  time.Duration `toml:"timeout"`
}

// DefaultDBPath returns the default database path using XDG_CACHE_HOME.
func DefaultDBPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "jobwatch", "jobwatch.db")
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "jobwatch", "config.toml")
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:      8080,
		DBPath:    DefaultDBPath(),
		LogLevel:  "info",
		LogFormat: "console",
		SeenStore: SeenStoreSQLite,
		Monitor: MonitorConfig{
			CheckInterval:      2 * time.Minute,
			QuotaCheckInterval: time.Minute,
			DailyLimit:         50,
			ItemDelay:          5 * time.Second,
			ApplyDelayMin:      3 * time.Second,
			ApplyDelayMax:      8 * time.Second,
			ManualDelayMin:     3 * time.Second,
			ManualDelayMax:     6 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Notify: NotifyConfig{
			Email:  EmailConfig{Region: "us-east-1"},
			Events: EventsConfig{Prefix: "jobwatch"},
		},
	}
}

// Load builds Config from, in increasing precedence: defaults, a .env
// file, the TOML config file, JOBWATCH_* environment variables and flags.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("jobwatch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configFile = fs.String("config", "", "TOML config file")
		envFile    = fs.String("env-file", ".env", "dotenv file")
		port       = fs.Int("port", 0, "HTTP server port")
		dbPath     = fs.String("db", "", "SQLite database path")
		interval   = fs.Duration("check-interval", 0, "Monitor check interval")
		limit      = fs.Int("daily-limit", 0, "Maximum applications per day")
		logLevel   = fs.String("log-level", "", "Log level (debug, info, warn, error)")
		logFormat  = fs.String("log-format", "", "Log format (console, json)")
		autoStart  = fs.Bool("start", false, "Start monitoring on launch")
	)
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	// A missing .env file is not an error.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "load %s", *envFile)
	}

	cfg := Default()

	path := *configFile
	if path == "" {
		path = os.Getenv("JOBWATCH_CONFIG")
	}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	path = ExpandPath(path)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
		cfg.ConfigFile = path
	} else if explicit {
		return nil, errors.Wrapf(err, "config file %s", path)
	}

	applyEnv(cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "db":
			cfg.DBPath = *dbPath
		case "check-interval":
			cfg.Monitor.CheckInterval = *interval
		case "daily-limit":
			cfg.Monitor.DailyLimit = *limit
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "start":
			cfg.Monitor.AutoStart = *autoStart
		}
	})

	cfg.DBPath = ExpandPath(cfg.DBPath)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("JOBWATCH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if db := os.Getenv("JOBWATCH_DB"); db != "" {
		cfg.DBPath = db
	}
	if v := os.Getenv("JOBWATCH_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.CheckInterval = d
		}
	}
	if v := os.Getenv("JOBWATCH_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.DailyLimit = n
		}
	}
	if v := os.Getenv("JOBWATCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("JOBWATCH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("JOBWATCH_SEEN_STORE"); v != "" {
		cfg.SeenStore = v
	}
	if v := os.Getenv("JOBWATCH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("JOBWATCH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JOBWATCH_EMAIL_FROM"); v != "" {
		cfg.Notify.Email.From = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Notify.Email.Region = v
	}
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Newf("port %d out of range", c.Port)
	}
	if c.Monitor.CheckInterval < time.Minute {
		return errors.Newf("check interval %s is below one minute", c.Monitor.CheckInterval)
	}
	if c.Monitor.QuotaCheckInterval <= 0 {
		return errors.New("quota check interval must be positive")
	}
	if c.Monitor.DailyLimit < 0 {
		return errors.Newf("daily limit %d is negative", c.Monitor.DailyLimit)
	}
	if c.Monitor.ApplyDelayMax < c.Monitor.ApplyDelayMin {
		return errors.New("apply_delay_max is below apply_delay_min")
	}
	if c.Monitor.ManualDelayMax < c.Monitor.ManualDelayMin {
		return errors.New("manual_delay_max is below manual_delay_min")
	}
	switch c.SeenStore {
	case SeenStoreSQLite, SeenStoreRedis:
	default:
		return errors.Newf("unknown seen_store %q", c.SeenStore)
	}
	if c.Notify.Email.Enabled && c.Notify.Email.From == "" {
		return errors.WithHint(errors.New("email notifications need a sender"), "set notify.email.from or JOBWATCH_EMAIL_FROM")
	}

	seen := make(map[string]bool)
	for i, cc := range c.Connectors {
		id := strings.ToLower(strings.TrimSpace(cc.Platform))
		if id == "" {
			return errors.Newf("connector %d: platform is required", i)
		}
		if strings.TrimSpace(cc.Command) == "" {
			return errors.Newf("connector %s: command is required", id)
		}
		if cc.Name != "" && !strings.EqualFold(strings.TrimSpace(cc.Name), id) {
			return errors.WithHintf(errors.Newf("connector %s: name %q does not match the platform", id, cc.Name),
				"jobs are routed back to a connector by name; use a case variant of %q", id)
		}
		if seen[id] {
			return errors.Newf("connector %s: defined twice", id)
		}
		seen[id] = true
	}
	return nil
}

// UsesRedis reports whether any component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.SeenStore == SeenStoreRedis || c.Notify.Events.Enabled
}
