package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/refdata"
	"github.com/adialm/health-resilience-sim/internal/store"
)

// Config is the top-level application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Simulation SimulationConfig `yaml:"simulation" mapstructure:"simulation"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures scenario persistence.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string           `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// DataConfig locates the reference dataset.
type DataConfig struct {
	Path            string `yaml:"path" mapstructure:"path"`
	BoundariesPath  string `yaml:"boundaries_path" mapstructure:"boundaries_path"`
	BoundariesField string `yaml:"boundaries_field" mapstructure:"boundaries_field"`
}

// Source converts the data section into a dataset source.
func (d DataConfig) Source() refdata.Source {
	return refdata.Source{
		Path:            d.Path,
		BoundariesPath:  d.BoundariesPath,
		BoundariesField: d.BoundariesField,
	}
}

// SimulationConfig holds default slider positions and runner pacing.
type SimulationConfig struct {
	Access        float64 `yaml:"access" mapstructure:"access"`
	Funding       float64 `yaml:"funding" mapstructure:"funding"`
	DurationYears int     `yaml:"duration_years" mapstructure:"duration_years"`
	StageDelaysMS []int   `yaml:"stage_delays_ms" mapstructure:"stage_delays_ms"`
}

// Policy returns the configured default policy.
func (s SimulationConfig) Policy() model.Policy {
	return model.Policy{Access: s.Access, Funding: s.Funding, DurationYears: s.DurationYears}
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HRSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "hrsim.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("store.pool.connect_attempts", 5)
	v.SetDefault("store.pool.connect_backoff_ms", 500)
	v.SetDefault("data.path", "")
	v.SetDefault("data.boundaries_path", "")
	v.SetDefault("data.boundaries_field", "ZCTA5CE20")
	v.SetDefault("simulation.access", 60)
	v.SetDefault("simulation.funding", 40)
	v.SetDefault("simulation.duration_years", 5)
	v.SetDefault("simulation.stage_delays_ms", []int{100, 300, 400, 300, 200})
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Mode is "cli" for
// one-shot commands or "serve" for the HTTP server.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "cli":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimitRPS < 0 {
			errs = append(errs, "server.rate_limit_rps must be >= 0")
		}
		if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
			errs = append(errs, "server.rate_limit_burst must be >= 1 when rate limiting is on")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	pool := c.Store.Pool
	if pool.MinConns < 0 || pool.MaxConns < 0 || pool.ConnectAttempts < 0 || pool.ConnectBackoffMS < 0 {
		errs = append(errs, "store.pool values must be >= 0")
	} else if pool.MaxConns > 0 && pool.MinConns > pool.MaxConns {
		errs = append(errs, "store.pool.min_conns must be <= max_conns")
	}

	s := c.Simulation
	if s.Access < 0 || s.Access > 100 {
		errs = append(errs, "simulation.access must be between 0 and 100")
	}
	if s.Funding < 0 || s.Funding > 100 {
		errs = append(errs, "simulation.funding must be between 0 and 100")
	}
	if s.DurationYears < 1 || s.DurationYears > 10 {
		errs = append(errs, "simulation.duration_years must be between 1 and 10")
	}
	for _, d := range s.StageDelaysMS {
		if d < 0 {
			errs = append(errs, "simulation.stage_delays_ms values must be >= 0")
			break
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
