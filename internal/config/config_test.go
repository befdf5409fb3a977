package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adialm/health-resilience-sim/internal/model"
)

// chdirTemp moves the test into an empty directory so no config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "hrsim.db", cfg.Store.SQLitePath)
	assert.Equal(t, int32(10), cfg.Store.Pool.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.Pool.MinConns)
	assert.Equal(t, 5, cfg.Store.Pool.ConnectAttempts)
	assert.Equal(t, 500, cfg.Store.Pool.ConnectBackoffMS)
	assert.Empty(t, cfg.Data.Path)
	assert.Equal(t, "ZCTA5CE20", cfg.Data.BoundariesField)
	assert.Equal(t, model.DefaultPolicy(), cfg.Simulation.Policy())
	assert.Equal(t, []int{100, 300, 400, 300, 200}, cfg.Simulation.StageDelaysMS)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 20, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate("serve"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/hrsim
log:
  level: debug
  format: console
server:
  port: 9090
simulation:
  access: 80
  stage_delays_ms: [0, 0, 0, 0, 0]
data:
  path: districts.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/hrsim", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 80, cfg.Simulation.Access, 0.001)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, cfg.Simulation.StageDelaysMS)
	assert.Equal(t, "districts.yaml", cfg.Data.Source().Path)
	// Defaults still apply for unset values
	assert.InDelta(t, 40, cfg.Simulation.Funding, 0.001)
	assert.Equal(t, 5, cfg.Simulation.DurationYears)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HRSIM_STORE_DRIVER", "postgres")
	t.Setenv("HRSIM_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("HRSIM_SERVER_PORT", "3000")
	t.Setenv("HRSIM_SIMULATION_DURATION_YEARS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Simulation.DurationYears)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "hrsim.db"
	cfg.Store.Pool.MaxConns = 10
	cfg.Store.Pool.MinConns = 2
	cfg.Simulation.Access = 60
	cfg.Simulation.Funding = 40
	cfg.Simulation.DurationYears = 5
	cfg.Simulation.StageDelaysMS = []int{100, 300, 400, 300, 200}
	cfg.Server.Port = 8080
	cfg.Server.RateLimitRPS = 20
	cfg.Server.RateLimitBurst = 40
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("cli"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStore(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"postgres with url", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = "postgres://localhost/test"
		}, ""},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url is required"},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }, "store.sqlite_path is required"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver must be sqlite or postgres"},
		{"negative pool", func(c *Config) { c.Store.Pool.MaxConns = -1 }, "store.pool values must be >= 0"},
		{"min above max", func(c *Config) { c.Store.Pool.MinConns = 20 }, "min_conns must be <= max_conns"},
		{"negative connect attempts", func(c *Config) { c.Store.Pool.ConnectAttempts = -1 }, "store.pool values must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("cli")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSimulationBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Simulation.Access = 101
	err := cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "simulation.access")

	cfg.Simulation.Access = 100
	cfg.Simulation.Funding = -1
	err = cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "simulation.funding")

	cfg.Simulation.Funding = 0
	cfg.Simulation.DurationYears = 0
	err = cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "simulation.duration_years")

	cfg.Simulation.DurationYears = 10
	cfg.Simulation.StageDelaysMS = []int{100, -5}
	err = cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stage_delays_ms")

	cfg.Simulation.StageDelaysMS = nil
	assert.NoError(t, cfg.Validate("cli"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// Port is not checked for one-shot commands.
	assert.NoError(t, cfg.Validate("cli"))
}

func TestValidateServe_RateLimit(t *testing.T) {
	cfg := validDefaults()

	cfg.Server.RateLimitRPS = -1
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_rps")

	cfg.Server.RateLimitRPS = 5
	cfg.Server.RateLimitBurst = 0
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_burst")

	// Zero rps disables limiting, burst is ignored.
	cfg.Server.RateLimitRPS = 0
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Simulation.Access = -1
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "store.database_url")
	assert.Contains(t, err.Error(), "simulation.access")
}
