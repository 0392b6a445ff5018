package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	fs.String("data", "", "")
	fs.Bool("watch", false, "")
	fs.String("log-level", "", "")
	fs.Int("top", 0, "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout)
	assert.Equal(t, SourceFile, cfg.Data.Source)
	assert.Equal(t, "data.xlsx", cfg.Data.File)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, []string{"http://localhost:8084"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 5, cfg.Dashboard.TopN)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Empty(t, cfg.File)
	assert.Equal(t, "localhost:8084", cfg.Address())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
server:
  port: 9000
  host: 0.0.0.0
data:
  file: sales.xlsx
logger:
  level: debug
dashboard:
  top_n: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "salesdash.yaml"), []byte(yaml), 0o644))

	t.Setenv("SALESDASH_SERVER_PORT", "9100")
	t.Setenv("SALESDASH_SERVER_READ_TIMEOUT", "3s")
	t.Setenv("SALESDASH_SECURITY_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--top", "3", "--watch"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "salesdash.yaml", cfg.File)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "file overrides defaults")
	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sales.xlsx", cfg.Data.File)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 3, cfg.Dashboard.TopN, "flags override file")
	assert.True(t, cfg.Data.Watch)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALESDASH_DATA_FILE", "from-env.csv")

	fs := testFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "from-env.csv", cfg.Data.File)
	assert.Equal(t, 8084, cfg.Server.Port)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("nope.yaml", nil)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"SALESDASH_SERVER_PORT": "70000"}},
		{"bad log level", map[string]string{"SALESDASH_LOGGER_LEVEL": "loud"}},
		{"bad log format", map[string]string{"SALESDASH_LOGGER_FORMAT": "xml"}},
		{"empty data file", map[string]string{"SALESDASH_DATA_FILE": " "}},
		{"unknown source", map[string]string{"SALESDASH_DATA_SOURCE": "ftp"}},
		{"sheets without id", map[string]string{"SALESDASH_DATA_SOURCE": "sheets"}},
		{"sheets with watch", map[string]string{
			"SALESDASH_DATA_SOURCE":         "sheets",
			"SALESDASH_DATA_SPREADSHEET_ID": "abc",
			"SALESDASH_DATA_WATCH":          "true",
		}},
		{"zero top n", map[string]string{"SALESDASH_DASHBOARD_TOP_N": "0"}},
		{"zero rps", map[string]string{"SALESDASH_SECURITY_RATE_LIMIT_RPS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", nil)
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("SALESDASH_SERVER_PORT"))
	assert.Equal(t, "server.read_timeout", envKey("SALESDASH_SERVER_READ_TIMEOUT"))
	assert.Equal(t, "data.spreadsheet_id", envKey("SALESDASH_DATA_SPREADSHEET_ID"))
}

func TestEnvValue_SplitsLists(t *testing.T) {
	key, v := envValue("SALESDASH_SECURITY_TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1,")
	assert.Equal(t, "security.trusted_proxies", key)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, v)

	key, v = envValue("SALESDASH_DATA_FILE", "a,b.csv")
	assert.Equal(t, "data.file", key)
	assert.Equal(t, "a,b.csv", v)
}

func TestLoad_TrustedProxiesFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALESDASH_SECURITY_TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Security.TrustedProxies)
}
