package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "production", cfg.Stage)
	assert.Equal(t, "isolated", cfg.IsolationMode)
	assert.False(t, cfg.Development())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "warden.yaml", "name: api\nstage: development\nisolation_mode: flattened\nreport: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Name)
	assert.Equal(t, "development", cfg.Stage)
	assert.Equal(t, "flattened", cfg.IsolationMode)
	assert.True(t, cfg.Report)
	assert.True(t, cfg.Development())
}

func TestLoadYAMLIsCaseInsensitive(t *testing.T) {
	path := writeFile(
		t, t.TempDir(), "warden.yaml",
		"name: Billing-API\nstage: Production\nisolation_mode: FLATTENED\nlog_level: Debug\nlog_format: Console\n",
	)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Billing-API", cfg.Name)
	assert.Equal(t, "production", cfg.Stage)
	assert.Equal(t, "flattened", cfg.IsolationMode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestEnvKeepsNameCase(t *testing.T) {
	t.Setenv("WARDEN_NAME", "  Orders ")
	t.Setenv("WARDEN_LOG_LEVEL", "WARN")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Orders", cfg.Name)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "stage: [production\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "warden.yaml", "stage: development\n")
	t.Setenv("WARDEN_STAGE", "Production")
	t.Setenv("WARDEN_EAGER_ALL", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Stage)
	assert.True(t, cfg.EagerAll)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "WARDEN_ISOLATION_MODE=flattened\nWARDEN_NAME=from-dotenv\n")
	t.Setenv("WARDEN_NAME", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("WARDEN_ISOLATION_MODE") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)

	// godotenv never overrides variables that are already set.
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, "flattened", cfg.IsolationMode)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "stage", env: map[string]string{"WARDEN_STAGE": "staging"}, want: "Stage"},
		{name: "mode", env: map[string]string{"WARDEN_ISOLATION_MODE": "nested"}, want: "IsolationMode"},
		{name: "level", env: map[string]string{"WARDEN_LOG_LEVEL": "trace"}, want: "LogLevel"},
		{name: "bool", env: map[string]string{"WARDEN_REPORT": "maybe"}, want: "WARDEN_REPORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "console"

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	cfg.LogLevel = "bogus"
	_, err = cfg.NewLogger()
	require.Error(t, err)
}
