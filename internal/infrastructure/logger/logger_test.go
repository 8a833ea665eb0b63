package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Name: "settlement", Env: "production"},
		Log: config.LogConfig{Level: "warn", Output: "stderr"},
	}

	got := FromAppConfig(cfg)

	assert.Equal(t, "warn", got.Level)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, "stderr", got.Output)
	assert.Equal(t, "settlement", got.Fields["service"])

	cfg.App.Env = "development"
	assert.Equal(t, "console", FromAppConfig(cfg).Format)

	cfg.Log.Format = "json"
	assert.Equal(t, "json", FromAppConfig(cfg).Format)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settlement.log")

	log, err := New(Config{
		Level:  "info",
		Format: "json",
		Output: path,
		Fields: map[string]string{"service": "settlement", "env": ""},
	})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("bill approved")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"bill approved"`)
	assert.Contains(t, out, `"service":"settlement"`)
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, `"env"`)
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}
