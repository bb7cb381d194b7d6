package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "htsqc/internal/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "htsqc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Raw Data", cfg.Input.Directory)
	assert.Equal(t, "control_locations.csv", cfg.Input.ControlLayout)
	assert.Equal(t, 5, cfg.Input.HeaderRows)
	assert.Equal(t, 3, cfg.Input.ValueColumn)
	assert.Equal(t, "COMP", cfg.Input.DefaultLabel)
	assert.Equal(t, "POS", cfg.Input.PositiveLabel)
	assert.Equal(t, "NEG", cfg.Input.NegativeLabel)

	assert.Equal(t, ".", cfg.Output.Root)
	assert.Equal(t, "Figures", cfg.Output.FiguresDir)
	assert.Equal(t, "Heatmaps", cfg.Output.HeatmapsDir)
	assert.Equal(t, "experiment-stats.csv", cfg.Output.StatsFile)

	assert.Equal(t, 200, cfg.Render.DPI)
	assert.Equal(t, 240000.0, cfg.Render.RegressionYMax)
	assert.Equal(t, 0.5, cfg.Render.ZFactorCutoff)
	assert.True(t, cfg.Render.Heatmaps)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Telemetry.TraceFile)
	assert.Empty(t, cfg.Telemetry.MetricsFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTS_INPUT_DIRECTORY", "/data/plates")
	t.Setenv("HTS_RENDER_DPI", "300")
	t.Setenv("HTS_RENDER_HEATMAPS", "false")
	t.Setenv("HTS_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/plates", cfg.Input.Directory)
	assert.Equal(t, 300, cfg.Render.DPI)
	assert.False(t, cfg.Render.Heatmaps)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_IgnoresUnprefixedEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, cfg *Config)
	}{
		{name: "directory", key: "DIRECTORY", value: "/elsewhere", check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, "Raw Data", cfg.Input.Directory)
		}},
		{name: "root", key: "ROOT", value: "/tmp/other", check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, ".", cfg.Output.Root)
		}},
		{name: "format", key: "FORMAT", value: "text", check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, "json", cfg.Logging.Format)
		}},
		{name: "dpi", key: "DPI", value: "10", check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, 200, cfg.Render.DPI)
		}},
		{name: "split word", key: "FILE_PATH", value: "/var/log/other.log", check: func(t *testing.T, cfg *Config) {
			assert.Equal(t, "logs/htsqc.log", cfg.Logging.FilePath)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load("")
			require.NoError(t, err)
			tt.check(t, cfg)
			tt.check(t, Default())
		})
	}
}

func TestLoad_SplitWordKeys(t *testing.T) {
	t.Setenv("HTS_INPUT_CONTROL_LAYOUT", "layout.csv")
	t.Setenv("HTS_RENDER_REGRESSION_Y_MAX", "1000")
	t.Setenv("HTS_RENDER_Z_FACTOR_CUTOFF", "0.4")
	t.Setenv("HTS_TELEMETRY_TRACE_FILE", "trace.json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "layout.csv", cfg.Input.ControlLayout)
	assert.Equal(t, 1000.0, cfg.Render.RegressionYMax)
	assert.Equal(t, 0.4, cfg.Render.ZFactorCutoff)
	assert.Equal(t, "trace.json", cfg.Telemetry.TraceFile)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
input:
  directory: exports
  header_rows: 7
render:
  heatmaps: false
telemetry:
  metrics_file: run.prom
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "exports", cfg.Input.Directory)
	assert.Equal(t, 7, cfg.Input.HeaderRows)
	assert.False(t, cfg.Render.Heatmaps)
	assert.Equal(t, "run.prom", cfg.Telemetry.MetricsFile)
	// keys the file omits keep their defaults
	assert.Equal(t, "control_locations.csv", cfg.Input.ControlLayout)
	assert.Equal(t, 200, cfg.Render.DPI)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeConfigFile(t, "input:\n  directory: from-file\n")
	t.Setenv("HTS_INPUT_DIRECTORY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Input.Directory)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setupEnv map[string]string
		file     string
	}{
		{
			name:     "unsupported log output",
			setupEnv: map[string]string{"HTS_LOGGING_OUTPUT": "syslog"},
		},
		{
			name:     "dpi too low",
			setupEnv: map[string]string{"HTS_RENDER_DPI": "10"},
		},
		{
			name:     "identical control labels",
			setupEnv: map[string]string{"HTS_INPUT_POSITIVE_LABEL": "NEG"},
		},
		{
			name:     "confidence level out of range",
			setupEnv: map[string]string{"HTS_RENDER_CONFIDENCE_LEVEL": "1.5"},
		},
		{
			name: "unknown yaml key",
			file: "input:\n  directroy: typo\n",
		},
		{
			name:     "malformed env value",
			setupEnv: map[string]string{"HTS_INPUT_HEADER_ROWS": "five"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.setupEnv {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.95, cfg.Render.ConfidenceLevel)
}
