package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "htsqc/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Render    RenderConfig    `yaml:"render" envconfig:"RENDER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// InputConfig describes where plate exports and the control map live and how
// the plate reader lays out its CSV files.
type InputConfig struct {
	Directory     string `yaml:"directory" split_words:"true" default:"Raw Data" validate:"required"`
	ControlLayout string `yaml:"control_layout" split_words:"true" default:"control_locations.csv" validate:"required"`
	HeaderRows    int    `yaml:"header_rows" split_words:"true" default:"5" validate:"min=0"`
	ValueColumn   int    `yaml:"value_column" split_words:"true" default:"3" validate:"min=2"`
	DefaultLabel  string `yaml:"default_label" split_words:"true" default:"COMP" validate:"required"`
	PositiveLabel string `yaml:"positive_label" split_words:"true" default:"POS" validate:"required,nefield=NegativeLabel"`
	NegativeLabel string `yaml:"negative_label" split_words:"true" default:"NEG" validate:"required"`
}

// OutputConfig contains output file locations, relative to Root unless absolute.
type OutputConfig struct {
	Root        string `yaml:"root" split_words:"true" default:"." validate:"required"`
	FiguresDir  string `yaml:"figures_dir" split_words:"true" default:"Figures" validate:"required"`
	HeatmapsDir string `yaml:"heatmaps_dir" split_words:"true" default:"Heatmaps" validate:"required"`
	StatsFile   string `yaml:"stats_file" split_words:"true" default:"experiment-stats.csv" validate:"required"`
	Workbook    string `yaml:"workbook" split_words:"true" default:"experiment-stats.xlsx"`
}

// RenderConfig holds the fixed visual parameters of the diagnostic plots.
type RenderConfig struct {
	DPI             int     `yaml:"dpi" split_words:"true" default:"200" validate:"min=50,max=1200"`
	RegressionYMax  float64 `yaml:"regression_y_max" split_words:"true" default:"240000" validate:"gt=0"`
	ZFactorCutoff   float64 `yaml:"z_factor_cutoff" split_words:"true" default:"0.5"`
	ConfidenceLevel float64 `yaml:"confidence_level" split_words:"true" default:"0.95" validate:"gt=0,lt=1"`
	Heatmaps        bool    `yaml:"heatmaps" split_words:"true" default:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" split_words:"true" default:"json" validate:"eq=json"`
	Output   string `yaml:"output" split_words:"true" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" default:"logs/htsqc.log"`
}

// TelemetryConfig enables the optional run trace and metrics files.
// Empty paths disable the corresponding exporter.
type TelemetryConfig struct {
	TraceFile   string `yaml:"trace_file" split_words:"true"`
	MetricsFile string `yaml:"metrics_file" split_words:"true"`
}

// EnvPrefix namespaces all environment overrides, e.g. HTS_INPUT_DIRECTORY.
// Leaf fields carry no envconfig name, so envconfig has no unprefixed
// alternate to fall back to.
const EnvPrefix = "HTS"

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and the environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, apperrors.NewConfigError("failed to load .env", err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaultsPrefix is never set in the environment, so processing under it
// yields the struct tag defaults alone.
const defaultsPrefix = EnvPrefix + "_DEFAULTS"

// Default returns the struct tag defaults.
func Default() *Config {
	var cfg Config
	_ = envconfig.Process(defaultsPrefix, &cfg)
	return &cfg
}

// loadFromFile overlays a YAML file on the defaults, so keys the file omits
// keep their default value.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
// A key counts as set in the environment only if its variable exists.
func mergeConfigs(fileConfig, envConfig Config) Config {
	set := func(key string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + key)
		return ok
	}
	str := func(dst *string, src, key string) {
		if !set(key) {
			*dst = src
		}
	}
	num := func(dst *int, src int, key string) {
		if !set(key) {
			*dst = src
		}
	}
	flt := func(dst *float64, src float64, key string) {
		if !set(key) {
			*dst = src
		}
	}

	str(&envConfig.Input.Directory, fileConfig.Input.Directory, "INPUT_DIRECTORY")
	str(&envConfig.Input.ControlLayout, fileConfig.Input.ControlLayout, "INPUT_CONTROL_LAYOUT")
	num(&envConfig.Input.HeaderRows, fileConfig.Input.HeaderRows, "INPUT_HEADER_ROWS")
	num(&envConfig.Input.ValueColumn, fileConfig.Input.ValueColumn, "INPUT_VALUE_COLUMN")
	str(&envConfig.Input.DefaultLabel, fileConfig.Input.DefaultLabel, "INPUT_DEFAULT_LABEL")
	str(&envConfig.Input.PositiveLabel, fileConfig.Input.PositiveLabel, "INPUT_POSITIVE_LABEL")
	str(&envConfig.Input.NegativeLabel, fileConfig.Input.NegativeLabel, "INPUT_NEGATIVE_LABEL")

	str(&envConfig.Output.Root, fileConfig.Output.Root, "OUTPUT_ROOT")
	str(&envConfig.Output.FiguresDir, fileConfig.Output.FiguresDir, "OUTPUT_FIGURES_DIR")
	str(&envConfig.Output.HeatmapsDir, fileConfig.Output.HeatmapsDir, "OUTPUT_HEATMAPS_DIR")
	str(&envConfig.Output.StatsFile, fileConfig.Output.StatsFile, "OUTPUT_STATS_FILE")
	str(&envConfig.Output.Workbook, fileConfig.Output.Workbook, "OUTPUT_WORKBOOK")

	num(&envConfig.Render.DPI, fileConfig.Render.DPI, "RENDER_DPI")
	flt(&envConfig.Render.RegressionYMax, fileConfig.Render.RegressionYMax, "RENDER_REGRESSION_Y_MAX")
	flt(&envConfig.Render.ZFactorCutoff, fileConfig.Render.ZFactorCutoff, "RENDER_Z_FACTOR_CUTOFF")
	flt(&envConfig.Render.ConfidenceLevel, fileConfig.Render.ConfidenceLevel, "RENDER_CONFIDENCE_LEVEL")
	if !set("RENDER_HEATMAPS") {
		envConfig.Render.Heatmaps = fileConfig.Render.Heatmaps
	}

	str(&envConfig.Logging.Level, fileConfig.Logging.Level, "LOGGING_LEVEL")
	str(&envConfig.Logging.Format, fileConfig.Logging.Format, "LOGGING_FORMAT")
	str(&envConfig.Logging.Output, fileConfig.Logging.Output, "LOGGING_OUTPUT")
	str(&envConfig.Logging.FilePath, fileConfig.Logging.FilePath, "LOGGING_FILE_PATH")

	str(&envConfig.Telemetry.TraceFile, fileConfig.Telemetry.TraceFile, "TELEMETRY_TRACE_FILE")
	str(&envConfig.Telemetry.MetricsFile, fileConfig.Telemetry.MetricsFile, "TELEMETRY_METRICS_FILE")

	return envConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var msgs []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			msgs = append(msgs, err.Error())
		}
		return apperrors.NewConfigError("config validation failed", fmt.Errorf("%s", strings.Join(msgs, "; ")))
	}
	return nil
}
