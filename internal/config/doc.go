// Package config provides centralized configuration management for htsqc.
// It handles loading configuration from multiple sources, validation, and
// resolves every input and output location through the Paths type.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//   - Environment variables, including a .env file in the working directory (highest priority)
//   - A YAML file passed with -config
//   - Struct tag defaults (lowest priority)
//
// The defaults reproduce the layout the bench analysis has always used:
// plate exports in "Raw Data", the control map in control_locations.csv,
// figures under Figures/ and the statistics in experiment-stats.csv.
//
// # Environment Variables
//
// All environment variables follow the pattern HTS_<SECTION>_<KEY>:
//
//	HTS_INPUT_DIRECTORY="Raw Data"
//	HTS_INPUT_HEADER_ROWS=5
//	HTS_OUTPUT_ROOT=/tmp/run42
//	HTS_RENDER_DPI=200
//	HTS_LOGGING_LEVEL=debug
//	HTS_TELEMETRY_METRICS_FILE=run.prom
//
// # Validation
//
// Load validates the merged configuration with go-playground/validator and
// returns a CONFIG AppError describing every failed constraint.
package config
