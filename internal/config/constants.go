package config

// Application constants for the HTS QC pipeline
const (
	// Application Info
	AppName    = "htsqc"
	AppVersion = "1.0.0"

	// Fixed figure file names
	FigureRawByPlate    = "experiment_wide_raw_absorbances.png"
	FigureRowEffect     = "experiment_wide_row_effect.png"
	FigureColEffect     = "experiment_wide_col_effect.png"
	FigureByControl     = "raw_absorbances_by_control.png"
	FigureRegression    = "reg_plot_controls.png"
	FigureZFactor       = "Z_factor_bar.png"
	FigureZFactorRobust = "Z_factor_robust_bar.png"
	HeatmapFilePattern  = "heatmap_plate_%d.png"

	// File permissions
	DirPermissions  = 0755
	FilePermissions = 0644
)
