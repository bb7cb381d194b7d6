// Package dataprocessing loads raw plate-reader exports into a compiled table.
//
// # Architecture
//
// The package has three parts:
//
//  1. Parser: reads one plate export (metadata block, header, one row per well)
//  2. Layout: reads the control map that labels wells as POS, NEG and so on
//  3. Loader: walks the input directory in name order, numbers the plates,
//     joins each with the layout and reports per-file outcomes
//
// # Usage
//
//	loader := dataprocessing.NewLoader(".", dataprocessing.OptionsFromConfig(cfg.Input), logger)
//	table, report, err := loader.Load(ctx, "Raw Data", "control_locations.csv")
//	if err != nil {
//	    return err // input directory unreadable
//	}
//	for _, skipped := range report.Skipped() {
//	    fmt.Println(skipped.File, skipped.Err)
//	}
//
// Files that cannot be parsed never stop the run. They appear in the report
// with their error, and their plate number is not reused.
package dataprocessing
