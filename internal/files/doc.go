// Package files provides the pipeline's file system boundary.
//
// Discovery lists an input directory in the stable name order that plate
// numbers are assigned from. Sink is the output abstraction every writer goes
// through: DirSink creates directories on demand beneath a root, MemorySink
// keeps artifacts in memory so computation and rendering can be tested
// without a disk.
//
// Example usage:
//
//	listing, err := files.NewDiscovery("").ListPlateFiles("Raw Data")
//	sink := files.NewDirSink(".", logger)
//	w, err := sink.Create("Figures/Z_factor_bar.png")
package files
