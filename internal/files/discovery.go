package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// IsCSV reports whether the entry is a file with a .csv extension, in any
// case.
func (f FileInfo) IsCSV() bool {
	return !f.IsDir && strings.EqualFold(filepath.Ext(f.Name), ".csv")
}

// Listing is the content of an input directory in byte-wise name order.
type Listing struct {
	Dir     string
	Entries []FileInfo
}

// CSV returns the CSV entries, keeping listing order.
func (l Listing) CSV() []FileInfo {
	var out []FileInfo
	for _, f := range l.Entries {
		if f.IsCSV() {
			out = append(out, f)
		}
	}
	return out
}

// Other returns the non-CSV entries, keeping listing order.
func (l Listing) Other() []FileInfo {
	var out []FileInfo
	for _, f := range l.Entries {
		if !f.IsCSV() {
			out = append(out, f)
		}
	}
	return out
}

// Empty reports whether the directory held no entries at all.
func (l Listing) Empty() bool {
	return len(l.Entries) == 0
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// ListPlateFiles lists every entry of dir, sorted by name. Subdirectories
// are listed too, so callers can report them; they never count as CSV.
// Plate numbers are assigned from this order, so it must be stable.
func (d *Discovery) ListPlateFiles(dir string) (Listing, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return Listing{Dir: fullPath}, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	listing := Listing{Dir: fullPath}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		listing.Entries = append(listing.Entries, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   entry.IsDir(),
		})
	}

	// os.ReadDir already sorts by name; sort again so the contract does not
	// depend on that detail
	sort.SliceStable(listing.Entries, func(i, j int) bool {
		return listing.Entries[i].Name < listing.Entries[j].Name
	})

	return listing, nil
}

// resolve joins relative directories onto the base path
func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
