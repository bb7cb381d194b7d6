package files

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiscovery(t *testing.T) {
	discovery := NewDiscovery("/test/base")

	assert.NotNil(t, discovery)
	assert.Equal(t, "/test/base", discovery.basePath)
}

func TestListPlateFiles(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		wantOrder []string
		wantCSV   []string
		wantOther []string
	}{
		{
			name:      "sorted by name not creation order",
			files:     []string{"plate_10.csv", "plate_02.csv", "plate_01.csv"},
			wantOrder: []string{"plate_01.csv", "plate_02.csv", "plate_10.csv"},
			wantCSV:   []string{"plate_01.csv", "plate_02.csv", "plate_10.csv"},
		},
		{
			name:      "mixed file types",
			files:     []string{"b.csv", "notes.txt", "a.CSV", "scan.xlsx"},
			wantOrder: []string{"a.CSV", "b.csv", "notes.txt", "scan.xlsx"},
			wantCSV:   []string{"a.CSV", "b.csv"},
			wantOther: []string{"notes.txt", "scan.xlsx"},
		},
		{
			name:  "empty directory",
			files: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			for _, name := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644))
			}

			listing, err := NewDiscovery("").ListPlateFiles(tmpDir)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOrder, names(listing.Entries))
			assert.Equal(t, tt.wantCSV, names(listing.CSV()))
			assert.Equal(t, tt.wantOther, names(listing.Other()))
			assert.Equal(t, len(tt.files) == 0, listing.Empty())
		})
	}
}

func TestListPlateFiles_ListsDirectoriesAsOther(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "archive.csv"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "old"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "plate.csv"), []byte("x"), 0644))

	listing, err := NewDiscovery("").ListPlateFiles(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive.csv", "old", "plate.csv"}, names(listing.Entries))
	assert.Equal(t, []string{"plate.csv"}, names(listing.CSV()))
	assert.Equal(t, []string{"archive.csv", "old"}, names(listing.Other()))
	assert.True(t, listing.Entries[0].IsDir)
	assert.False(t, listing.Entries[0].IsCSV())
}

func TestListPlateFiles_OnlySubdirectories(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "old"), 0755))

	listing, err := NewDiscovery("").ListPlateFiles(tmpDir)
	require.NoError(t, err)
	assert.False(t, listing.Empty())
	assert.Empty(t, listing.CSV())
}

func TestListPlateFiles_RelativeToBase(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Raw Data"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "Raw Data", "p.csv"), []byte("x"), 0644))

	listing, err := NewDiscovery(base).ListPlateFiles("Raw Data")
	require.NoError(t, err)
	require.Len(t, listing.Entries, 1)
	assert.Equal(t, filepath.Join(base, "Raw Data", "p.csv"), listing.Entries[0].Path)
	assert.Equal(t, int64(1), listing.Entries[0].Size)
}

func TestListPlateFiles_MissingDirectory(t *testing.T) {
	_, err := NewDiscovery("").ListPlateFiles(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func names(files []FileInfo) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}
