package dataprocessing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "htsqc/internal/errors"
	"htsqc/internal/shared/testutil"
)

var defaultLoad = LoadOptions{
	ParseOptions: ParseOptions{HeaderRows: testutil.MetadataRows, ValueColumn: 3},
	DefaultLabel: "COMP",
}

// setup creates an experiment directory with a Raw Data folder and returns
// both paths.
func setup(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	raw := filepath.Join(root, "Raw Data")
	require.NoError(t, os.MkdirAll(raw, 0755))
	return root, raw
}

func TestLoad_PartialLayoutLabelsRestAsCompound(t *testing.T) {
	root, raw := setup(t)
	testutil.WritePlateCSV(t, raw, "plate_01.csv", testutil.UniformPlate(96, 100))
	layoutPath := testutil.WriteControlLayout(t, root, []testutil.ControlEntry{
		{Row: "A", Col: 1, Type: "POS"},
		{Row: "A", Col: 2, Type: "NEG"},
	})

	logger, _ := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", layoutPath)
	require.NoError(t, err)

	require.Equal(t, 96, table.Len(), "no wells dropped")
	counts := map[string]int{}
	for _, r := range table.Readings {
		counts[r.ControlType]++
	}
	assert.Equal(t, map[string]int{"POS": 1, "NEG": 1, "COMP": 94}, counts)
	assert.Len(t, report.Loaded(), 1)
	assert.Empty(t, report.Skipped())
}

func TestLoad_MixedFormatsConcatenateInFileOrder(t *testing.T) {
	root, raw := setup(t)
	testutil.WritePlateCSV(t, raw, "b_plate.csv", testutil.UniformPlate(384, 2))
	testutil.WritePlateCSV(t, raw, "a_plate.csv", testutil.UniformPlate(96, 1))
	layoutPath := testutil.WriteControlLayout(t, root, testutil.EdgeControls(96))

	logger, _ := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", layoutPath)
	require.NoError(t, err)

	assert.Equal(t, 96+384, table.Len())
	assert.Equal(t, []int{1, 2}, table.Plates())
	assert.Len(t, table.Plate(1), 96)
	assert.Len(t, table.Plate(2), 384)
	assert.Equal(t, "a_plate.csv", table.Source(1))
	assert.Equal(t, "b_plate.csv", table.Source(2))

	// plate 1 rows come first, all tagged 1
	for i, r := range table.Readings {
		if i < 96 {
			assert.Equal(t, 1, r.Plate)
			assert.Equal(t, 1.0, r.Absorbance)
		} else {
			assert.Equal(t, 2, r.Plate)
		}
	}
	assert.Equal(t, 2, report.CandidateCount())
}

func TestLoad_SkipsNonCSVWithWarning(t *testing.T) {
	root, raw := setup(t)
	testutil.WritePlateCSV(t, raw, "plate.csv", testutil.UniformPlate(96, 1))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "notes.txt"), []byte("n"), 0644))
	layoutPath := testutil.WriteControlLayout(t, root, nil)

	logger, handler := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", layoutPath)
	require.NoError(t, err)

	assert.Equal(t, 96, table.Len())
	require.Len(t, report.Skipped(), 1)
	skipped := report.Skipped()[0]
	assert.Equal(t, "notes.txt", skipped.File)
	assert.Zero(t, skipped.Plate)
	assert.True(t, apperrors.IsType(skipped.Err, apperrors.ErrTypeUnsupported))

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Not configured to handle data types other than CSV")
	assert.True(t, handler.ContainsAttr("file", "notes.txt"))
}

func TestLoad_SubdirectoryReportedUnsupported(t *testing.T) {
	root, raw := setup(t)
	require.NoError(t, os.Mkdir(filepath.Join(raw, "archive"), 0755))
	testutil.WritePlateCSV(t, raw, "plate_01.csv", testutil.UniformPlate(96, 1))
	layoutPath := testutil.WriteControlLayout(t, root, nil)

	logger, handler := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", layoutPath)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, table.Plates())
	require.Len(t, report.Outcomes, 2)
	dir := report.Outcomes[0]
	assert.Equal(t, "archive", dir.File)
	assert.Zero(t, dir.Plate)
	assert.True(t, apperrors.IsType(dir.Err, apperrors.ErrTypeUnsupported))
	assert.True(t, handler.ContainsAttr("file", "archive"))
}

func TestLoad_MalformedFileKeepsPlateNumber(t *testing.T) {
	root, raw := setup(t)
	testutil.WritePlateCSV(t, raw, "p1.csv", testutil.UniformPlate(96, 1))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "p2.csv"), []byte("summary only\n"), 0644))
	testutil.WritePlateCSV(t, raw, "p3.csv", testutil.UniformPlate(96, 3))
	layoutPath := testutil.WriteControlLayout(t, root, nil)

	logger, handler := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", layoutPath)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, table.Plates())
	require.Len(t, report.Skipped(), 1)
	assert.Equal(t, "p2.csv", report.Skipped()[0].File)
	assert.Equal(t, 2, report.Skipped()[0].Plate)
	assert.True(t, apperrors.IsType(report.Skipped()[0].Err, apperrors.ErrTypeParsing))
	assert.True(t, handler.ContainsMessage("File not processed, ensure data file is in raw, unedited list format"))
	assert.True(t, handler.ContainsMessage("Loaded 3 files for processing"))
}

func TestLoad_EmptyDirectory(t *testing.T) {
	root, _ := setup(t)

	logger, handler := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", "missing.csv")
	require.NoError(t, err)

	assert.Zero(t, table.Len())
	assert.True(t, report.Empty)
	assert.Empty(t, report.Outcomes)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "No raw files loaded for analysis")
}

func TestLoad_MissingLayoutFailsEveryPlate(t *testing.T) {
	root, raw := setup(t)
	testutil.WritePlateCSV(t, raw, "p1.csv", testutil.UniformPlate(96, 1))
	testutil.WritePlateCSV(t, raw, "p2.csv", testutil.UniformPlate(96, 1))

	logger, _ := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(
		context.Background(), "Raw Data", filepath.Join(root, "control_locations.csv"))
	require.NoError(t, err)

	assert.Zero(t, table.Len())
	require.Error(t, report.LayoutErr)
	require.Len(t, report.Skipped(), 2)
	for _, o := range report.Skipped() {
		assert.True(t, apperrors.IsType(o.Err, apperrors.ErrTypeNotFound), "got %v", o.Err)
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	root := t.TempDir()

	logger, handler := testutil.NewTestLogger(t)

	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", "control_locations.csv")
	require.NoError(t, err)

	assert.Zero(t, table.Len())
	assert.True(t, report.Empty)
	assert.Empty(t, report.Outcomes)
	assert.True(t, apperrors.IsType(report.DirErr, apperrors.ErrTypeNotFound))
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Input directory not found, no raw files loaded for analysis")
}

func TestLoad_MissingReadingsReported(t *testing.T) {
	root, raw := setup(t)
	wells := testutil.UniformPlate(96, 5)
	path := testutil.WritePlateCSV(t, raw, "p1.csv", wells)
	layoutPath := testutil.WriteControlLayout(t, root, nil)

	// blank the absorbance of the last well
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := content[:len(content)-len("5\n")]
	require.NoError(t, os.WriteFile(path, append(trimmed, '\n'), 0644))

	logger, handler := testutil.NewTestLogger(t)
	table, report, err := NewLoader(root, defaultLoad, logger).Load(context.Background(), "Raw Data", layoutPath)
	require.NoError(t, err)

	assert.Equal(t, 95, table.Len())
	require.Len(t, report.Loaded(), 1)
	assert.Equal(t, 1, report.Loaded()[0].Missing)
	assert.True(t, handler.ContainsMessage("Plate has wells without a reading"))
}

func TestLoad_Cancelled(t *testing.T) {
	root, raw := setup(t)
	testutil.WritePlateCSV(t, raw, "p1.csv", testutil.UniformPlate(96, 1))
	layoutPath := testutil.WriteControlLayout(t, root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewLoader(root, defaultLoad, nil).Load(ctx, "Raw Data", layoutPath)
	assert.ErrorIs(t, err, context.Canceled)
}
