package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htsqc/internal/analysis"
	apperrors "htsqc/internal/errors"
	"htsqc/internal/files"
	"htsqc/internal/shared/testutil"
)

func sampleStats() analysis.StatsTable {
	return analysis.StatsTable{
		ControlTypes: []string{"COMP", "NEG", "POS"},
		Plates: []analysis.PlateStats{
			{
				Plate: 1,
				Controls: map[string]analysis.ControlStats{
					"COMP": {N: 2, Mean: 75, Std: 7.5, Median: 75, MAD: 5},
					"NEG":  {N: 3, Mean: 100, Std: 5, Median: 100, MAD: 5},
					"POS":  {N: 3, Mean: 50, Std: 5, Median: 50, MAD: 5},
				},
				SignalToBackground: 2,
				ZFactor:            0.4,
				ZFactorRobust:      0.4,
			},
			{
				Plate: 2,
				Controls: map[string]analysis.ControlStats{
					"COMP": {N: 1, Mean: 1, Std: math.NaN(), Median: 1, MAD: 0},
				},
				SignalToBackground: math.NaN(),
				ZFactor:            math.NaN(),
				ZFactorRobust:      math.NaN(),
				Flags:              []string{"no POS wells", "no NEG wells"},
			},
		},
	}
}

func TestStatsRecords_HeaderOrder(t *testing.T) {
	headers, records := StatsRecords(sampleStats())

	assert.Equal(t, []string{
		"Plate",
		"mean COMP", "mean NEG", "mean POS",
		"std COMP", "std NEG", "std POS",
		"median COMP", "median NEG", "median POS",
		"mad COMP", "mad NEG", "mad POS",
		"signal_to_bg", "Z_factor", "Z_factor_robust", "qc_flags",
	}, headers)

	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"1",
		"75", "100", "50",
		"7.5", "5", "5",
		"75", "100", "50",
		"5", "5", "5",
		"2", "0.4", "0.4", "",
	}, records[0])
}

func TestStatsRecords_NaN(t *testing.T) {
	_, records := StatsRecords(sampleStats())

	row := records[1]
	assert.Equal(t, "NaN", row[2], "mean NEG")
	assert.Equal(t, "NaN", row[4], "std COMP")
	assert.Equal(t, "NaN", row[14], "Z_factor")
	assert.Equal(t, "no POS wells; no NEG wells", row[16])
}

func TestExportStats(t *testing.T) {
	sink := files.NewMemorySink()
	logger, handler := testutil.NewTestLogger(t)

	require.NoError(t, NewStatsExporter(sink, logger).ExportStats(context.Background(), "experiment-stats.csv", sampleStats()))

	data, ok := sink.Bytes("experiment-stats.csv")
	require.True(t, ok)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, "Plate", records[0][0], "no BOM before the first header")
	assert.True(t, handler.ContainsMessage("Statistics exported"))
}

func TestExportStats_EmptyTable(t *testing.T) {
	sink := files.NewMemorySink()

	table := analysis.StatsTable{ControlTypes: []string{"NEG", "POS"}}
	require.NoError(t, NewStatsExporter(sink, nil).ExportStats(context.Background(), "s.csv", table))

	data, _ := sink.Bytes("s.csv")
	assert.Equal(t,
		"Plate,mean NEG,mean POS,std NEG,std POS,median NEG,median POS,mad NEG,mad POS,signal_to_bg,Z_factor,Z_factor_robust,qc_flags\n",
		string(data))
}

type readOnlySink struct{}

func (readOnlySink) Create(string) (io.WriteCloser, error) { return nil, errors.New("read-only") }
func (readOnlySink) Location(path string) string { return path }

func TestExportStats_SinkFailure(t *testing.T) {
	err := NewStatsExporter(readOnlySink{}, nil).ExportStats(context.Background(), "s.csv", sampleStats())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}
