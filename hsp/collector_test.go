package hsp_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railplan.dev/railplan/hsp"
	"railplan.dev/railplan/model"
	"railplan.dev/railplan/storage"
	"railplan.dev/railplan/testutil"
)

const statsHeader = "toc,from_crs,to_crs,date,departure_time,arrival_time," +
	"late_0,late_5,late_10,late_30,was_late_0,was_late_5,was_late_10,was_late_30"

func newLinkedStore(t *testing.T) *storage.Store {
	store := testutil.NewStore(t)
	testutil.InsertRecords(t, store,
		model.TIPLOC{Tiploc: "BRGHTN", CRS: "BTN", Description: "BRIGHTON"},
		model.TIPLOC{Tiploc: "PRSTPK", CRS: "PRP", Description: "PRESTON PARK"},
		model.TIPLOC{Tiploc: "LNDNBDC", CRS: "LBG", Description: "LONDON BRIDGE"},
		model.TimetableLink{FromLocation: "BRGHTN", ToLocation: "PRSTPK"},
		model.TimetableLink{FromLocation: "PRSTPK", ToLocation: "LNDNBDC"},
	)
	return store
}

func countLines(t *testing.T, path string) []string {
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestCollectorRun(t *testing.T) {
	server := metricsServer(t, &requestLog{})
	output := filepath.Join(t.TempDir(), "training.csv")

	collector := &hsp.Collector{
		Client:      newClient(server),
		Store:       newLinkedStore(t),
		Count:       2,
		ThreadCount: 2,
		Output:      output,
	}
	require.NoError(t, collector.Run(context.Background()))

	// Two workers, two pairs each, one matched service per sample.
	lines := countLines(t, output)
	require.Len(t, lines, 5)
	assert.Equal(t, statsHeader, lines[0])
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		require.Len(t, fields, 14)
		assert.Equal(t, "SN", fields[0])
		assert.Equal(t, "1000", fields[4])
	}
}

// A second run appends rows without repeating the header.
func TestCollectorAppends(t *testing.T) {
	server := metricsServer(t, &requestLog{})
	output := filepath.Join(t.TempDir(), "training.csv")

	collector := &hsp.Collector{
		Client:      newClient(server),
		Store:       newLinkedStore(t),
		Count:       1,
		ThreadCount: 1,
		Output:      output,
	}
	require.NoError(t, collector.Run(context.Background()))
	require.NoError(t, collector.Run(context.Background()))

	lines := countLines(t, output)
	require.Len(t, lines, 3)
	assert.Equal(t, statsHeader, lines[0])
	assert.NotEqual(t, statsHeader, lines[1])
	assert.NotEqual(t, statsHeader, lines[2])
}
