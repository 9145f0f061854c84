package testutil

// Helpers and fixture data for tests.

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"railplan.dev/railplan/model"
	"railplan.dev/railplan/storage"
)

// NewStore opens a fresh SQLite store in a per-test directory.
func NewStore(t testing.TB) *storage.Store {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "railplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// InsertRecords writes and commits the given rows.
func InsertRecords(t testing.TB, store *storage.Store, records ...model.Record) {
	t.Helper()
	set := model.RecordSet{}
	for _, r := range records {
		set.Add(r)
	}
	require.NoError(t, store.BulkInsert(set))
	require.NoError(t, store.Commit())
}

// BuildFeedStorageDir writes the fixture feed files into a temp dir
// laid out like the local feed cache, for ingests run with downloads
// disabled.
func BuildFeedStorageDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()

	WriteZip(t, filepath.Join(dir, "FARES.ZIP"), map[string]string{
		"RJFAF499.LOC": FixtureLOC(),
		"RJFAF499.FFL": FixtureFFL(),
		"RJFAF499.FSC": FixtureFSC(),
		"RJFAF499.TTY": FixtureTTY(),
	})
	WriteZip(t, filepath.Join(dir, "TIMETABLE.ZIP"), map[string]string{
		"RJTTF499.MCA": FixtureMCA(),
	})
	WriteFile(t, filepath.Join(dir, "INCIDENTS.XML"), FixtureIncidentsXML())
	WriteFile(t, filepath.Join(dir, "STATIONS.XML"), FixtureStationsXML())

	return dir
}

// ZipBytes builds an in-memory ZIP archive from name to contents.
func ZipBytes(t testing.TB, files map[string]string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func WriteZip(t testing.TB, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, ZipBytes(t, files), 0o644))
}

func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
