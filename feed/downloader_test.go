package feed_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railplan.dev/railplan/feed"
	"railplan.dev/railplan/testutil"
)

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()

	fares := testutil.ZipBytes(t, map[string]string{
		"RJFAF499.LOC": testutil.FixtureLOC(),
		"RJFAF499.FFL": testutil.FixtureFFL(),
		"RJFAF499.FSC": testutil.FixtureFSC(),
		"RJFAF499.TTY": testutil.FixtureTTY(),
	})
	timetable := testutil.ZipBytes(t, map[string]string{
		"RJTTF499.MCA": testutil.FixtureMCA(),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "user" || r.PostForm.Get("password") != "pa%ss" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"token": "tok123"}`))
	})

	serve := func(name string, body []byte) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Auth-Token") != "tok123" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
			w.Write(body)
		}
	}
	mux.HandleFunc("/api/staticfeeds/2.0/fares", serve("FARES.ZIP", fares))
	mux.HandleFunc("/api/staticfeeds/3.0/timetable", serve("TIMETABLE.ZIP", timetable))
	mux.HandleFunc("/api/staticfeeds/5.0/incidents",
		serve("INCIDENTS.XML", []byte(testutil.FixtureIncidentsXML())))
	mux.HandleFunc("/api/staticfeeds/4.0/stations",
		serve("STATIONS.XML", []byte(testutil.FixtureStationsXML())))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestIngestOverHTTP(t *testing.T) {
	server := feedServer(t)

	store, err := feed.Open(filepath.Join(t.TempDir(), "test.db"), feed.Config{
		BaseURL:  server.URL,
		Username: "user",
		Password: "pa%ss",
	})
	require.NoError(t, err)
	defer store.Close()

	count, err := store.TableCount("train_timetable")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIngestBadCredentials(t *testing.T) {
	server := feedServer(t)

	_, err := feed.Open(filepath.Join(t.TempDir(), "test.db"), feed.Config{
		BaseURL:  server.URL,
		Username: "user",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, feed.ErrAuthFailure)
}

// Downloaded files can be mirrored into the local cache and reused
// with downloads disabled.
func TestBackupToLocal(t *testing.T) {
	server := feedServer(t)
	cacheDir := t.TempDir()

	store, err := feed.Open(filepath.Join(t.TempDir(), "one.db"), feed.Config{
		BaseURL:         server.URL,
		Username:        "user",
		Password:        "pa%ss",
		BackupToLocal:   true,
		LocalStorageDir: cacheDir,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	server.Close()

	store, err = feed.Open(filepath.Join(t.TempDir(), "two.db"), feed.Config{
		DisableDownload: true,
		LocalStorageDir: cacheDir,
	})
	require.NoError(t, err)
	defer store.Close()

	count, err := store.TableCount("station")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
