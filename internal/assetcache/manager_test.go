package assetcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingOrigin struct {
	srv  *httptest.Server
	hits atomic.Int64
}

func newOrigin(t *testing.T) *countingOrigin {
	t.Helper()
	o := &countingOrigin{}
	o.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>home</html>"))
		default:
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("asset:" + r.URL.Path))
		}
	}))
	t.Cleanup(o.srv.Close)
	return o
}

var manifest = []string{"/", "/static/js/bundle.js", "/static/css/main.css", "/manifest.json", "/favicon.ico"}

func newManager(t *testing.T, root, version, origin string, urls []string) *Manager {
	t.Helper()
	return New(root, version, origin, urls, time.Second, zerolog.Nop())
}

func TestInstall_PopulatesFullManifest(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	m := newManager(t, root, "saut-al-quran-v1", origin.srv.URL, manifest)

	require.NoError(t, m.Install(context.Background()))
	assert.True(t, m.Installed())
	assert.EqualValues(t, len(manifest), origin.hits.Load())

	entries, err := os.ReadDir(filepath.Join(root, "saut-al-quran-v1"))
	require.NoError(t, err)
	assert.Len(t, entries, len(manifest))
}

func TestInstall_FailureLeavesNoPartialVersion(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	m := newManager(t, root, "saut-al-quran-v1", origin.srv.URL, []string{"/", "/missing"})

	err := m.Install(context.Background())
	require.ErrorIs(t, err, ErrInstall)
	assert.False(t, m.Installed())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed install must not leave a version behind")
}

func TestActivate_PurgesStaleVersions(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	ctx := context.Background()

	v1 := newManager(t, root, "saut-al-quran-v1", origin.srv.URL, manifest)
	require.NoError(t, v1.Install(ctx))
	require.NoError(t, v1.Activate())

	v2 := newManager(t, root, "saut-al-quran-v2", origin.srv.URL, manifest)
	require.NoError(t, v2.Install(ctx))
	require.NoError(t, v2.Activate())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "saut-al-quran-v2", entries[0].Name())

	// activating the same version twice accumulates nothing
	require.NoError(t, v2.Activate())
	entries, err = os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestServe_CacheFirst(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	m := newManager(t, root, "v1", origin.srv.URL, manifest)
	require.NoError(t, m.Install(context.Background()))
	installHits := origin.hits.Load()

	// a cached URL is served without touching the network
	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/js/bundle.js", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "asset:/static/js/bundle.js", rr.Body.String())
	assert.Equal(t, installHits, origin.hits.Load())
}

func TestServe_MissFetchesOnceThenCaches(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	m := newManager(t, root, "v1", origin.srv.URL, manifest)
	require.NoError(t, m.Install(context.Background()))
	installHits := origin.hits.Load()

	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "asset:/logo.png", rr.Body.String())
	assert.Equal(t, installHits+1, origin.hits.Load())

	// second request is a hit
	rr = httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, installHits+1, origin.hits.Load(), "exactly one network request per cached URL")
}

func TestServe_NonOKResponsesAreNotCached(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	m := newManager(t, root, "v1", origin.srv.URL, manifest)
	require.NoError(t, m.Install(context.Background()))
	installHits := origin.hits.Load()

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}
	assert.Equal(t, installHits+2, origin.hits.Load())
}

func TestServe_NavigationFallbackWhenOffline(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	m := newManager(t, root, "v1", origin.srv.URL, manifest)
	require.NoError(t, m.Install(context.Background()))

	origin.srv.Close() // network gone

	req := httptest.NewRequest(http.MethodGet, "/some/uncached/page", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>home</html>", rr.Body.String(), "navigation requests fall back to the cached root document")
}

func TestServe_NonNavigationFailurePropagates(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	m := newManager(t, root, "v1", origin.srv.URL, manifest)
	require.NoError(t, m.Install(context.Background()))

	origin.srv.Close()

	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uncached.js", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestServe_StaleVersionURLFallsThroughAfterUpgrade(t *testing.T) {
	origin := newOrigin(t)
	root := t.TempDir()
	ctx := context.Background()

	v1 := newManager(t, root, "v1", origin.srv.URL, []string{"/", "/only-in-v1.js"})
	require.NoError(t, v1.Install(ctx))
	require.NoError(t, v1.Activate())

	v2 := newManager(t, root, "v2", origin.srv.URL, []string{"/"})
	require.NoError(t, v2.Install(ctx))
	require.NoError(t, v2.Activate())
	before := origin.hits.Load()

	// cached under v1 only; after the v2 activation it must hit the network
	rr := httptest.NewRecorder()
	v2.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/only-in-v1.js", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, before+1, origin.hits.Load())
}
