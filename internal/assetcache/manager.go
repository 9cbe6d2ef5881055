package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sautalquran/internal/metrics"
)

// ErrInstall aborts activation of a new cache version; a previously
// activated version keeps serving.
var ErrInstall = errors.New("cache install failed")

// entry is one cached response, stored as a JSON file under the version
// directory.
type entry struct {
	Path        string `json:"path"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Manager keeps a version-tagged cache of static assets on disk and serves
// them cache-first, fetching misses from the origin. It is the Go analog of
// the service worker's install/activate/fetch trio.
type Manager struct {
	root     string
	version  string
	origin   string
	manifest []string
	client   *http.Client
	log      zerolog.Logger
}

func New(root, version, origin string, manifest []string, timeout time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		root:     root,
		version:  version,
		origin:   strings.TrimRight(origin, "/"),
		manifest: manifest,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

func (m *Manager) dir() string { return filepath.Join(m.root, m.version) }

// Install populates the version cache with the full manifest. Population is
// all-or-nothing: a staging directory is renamed into place only after
// every manifest fetch succeeded, so a failed install leaves no partial
// version behind.
func (m *Manager) Install(ctx context.Context) error {
	staging := m.dir() + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: %v", ErrInstall, err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrInstall, err)
	}

	for _, path := range m.manifest {
		e, err := m.fetch(ctx, path)
		if err != nil {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("%w: %s: %v", ErrInstall, path, err)
		}
		if e.Status != http.StatusOK {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("%w: %s: HTTP %d", ErrInstall, path, e.Status)
		}
		if err := writeEntry(staging, e); err != nil {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("%w: %v", ErrInstall, err)
		}
	}

	if err := os.RemoveAll(m.dir()); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("%w: %v", ErrInstall, err)
	}
	if err := os.Rename(staging, m.dir()); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("%w: %v", ErrInstall, err)
	}
	m.log.Info().Str("version", m.version).Int("assets", len(m.manifest)).Msg("asset cache installed")
	return nil
}

// Activate deletes every cache version other than the current one.
// Activating the same version twice is idempotent.
func (m *Manager) Activate() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to enumerate cache versions: %w", err)
	}
	for _, e := range entries {
		if e.Name() == m.version {
			continue
		}
		m.log.Info().Str("cache", e.Name()).Msg("deleting old cache")
		if err := os.RemoveAll(filepath.Join(m.root, e.Name())); err != nil {
			return fmt.Errorf("failed to delete old cache %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Installed reports whether the current version directory exists.
func (m *Manager) Installed() bool {
	info, err := os.Stat(m.dir())
	return err == nil && info.IsDir()
}

// ServeHTTP implements cache-first fetch interception: a cached response is
// returned unconditionally without revalidation; a miss goes to the origin
// and successful 200 responses are stored for next time. A failed fetch for
// a navigation request falls back to the cached root document.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if e, err := m.load(r.URL.Path); err == nil {
		metrics.CacheHits.Inc()
		serveEntry(w, e)
		return
	}
	metrics.CacheMisses.Inc()

	e, err := m.fetch(r.Context(), r.URL.Path)
	if err != nil {
		if isNavigation(r) {
			if root, cacheErr := m.load("/"); cacheErr == nil {
				m.log.Warn().Err(err).Str("path", r.URL.Path).Msg("origin unreachable, serving offline page")
				serveEntry(w, root)
				return
			}
		}
		http.Error(w, "origin unreachable", http.StatusBadGateway)
		return
	}

	if e.Status == http.StatusOK {
		if err := writeEntry(m.dir(), e); err != nil {
			m.log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to cache response")
		}
	}
	serveEntry(w, e)
}

func (m *Manager) fetch(ctx context.Context, path string) (*entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.origin+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &entry{
		Path:        path,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (m *Manager) load(path string) (*entry, error) {
	b, err := os.ReadFile(filepath.Join(m.dir(), keyFor(path)))
	if err != nil {
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func writeEntry(dir string, e *entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, keyFor(e.Path)), b, 0o644)
}

func serveEntry(w http.ResponseWriter, e *entry) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}

func keyFor(path string) string {
	if path == "" || path == "/" {
		return "__root__"
	}
	return url.PathEscape(strings.Trim(path, "/"))
}

// isNavigation approximates the browser's document-destination check.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Dest") == "document" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
