package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sautalquran/internal/domain"
	"sautalquran/internal/store"
	"sautalquran/internal/syncer"
)

// Submitter is the gateway surface the facade exposes to the UI layer.
type Submitter interface {
	SubmitRecording(ctx context.Context, data domain.RecordingData, token string) (domain.Recitation, error)
	SubmitMarker(ctx context.Context, data domain.MarkerData, token string) (domain.Marker, error)
	Recitations(ctx context.Context, token string) ([]domain.Recitation, error)
	Comments(ctx context.Context, recitationID int64, token string) ([]domain.Comment, error)
}

// OnlineChecker reports current network reachability.
type OnlineChecker interface {
	Online(ctx context.Context) bool
}

type Server struct {
	gateway   Submitter
	store     *store.Store
	online    OnlineChecker
	registrar syncer.Registrar
}

// NewServer builds the local HTTP facade. Requests that match no API route
// fall through to the asset cache handler, which intercepts all other
// fetches.
func NewServer(gw Submitter, st *store.Store, online OnlineChecker, registrar syncer.Registrar, assets http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{gateway: gw, store: st, online: online, registrar: registrar}

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recitations/", s.submitRecitation)
		r.Get("/recitations/", s.listRecitations)
		r.Post("/markers/", s.submitMarker)
		r.Get("/comments/recitation/{id}", s.listComments)
		r.Get("/pending", s.pending)
		r.Post("/sync", s.sync)
	})

	if assets != nil {
		r.NotFound(assets.ServeHTTP)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) submitRecitation(w http.ResponseWriter, r *http.Request) {
	var data domain.RecordingData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if data.SurahName == "" {
		http.Error(w, "surah_name is required", 400)
		return
	}
	if data.AyahStart <= 0 || data.AyahEnd < data.AyahStart {
		http.Error(w, "invalid ayah range", 400)
		return
	}

	rec, err := s.gateway.SubmitRecording(r.Context(), data, bearerToken(r))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	code := http.StatusCreated
	if rec.Status == domain.StatusPending {
		code = http.StatusAccepted
	}
	writeJSON(w, code, rec)
}

func (s *Server) submitMarker(w http.ResponseWriter, r *http.Request) {
	var data domain.MarkerData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if data.RecitationID <= 0 {
		http.Error(w, "recitation_id is required", 400)
		return
	}
	if data.Label == "" {
		http.Error(w, "label is required", 400)
		return
	}

	m, err := s.gateway.SubmitMarker(r.Context(), data, bearerToken(r))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	code := http.StatusCreated
	if m.Status == domain.StatusPending {
		code = http.StatusAccepted
	}
	writeJSON(w, code, m)
}

func (s *Server) listRecitations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.gateway.Recitations(r.Context(), bearerToken(r))
	if err != nil {
		http.Error(w, err.Error(), 502)
		return
	}
	writeJSON(w, 200, recs)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid recitation id", 400)
		return
	}
	comments, err := s.gateway.Comments(r.Context(), id, bearerToken(r))
	if err != nil {
		http.Error(w, err.Error(), 502)
		return
	}
	writeJSON(w, 200, comments)
}

type pendingResp struct {
	PendingRecordings int  `json:"pending_recordings"`
	PendingMarkers    int  `json:"pending_markers"`
	Online            bool `json:"online"`
}

// pending is the pull-based count surface for the UI's offline badge.
func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	recordings, markers, err := s.store.PendingCounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 200, pendingResp{
		PendingRecordings: recordings,
		PendingMarkers:    markers,
		Online:            s.online.Online(r.Context()),
	})
}

// sync requests an immediate flush of both pending containers.
func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	s.registrar.Register(syncer.TagRecordings)
	s.registrar.Register(syncer.TagMarkers)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
