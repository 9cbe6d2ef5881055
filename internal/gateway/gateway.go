package gateway

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"sautalquran/internal/domain"
	"sautalquran/internal/metrics"
	"sautalquran/internal/store"
	"sautalquran/internal/syncer"
)

// Remote is the slice of the recitation API the gateway uses.
type Remote interface {
	CreateRecitation(ctx context.Context, data domain.RecordingData, token string) (domain.Recitation, error)
	CreateMarker(ctx context.Context, data domain.MarkerData, token string) (domain.Marker, error)
	ListRecitations(ctx context.Context, token string) ([]domain.Recitation, error)
	ListComments(ctx context.Context, recitationID int64, token string) ([]domain.Comment, error)
}

// OnlineChecker reports current network reachability.
type OnlineChecker interface {
	Online(ctx context.Context) bool
}

// Gateway is the submission entry point for the UI layer. Submissions never
// fail on network errors: the primary path silently degrades to the durable
// queue plus a best-effort sync registration. Only store errors propagate.
type Gateway struct {
	remote    Remote
	store     *store.Store
	online    OnlineChecker
	registrar syncer.Registrar
	log       zerolog.Logger
}

func New(remote Remote, st *store.Store, online OnlineChecker, registrar syncer.Registrar, log zerolog.Logger) *Gateway {
	return &Gateway{remote: remote, store: st, online: online, registrar: registrar, log: log}
}

// SubmitRecording tries a direct upload when online, otherwise queues the
// recording with its captured token and returns a pending placeholder.
func (g *Gateway) SubmitRecording(ctx context.Context, data domain.RecordingData, token string) (domain.Recitation, error) {
	if g.online.Online(ctx) {
		rec, err := g.remote.CreateRecitation(ctx, data, token)
		if err == nil {
			metrics.SubmissionsDirect.Inc()
			return rec, nil
		}
		g.log.Warn().Err(err).Msg("direct submission failed, saving offline")
	}

	id, err := g.store.SavePendingRecording(ctx, data, token)
	if err != nil {
		return domain.Recitation{}, err
	}
	g.registrar.Register(syncer.TagRecordings)
	metrics.SubmissionsQueued.Inc()
	g.log.Info().Str("id", id).Msg("recording queued for background sync")

	return domain.Recitation{
		ID:        millisPrefix(id),
		SurahName: data.SurahName,
		AyahStart: data.AyahStart,
		AyahEnd:   data.AyahEnd,
		AudioData: data.AudioData,
		Duration:  data.Duration,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		PendingID: id,
	}, nil
}

// SubmitMarker is the marker counterpart of SubmitRecording.
func (g *Gateway) SubmitMarker(ctx context.Context, data domain.MarkerData, token string) (domain.Marker, error) {
	if g.online.Online(ctx) {
		m, err := g.remote.CreateMarker(ctx, data, token)
		if err == nil {
			return m, nil
		}
		g.log.Warn().Err(err).Msg("direct marker creation failed, saving offline")
	}

	id, err := g.store.SavePendingMarker(ctx, data, token)
	if err != nil {
		return domain.Marker{}, err
	}
	g.registrar.Register(syncer.TagMarkers)
	g.log.Info().Str("id", id).Msg("marker queued for background sync")

	return domain.Marker{
		ID:           millisPrefix(id),
		RecitationID: data.RecitationID,
		Timestamp:    data.Timestamp,
		Label:        data.Label,
		Description:  data.Description,
		Status:       domain.StatusPending,
		PendingID:    id,
	}, nil
}

// Recitations fetches the recitation list, replacing the local cache on
// success and falling back to it when the network is unavailable.
func (g *Gateway) Recitations(ctx context.Context, token string) ([]domain.Recitation, error) {
	recs, err := g.remote.ListRecitations(ctx, token)
	if err == nil {
		if cacheErr := g.store.CacheRecitations(ctx, recs); cacheErr != nil {
			g.log.Error().Err(cacheErr).Msg("failed to cache recitations")
		}
		return recs, nil
	}

	g.log.Warn().Err(err).Msg("recitation fetch failed, serving cache")
	cached, cacheErr := g.store.CachedRecitationList(ctx)
	if cacheErr != nil {
		return nil, err
	}
	return cached, nil
}

// Comments is the per-recitation read-through for scholar comments.
func (g *Gateway) Comments(ctx context.Context, recitationID int64, token string) ([]domain.Comment, error) {
	comments, err := g.remote.ListComments(ctx, recitationID, token)
	if err == nil {
		if cacheErr := g.store.CacheComments(ctx, recitationID, comments); cacheErr != nil {
			g.log.Error().Err(cacheErr).Msg("failed to cache comments")
		}
		return comments, nil
	}

	g.log.Warn().Err(err).Int64("recitation_id", recitationID).Msg("comment fetch failed, serving cache")
	cached, cacheErr := g.store.CachedCommentList(ctx, recitationID)
	if cacheErr != nil {
		return nil, err
	}
	return cached, nil
}

// millisPrefix extracts the leading millisecond timestamp of a pending id,
// matching how the web client coerced pending ids to numbers.
func millisPrefix(id string) int64 {
	end := 0
	for end < len(id) && id[end] >= '0' && id[end] <= '9' {
		end++
	}
	n, _ := strconv.ParseInt(id[:end], 10, 64)
	return n
}
