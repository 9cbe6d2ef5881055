package syncer

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"sautalquran/internal/domain"
	"sautalquran/internal/metrics"
	"sautalquran/internal/store"
)

// Uploader is the slice of the remote API the worker needs.
type Uploader interface {
	CreateRecitation(ctx context.Context, data domain.RecordingData, token string) (domain.Recitation, error)
	CreateMarker(ctx context.Context, data domain.MarkerData, token string) (domain.Marker, error)
}

// Worker drains the pending-item containers when a sync trigger arrives.
// It runs independently of the request path and shares only the store and
// the trigger channel with it. Failures never abort a batch: each item is
// retried on the next trigger, with no backoff and no in-flight state, so a
// crash mid-upload leaves the item queued.
type Worker struct {
	store    *store.Store
	remote   Uploader
	triggers <-chan string
	schedule string
	log      zerolog.Logger
}

func New(st *store.Store, remote Uploader, triggers <-chan string, schedule string, log zerolog.Logger) *Worker {
	return &Worker{store: st, remote: remote, triggers: triggers, schedule: schedule, log: log}
}

// Run services triggers until ctx is done. The cron schedule redelivers
// both tags periodically, standing in for the platform's own retry policy.
func (w *Worker) Run(ctx context.Context) {
	redeliver := make(chan string, 2)
	if w.schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(w.schedule, func() {
			for _, tag := range []string{TagRecordings, TagMarkers} {
				select {
				case redeliver <- tag:
				default:
				}
			}
		})
		if err != nil {
			w.log.Error().Err(err).Str("schedule", w.schedule).Msg("invalid sync schedule, periodic redelivery disabled")
		} else {
			c.Start()
			defer c.Stop()
		}
	}

	w.log.Info().Str("schedule", w.schedule).Msg("sync worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case tag := <-w.triggers:
			w.handle(ctx, tag)
		case tag := <-redeliver:
			w.handle(ctx, tag)
		}
	}
}

func (w *Worker) handle(ctx context.Context, tag string) {
	switch tag {
	case TagRecordings:
		w.SyncRecordings(ctx)
	case TagMarkers:
		w.SyncMarkers(ctx)
	default:
		w.log.Warn().Str("tag", tag).Msg("unknown sync tag ignored")
	}
}

// SyncRecordings uploads every queued recording sequentially, deleting each
// one only after a confirmed success. A single item's failure is logged and
// the rest of the snapshot still runs.
func (w *Worker) SyncRecordings(ctx context.Context) {
	items, err := w.store.PendingRecordingList(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to read pending recordings, waiting for redelivery")
		return
	}
	for _, item := range items {
		w.warnIfExpired(item.Token, item.ID)
		if _, err := w.remote.CreateRecitation(ctx, item.Data, item.Token); err != nil {
			w.log.Error().Err(err).Str("id", item.ID).Msg("failed to sync recording")
			metrics.SyncFailures.WithLabelValues("recording").Inc()
			continue
		}
		if err := w.store.RemovePendingRecording(ctx, item.ID); err != nil {
			w.log.Error().Err(err).Str("id", item.ID).Msg("failed to remove synced recording")
			continue
		}
		metrics.SyncUploads.WithLabelValues("recording").Inc()
		w.log.Info().Str("id", item.ID).Msg("recording synced")
	}
	w.updateDepth(ctx)
}

// SyncMarkers is the marker counterpart of SyncRecordings.
func (w *Worker) SyncMarkers(ctx context.Context) {
	items, err := w.store.PendingMarkerList(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to read pending markers, waiting for redelivery")
		return
	}
	for _, item := range items {
		w.warnIfExpired(item.Token, item.ID)
		if _, err := w.remote.CreateMarker(ctx, item.Data, item.Token); err != nil {
			w.log.Error().Err(err).Str("id", item.ID).Msg("failed to sync marker")
			metrics.SyncFailures.WithLabelValues("marker").Inc()
			continue
		}
		if err := w.store.RemovePendingMarker(ctx, item.ID); err != nil {
			w.log.Error().Err(err).Str("id", item.ID).Msg("failed to remove synced marker")
			continue
		}
		metrics.SyncUploads.WithLabelValues("marker").Inc()
		w.log.Info().Str("id", item.ID).Msg("marker synced")
	}
	w.updateDepth(ctx)
}

// warnIfExpired flags uploads that will deterministically be rejected
// because the captured token already expired. The attempt still happens and
// the item stays queued on rejection. Opaque non-JWT tokens are ignored.
func (w *Worker) warnIfExpired(token, itemID string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if exp.Before(time.Now()) {
		metrics.ExpiredTokens.Inc()
		w.log.Warn().Str("id", itemID).Time("expired_at", exp.Time).
			Msg("captured token expired, upload will likely be rejected")
	}
}

func (w *Worker) updateDepth(ctx context.Context) {
	recordings, markers, err := w.store.PendingCounts(ctx)
	if err != nil {
		return
	}
	metrics.PendingItems.WithLabelValues("recording").Set(float64(recordings))
	metrics.PendingItems.WithLabelValues("marker").Set(float64(markers))
}
