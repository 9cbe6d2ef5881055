package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"sautalquran/internal/domain"
)

// NewPendingID generates a pending-item id: millisecond timestamp plus a
// random suffix. Collisions are not checked for; the scheme is assumed
// unique enough.
func NewPendingID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + suffix
}

// SavePendingRecording queues a recording with its captured token and
// returns the generated pending id.
func (s *Store) SavePendingRecording(ctx context.Context, data domain.RecordingData, token string) (string, error) {
	rec := domain.PendingRecording{
		ID:        NewPendingID(),
		Data:      data,
		Token:     token,
		Timestamp: time.Now().UnixMilli(),
	}
	body, err := marshal(rec)
	if err != nil {
		return "", err
	}
	if err := s.Add(ctx, PendingRecordings, rec.ID, body); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// PendingRecordingList returns every queued recording, oldest first.
func (s *Store) PendingRecordingList(ctx context.Context) ([]domain.PendingRecording, error) {
	bodies, err := s.GetAll(ctx, PendingRecordings)
	if err != nil {
		return nil, err
	}
	items := make([]domain.PendingRecording, 0, len(bodies))
	for _, b := range bodies {
		var rec domain.PendingRecording
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode pending recording: %w", err)
		}
		items = append(items, rec)
	}
	return items, nil
}

func (s *Store) RemovePendingRecording(ctx context.Context, id string) error {
	return s.Delete(ctx, PendingRecordings, id)
}

// SavePendingMarker queues a marker with its captured token and returns the
// generated pending id.
func (s *Store) SavePendingMarker(ctx context.Context, data domain.MarkerData, token string) (string, error) {
	m := domain.PendingMarker{
		ID:        NewPendingID(),
		Data:      data,
		Token:     token,
		Timestamp: time.Now().UnixMilli(),
	}
	body, err := marshal(m)
	if err != nil {
		return "", err
	}
	if err := s.Add(ctx, PendingMarkers, m.ID, body); err != nil {
		return "", err
	}
	return m.ID, nil
}

func (s *Store) PendingMarkerList(ctx context.Context) ([]domain.PendingMarker, error) {
	bodies, err := s.GetAll(ctx, PendingMarkers)
	if err != nil {
		return nil, err
	}
	items := make([]domain.PendingMarker, 0, len(bodies))
	for _, b := range bodies {
		var m domain.PendingMarker
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("failed to decode pending marker: %w", err)
		}
		items = append(items, m)
	}
	return items, nil
}

func (s *Store) RemovePendingMarker(ctx context.Context, id string) error {
	return s.Delete(ctx, PendingMarkers, id)
}

// CacheRecitations replaces the recitation cache wholesale. Entries are not
// merged; staleness between replacements is accepted.
func (s *Store) CacheRecitations(ctx context.Context, recitations []domain.Recitation) error {
	recs := make([]Record, 0, len(recitations))
	for _, r := range recitations {
		body, err := marshal(r)
		if err != nil {
			return err
		}
		recs = append(recs, Record{ID: strconv.FormatInt(r.ID, 10), Body: body})
	}
	return s.ReplaceAll(ctx, CachedRecitations, recs)
}

func (s *Store) CachedRecitationList(ctx context.Context) ([]domain.Recitation, error) {
	bodies, err := s.GetAll(ctx, CachedRecitations)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Recitation, 0, len(bodies))
	for _, b := range bodies {
		var r domain.Recitation
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("failed to decode cached recitation: %w", err)
		}
		items = append(items, r)
	}
	return items, nil
}

func commentCacheKey(recitationID int64) string {
	return fmt.Sprintf("recitation_%d", recitationID)
}

// CacheComments overwrites the cached comment set for one recitation.
func (s *Store) CacheComments(ctx context.Context, recitationID int64, comments []domain.Comment) error {
	set := domain.CommentSet{
		ID:           commentCacheKey(recitationID),
		RecitationID: recitationID,
		Comments:     comments,
		Timestamp:    time.Now().UnixMilli(),
	}
	body, err := marshal(set)
	if err != nil {
		return err
	}
	return s.Put(ctx, CachedComments, set.ID, body)
}

// CachedCommentList returns the cached comments for a recitation; a missing
// cache entry yields an empty list, not an error.
func (s *Store) CachedCommentList(ctx context.Context, recitationID int64) ([]domain.Comment, error) {
	body, err := s.Get(ctx, CachedComments, commentCacheKey(recitationID))
	if errors.Is(err, ErrNotFound) {
		return []domain.Comment{}, nil
	}
	if err != nil {
		return nil, err
	}
	var set domain.CommentSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to decode cached comments: %w", err)
	}
	return set.Comments, nil
}

// PendingCounts reports queue depth for the UI layer's pending badge.
func (s *Store) PendingCounts(ctx context.Context) (recordings, markers int, err error) {
	if recordings, err = s.Count(ctx, PendingRecordings); err != nil {
		return 0, 0, err
	}
	if markers, err = s.Count(ctx, PendingMarkers); err != nil {
		return 0, 0, err
	}
	return recordings, markers, nil
}
