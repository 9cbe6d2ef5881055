package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sautalquran/internal/domain"
)

func TestCreateRecitation_Success(t *testing.T) {
	var gotAuth string
	var gotBody domain.RecordingData
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/recitations/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Recitation{ID: 11, SurahName: gotBody.SurahName, Status: "submitted"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	rec, err := c.CreateRecitation(context.Background(), domain.RecordingData{
		SurahName: "al-fatiha", AyahStart: 1, AyahEnd: 7, AudioData: "YQ==", Duration: 42,
	}, "tok")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "al-fatiha", gotBody.SurahName)
	assert.Equal(t, int64(11), rec.ID)
	assert.Equal(t, "submitted", rec.Status)
}

func TestCreateRecitation_AuthRejected(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", code)
		}))
		c := New(srv.URL, time.Second)
		_, err := c.CreateRecitation(context.Background(), domain.RecordingData{}, "stale")
		assert.ErrorIs(t, err, ErrAuthRejected)
		srv.Close()
	}
}

func TestCreateRecitation_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.CreateRecitation(context.Background(), domain.RecordingData{}, "tok")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
}

func TestCreateRecitation_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, time.Second)
	_, err := c.CreateRecitation(context.Background(), domain.RecordingData{}, "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthRejected)
}

func TestListComments_Path(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/comments/recitation/42", r.URL.Path)
		json.NewEncoder(w).Encode([]domain.Comment{{ID: 1, RecitationID: 42, TextComment: "ok"}})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	comments, err := c.ListComments(context.Background(), 42, "tok")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(42), comments[0].RecitationID)
}

func TestListRecitations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/recitations/", r.URL.Path)
		json.NewEncoder(w).Encode([]domain.Recitation{{ID: 1}, {ID: 2}})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	recs, err := c.ListRecitations(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
