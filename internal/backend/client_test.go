package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "tok-123", WithTimeout(time.Second))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCurrentBiometrics_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fitbit/current-data", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"source": "manual", "sleep_hours": 6.5, "steps": 4200, "heart_rate": 70,
			"is_manual_edit": true, "data_date": "2026-10-15",
		})
	})

	cur, err := c.CurrentBiometrics(context.Background())
	require.NoError(t, err)
	assert.True(t, cur.ConfirmedManual())
	assert.Equal(t, 4200, *cur.Steps)
}

func TestCurrentBiometrics_PartialIsNotConfirmed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"source": "manual", "sleep_hours": 6.5})
	})

	cur, err := c.CurrentBiometrics(context.Background())
	require.NoError(t, err)
	assert.False(t, cur.ConfirmedManual())
}

func TestWearableFeed_NotConnected(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"404", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Fitbit not connected"})
		}},
		{"source none", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"source": "none"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.WearableFeed(context.Background())
			require.ErrorIs(t, err, ErrNotConnected)
			assert.False(t, IsRecoverable(err))
		})
	}
}

func TestWearableFeed_Reading(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"sleep_hours": 7.2, "steps": 8000, "heart_rate": 66, "calories_burned": 2100.5,
			"is_simulated": false, "source": "fitbit", "last_sync": "2026-10-15T07:30:00.123456",
		})
	})

	feed, err := c.WearableFeed(context.Background())
	require.NoError(t, err)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	r := feed.Reading(now)
	assert.Equal(t, 8000, r.Steps)
	assert.Equal(t, 7, r.LastSync.Hour())
	assert.False(t, r.IsManualEdit)
}

func TestUnauthorizedMapsToSessionExpired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Profile(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, IsRecoverable(err))
}

func TestServerErrorIsRecoverable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.PostMood(context.Background(), MoodRequest{Rating: 5, Notes: "Mood check-in: 5/10"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.True(t, IsRecoverable(err))
}

func TestBadRequestIsIrrecoverable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	})

	err := c.ClearManualBiometrics(context.Background())
	require.Error(t, err)
	assert.False(t, IsRecoverable(err))
}

func TestTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()
	c := New(srv.URL, "", WithTimeout(20*time.Millisecond))

	_, err := c.PredictStress(context.Background(), PredictionRequest{HeartRate: 70})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsRecoverable(err))
}

func TestPredictStress_DecodesOptionalConfidence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req PredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 88, req.HeartRate)
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "prediction": "High"})
	})

	p, err := c.PredictStress(context.Background(), PredictionRequest{HeartRate: 88, SleepHours: 4, Steps: 1200})
	require.NoError(t, err)
	assert.Equal(t, "High", p.Prediction)
	assert.Nil(t, p.Confidence)
	assert.Empty(t, p.Method)
}

func TestSaveManualBiometrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "action": "updated", "message": "ok"})
	})

	ack, err := c.SaveManualBiometrics(context.Background(), ManualRequest{SleepHours: 6, Steps: 100, HeartRate: 70})
	require.NoError(t, err)
	assert.Equal(t, "updated", ack.Action)
}

func TestMoodHistory(t *testing.T) {
	notes := "good day"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"mood_data": []map[string]any{
			{"rating": 8, "notes": notes, "timestamp": "2026-10-14T09:00:00"},
			{"rating": 5, "date": "2026-10-13"},
		}})
	})

	recs, err := c.MoodHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	e0, err := recs[0].Entry(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "good day", e0.Notes)
	assert.Equal(t, 9, e0.Timestamp.Hour())

	e1, err := recs[1].Entry(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 13, e1.Timestamp.Day())
}

func TestMoodHistory_RejectsMissingAndOutOfRangeRatings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"mood_data": []map[string]any{
			{"rating": nil, "date": "2026-10-15"},
			{"date": "2026-10-14"},
			{"rating": 0, "date": "2026-10-13"},
			{"rating": 11, "date": "2026-10-12"},
			{"rating": 10, "date": "2026-10-11"},
		}})
	})

	recs, err := c.MoodHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 5)

	for _, rec := range recs[:4] {
		_, err := rec.Entry(time.UTC)
		assert.ErrorIs(t, err, ErrInvalidMoodRecord)
	}
	e, err := recs[4].Entry(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 10, e.Rating)
}

func TestProfileUserID(t *testing.T) {
	assert.Equal(t, "42", (&Profile{ID: float64(42)}).UserID())
	assert.Equal(t, "abc", (&Profile{ID: "abc"}).UserID())
	assert.Equal(t, "", (&Profile{}).UserID())
}

func TestParseTimestamp_Rejects(t *testing.T) {
	_, err := ParseTimestamp("yesterday", time.UTC)
	require.Error(t, err)
}
