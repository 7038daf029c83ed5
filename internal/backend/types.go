package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/geabd1/StressForecastingAppplication/internal/models"
)

// CurrentBiometrics is today's stored record as reported by the backend.
type CurrentBiometrics struct {
	Source       string   `json:"source"`
	SleepHours   *float64 `json:"sleep_hours"`
	Steps        *int     `json:"steps"`
	HeartRate    *int     `json:"heart_rate"`
	IsManualEdit bool     `json:"is_manual_edit"`
	DataDate     string   `json:"data_date"`
}

// ConfirmedManual reports whether the backend holds a complete manual override.
func (c *CurrentBiometrics) ConfirmedManual() bool {
	return c != nil && c.Source == "manual" &&
		c.SleepHours != nil && c.Steps != nil && c.HeartRate != nil
}

type WearableFeed struct {
	SleepHours     float64 `json:"sleep_hours"`
	Steps          int     `json:"steps"`
	HeartRate      int     `json:"heart_rate"`
	CaloriesBurned float64 `json:"calories_burned"`
	IsSimulated    bool    `json:"is_simulated"`
	IsManualEdit   bool    `json:"is_manual_edit"`
	Source         string  `json:"source"`
	LastSync       string  `json:"last_sync"`
}

// Reading converts the feed payload into a forecast input.
func (f *WearableFeed) Reading(now time.Time) models.BiometricReading {
	source := models.SourceWearable
	switch {
	case f.IsManualEdit || f.Source == "manual":
		source = models.SourceManual
	case f.IsSimulated:
		source = models.SourceDemo
	}
	lastSync, err := ParseTimestamp(f.LastSync, now.Location())
	if err != nil {
		lastSync = now
	}
	return models.BiometricReading{
		SleepHours:     f.SleepHours,
		Steps:          f.Steps,
		HeartRate:      f.HeartRate,
		CaloriesBurned: f.CaloriesBurned,
		Source:         source,
		IsManualEdit:   f.IsManualEdit,
		IsSimulated:    f.IsSimulated,
		LastSync:       lastSync,
	}
}

type ManualRequest struct {
	SleepHours float64 `json:"sleep_hours"`
	Steps      int     `json:"steps"`
	HeartRate  int     `json:"heart_rate"`
	Notes      string  `json:"notes"`
}

type ManualSaveAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

type PredictionRequest struct {
	HeartRate  int     `json:"heart_rate"`
	SleepHours float64 `json:"sleep_hours"`
	Steps      int     `json:"steps"`
}

type Prediction struct {
	Status     string   `json:"status"`
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence"`
	Method     string   `json:"method"`
}

type MoodRequest struct {
	Rating int    `json:"rating"`
	Notes  string `json:"notes"`
}

// MoodRecord is one row of the remote mood history.
type MoodRecord struct {
	Rating    *int    `json:"rating"`
	Notes     *string `json:"notes"`
	Timestamp string  `json:"timestamp"`
	Date      string  `json:"date"`
}

type moodHistoryResponse struct {
	MoodData []MoodRecord `json:"mood_data"`
}

// ErrInvalidMoodRecord marks a history row with a missing or out-of-range
// rating.
var ErrInvalidMoodRecord = errors.New("invalid mood record")

// Entry converts the record, preferring the precise timestamp over the date.
func (r MoodRecord) Entry(loc *time.Location) (models.MoodEntry, error) {
	if r.Rating == nil {
		return models.MoodEntry{}, fmt.Errorf("%w: missing rating", ErrInvalidMoodRecord)
	}
	if *r.Rating < 1 || *r.Rating > 10 {
		return models.MoodEntry{}, fmt.Errorf("%w: rating %d outside 1-10", ErrInvalidMoodRecord, *r.Rating)
	}
	raw := r.Timestamp
	if raw == "" {
		raw = r.Date
	}
	ts, err := ParseTimestamp(raw, loc)
	if err != nil {
		return models.MoodEntry{}, err
	}
	entry := models.MoodEntry{Rating: *r.Rating, Timestamp: ts, SyncStatus: models.SyncSynced}
	if r.Notes != nil {
		entry.Notes = *r.Notes
	}
	return entry, nil
}

type Profile struct {
	ID              any     `json:"id"`
	Name            string  `json:"name"`
	FitbitConnected bool    `json:"fitbit_connected"`
	FitbitLastSync  *string `json:"fitbit_last_sync"`
}

// UserID renders the profile id, which the backend may send as a number.
func (p *Profile) UserID() string {
	switch v := p.ID.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 as well as the backend's zone-less ISO
// timestamps and plain dates, which are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
