package biometrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/geabd1/StressForecastingAppplication/internal/backend"
	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

const (
	FieldSleep     = "sleep_hours"
	FieldSteps     = "steps"
	FieldHeartRate = "heart_rate"

	minSleep, maxSleep         = 0.0, 24.0
	minSteps, maxSteps         = 0, 50000
	minHeartRate, maxHeartRate = 40, 120

	localOnlyWarning = "Unable to save to server. Your changes are saved locally and will persist on this device."
)

// ValidationError names the first manual field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ManualInput is a validated manual override.
type ManualInput struct {
	SleepHours float64
	Steps      int
	HeartRate  int
	Notes      string
}

// ParseManualInput validates raw form values. Every field is checked for a
// number before any range is checked; the first failure is returned.
func ParseManualInput(sleep, steps, heartRate, notes string) (ManualInput, error) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(sleep), 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return ManualInput{}, &ValidationError{Field: FieldSleep, Message: "Sleep hours must be a number"}
	}
	stepCount, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(steps), ",", ""))
	if err != nil {
		return ManualInput{}, &ValidationError{Field: FieldSteps, Message: "Steps must be a whole number"}
	}
	bpm, err := strconv.Atoi(strings.TrimSpace(heartRate))
	if err != nil {
		return ManualInput{}, &ValidationError{Field: FieldHeartRate, Message: "Heart rate must be a whole number of bpm"}
	}

	in := ManualInput{SleepHours: hours, Steps: stepCount, HeartRate: bpm, Notes: strings.TrimSpace(notes)}
	if err := in.Validate(); err != nil {
		return ManualInput{}, err
	}
	return in, nil
}

// Validate checks the value ranges.
func (in ManualInput) Validate() error {
	if in.SleepHours < minSleep || in.SleepHours > maxSleep {
		return &ValidationError{Field: FieldSleep, Message: "Sleep hours must be between 0 and 24"}
	}
	if in.Steps < minSteps || in.Steps > maxSteps {
		return &ValidationError{Field: FieldSteps, Message: "Steps must be between 0 and 50,000"}
	}
	if in.HeartRate < minHeartRate || in.HeartRate > maxHeartRate {
		return &ValidationError{Field: FieldHeartRate, Message: "Heart rate must be between 40 and 120 bpm"}
	}
	return nil
}

// SaveResult describes where a manual override ended up.
type SaveResult struct {
	Entry    models.ManualBiometrics
	Action   string
	Degraded bool
	Warning  string
}

// SaveManual stores a manual override, remote first. If the backend cannot be
// reached the override is kept on this device only and the result is marked
// degraded. The returned error wraps userstore.ErrNotPersisted when the local
// write failed; the override is still applied in memory.
func (r *Resolver) SaveManual(ctx context.Context, in ManualInput) (SaveResult, error) {
	if err := in.Validate(); err != nil {
		return SaveResult{}, err
	}
	u := r.store.User()
	if u == nil {
		return SaveResult{}, userstore.ErrNotSignedIn
	}

	m := models.ManualBiometrics{
		SleepHours:   in.SleepHours,
		Steps:        in.Steps,
		HeartRate:    in.HeartRate,
		Notes:        in.Notes,
		IsManualEdit: true,
		Timestamp:    r.store.Now(),
	}
	res := SaveResult{Action: "saved"}

	ack, err := r.remote.SaveManualBiometrics(ctx, backend.ManualRequest{
		SleepHours: in.SleepHours,
		Steps:      in.Steps,
		HeartRate:  in.HeartRate,
		Notes:      in.Notes,
	})
	switch {
	case errors.Is(err, backend.ErrSessionExpired):
		return SaveResult{}, err
	case err != nil:
		r.log.Warn().Err(err).Msg("manual data saved on this device only")
		m.SyncStatus = models.SyncLocalOnly
		res.Degraded = true
		res.Warning = localOnlyWarning
	default:
		m.SyncStatus = models.SyncSynced
		if ack.Action != "" {
			res.Action = ack.Action
		}
	}
	res.Entry = m

	r.cache.Put(u.ID, m)
	persistErr := errors.Join(
		r.store.SetManualData(ctx, m),
		r.store.RecordManualEdit(ctx, m),
	)
	if persistErr != nil {
		return res, fmt.Errorf("save manual data: %w", persistErr)
	}
	return res, nil
}

// ClearManual drops today's manual override so the wearable feed is used
// again. A backend failure is reported as degraded; the local copy is cleared
// regardless.
func (r *Resolver) ClearManual(ctx context.Context) (degraded bool, err error) {
	u := r.store.User()
	if u == nil {
		return false, userstore.ErrNotSignedIn
	}
	if err := r.remote.ClearManualBiometrics(ctx); err != nil {
		if errors.Is(err, backend.ErrSessionExpired) {
			return false, err
		}
		r.log.Warn().Err(err).Msg("manual override cleared on this device only")
		degraded = true
	}
	r.cache.Remove(u.ID)
	if err := r.store.ClearManualData(ctx); err != nil {
		return degraded, fmt.Errorf("clear manual data: %w", err)
	}
	return degraded, nil
}
