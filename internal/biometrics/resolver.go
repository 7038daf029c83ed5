// Package biometrics decides which sleep, steps and heart-rate values feed
// today's forecast, and owns manual overrides of those values.
package biometrics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/geabd1/StressForecastingAppplication/internal/backend"
	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

// Remote is the subset of the backend the resolver calls.
type Remote interface {
	CurrentBiometrics(ctx context.Context) (*backend.CurrentBiometrics, error)
	WearableFeed(ctx context.Context) (*backend.WearableFeed, error)
	SaveManualBiometrics(ctx context.Context, req backend.ManualRequest) (*backend.ManualSaveAck, error)
	ClearManualBiometrics(ctx context.Context) error
}

// UserStore is the subset of the local user store the resolver reads and
// writes.
type UserStore interface {
	Now() time.Time
	User() *models.User
	ManualData() *models.ManualBiometrics
	SetManualData(ctx context.Context, m models.ManualBiometrics) error
	ClearManualData(ctx context.Context) error
	RecordManualEdit(ctx context.Context, m models.ManualBiometrics) error
	MarkWearableSynced(ctx context.Context, at time.Time) error
}

// ManualCache holds today's manual override outside the persisted profile.
type ManualCache interface {
	Put(userID string, m models.ManualBiometrics)
	Today(userID string) (models.ManualBiometrics, bool)
	Remove(userID string)
}

type Resolver struct {
	remote Remote
	store  UserStore
	cache  ManualCache
	log    zerolog.Logger
}

func NewResolver(remote Remote, store UserStore, cache ManualCache, log zerolog.Logger) *Resolver {
	return &Resolver{remote: remote, store: store, cache: cache, log: log}
}

// Resolve picks today's reading. In order of precedence: a manual override
// confirmed by the backend, today's override in the local profile, today's
// override in the session cache, and finally a fresh wearable pull.
//
// It returns backend.ErrNotConnected when it falls through to the wearable
// and the integration was never authorized.
func (r *Resolver) Resolve(ctx context.Context) (models.BiometricReading, error) {
	u := r.store.User()
	if u == nil {
		return models.BiometricReading{}, userstore.ErrNotSignedIn
	}
	now := r.store.Now()

	reading, ok, err := r.confirmedManual(ctx, u.ID, now)
	if err != nil {
		return models.BiometricReading{}, err
	}
	if ok {
		return reading, nil
	}

	if m := r.store.ManualData(); m != nil {
		if models.SameDay(m.Timestamp, now, now.Location()) {
			return models.ReadingFromManual(*m), nil
		}
		r.log.Debug().Time("entered", m.Timestamp).Msg("ignoring manual data from an earlier day")
	}

	if m, ok := r.cache.Today(u.ID); ok {
		return models.ReadingFromManual(m), nil
	}

	feed, err := r.remote.WearableFeed(ctx)
	if err != nil {
		return models.BiometricReading{}, err
	}
	if err := r.store.MarkWearableSynced(ctx, now); err != nil {
		r.log.Warn().Err(err).Msg("wearable sync time not persisted")
	}
	reading = feed.Reading(now)
	if feed.IsManualEdit {
		m := models.ManualBiometrics{
			SleepHours:   feed.SleepHours,
			Steps:        feed.Steps,
			HeartRate:    feed.HeartRate,
			IsManualEdit: true,
			Timestamp:    now,
			SyncStatus:   models.SyncSynced,
		}
		if err := r.store.SetManualData(ctx, m); err != nil {
			r.log.Warn().Err(err).Msg("manual edit from wearable feed not persisted")
		}
		r.cache.Put(u.ID, m)
	}
	return reading, nil
}

// confirmedManual asks the backend whether today's data is a manual override.
// Anything short of a complete confirmation falls through, except an expired
// session or a cancelled context.
func (r *Resolver) confirmedManual(ctx context.Context, userID string, now time.Time) (models.BiometricReading, bool, error) {
	cur, err := r.remote.CurrentBiometrics(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrSessionExpired) {
			return models.BiometricReading{}, false, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.BiometricReading{}, false, ctxErr
		}
		r.log.Debug().Err(err).Msg("manual override check failed, falling through")
		return models.BiometricReading{}, false, nil
	}
	if !cur.ConfirmedManual() {
		return models.BiometricReading{}, false, nil
	}

	m := models.ManualBiometrics{
		SleepHours:   *cur.SleepHours,
		Steps:        *cur.Steps,
		HeartRate:    *cur.HeartRate,
		IsManualEdit: true,
		Timestamp:    now,
		SyncStatus:   models.SyncSynced,
	}
	if err := r.store.SetManualData(ctx, m); err != nil {
		r.log.Warn().Err(err).Msg("confirmed manual override not persisted")
	}
	r.cache.Put(userID, m)
	return models.ReadingFromManual(m), true, nil
}
