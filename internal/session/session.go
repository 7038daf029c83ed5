// Package session wires the forecasting components for one signed-in user
// and owns their lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geabd1/StressForecastingAppplication/internal/backend"
	"github.com/geabd1/StressForecastingAppplication/internal/biometrics"
	"github.com/geabd1/StressForecastingAppplication/internal/config"
	"github.com/geabd1/StressForecastingAppplication/internal/forecast"
	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/sessioncache"
	"github.com/geabd1/StressForecastingAppplication/internal/storage"
	"github.com/geabd1/StressForecastingAppplication/internal/syncqueue"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

type Session struct {
	log      zerolog.Logger
	db       *storage.SQLiteStorage
	client   *backend.Client
	store    *userstore.Store
	cache    *sessioncache.Cache
	sync     *syncqueue.Executor
	resolver *biometrics.Resolver
	composer *forecast.Composer
}

type options struct {
	now      func() time.Time
	observer forecast.StateObserver
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithObserver(obs forecast.StateObserver) Option {
	return func(o *options) { o.observer = obs }
}

// Open builds the component graph and restores any persisted session.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*Session, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s := &Session{log: log, db: db}
	s.client = backend.New(cfg.APIBase, "",
		backend.WithTimeout(cfg.RemoteTimeout),
		backend.WithLogger(log),
		backend.WithDebugLogging(cfg.DebugHTTP),
	)
	s.sync = syncqueue.NewExecutor(syncqueue.Config{
		Shards:      cfg.SyncShards,
		MaxAttempts: cfg.SyncMaxAttempts,
		Retryable:   backend.IsRecoverable,
		Logger:      log,
	})
	s.store = userstore.New(db,
		userstore.WithClock(o.now),
		userstore.WithLogger(log),
		userstore.WithMoodSync(s.client, s.sync),
	)
	s.cache = sessioncache.New(cfg.SessionCacheSize, cfg.SessionCacheTTL, o.now)
	s.resolver = biometrics.NewResolver(s.client, s.store, s.cache, log)

	composerOpts := []forecast.Option{
		forecast.WithLogger(log),
		forecast.WithTimeout(cfg.RemoteTimeout),
		forecast.WithPrefetch(s.pullMoodHistory),
	}
	if o.observer != nil {
		composerOpts = append(composerOpts, forecast.WithObserver(o.observer))
	}
	s.composer = forecast.NewComposer(s.resolver, s.client, s.store, composerOpts...)

	if err := s.store.Load(ctx); err != nil && !errors.Is(err, userstore.ErrNoSession) {
		s.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	s.client.SetToken(s.store.Token())
	s.store.ResubmitUnsynced(ctx)
	return s, nil
}

// Close stops background sync, draining queued jobs, and closes storage.
func (s *Session) Close() error {
	s.sync.Stop()
	return s.db.Close()
}

// HealthCheck pings local storage.
func (s *Session) HealthCheck(ctx context.Context) error { return s.db.HealthCheck(ctx) }

func (s *Session) Authenticated() bool { return s.store.Authenticated() }

func (s *Session) User() *models.User { return s.store.User() }

// PersistErr reports the last local storage failure, if any.
func (s *Session) PersistErr() error { return s.store.PersistErr() }

// Login installs token, fetches the profile and pulls mood history. A failed
// history pull does not fail the login.
func (s *Session) Login(ctx context.Context, token string) (*models.User, error) {
	s.client.SetToken(token)
	p, err := s.client.Profile(ctx)
	if err != nil {
		s.client.SetToken(s.store.Token())
		return nil, fmt.Errorf("login: %w", err)
	}

	u := &models.User{
		ID:              p.UserID(),
		Name:            p.Name,
		FitbitConnected: p.FitbitConnected,
		FitbitLastSync:  parseOptional(p.FitbitLastSync, s.store.Now()),
	}
	if err := s.store.SetSession(ctx, token, u); err != nil && !errors.Is(err, userstore.ErrNotPersisted) {
		return nil, err
	}
	if err := s.pullMoodHistory(ctx); err != nil {
		s.log.Warn().Err(err).Msg("mood history not loaded at login")
	}
	return s.store.User(), nil
}

// Logout drops local state, including every cached override on this device.
// Queued sync jobs for the user are abandoned.
func (s *Session) Logout(ctx context.Context) error {
	s.cache.Purge()
	s.client.SetToken("")
	return s.store.Logout(ctx)
}

// Forecast refreshes today's forecast, cancelling one already in flight.
func (s *Session) Forecast(ctx context.Context) (*models.Forecast, error) {
	if !s.store.Authenticated() {
		return nil, userstore.ErrNotSignedIn
	}
	f, err := s.composer.Refresh(ctx)
	return f, s.checkExpired(ctx, err)
}

// LastForecast returns the most recent forecast composed by this session, or
// nil before the first one.
func (s *Session) LastForecast() *models.Forecast { return s.composer.Last() }

// RecordMood stores today's check-in locally and queues it for the backend.
func (s *Session) RecordMood(ctx context.Context, rating int, notes string) (models.MoodEntry, error) {
	return s.store.RecordMoodRating(ctx, rating, notes)
}

func (s *Session) WeeklyMood() []userstore.DayPoint {
	return s.store.WeeklyMoodSeries()
}

// ManualOutcome is the result of a manual save and the forecast recomposed
// from it.
type ManualOutcome struct {
	Save     biometrics.SaveResult
	Forecast *models.Forecast
	// PersistErr is set when the override could not be written to disk.
	PersistErr error
}

// SaveManual validates raw form values, saves the override and recomposes
// the forecast from it.
func (s *Session) SaveManual(ctx context.Context, sleep, steps, heartRate, notes string) (*ManualOutcome, error) {
	in, err := biometrics.ParseManualInput(sleep, steps, heartRate, notes)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver.SaveManual(ctx, in)
	out := &ManualOutcome{Save: res}
	switch {
	case errors.Is(err, userstore.ErrNotPersisted):
		out.PersistErr = err
	case err != nil:
		return nil, s.checkExpired(ctx, err)
	}

	f, err := s.composer.ComposeWith(ctx, models.ReadingFromManual(res.Entry))
	if err != nil {
		return out, err
	}
	out.Forecast = f
	return out, nil
}

// ClearManual removes today's override. degraded means the backend copy may
// still exist.
func (s *Session) ClearManual(ctx context.Context) (degraded bool, err error) {
	degraded, err = s.resolver.ClearManual(ctx)
	return degraded, s.checkExpired(ctx, err)
}

// RefreshProfile pulls backend-owned profile fields, keeping local data.
func (s *Session) RefreshProfile(ctx context.Context) error {
	p, err := s.client.Profile(ctx)
	if err != nil {
		return s.checkExpired(ctx, err)
	}
	return s.store.ApplyProfile(ctx, userstore.ProfileUpdate{
		ID:              p.UserID(),
		Name:            p.Name,
		FitbitConnected: p.FitbitConnected,
		FitbitLastSync:  parseOptional(p.FitbitLastSync, s.store.Now()),
	})
}

func (s *Session) DisconnectWearable(ctx context.Context) error {
	if err := s.client.DisconnectWearable(ctx); err != nil {
		return s.checkExpired(ctx, err)
	}
	return s.store.DisconnectWearable(ctx)
}

// FlushSync waits until queued sync jobs for the current user have run.
func (s *Session) FlushSync(ctx context.Context) error {
	u := s.store.User()
	if u == nil {
		return nil
	}
	return s.sync.Barrier(ctx, u.ID)
}

func (s *Session) pullMoodHistory(ctx context.Context) error {
	records, err := s.client.MoodHistory(ctx)
	if err != nil {
		return err
	}
	loc := s.store.Now().Location()
	entries := make([]models.MoodEntry, 0, len(records))
	for _, r := range records {
		e, err := r.Entry(loc)
		if err != nil {
			s.log.Debug().Err(err).Msg("skipping mood record")
			continue
		}
		entries = append(entries, e)
	}
	added, err := s.store.MergeRemoteMoodHistory(ctx, entries)
	if added > 0 {
		s.log.Debug().Int("added", added).Msg("merged remote mood history")
	}
	return err
}

// checkExpired signs the user out when the backend rejected the session.
func (s *Session) checkExpired(ctx context.Context, err error) error {
	if !errors.Is(err, backend.ErrSessionExpired) {
		return err
	}
	s.log.Warn().Msg("session expired, signing out")
	if lerr := s.Logout(context.WithoutCancel(ctx)); lerr != nil {
		s.log.Error().Err(lerr).Msg("failed to clear expired session")
	}
	return err
}

func parseOptional(raw *string, now time.Time) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	t, err := backend.ParseTimestamp(*raw, now.Location())
	if err != nil {
		return nil
	}
	return &t
}
