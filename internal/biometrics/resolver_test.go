package biometrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geabd1/StressForecastingAppplication/internal/backend"
	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/sessioncache"
	"github.com/geabd1/StressForecastingAppplication/internal/storage"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

var now = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

type fakeRemote struct {
	current    *backend.CurrentBiometrics
	currentErr error
	feed       *backend.WearableFeed
	feedErr    error
	saveErr    error
	clearErr   error

	feedCalls  int
	saved      []backend.ManualRequest
	clearCalls int
}

func (f *fakeRemote) CurrentBiometrics(context.Context) (*backend.CurrentBiometrics, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.current == nil {
		return &backend.CurrentBiometrics{Source: "none"}, nil
	}
	return f.current, nil
}

func (f *fakeRemote) WearableFeed(context.Context) (*backend.WearableFeed, error) {
	f.feedCalls++
	if f.feedErr != nil {
		return nil, f.feedErr
	}
	return f.feed, nil
}

func (f *fakeRemote) SaveManualBiometrics(_ context.Context, req backend.ManualRequest) (*backend.ManualSaveAck, error) {
	f.saved = append(f.saved, req)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &backend.ManualSaveAck{Status: "success", Action: "created"}, nil
}

func (f *fakeRemote) ClearManualBiometrics(context.Context) error {
	f.clearCalls++
	return f.clearErr
}

type fixture struct {
	remote   *fakeRemote
	store    *userstore.Store
	cache    *sessioncache.Cache
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := func() time.Time { return now }
	store := userstore.New(db, userstore.WithClock(clock))
	require.NoError(t, store.SetSession(context.Background(), "tok", &models.User{ID: "u1"}))

	f := &fixture{
		remote: &fakeRemote{feed: &backend.WearableFeed{SleepHours: 7, Steps: 8000, HeartRate: 64, Source: "fitbit"}},
		store:  store,
		cache:  sessioncache.New(8, time.Hour, clock),
	}
	f.resolver = NewResolver(f.remote, f.store, f.cache, zerolog.Nop())
	return f
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestResolve_BackendConfirmedManualWins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetManualData(context.Background(), models.ManualBiometrics{SleepHours: 3, Steps: 10, HeartRate: 100, Timestamp: now}))
	f.remote.current = &backend.CurrentBiometrics{Source: "manual", SleepHours: floatPtr(6), Steps: intPtr(4000), HeartRate: intPtr(72)}

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceManual, r.Source)
	assert.Equal(t, 4000, r.Steps)
	assert.Zero(t, f.remote.feedCalls)

	stored := f.store.ManualData()
	require.NotNil(t, stored)
	assert.Equal(t, 4000, stored.Steps, "confirmation is written back to the profile")
	cached, ok := f.cache.Today("u1")
	require.True(t, ok)
	assert.Equal(t, 72, cached.HeartRate)
}

func TestResolve_PartialConfirmationFallsThrough(t *testing.T) {
	f := newFixture(t)
	f.remote.current = &backend.CurrentBiometrics{Source: "manual", SleepHours: floatPtr(6)}

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceWearable, r.Source)
}

func TestResolve_ProfileManualBeforeCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetManualData(context.Background(), models.ManualBiometrics{SleepHours: 5, Steps: 1200, HeartRate: 88, Timestamp: now}))
	f.cache.Put("u1", models.ManualBiometrics{SleepHours: 9, Steps: 9000, HeartRate: 60, Timestamp: now})

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1200, r.Steps)
	assert.True(t, r.IsManualEdit)
}

func TestResolve_EarlierDayProfileManualFallsThrough(t *testing.T) {
	for _, age := range []int{-1, -7} {
		f := newFixture(t)
		require.NoError(t, f.store.SetManualData(context.Background(), models.ManualBiometrics{SleepHours: 4, Steps: 100, HeartRate: 95, Timestamp: now.AddDate(0, 0, age)}))

		r, err := f.resolver.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.SourceWearable, r.Source)
		assert.Equal(t, 8000, r.Steps)
		assert.Equal(t, 1, f.remote.feedCalls)
	}
}

func TestResolve_CacheBeforeWearable(t *testing.T) {
	f := newFixture(t)
	f.cache.Put("u1", models.ManualBiometrics{SleepHours: 9, Steps: 9000, HeartRate: 60, Timestamp: now.Add(-time.Hour)})

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9000, r.Steps)
	assert.Zero(t, f.remote.feedCalls)
}

func TestResolve_YesterdaysCacheIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.cache.Put("u1", models.ManualBiometrics{SleepHours: 9, Steps: 9000, HeartRate: 60, Timestamp: now.AddDate(0, 0, -1)})

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceWearable, r.Source)
	assert.Equal(t, 8000, r.Steps)
	assert.Equal(t, 1, f.remote.feedCalls)
}

func TestResolve_WearableMarksSynced(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)

	u := f.store.User()
	assert.True(t, u.FitbitConnected)
	require.NotNil(t, u.FitbitLastSync)
	assert.True(t, u.FitbitLastSync.Equal(now))
}

func TestResolve_WearableManualEditIsCached(t *testing.T) {
	f := newFixture(t)
	f.remote.feed = &backend.WearableFeed{SleepHours: 6, Steps: 3000, HeartRate: 70, IsManualEdit: true, Source: "manual"}

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceManual, r.Source)
	_, ok := f.cache.Today("u1")
	assert.True(t, ok)

	stored := f.store.ManualData()
	require.NotNil(t, stored, "feed manual edit is written to the profile")
	assert.Equal(t, 3000, stored.Steps)
	assert.Equal(t, models.SyncSynced, stored.SyncStatus)
}

func TestResolve_NotConnected(t *testing.T) {
	f := newFixture(t)
	f.remote.feedErr = backend.ErrNotConnected

	_, err := f.resolver.Resolve(context.Background())
	require.ErrorIs(t, err, backend.ErrNotConnected)
}

func TestResolve_ConfirmationOutageIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.remote.currentErr = backend.ErrUnavailable

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceWearable, r.Source)
}

func TestResolve_SessionExpiredPropagates(t *testing.T) {
	f := newFixture(t)
	f.remote.currentErr = backend.ErrSessionExpired

	_, err := f.resolver.Resolve(context.Background())
	require.ErrorIs(t, err, backend.ErrSessionExpired)
}

func TestResolve_SignedOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Logout(context.Background()))

	_, err := f.resolver.Resolve(context.Background())
	require.ErrorIs(t, err, userstore.ErrNotSignedIn)
}

func TestSaveManual_RemoteSuccess(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolver.SaveManual(context.Background(), ManualInput{SleepHours: 6.5, Steps: 4200, HeartRate: 72, Notes: "rough night"})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, "created", res.Action)
	assert.Equal(t, models.SyncSynced, res.Entry.SyncStatus)
	require.Len(t, f.remote.saved, 1)
	assert.Equal(t, "rough night", f.remote.saved[0].Notes)

	stored := f.store.ManualData()
	require.NotNil(t, stored)
	assert.Equal(t, 4200, stored.Steps)
	assert.Len(t, f.store.User().ManualEdits, 1)
}

func TestSaveManual_DegradesToLocal(t *testing.T) {
	f := newFixture(t)
	f.remote.saveErr = backend.ErrUnavailable

	res, err := f.resolver.SaveManual(context.Background(), ManualInput{SleepHours: 6.5, Steps: 4200, HeartRate: 72})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, models.SyncLocalOnly, res.Entry.SyncStatus)

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4200, r.Steps, "local-only override still drives the forecast")
}

func TestSaveManual_InvalidWritesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.SaveManual(context.Background(), ManualInput{SleepHours: 25, Steps: 100, HeartRate: 70})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, f.remote.saved)
	assert.Nil(t, f.store.ManualData())
	_, ok := f.cache.Today("u1")
	assert.False(t, ok)
}

func TestClearManual(t *testing.T) {
	f := newFixture(t)
	_, err := f.resolver.SaveManual(context.Background(), ManualInput{SleepHours: 6, Steps: 100, HeartRate: 70})
	require.NoError(t, err)

	f.remote.clearErr = errors.New("offline")
	degraded, err := f.resolver.ClearManual(context.Background())
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Nil(t, f.store.ManualData())

	r, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceWearable, r.Source)
}
