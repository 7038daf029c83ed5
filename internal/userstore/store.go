// Package userstore holds the signed-in user's profile, mood history and
// manual biometrics, writing every mutation through to durable storage.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/geabd1/StressForecastingAppplication/internal/backend"
	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/storage"
	"github.com/geabd1/StressForecastingAppplication/internal/syncqueue"
)

const (
	DefaultMoodWindow = 7
	maxActivities     = 50
)

var (
	// ErrNotPersisted wraps storage failures. The in-memory change it refers
	// to has still been applied.
	ErrNotPersisted  = errors.New("change not persisted")
	ErrNoSession     = storage.ErrNoSession
	ErrNotSignedIn   = errors.New("no user signed in")
	ErrInvalidRating = errors.New("mood rating must be between 1 and 10")
)

// Persister is the durable backing store for the session snapshot.
type Persister interface {
	SaveSession(ctx context.Context, token string, u *models.User) error
	LoadSession(ctx context.Context) (string, *models.User, error)
	ClearSession(ctx context.Context) error
}

// MoodPoster sends a check-in to the backend.
type MoodPoster interface {
	PostMood(ctx context.Context, req backend.MoodRequest) error
}

// Submitter schedules background sync jobs keyed by user.
type Submitter interface {
	Submit(ctx context.Context, key string, job syncqueue.Job) error
}

// DayPoint is one day of the weekly mood series. Rating is nil when no
// check-in exists for that day.
type DayPoint struct {
	Date   time.Time `json:"date"`
	Label  string    `json:"label"`
	Rating *int      `json:"rating"`
}

type Store struct {
	mu         sync.Mutex
	persist    Persister
	log        zerolog.Logger
	now        func() time.Time
	token      string
	user       *models.User
	persistErr error

	poster MoodPoster
	queue  Submitter
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMoodSync enables best-effort remote delivery of mood check-ins.
func WithMoodSync(poster MoodPoster, queue Submitter) Option {
	return func(s *Store) {
		s.poster = poster
		s.queue = queue
	}
}

func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) location() *time.Location { return s.now().Location() }

// Load restores the persisted session. ErrNoSession means the caller is
// unauthenticated.
func (s *Store) Load(ctx context.Context) error {
	token, u, err := s.persist.LoadSession(ctx)
	if err != nil {
		return err
	}
	normalize(u)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = u
	return nil
}

// Save writes the whole in-memory state through to storage.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	if s.user == nil {
		return ErrNotSignedIn
	}
	if err := s.persist.SaveSession(ctx, s.token, s.user.Clone()); err != nil {
		s.persistErr = err
		s.log.Error().Stack().Err(err).Str("user_id", s.user.ID).Msg("failed to persist user state")
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	s.persistErr = nil
	return nil
}

// PersistErr reports the most recent storage failure, or nil if the last
// write succeeded.
func (s *Store) PersistErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns a copy of the current user, or nil when signed out.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.token != ""
}

// SetSession installs a freshly signed-in user.
func (s *Store) SetSession(ctx context.Context, token string, u *models.User) error {
	if u == nil {
		return ErrNotSignedIn
	}
	u = u.Clone()
	normalize(u)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = u
	return s.saveLocked(ctx)
}

// Logout drops the in-memory session and the persisted copy.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.persistErr = nil
	s.mu.Unlock()

	if err := s.persist.ClearSession(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// ProfileUpdate carries the fields the backend owns.
type ProfileUpdate struct {
	ID              string
	Name            string
	FitbitConnected bool
	FitbitLastSync  *time.Time
}

// ApplyProfile refreshes backend-owned fields while keeping local mood
// history and manual data.
func (s *Store) ApplyProfile(ctx context.Context, p ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotSignedIn
	}
	if p.ID != "" {
		s.user.ID = p.ID
	}
	if p.Name != "" {
		s.user.Name = p.Name
	}
	s.user.FitbitConnected = p.FitbitConnected
	if p.FitbitLastSync != nil {
		t := *p.FitbitLastSync
		s.user.FitbitLastSync = &t
	}
	return s.saveLocked(ctx)
}

// MergeRemoteMoodHistory appends entries whose timestamp is not already
// known and whose rating is in range. Existing entries are never overwritten.
// It returns the number added.
func (s *Store) MergeRemoteMoodHistory(ctx context.Context, entries []models.MoodEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return 0, ErrNotSignedIn
	}

	added := 0
	for _, e := range entries {
		if e.Rating < 1 || e.Rating > 10 {
			s.log.Debug().Int("rating", e.Rating).Msg("skipping remote mood entry with invalid rating")
			continue
		}
		if s.hasMoodAt(e.Timestamp) {
			continue
		}
		if e.SyncStatus == "" {
			e.SyncStatus = models.SyncSynced
		}
		s.user.MoodData = append(s.user.MoodData, e)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.saveLocked(ctx)
}

func (s *Store) hasMoodAt(ts time.Time) bool {
	for _, e := range s.user.MoodData {
		if e.Timestamp.Equal(ts) {
			return true
		}
	}
	return false
}

// RecordMoodRating stores today's check-in, replacing an earlier one from the
// same day, then queues a remote copy. A failed remote copy never undoes the
// local write.
func (s *Store) RecordMoodRating(ctx context.Context, rating int, notes string) (models.MoodEntry, error) {
	if rating < 1 || rating > 10 {
		return models.MoodEntry{}, ErrInvalidRating
	}
	now := s.now()

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return models.MoodEntry{}, ErrNotSignedIn
	}

	status := models.SyncLocalOnly
	if s.queue != nil && s.poster != nil {
		status = models.SyncPending
	}
	entry := models.MoodEntry{Rating: rating, Timestamp: now, Notes: notes, SyncStatus: status}

	replaced := false
	for i := range s.user.MoodData {
		if models.SameDay(s.user.MoodData[i].Timestamp, now, now.Location()) {
			s.user.MoodData[i].Rating = rating
			s.user.MoodData[i].Timestamp = now
			s.user.MoodData[i].SyncStatus = status
			if notes != "" {
				s.user.MoodData[i].Notes = notes
			}
			entry = s.user.MoodData[i]
			replaced = true
			break
		}
	}
	if !replaced {
		s.user.MoodData = append(s.user.MoodData, entry)
	}
	s.prependActivityLocked(models.ActivityLogEntry{
		Type:        "Mood Check-in",
		Description: fmt.Sprintf("Rated mood as %d/10", rating),
		Timestamp:   now,
	})
	userID := s.user.ID
	saveErr := s.saveLocked(ctx)
	s.mu.Unlock()

	if status == models.SyncPending {
		s.submitMoodSync(ctx, userID, entry)
	}
	return entry, saveErr
}

// ResubmitUnsynced queues a remote copy of every check-in still pending or
// failed, such as those left behind by an earlier process, and returns how
// many were queued. Without mood sync configured it does nothing.
func (s *Store) ResubmitUnsynced(ctx context.Context) int {
	if s.queue == nil || s.poster == nil {
		return 0
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return 0
	}
	var todo []models.MoodEntry
	for i := range s.user.MoodData {
		e := &s.user.MoodData[i]
		if e.SyncStatus != models.SyncPending && e.SyncStatus != models.SyncFailed {
			continue
		}
		e.SyncStatus = models.SyncPending
		todo = append(todo, *e)
	}
	userID := s.user.ID
	if len(todo) > 0 {
		_ = s.saveLocked(ctx)
	}
	s.mu.Unlock()

	for _, e := range todo {
		s.submitMoodSync(ctx, userID, e)
	}
	if len(todo) > 0 {
		s.log.Info().Int("count", len(todo)).Msg("re-queued unsynced mood check-ins")
	}
	return len(todo)
}

func (s *Store) submitMoodSync(ctx context.Context, userID string, entry models.MoodEntry) {
	notes := entry.Notes
	if notes == "" {
		notes = fmt.Sprintf("Mood check-in: %d/10", entry.Rating)
	}
	req := backend.MoodRequest{Rating: entry.Rating, Notes: notes}

	job := syncqueue.WithFinish(syncqueue.JobFunc(func(ctx context.Context) error {
		return s.poster.PostMood(ctx, req)
	}), func(err error) {
		status := models.SyncSynced
		if err != nil {
			status = models.SyncFailed
			s.log.Warn().Err(err).Int("rating", entry.Rating).Msg("mood check-in not synced to backend")
		}
		s.setMoodSyncStatus(entry.Timestamp, status)
	})

	// The job outlives the request that recorded the rating.
	if err := s.queue.Submit(context.WithoutCancel(ctx), userID, job); err != nil {
		s.log.Warn().Err(err).Msg("could not queue mood sync")
		s.setMoodSyncStatus(entry.Timestamp, models.SyncFailed)
	}
}

func (s *Store) setMoodSyncStatus(ts time.Time, status models.SyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	for i := range s.user.MoodData {
		if s.user.MoodData[i].Timestamp.Equal(ts) {
			s.user.MoodData[i].SyncStatus = status
			_ = s.saveLocked(context.Background())
			return
		}
	}
}

func (s *Store) prependActivityLocked(a models.ActivityLogEntry) {
	s.user.RecentActivities = append([]models.ActivityLogEntry{a}, s.user.RecentActivities...)
	if len(s.user.RecentActivities) > maxActivities {
		s.user.RecentActivities = s.user.RecentActivities[:maxActivities]
	}
}

// MoodEntries returns a copy of the mood history in insertion order.
func (s *Store) MoodEntries() []models.MoodEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	return append([]models.MoodEntry(nil), s.user.MoodData...)
}

// AverageMood averages the last windowDays entries by position. ok is false
// when there are none.
func (s *Store) AverageMood(windowDays int) (avg float64, ok bool) {
	if windowDays <= 0 {
		windowDays = DefaultMoodWindow
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || len(s.user.MoodData) == 0 {
		return 0, false
	}
	recent := s.user.MoodData
	if len(recent) > windowDays {
		recent = recent[len(recent)-windowDays:]
	}
	sum := 0
	for _, e := range recent {
		sum += e.Rating
	}
	return float64(sum) / float64(len(recent)), true
}

// WeeklyMoodSeries returns seven points ending today. A day with several
// entries reports the latest one.
func (s *Store) WeeklyMoodSeries() []DayPoint {
	now := s.now()
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	points := make([]DayPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		p := DayPoint{Date: day, Label: day.Format("Mon")}
		if s.user != nil {
			var latest *models.MoodEntry
			for j := range s.user.MoodData {
				e := &s.user.MoodData[j]
				if !models.SameDay(e.Timestamp, day, loc) {
					continue
				}
				if latest == nil || !e.Timestamp.Before(latest.Timestamp) {
					latest = e
				}
			}
			if latest != nil {
				r := latest.Rating
				p.Rating = &r
			}
		}
		points = append(points, p)
	}
	return points
}

// ManualData returns a copy of the stored manual override, or nil.
func (s *Store) ManualData() *models.ManualBiometrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ManualData == nil {
		return nil
	}
	m := *s.user.ManualData
	return &m
}

func (s *Store) SetManualData(ctx context.Context, m models.ManualBiometrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotSignedIn
	}
	m.IsManualEdit = true
	s.user.ManualData = &m
	return s.saveLocked(ctx)
}

func (s *Store) ClearManualData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotSignedIn
	}
	s.user.ManualData = nil
	return s.saveLocked(ctx)
}

// RecordManualEdit keeps one edit per calendar day, replacing a same-day one.
func (s *Store) RecordManualEdit(ctx context.Context, m models.ManualBiometrics) error {
	loc := s.location()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotSignedIn
	}
	m.IsManualEdit = true
	for i := range s.user.ManualEdits {
		if models.SameDay(s.user.ManualEdits[i].Timestamp, m.Timestamp, loc) {
			s.user.ManualEdits[i] = m
			return s.saveLocked(ctx)
		}
	}
	s.user.ManualEdits = append(s.user.ManualEdits, m)
	return s.saveLocked(ctx)
}

// MarkWearableSynced records a successful wearable pull.
func (s *Store) MarkWearableSynced(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotSignedIn
	}
	s.user.FitbitConnected = true
	s.user.FitbitLastSync = &at
	return s.saveLocked(ctx)
}

func (s *Store) DisconnectWearable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotSignedIn
	}
	s.user.FitbitConnected = false
	s.user.FitbitLastSync = nil
	return s.saveLocked(ctx)
}

func normalize(u *models.User) {
	if u.MoodData == nil {
		u.MoodData = []models.MoodEntry{}
	}
	if u.ManualEdits == nil {
		u.ManualEdits = []models.ManualBiometrics{}
	}
	if u.RecentActivities == nil {
		u.RecentActivities = []models.ActivityLogEntry{}
	}
}
