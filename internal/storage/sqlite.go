package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/geabd1/StressForecastingAppplication/internal/models"
)

// ErrNoSession is returned by LoadSession when nothing has been persisted yet.
var ErrNoSession = errors.New("no persisted session")

const (
	manualKindCurrent = "current"
	manualKindEdit    = "edit"
)

// SQLiteStorage keeps the signed-in user's token and profile on disk so the
// session survives a restart. There is at most one session row.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Open opens (or creates) a SQLite database at path with WAL journaling.
// ":memory:" yields a private in-memory database pinned to one connection.
func Open(path string) (*sql.DB, error) {
	if path == ":memory:" {
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return db, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// HealthCheck pings the underlying database.
func (s *SQLiteStorage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        token TEXT NOT NULL,
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        fitbit_connected INTEGER NOT NULL DEFAULT 0,
        fitbit_last_sync TEXT,
        updated_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS mood_entries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        rating INTEGER NOT NULL,
        timestamp TEXT NOT NULL,
        notes TEXT NOT NULL DEFAULT '',
        sync_status TEXT NOT NULL DEFAULT ''
    );

    CREATE TABLE IF NOT EXISTS manual_biometrics (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        sleep_hours REAL NOT NULL,
        steps INTEGER NOT NULL,
        heart_rate INTEGER NOT NULL,
        notes TEXT NOT NULL DEFAULT '',
        timestamp TEXT NOT NULL,
        sync_status TEXT NOT NULL DEFAULT ''
    );

    CREATE TABLE IF NOT EXISTS activities (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        type TEXT NOT NULL,
        description TEXT NOT NULL,
        timestamp TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_mood_entries_user ON mood_entries(user_id);
    CREATE INDEX IF NOT EXISTS idx_manual_biometrics_user ON manual_biometrics(user_id, kind);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveSession replaces the persisted session with token and a full snapshot of user.
func (s *SQLiteStorage) SaveSession(ctx context.Context, token string, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	var lastSync sql.NullString
	if user.FitbitLastSync != nil {
		lastSync = sql.NullString{String: formatTime(*user.FitbitLastSync), Valid: true}
	}

	sessionQuery := `
        INSERT INTO sessions (id, token, user_id, name, fitbit_connected, fitbit_last_sync, updated_at)
        VALUES (1, ?, ?, ?, ?, ?, ?)
    `
	_, err = tx.ExecContext(ctx, sessionQuery,
		token, user.ID, user.Name, user.FitbitConnected, lastSync, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	moodQuery := `
        INSERT INTO mood_entries (user_id, rating, timestamp, notes, sync_status)
        VALUES (?, ?, ?, ?, ?)
    `
	for _, entry := range user.MoodData {
		_, err = tx.ExecContext(ctx, moodQuery,
			user.ID, entry.Rating, formatTime(entry.Timestamp), entry.Notes, string(entry.SyncStatus))
		if err != nil {
			return fmt.Errorf("failed to insert mood entry: %w", err)
		}
	}

	if user.ManualData != nil {
		if err := insertManual(ctx, tx, user.ID, manualKindCurrent, *user.ManualData); err != nil {
			return err
		}
	}
	for _, edit := range user.ManualEdits {
		if err := insertManual(ctx, tx, user.ID, manualKindEdit, edit); err != nil {
			return err
		}
	}

	activityQuery := `
        INSERT INTO activities (user_id, type, description, timestamp)
        VALUES (?, ?, ?, ?)
    `
	for _, a := range user.RecentActivities {
		_, err = tx.ExecContext(ctx, activityQuery, user.ID, a.Type, a.Description, formatTime(a.Timestamp))
		if err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSession returns the persisted token and user, or ErrNoSession.
func (s *SQLiteStorage) LoadSession(ctx context.Context) (string, *models.User, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT token, user_id, name, fitbit_connected, fitbit_last_sync
        FROM sessions WHERE id = 1
    `)

	var token string
	var lastSync sql.NullString
	user := &models.User{}
	if err := row.Scan(&token, &user.ID, &user.Name, &user.FitbitConnected, &lastSync); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrNoSession
		}
		return "", nil, fmt.Errorf("failed to scan session: %w", err)
	}
	if lastSync.Valid {
		t, err := parseTime(lastSync.String)
		if err != nil {
			return "", nil, fmt.Errorf("failed to parse fitbit_last_sync: %w", err)
		}
		user.FitbitLastSync = &t
	}

	if err := s.loadMoodEntries(ctx, user); err != nil {
		return "", nil, fmt.Errorf("failed to load mood entries: %w", err)
	}
	if err := s.loadManualData(ctx, user); err != nil {
		return "", nil, fmt.Errorf("failed to load manual data: %w", err)
	}
	if err := s.loadActivities(ctx, user); err != nil {
		return "", nil, fmt.Errorf("failed to load activities: %w", err)
	}

	return token, user, nil
}

// ClearSession removes every persisted trace of the session (logout).
func (s *SQLiteStorage) ClearSession(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"sessions", "mood_entries", "manual_biometrics", "activities"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func insertManual(ctx context.Context, tx *sql.Tx, userID, kind string, m models.ManualBiometrics) error {
	query := `
        INSERT INTO manual_biometrics (user_id, kind, sleep_hours, steps, heart_rate, notes, timestamp, sync_status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := tx.ExecContext(ctx, query,
		userID, kind, m.SleepHours, m.Steps, m.HeartRate, m.Notes, formatTime(m.Timestamp), string(m.SyncStatus))
	if err != nil {
		return fmt.Errorf("failed to insert manual data: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) loadMoodEntries(ctx context.Context, user *models.User) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT rating, timestamp, notes, sync_status
        FROM mood_entries
        WHERE user_id = ?
        ORDER BY id
    `, user.ID)
	if err != nil {
		return fmt.Errorf("failed to query mood entries: %w", err)
	}
	defer rows.Close()

	entries := []models.MoodEntry{}
	for rows.Next() {
		var entry models.MoodEntry
		var ts, status string
		if err := rows.Scan(&entry.Rating, &ts, &entry.Notes, &status); err != nil {
			return fmt.Errorf("failed to scan mood entry: %w", err)
		}
		if entry.Timestamp, err = parseTime(ts); err != nil {
			return fmt.Errorf("failed to parse timestamp: %w", err)
		}
		entry.SyncStatus = models.SyncStatus(status)
		entries = append(entries, entry)
	}
	user.MoodData = entries
	return rows.Err()
}

func (s *SQLiteStorage) loadManualData(ctx context.Context, user *models.User) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT kind, sleep_hours, steps, heart_rate, notes, timestamp, sync_status
        FROM manual_biometrics
        WHERE user_id = ?
        ORDER BY id
    `, user.ID)
	if err != nil {
		return fmt.Errorf("failed to query manual data: %w", err)
	}
	defer rows.Close()

	edits := []models.ManualBiometrics{}
	for rows.Next() {
		var kind, ts, status string
		m := models.ManualBiometrics{IsManualEdit: true}
		if err := rows.Scan(&kind, &m.SleepHours, &m.Steps, &m.HeartRate, &m.Notes, &ts, &status); err != nil {
			return fmt.Errorf("failed to scan manual data: %w", err)
		}
		if m.Timestamp, err = parseTime(ts); err != nil {
			return fmt.Errorf("failed to parse timestamp: %w", err)
		}
		m.SyncStatus = models.SyncStatus(status)

		switch kind {
		case manualKindCurrent:
			current := m
			user.ManualData = &current
		case manualKindEdit:
			edits = append(edits, m)
		}
	}
	user.ManualEdits = edits
	return rows.Err()
}

func (s *SQLiteStorage) loadActivities(ctx context.Context, user *models.User) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT type, description, timestamp
        FROM activities
        WHERE user_id = ?
        ORDER BY id
    `, user.ID)
	if err != nil {
		return fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := []models.ActivityLogEntry{}
	for rows.Next() {
		var a models.ActivityLogEntry
		var ts string
		if err := rows.Scan(&a.Type, &a.Description, &ts); err != nil {
			return fmt.Errorf("failed to scan activity: %w", err)
		}
		if a.Timestamp, err = parseTime(ts); err != nil {
			return fmt.Errorf("failed to parse timestamp: %w", err)
		}
		activities = append(activities, a)
	}
	user.RecentActivities = activities
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
