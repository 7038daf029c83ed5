package models

import (
	"time"
)

type User struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	FitbitConnected  bool               `json:"fitbit_connected"`
	FitbitLastSync   *time.Time         `json:"fitbit_last_sync"`
	MoodData         []MoodEntry        `json:"mood_data"`
	ManualData       *ManualBiometrics  `json:"manual_data"`
	ManualEdits      []ManualBiometrics `json:"manual_data_edits"`
	RecentActivities []ActivityLogEntry `json:"recent_activities"`
}

type MoodEntry struct {
	Rating     int        `json:"rating"`
	Timestamp  time.Time  `json:"timestamp"`
	Notes      string     `json:"notes,omitempty"`
	SyncStatus SyncStatus `json:"sync_status,omitempty"`
}

type ActivityLogEntry struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// SyncStatus tracks the best-effort remote copy of a locally written record.
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncSynced    SyncStatus = "synced"
	SyncFailed    SyncStatus = "failed"
	SyncLocalOnly SyncStatus = "local_only"
)

// Clone returns a deep copy so callers can read user state without holding
// the store lock.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.FitbitLastSync != nil {
		t := *u.FitbitLastSync
		c.FitbitLastSync = &t
	}
	c.MoodData = append([]MoodEntry(nil), u.MoodData...)
	c.ManualEdits = append([]ManualBiometrics(nil), u.ManualEdits...)
	c.RecentActivities = append([]ActivityLogEntry(nil), u.RecentActivities...)
	if u.ManualData != nil {
		m := *u.ManualData
		c.ManualData = &m
	}
	return &c
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
