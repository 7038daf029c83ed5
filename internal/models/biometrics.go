package models

import (
	"time"
)

// NoHeartRate is the "no data" sentinel reported by feeds without a reading.
const NoHeartRate = 0

type ManualBiometrics struct {
	SleepHours   float64    `json:"sleep_hours"`
	Steps        int        `json:"steps"`
	HeartRate    int        `json:"heart_rate"`
	Notes        string     `json:"notes,omitempty"`
	IsManualEdit bool       `json:"is_manual_edit"`
	Timestamp    time.Time  `json:"timestamp"`
	SyncStatus   SyncStatus `json:"sync_status,omitempty"`
}

type BiometricSource string

const (
	SourceManual   BiometricSource = "manual"
	SourceWearable BiometricSource = "wearable"
	SourceDemo     BiometricSource = "demo"
)

// BiometricReading is the single reading chosen for today's forecast. It is
// recomputed on every request and never persisted.
type BiometricReading struct {
	SleepHours     float64         `json:"sleep_hours"`
	Steps          int             `json:"steps"`
	HeartRate      int             `json:"heart_rate"`
	CaloriesBurned float64         `json:"calories_burned,omitempty"`
	Source         BiometricSource `json:"source"`
	IsManualEdit   bool            `json:"is_manual_edit"`
	IsSimulated    bool            `json:"is_simulated"`
	LastSync       time.Time       `json:"last_sync"`
}

// ReadingFromManual converts a stored override into a forecast input.
func ReadingFromManual(m ManualBiometrics) BiometricReading {
	return BiometricReading{
		SleepHours:   m.SleepHours,
		Steps:        m.Steps,
		HeartRate:    m.HeartRate,
		Source:       SourceManual,
		IsManualEdit: true,
		LastSync:     m.Timestamp,
	}
}

type MetricClass string

const (
	ClassNoData           MetricClass = "no_data"
	ClassGood             MetricClass = "good"
	ClassAverage          MetricClass = "average"
	ClassNeedsImprovement MetricClass = "needs_improvement"
	ClassSlightlyHigh     MetricClass = "slightly_high"
	ClassElevated         MetricClass = "elevated"
)

// ClassifyHeartRate buckets a resting heart rate. The 0 sentinel never
// reaches the range checks.
func ClassifyHeartRate(bpm int) MetricClass {
	switch {
	case bpm == NoHeartRate:
		return ClassNoData
	case bpm > 80:
		return ClassElevated
	case bpm > 75:
		return ClassSlightlyHigh
	default:
		return ClassGood
	}
}

func ClassifySleep(hours float64) MetricClass {
	switch {
	case hours < 6:
		return ClassNeedsImprovement
	case hours > 9:
		return ClassAverage
	default:
		return ClassGood
	}
}

func ClassifyActivity(steps int) MetricClass {
	switch {
	case steps < 3000:
		return ClassNeedsImprovement
	case steps < 7000:
		return ClassAverage
	default:
		return ClassGood
	}
}
