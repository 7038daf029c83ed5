// Package scoring turns a biometric reading and recent mood into a 1..10
// stress score, and provides the local category predictor used when the
// remote model is unavailable.
package scoring

import (
	"math"

	"github.com/geabd1/StressForecastingAppplication/internal/models"
)

const (
	baseScore  = 5.0
	moodWeight = 0.8
	minScore   = 1
	maxScore   = 10

	// Reconciled scores never contradict the category across this line.
	highFloor   = 6
	lowCeiling  = 5
	fallbackCut = 2.0
)

// Inputs are the biometric values the scorer reads.
type Inputs struct {
	SleepHours float64
	Steps      int
	HeartRate  int
}

func InputsFrom(r models.BiometricReading) Inputs {
	return Inputs{SleepHours: r.SleepHours, Steps: r.Steps, HeartRate: r.HeartRate}
}

// Breakdown lists each contribution to the raw score.
type Breakdown struct {
	Base      float64 `json:"base"`
	Mood      float64 `json:"mood"`
	Sleep     float64 `json:"sleep"`
	Activity  float64 `json:"activity"`
	HeartRate float64 `json:"heart_rate"`
	Raw       float64 `json:"raw"`
	Score     int     `json:"score"`
}

// Explain computes the score and its parts. A heart rate of 0 means no data
// and contributes nothing.
func Explain(in Inputs, avgMood float64, hasMood bool) Breakdown {
	b := Breakdown{Base: baseScore}
	if hasMood {
		b.Mood = (10 - avgMood) * moodWeight
	}
	if in.SleepHours < 7 {
		b.Sleep = 7 - in.SleepHours
	}
	if in.Steps < 5000 {
		b.Activity = float64(5000-in.Steps) / 5000 * 4
	}
	if in.HeartRate != models.NoHeartRate && in.HeartRate > 75 {
		b.HeartRate = float64(in.HeartRate-75) * 0.2
	}
	b.Raw = b.Base + b.Mood + b.Sleep + b.Activity + b.HeartRate
	b.Score = clamp(int(math.Round(b.Raw)), minScore, maxScore)
	return b
}

// Score returns the clamped integer stress score.
func Score(in Inputs, avgMood float64, hasMood bool) int {
	return Explain(in, avgMood, hasMood).Score
}

// FallbackValue is the local predictor's raw signal; above 2 means High.
func FallbackValue(in Inputs) float64 {
	return float64(in.HeartRate-60)/20 + (8 - in.SleepHours) + float64(10000-in.Steps)/5000
}

func FallbackCategory(in Inputs) models.StressLevel {
	if FallbackValue(in) > fallbackCut {
		return models.StressHigh
	}
	return models.StressLow
}

// Reconcile adjusts score so it agrees with the predicted category.
func Reconcile(level models.StressLevel, score int) int {
	switch level {
	case models.StressHigh:
		if score < highFloor {
			return highFloor
		}
	case models.StressLow:
		if score > lowCeiling {
			return lowCeiling
		}
	}
	return score
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
