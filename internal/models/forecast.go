package models

import "fmt"

type StressLevel string

// Only two categories exist end to end; the predictor never yields a third.
const (
	StressLow  StressLevel = "Low"
	StressHigh StressLevel = "High"
)

// ParseStressLevel accepts the remote predictor's category strings.
func ParseStressLevel(s string) (StressLevel, error) {
	switch StressLevel(s) {
	case StressLow, StressHigh:
		return StressLevel(s), nil
	default:
		return "", fmt.Errorf("unknown stress category %q", s)
	}
}

type PredictionMethod string

const (
	MethodMLModel   PredictionMethod = "ml_model"
	MethodHeuristic PredictionMethod = "heuristic"
	MethodFallback  PredictionMethod = "fallback"
)

type DailyInsights struct {
	Insights []string `json:"insights"`
	Tips     []string `json:"tips"`
	Factors  []string `json:"factors"`
}

type WeeklyInsights struct {
	Insights []string `json:"insights"`
	Tips     []string `json:"tips"`
	Patterns []string `json:"patterns"`
}

// Forecast is built once per request and never mutated afterwards.
type Forecast struct {
	StressScore       int              `json:"stress_score"`
	StressLevel       StressLevel      `json:"stress_level"`
	StressDescription string           `json:"stress_description"`
	Confidence        float64          `json:"confidence"`
	PredictionMethod  PredictionMethod `json:"prediction_method"`
	DailyInsights     DailyInsights    `json:"daily_insights"`
	WeeklyInsights    WeeklyInsights   `json:"weekly_insights"`
	Factors           []string         `json:"factors"`
	Reading           BiometricReading `json:"reading"`
}

// ScoreLabel renders the score for display, hiding it when the reading has no
// heart-rate signal.
func (f *Forecast) ScoreLabel() string {
	if f.Reading.HeartRate == NoHeartRate {
		return "No data available"
	}
	return fmt.Sprintf("%d/10", f.StressScore)
}
