package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/trend"
)

var heuristicLow = prediction{level: models.StressLow, confidence: 0.8, method: models.MethodHeuristic}

func TestDescribe(t *testing.T) {
	assert.Equal(t,
		"Our AI analysis indicates elevated stress levels with high confidence. Consider taking proactive steps to manage stress.",
		Describe(models.StressHigh, 0.8, models.MethodMLModel))
	assert.Equal(t,
		"Our system analysis shows healthy stress management with preliminary assessment. Keep up your positive habits!",
		Describe(models.StressLow, 0.59, models.MethodHeuristic))
	assert.Contains(t, Describe(models.StressLow, 0.6, models.MethodFallback), "moderate confidence")
}

func TestDaily_Formatting(t *testing.T) {
	r := models.BiometricReading{SleepHours: 8.5, Steps: 12500, HeartRate: 78}
	d := Daily(r, heuristicLow, 8, true)

	assert.Equal(t, []string{
		"Great job getting 8.5 hours of sleep!",
		"Excellent activity level! (12,500 steps)",
		"Your heart rate is 78 bpm.",
		"Your mood has been consistently positive!",
	}, d.Insights)
	assert.Equal(t, []string{
		"Maintain your consistent sleep schedule",
		"Your active lifestyle is helping manage stress",
		"Monitor for stress-related changes",
		"Keep doing what makes you happy",
	}, d.Tips)
	assert.Equal(t, []string{"No major stress factors identified"}, d.Factors)
}

func TestDaily_DefaultTips(t *testing.T) {
	r := models.BiometricReading{SleepHours: 7, Steps: 6000, HeartRate: 70}
	d := Daily(r, heuristicLow, 5, true)

	assert.Equal(t, []string{
		"You slept 7 hours last night.",
		"You took 6,000 steps yesterday.",
		"Healthy resting heart rate (70 bpm).",
	}, d.Insights)
	assert.Equal(t, []string{
		"Maintain your current healthy habits",
		"Stay hydrated throughout the day",
		"Take short breaks during work",
	}, d.Tips)
}

func TestDaily_ZeroHeartRateIsNoData(t *testing.T) {
	r := models.BiometricReading{SleepHours: 7, Steps: 6000, HeartRate: 0}
	d := Daily(r, heuristicLow, 0, false)

	assert.Contains(t, d.Insights, "No data available for 0 bpm.")
	assert.NotContains(t, d.Factors, "Elevated Heart Rate")
	assert.NotContains(t, d.Tips, "Monitor for stress-related changes")

	f := models.Forecast{StressScore: 5, Reading: r}
	assert.Equal(t, "No data available", f.ScoreLabel())
}

func TestWeekly(t *testing.T) {
	tests := []struct {
		name     string
		analysis trend.Analysis
		steps    int
		insights int
		patterns []string
	}{
		{
			name:     "stable",
			analysis: trend.Analysis{Direction: trend.Stable},
			steps:    8000,
			insights: 1,
			patterns: []string{"Stable Patterns"},
		},
		{
			name:     "volatile and declining",
			analysis: trend.Analysis{Direction: trend.Declining, Volatility: 2.47},
			steps:    8000,
			insights: 2,
			patterns: []string{"Mood Volatility", "Declining Mood Trend"},
		},
		{
			name:     "improving has no pattern",
			analysis: trend.Analysis{Direction: trend.Improving},
			steps:    8000,
			insights: 1,
			patterns: []string{"Consistent Weekly Patterns"},
		},
		{
			name:     "low activity",
			analysis: trend.Analysis{Direction: trend.Stable},
			steps:    3999,
			insights: 1,
			patterns: []string{"Low Activity Pattern"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Weekly(tt.analysis, models.BiometricReading{Steps: tt.steps})
			assert.Len(t, w.Insights, tt.insights)
			assert.Len(t, w.Tips, tt.insights)
			assert.Equal(t, tt.patterns, w.Patterns)
		})
	}
}

func TestStressFactors(t *testing.T) {
	low := 2
	assert.Equal(t, []string{"Oversleeping"}, StressFactors(models.BiometricReading{SleepHours: 10, Steps: 5000, HeartRate: 60}, nil))
	assert.Equal(t, []string{"Low Mood Levels"}, StressFactors(models.BiometricReading{SleepHours: 7, Steps: 5000, HeartRate: 60}, []*int{nil, &low}))
	assert.Equal(t, []string{"No specific stress factors identified"}, StressFactors(models.BiometricReading{SleepHours: 7, Steps: 5000, HeartRate: 0}, nil))
}
