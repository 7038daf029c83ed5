package forecast

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/trend"
)

// Describe renders the headline sentence for a stress category.
func Describe(level models.StressLevel, confidence float64, method models.PredictionMethod) string {
	methodText := "system analysis"
	if method == models.MethodMLModel {
		methodText = "AI analysis"
	}

	var confidenceText string
	switch {
	case confidence >= 0.8:
		confidenceText = "high confidence"
	case confidence >= 0.6:
		confidenceText = "moderate confidence"
	default:
		confidenceText = "preliminary assessment"
	}

	if level == models.StressHigh {
		return fmt.Sprintf("Our %s indicates elevated stress levels with %s. Consider taking proactive steps to manage stress.", methodText, confidenceText)
	}
	return fmt.Sprintf("Our %s shows healthy stress management with %s. Keep up your positive habits!", methodText, confidenceText)
}

// prediction is the settled category after the remote call or its fallback.
type prediction struct {
	level      models.StressLevel
	confidence float64
	method     models.PredictionMethod
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// Daily builds today's insights. A heart rate of 0 is reported as missing
// data and never classified.
func Daily(r models.BiometricReading, p prediction, avgMood float64, hasMood bool) models.DailyInsights {
	var insights, tips, factors []string

	if p.method == models.MethodMLModel {
		insights = append(insights, fmt.Sprintf("AI analysis predicts %s stress with %d%% confidence.",
			strings.ToLower(string(p.level)), int(math.Round(p.confidence*100))))
	}
	if r.IsManualEdit {
		insights = append(insights, "📝 Using manually entered health data.")
	}

	hours := formatHours(r.SleepHours)
	switch {
	case r.SleepHours < 6:
		insights = append(insights, fmt.Sprintf("You had %s hours of sleep last night (less than recommended).", hours))
		tips = append(tips, "Aim for 7-9 hours of quality sleep tonight")
		factors = append(factors, "Sleep Deprivation")
	case r.SleepHours >= 8:
		insights = append(insights, fmt.Sprintf("Great job getting %s hours of sleep!", hours))
		tips = append(tips, "Maintain your consistent sleep schedule")
	default:
		insights = append(insights, fmt.Sprintf("You slept %s hours last night.", hours))
	}

	steps := humanize.Comma(int64(r.Steps))
	switch {
	case r.Steps < 3000:
		insights = append(insights, fmt.Sprintf("Low activity level detected (%s steps).", steps))
		tips = append(tips, "Try to incorporate a 15-minute walk today")
		factors = append(factors, "Sedentary Lifestyle")
	case r.Steps > 10000:
		insights = append(insights, fmt.Sprintf("Excellent activity level! (%s steps)", steps))
		tips = append(tips, "Your active lifestyle is helping manage stress")
	default:
		insights = append(insights, fmt.Sprintf("You took %s steps yesterday.", steps))
	}

	switch models.ClassifyHeartRate(r.HeartRate) {
	case models.ClassNoData:
		insights = append(insights, "No data available for 0 bpm.")
	case models.ClassElevated:
		insights = append(insights, fmt.Sprintf("Elevated resting heart rate observed (%d bpm).", r.HeartRate))
		tips = append(tips, "Practice deep breathing exercises for 5 minutes")
		factors = append(factors, "Elevated Heart Rate")
	case models.ClassSlightlyHigh:
		insights = append(insights, fmt.Sprintf("Your heart rate is %d bpm.", r.HeartRate))
		tips = append(tips, "Monitor for stress-related changes")
	default:
		insights = append(insights, fmt.Sprintf("Healthy resting heart rate (%d bpm).", r.HeartRate))
	}

	if hasMood {
		switch {
		case avgMood < 4:
			insights = append(insights, "Your recent mood ratings have been low.")
			tips = append(tips, "Consider talking to a friend or trying mindfulness")
			factors = append(factors, "Low Mood")
		case avgMood > 7:
			insights = append(insights, "Your mood has been consistently positive!")
			tips = append(tips, "Keep doing what makes you happy")
		}
	}

	if len(tips) == 0 {
		tips = []string{
			"Maintain your current healthy habits",
			"Stay hydrated throughout the day",
			"Take short breaks during work",
		}
	}
	if len(insights) == 0 {
		insights = []string{"Your daily metrics look balanced overall."}
	}
	if len(factors) == 0 {
		factors = []string{"No major stress factors identified"}
	}
	return models.DailyInsights{Insights: insights, Tips: tips, Factors: factors}
}

// Weekly builds the week's insights from the mood trend and today's activity.
func Weekly(a trend.Analysis, r models.BiometricReading) models.WeeklyInsights {
	var insights, tips, patterns []string

	if a.Volatile() {
		insights = append(insights, "Your mood has been fluctuating significantly this week.")
		tips = append(tips, "Try establishing a more consistent daily routine")
		patterns = append(patterns, trend.PatternVolatility)
	}
	switch a.Direction {
	case trend.Declining:
		insights = append(insights, "Your mood shows a declining trend this week.")
		tips = append(tips, "Identify and address potential stress sources")
		patterns = append(patterns, trend.PatternDeclining)
	case trend.Improving:
		insights = append(insights, "Your mood is improving - great progress!")
		tips = append(tips, "Continue with your current stress management strategies")
	}

	if r.Steps < 4000 {
		insights = append(insights, "Consider increasing your daily activity for better stress management.")
		tips = append(tips, "Aim for at least 30 minutes of moderate activity daily")
		patterns = append(patterns, "Low Activity Pattern")
	}

	if len(insights) == 0 {
		insights = append(insights, "Your weekly patterns show good stability.")
		tips = append(tips, "Continue monitoring your metrics for early stress detection")
		patterns = append(patterns, "Stable Patterns")
	}
	if len(patterns) == 0 {
		patterns = []string{"Consistent Weekly Patterns"}
	}
	return models.WeeklyInsights{Insights: insights, Tips: tips, Patterns: patterns}
}

// StressFactors lists the named contributors shown beside the score. The mood
// check averages the present points of the weekly series.
func StressFactors(r models.BiometricReading, week []*int) []string {
	var factors []string

	switch {
	case r.SleepHours < 6:
		factors = append(factors, "Insufficient Sleep")
	case r.SleepHours > 9:
		factors = append(factors, "Oversleeping")
	}
	if r.Steps < 3000 {
		factors = append(factors, "Low Physical Activity")
	}
	if r.HeartRate > 80 {
		factors = append(factors, "Elevated Resting Heart Rate")
	}

	sum, n := 0, 0
	for _, p := range week {
		if p != nil {
			sum += *p
			n++
		}
	}
	if n > 0 && float64(sum)/float64(n) < 4 {
		factors = append(factors, "Low Mood Levels")
	}

	if len(factors) == 0 {
		return []string{"No specific stress factors identified"}
	}
	return factors
}
