// Package trend summarises a week of mood ratings.
package trend

import "math"

type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

const (
	// Half-over-half change needed before a trend counts.
	trendThreshold = 0.5
	// Standard deviation above which mood counts as volatile.
	volatilityThreshold = 2.0

	PatternVolatility = "Mood Volatility"
	PatternDeclining  = "Declining Mood Trend"
)

type Analysis struct {
	Direction  Direction `json:"direction"`
	Volatility float64   `json:"volatility"`
	Patterns   []string  `json:"patterns"`
}

// Volatile reports whether the volatility exceeds the pattern threshold.
func (a Analysis) Volatile() bool { return a.Volatility > volatilityThreshold }

// Analyze compares the first and second halves of the present ratings, in
// order. Nil points are skipped. Fewer than two ratings is always stable.
func Analyze(points []*int) Analysis {
	ratings := make([]float64, 0, len(points))
	for _, p := range points {
		if p != nil {
			ratings = append(ratings, float64(*p))
		}
	}
	return AnalyzeRatings(ratings)
}

func AnalyzeRatings(ratings []float64) Analysis {
	a := Analysis{Direction: Stable, Patterns: []string{}}
	if len(ratings) < 2 {
		return a
	}

	mid := len(ratings) / 2
	first, second := mean(ratings[:mid]), mean(ratings[mid:])
	switch {
	case second > first+trendThreshold:
		a.Direction = Improving
	case second < first-trendThreshold:
		a.Direction = Declining
	}
	a.Volatility = stddev(ratings)

	if a.Volatile() {
		a.Patterns = append(a.Patterns, PatternVolatility)
	}
	if a.Direction == Declining {
		a.Patterns = append(a.Patterns, PatternDeclining)
	}
	return a
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
