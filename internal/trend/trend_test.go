package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrs(vals ...int) []*int {
	out := make([]*int, len(vals))
	for i := range vals {
		v := vals[i]
		out[i] = &v
	}
	return out
}

func TestAnalyze_Declining(t *testing.T) {
	a := Analyze(ptrs(8, 8, 8, 3, 3, 3, 3))

	assert.Equal(t, Declining, a.Direction)
	assert.InDelta(t, 2.474, a.Volatility, 0.001)
	assert.Equal(t, []string{PatternVolatility, PatternDeclining}, a.Patterns)
}

func TestAnalyze_Improving(t *testing.T) {
	a := Analyze(ptrs(3, 4, 6, 7))
	assert.Equal(t, Improving, a.Direction)
	assert.NotContains(t, a.Patterns, PatternDeclining)
}

func TestAnalyze_AllEqualIsStable(t *testing.T) {
	a := Analyze(ptrs(6, 6, 6, 6, 6))
	assert.Equal(t, Stable, a.Direction)
	assert.Zero(t, a.Volatility)
	assert.Empty(t, a.Patterns)
}

func TestAnalyze_SmallChangeIsStable(t *testing.T) {
	a := Analyze(ptrs(5, 5, 5, 6))
	assert.Equal(t, Stable, a.Direction)
}

func TestAnalyze_SkipsMissingDays(t *testing.T) {
	points := ptrs(9, 0, 0, 2)
	points[1], points[2] = nil, nil

	a := Analyze(points)
	assert.Equal(t, Declining, a.Direction)
	assert.InDelta(t, 3.5, a.Volatility, 1e-9)
}

func TestAnalyze_TooFewRatings(t *testing.T) {
	for _, points := range [][]*int{nil, ptrs(9), {nil, nil}} {
		a := Analyze(points)
		assert.Equal(t, Stable, a.Direction)
		assert.Zero(t, a.Volatility)
		assert.NotNil(t, a.Patterns)
	}
}

func TestAnalyze_OddLengthSplit(t *testing.T) {
	// The extra rating lands in the second half: [4, 4] against [5, 5, 5].
	a := AnalyzeRatings([]float64{4, 4, 5, 5, 5})
	assert.Equal(t, Improving, a.Direction)

	// [4] against [4, 4.4] moves less than the threshold.
	a = AnalyzeRatings([]float64{4, 4, 4.4})
	assert.Equal(t, Stable, a.Direction)
}
