// Package forecast composes the daily stress forecast: it resolves today's
// biometrics, scores them, asks the remote model for a category (falling back
// to a local predictor), reconciles the two and attaches insights.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/geabd1/StressForecastingAppplication/internal/backend"
	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/scoring"
	"github.com/geabd1/StressForecastingAppplication/internal/trend"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

const (
	fallbackConfidence      = 0.7
	defaultRemoteConfidence = 0.8
	defaultTimeout          = 10 * time.Second
)

// ErrSuperseded is returned by a request that a newer one replaced.
var ErrSuperseded = errors.New("forecast request superseded")

type State string

const (
	StateIdle                     State = "idle"
	StateResolvingBiometrics      State = "resolving_biometrics"
	StateScoring                  State = "scoring"
	StateAwaitingRemotePrediction State = "awaiting_remote_prediction"
	StateReconciling              State = "reconciling"
	StateComposed                 State = "composed"
	StateFailed                   State = "failed"
)

// StateObserver is notified of every transition. err is set only for
// StateFailed.
type StateObserver interface {
	ForecastState(requestID string, state State, err error)
}

type StateObserverFunc func(requestID string, state State, err error)

func (f StateObserverFunc) ForecastState(requestID string, state State, err error) {
	f(requestID, state, err)
}

type Resolver interface {
	Resolve(ctx context.Context) (models.BiometricReading, error)
}

type Predictor interface {
	PredictStress(ctx context.Context, req backend.PredictionRequest) (*backend.Prediction, error)
}

type MoodSource interface {
	AverageMood(windowDays int) (float64, bool)
	WeeklyMoodSeries() []userstore.DayPoint
}

type Composer struct {
	resolver  Resolver
	predictor Predictor
	mood      MoodSource
	observer  StateObserver
	log       zerolog.Logger
	timeout   time.Duration
	prefetch  func(ctx context.Context) error

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelCauseFunc
	state    State
	lastDone *models.Forecast
}

type Option func(*Composer)

func WithObserver(o StateObserver) Option {
	return func(c *Composer) { c.observer = o }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Composer) { c.log = log }
}

// WithTimeout bounds the remote prediction call.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPrefetch runs fn alongside biometric resolution on every Refresh, for
// work that must land before scoring such as pulling remote mood history.
// Its errors are logged and otherwise ignored.
func WithPrefetch(fn func(ctx context.Context) error) Option {
	return func(c *Composer) { c.prefetch = fn }
}

func NewComposer(resolver Resolver, predictor Predictor, mood MoodSource, opts ...Option) *Composer {
	c := &Composer{
		resolver:  resolver,
		predictor: predictor,
		mood:      mood,
		log:       zerolog.Nop(),
		timeout:   defaultTimeout,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the state of the latest request.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Last returns the latest composed forecast, or nil.
func (c *Composer) Last() *models.Forecast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDone
}

// Refresh produces a forecast for today. Starting a refresh cancels any
// request still in flight, which then returns ErrSuperseded.
func (c *Composer) Refresh(ctx context.Context) (*models.Forecast, error) {
	ctx, req := c.begin(ctx)
	defer req.end()

	c.transition(req, StateResolvingBiometrics, nil)

	var reading models.BiometricReading
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.resolver.Resolve(gctx)
		if err != nil {
			return fmt.Errorf("resolve biometrics: %w", err)
		}
		reading = r
		return nil
	})
	if c.prefetch != nil {
		g.Go(func() error {
			if err := c.prefetch(gctx); err != nil && gctx.Err() == nil {
				c.log.Warn().Err(err).Str("request_id", req.id).Msg("prefetch failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, c.fail(ctx, req, err)
	}
	return c.compose(ctx, req, reading)
}

// ComposeWith skips resolution and forecasts from reading, as right after a
// manual save.
func (c *Composer) ComposeWith(ctx context.Context, reading models.BiometricReading) (*models.Forecast, error) {
	ctx, req := c.begin(ctx)
	defer req.end()
	return c.compose(ctx, req, reading)
}

type request struct {
	c   *Composer
	id  string
	seq uint64
	// stop releases the request context.
	stop  context.CancelCauseFunc
	start time.Time
}

func (c *Composer) begin(parent context.Context) (context.Context, *request) {
	ctx, cancel := context.WithCancelCause(parent)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel(ErrSuperseded)
	}
	c.seq++
	c.cancel = cancel
	req := &request{c: c, id: uuid.NewString(), seq: c.seq, stop: cancel, start: time.Now()}
	c.mu.Unlock()

	return ctx, req
}

func (r *request) end() {
	r.c.mu.Lock()
	if r.c.seq == r.seq {
		r.c.cancel = nil
	}
	r.c.mu.Unlock()
	r.stop(nil)
}

func (c *Composer) current(req *request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq == req.seq
}

func (c *Composer) transition(req *request, s State, err error) {
	c.mu.Lock()
	if c.seq == req.seq {
		c.state = s
	}
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.ForecastState(req.id, s, err)
	}
}

func superseded(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrSuperseded)
}

func (c *Composer) fail(ctx context.Context, req *request, err error) error {
	if superseded(ctx) {
		return ErrSuperseded
	}
	c.transition(req, StateFailed, err)
	forecastsFailed.Inc()
	c.log.Warn().Err(err).Str("request_id", req.id).Msg("forecast failed")
	return err
}

func (c *Composer) compose(ctx context.Context, req *request, reading models.BiometricReading) (*models.Forecast, error) {
	c.transition(req, StateScoring, nil)
	in := scoring.InputsFrom(reading)
	avgMood, hasMood := c.mood.AverageMood(userstore.DefaultMoodWindow)
	breakdown := scoring.Explain(in, avgMood, hasMood)
	c.log.Debug().
		Str("request_id", req.id).
		Interface("breakdown", breakdown).
		Bool("has_mood", hasMood).
		Msg("stress score computed")

	c.transition(req, StateAwaitingRemotePrediction, nil)
	pred := c.predict(ctx, req, in)
	if err := ctx.Err(); err != nil {
		return nil, c.fail(ctx, req, err)
	}
	if !c.current(req) {
		return nil, ErrSuperseded
	}

	c.transition(req, StateReconciling, nil)
	score := scoring.Reconcile(pred.level, breakdown.Score)

	week := c.mood.WeeklyMoodSeries()
	points := make([]*int, len(week))
	for i, p := range week {
		points[i] = p.Rating
	}
	analysis := trend.Analyze(points)

	f := &models.Forecast{
		StressScore:       score,
		StressLevel:       pred.level,
		StressDescription: Describe(pred.level, pred.confidence, pred.method),
		Confidence:        pred.confidence,
		PredictionMethod:  pred.method,
		DailyInsights:     Daily(reading, pred, avgMood, hasMood),
		WeeklyInsights:    Weekly(analysis, reading),
		Factors:           StressFactors(reading, points),
		Reading:           reading,
	}

	c.mu.Lock()
	if c.seq != req.seq {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	c.lastDone = f
	c.mu.Unlock()

	c.transition(req, StateComposed, nil)
	forecastsTotal.WithLabelValues(string(f.PredictionMethod), string(f.StressLevel)).Inc()
	composeDuration.Observe(time.Since(req.start).Seconds())
	return f, nil
}

// predict asks the remote model and falls back to the local predictor on any
// error, timeout, or unusable answer.
func (c *Composer) predict(ctx context.Context, req *request, in scoring.Inputs) prediction {
	fallback := prediction{
		level:      scoring.FallbackCategory(in),
		confidence: fallbackConfidence,
		method:     models.MethodFallback,
	}

	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p, err := c.predictor.PredictStress(pctx, backend.PredictionRequest{
		HeartRate:  in.HeartRate,
		SleepHours: in.SleepHours,
		Steps:      in.Steps,
	})
	if err != nil {
		c.useFallback(req, "remote error", err)
		return fallback
	}
	if p.Status != "success" {
		c.useFallback(req, "remote status "+p.Status, nil)
		return fallback
	}
	level, err := models.ParseStressLevel(p.Prediction)
	if err != nil {
		c.useFallback(req, "unusable category", err)
		return fallback
	}

	out := prediction{level: level, confidence: defaultRemoteConfidence, method: models.MethodHeuristic}
	if p.Confidence != nil && *p.Confidence > 0 {
		out.confidence = min(*p.Confidence, 1)
	}
	switch m := models.PredictionMethod(p.Method); m {
	case models.MethodMLModel, models.MethodHeuristic, models.MethodFallback:
		out.method = m
	}
	return out
}

func (c *Composer) useFallback(req *request, reason string, err error) {
	fallbacksTotal.Inc()
	c.log.Info().Err(err).Str("request_id", req.id).Str("reason", reason).Msg("using local stress predictor")
}
