package forecast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forecastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calmcast",
			Name:      "forecasts_total",
			Help:      "Composed forecasts by prediction method and stress level.",
		},
		[]string{"method", "level"},
	)

	forecastsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "calmcast",
		Name:      "forecasts_failed_total",
		Help:      "Forecast requests that ended in the failed state.",
	})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "calmcast",
		Name:      "prediction_fallbacks_total",
		Help:      "Predictions served by the local predictor.",
	})

	composeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "calmcast",
		Name:      "forecast_duration_seconds",
		Help:      "Time from request to composed forecast.",
		Buckets:   prometheus.DefBuckets,
	})
)
