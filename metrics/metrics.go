// Package metrics exposes the prometheus collectors of the API and worker.
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecommendationsTotal counts recommendation requests by confidence tier.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylist_recommendations_total",
			Help: "Total number of recommendation requests by confidence tier",
		},
		[]string{"tier"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stylist_recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	OutfitsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stylist_outfits_returned",
			Help:    "Number of outfits returned per request",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20},
		},
	)

	GarmentsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stylist_garments_rejected_total",
			Help: "Garments rejected at the wardrobe boundary",
		},
	)

	// ExplanationCacheTotal counts explanation cache lookups by result (hit, miss).
	ExplanationCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylist_explanation_cache_total",
			Help: "Explanation cache lookups by result",
		},
		[]string{"result"},
	)

	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylist_feedback_total",
			Help: "Interaction signals recorded by signal and stage (received, applied, failed)",
		},
		[]string{"signal", "stage"},
	)

	ClothingAnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stylist_clothing_analysis_total",
			Help: "Clothing analysis task outcomes",
		},
		[]string{"status"},
	)
)

// ObserveRecommendation records one finished recommendation request.
func ObserveRecommendation(tier string, outfits, rejected int, took time.Duration) {
	RecommendationsTotal.WithLabelValues(tier).Inc()
	RecommendationDuration.Observe(took.Seconds())
	OutfitsReturned.Observe(float64(outfits))
	GarmentsRejectedTotal.Add(float64(rejected))
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
