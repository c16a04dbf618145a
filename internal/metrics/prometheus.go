package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasteGraphRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culture_compass_tastegraph_requests_total",
			Help: "Taste-graph requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	TasteGraphDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "culture_compass_tastegraph_duration_seconds",
			Help:    "Taste-graph request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	AggregationItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culture_compass_aggregation_items_total",
			Help: "Preference items processed during aggregation, by outcome",
		},
		[]string{"category", "outcome"},
	)

	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "culture_compass_llm_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"operation"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culture_compass_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	InsightsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "culture_compass_insights_generated_total",
			Help: "Cultural insights persisted",
		},
	)

	RecommendationsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culture_compass_recommendations_total",
			Help: "Recommendation candidates processed, by outcome",
		},
		[]string{"status"},
	)

	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "culture_compass_match_percentage",
			Help:    "Match percentages assigned to recommendations",
			Buckets: []float64{50, 60, 70, 80, 85, 90, 95, 100},
		},
	)

	QuestionnaireSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culture_compass_questionnaire_submissions_total",
			Help: "Questionnaire submissions by outcome",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culture_compass_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "culture_compass_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(TasteGraphRequests)
	prometheus.MustRegister(TasteGraphDuration)
	prometheus.MustRegister(AggregationItems)
	prometheus.MustRegister(LLMDuration)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(InsightsGenerated)
	prometheus.MustRegister(RecommendationsPersisted)
	prometheus.MustRegister(MatchScore)
	prometheus.MustRegister(QuestionnaireSubmissions)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
