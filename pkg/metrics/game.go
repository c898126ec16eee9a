package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Registrations by restaurant and outcome (registered, already_registered, error)
	Registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "game_registrations_total",
		Help: "Total registration requests by restaurant table and outcome",
	}, []string{"table", "outcome"})

	GamesPlayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "game_played_total",
		Help: "Total game-played transitions by restaurant table and outcome",
	}, []string{"table", "outcome"})

	Ratings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "game_ratings_total",
		Help: "Total ratings submitted by rating value",
	}, []string{"table", "rating"})

	// Latency of the game endpoints
	RequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "game_request_latency_seconds",
		Help:    "Latency of game API handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})
)

func Init() {
	prometheus.MustRegister(
		Registrations,
		GamesPlayed,
		Ratings,
		RequestLatency,
	)
}
