package monitoring

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Sweep metrics
	membersSimulated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_backtester_members_simulated_total",
			Help: "Total number of swarm member simulations by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	memberDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swarm_backtester_member_duration_seconds",
			Help:    "Distribution of single member simulation durations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"strategy"},
	)

	sweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_backtester_sweeps_total",
			Help: "Total number of parameter sweeps by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// Selector metrics
	rebalancesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_backtester_rebalances_total",
			Help: "Rebalance bars by outcome (picked, degenerate, filtered)",
		},
		[]string{"outcome"},
	)

	pickedMembers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_backtester_picked_members",
			Help: "Number of members picked at least once in the last selection",
		},
	)

	ensembleNetProfit = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swarm_backtester_ensemble_net_profit",
			Help: "Final equity of the last ensemble re-simulation",
		},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(membersSimulated)
	prometheus.MustRegister(memberDuration)
	prometheus.MustRegister(sweepsTotal)
	prometheus.MustRegister(rebalancesTotal)
	prometheus.MustRegister(pickedMembers)
	prometheus.MustRegister(ensembleNetProfit)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Serve starts a background /metrics server on addr. Listen errors other
// than a normal shutdown are logged.
func Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server error")
		}
	}()
	return srv
}

// RecordMember records one member simulation
func RecordMember(strategy string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	membersSimulated.WithLabelValues(strategy, outcome).Inc()
	memberDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// RecordSweep records a finished sweep
func RecordSweep(strategy string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	sweepsTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordRebalance records the outcome of one rebalance bar
func RecordRebalance(outcome string) {
	rebalancesTotal.WithLabelValues(outcome).Inc()
}

// UpdatePickedMembers sets the ever-picked member count
func UpdatePickedMembers(n int) {
	pickedMembers.Set(float64(n))
}

// UpdateEnsembleNetProfit sets the ensemble final equity
func UpdateEnsembleNetProfit(v float64) {
	ensembleNetProfit.Set(v)
}
