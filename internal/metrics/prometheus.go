package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusMetricsService struct {
	pollsTotal                 *prometheus.CounterVec
	fetchErrorsTotal           *prometheus.CounterVec
	staleResultsDiscardedTotal *prometheus.CounterVec
	anchorRestartsTotal        *prometheus.CounterVec
	zeroCountClearsTotal       *prometheus.CounterVec
	windowSize                 *prometheus.GaugeVec
	runtimeCount               *prometheus.GaugeVec
}

func newPrometheusMetricsService(registerer prometheus.Registerer) *PrometheusMetricsService {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	srv := &PrometheusMetricsService{
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peekq_polls_total",
				Help: "Total number of peek fetches issued by live tail loops and manual refreshes",
			},
			[]string{"view"},
		),

		// op is either "peek" or "counts"; counts failures are attributed to both views.
		fetchErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peekq_fetch_errors_total",
				Help: "Total number of transient fetch errors surfaced as warnings",
			},
			[]string{"view", "op"},
		),

		staleResultsDiscardedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peekq_stale_results_discarded_total",
				Help: "Total number of fetch results dropped because the selection moved or a clear was pending",
			},
			[]string{"view"},
		),

		anchorRestartsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peekq_anchor_restarts_total",
				Help: "Total number of browse refreshes restarted from the oldest message after an empty page",
			},
			[]string{"view"},
		),

		zeroCountClearsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peekq_zero_count_clears_total",
				Help: "Total number of views cleared because the runtime count reported zero messages",
			},
			[]string{"view"},
		),

		windowSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "peekq_window_size",
				Help: "Current number of messages displayed in the view",
			},
			[]string{"view"},
		),

		runtimeCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "peekq_runtime_count",
				Help: "Last authoritative message count reported by the broker for the view",
			},
			[]string{"view"},
		),
	}

	registerer.MustRegister(srv.pollsTotal)
	registerer.MustRegister(srv.fetchErrorsTotal)
	registerer.MustRegister(srv.staleResultsDiscardedTotal)
	registerer.MustRegister(srv.anchorRestartsTotal)
	registerer.MustRegister(srv.zeroCountClearsTotal)
	registerer.MustRegister(srv.windowSize)
	registerer.MustRegister(srv.runtimeCount)

	return srv
}

func (pms *PrometheusMetricsService) IncPollsTotal(view string) {
	pms.pollsTotal.WithLabelValues(view).Inc()
}

func (pms *PrometheusMetricsService) IncFetchErrorsTotal(view string, op string) {
	pms.fetchErrorsTotal.WithLabelValues(view, op).Inc()
}

func (pms *PrometheusMetricsService) IncStaleResultsDiscardedTotal(view string) {
	pms.staleResultsDiscardedTotal.WithLabelValues(view).Inc()
}

func (pms *PrometheusMetricsService) IncAnchorRestartsTotal(view string) {
	pms.anchorRestartsTotal.WithLabelValues(view).Inc()
}

func (pms *PrometheusMetricsService) IncZeroCountClearsTotal(view string) {
	pms.zeroCountClearsTotal.WithLabelValues(view).Inc()
}

func (pms *PrometheusMetricsService) SetWindowSize(view string, size int) {
	pms.windowSize.WithLabelValues(view).Set(float64(size))
}

func (pms *PrometheusMetricsService) SetRuntimeCount(view string, count int64) {
	pms.runtimeCount.WithLabelValues(view).Set(float64(count))
}
