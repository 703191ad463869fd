package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	FetchOpPeek   = "peek"
	FetchOpCounts = "counts"
)

type Service interface {
	IncPollsTotal(view string)
	IncFetchErrorsTotal(view string, op string)
	IncStaleResultsDiscardedTotal(view string)
	IncAnchorRestartsTotal(view string)
	IncZeroCountClearsTotal(view string)
	SetWindowSize(view string, size int)
	SetRuntimeCount(view string, count int64)
}

// NewMetricsService returns a Prometheus-backed service registered on registerer,
// or a no-op one when metrics are disabled.
func NewMetricsService(metricsEnabled bool, registerer prometheus.Registerer) Service {
	if metricsEnabled {
		return newPrometheusMetricsService(registerer)
	}
	return newNoopMetricsService()
}
