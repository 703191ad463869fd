package metrics

type NoopMetricsService struct {
}

func newNoopMetricsService() *NoopMetricsService {
	return &NoopMetricsService{}
}

func (nms *NoopMetricsService) IncPollsTotal(view string) {
	// no-op
}

func (nms *NoopMetricsService) IncFetchErrorsTotal(view string, op string) {
	// no-op
}

func (nms *NoopMetricsService) IncStaleResultsDiscardedTotal(view string) {
	// no-op
}

func (nms *NoopMetricsService) IncAnchorRestartsTotal(view string) {
	// no-op
}

func (nms *NoopMetricsService) IncZeroCountClearsTotal(view string) {
	// no-op
}

func (nms *NoopMetricsService) SetWindowSize(view string, size int) {
	// no-op
}

func (nms *NoopMetricsService) SetRuntimeCount(view string, count int64) {
	// no-op
}
