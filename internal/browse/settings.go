package browse

import "time"

const (
	DefaultPageSize        = 50
	DefaultLiveInterval    = time.Second
	DefaultCountsInterval  = 2 * time.Second
	DefaultDeadLetterPages = 10
)

// Settings tune paging and polling. Zero or negative values fall back to defaults.
type Settings struct {
	PageSize        int
	LiveInterval    time.Duration
	CountsInterval  time.Duration
	DeadLetterPages int // pages accumulated per dead-letter browse refresh; 1 disables accumulation
}

func DefaultSettings() Settings {
	return Settings{
		PageSize:        DefaultPageSize,
		LiveInterval:    DefaultLiveInterval,
		CountsInterval:  DefaultCountsInterval,
		DeadLetterPages: DefaultDeadLetterPages,
	}
}

func (s Settings) normalized() Settings {
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	if s.LiveInterval <= 0 {
		s.LiveInterval = DefaultLiveInterval
	}
	if s.CountsInterval <= 0 {
		s.CountsInterval = DefaultCountsInterval
	}
	if s.DeadLetterPages <= 0 {
		s.DeadLetterPages = DefaultDeadLetterPages
	}
	return s
}

// windowSize is the display bound of a view while browsing
func (s Settings) windowSize(v View) int {
	if v == ViewDeadLetter {
		return s.PageSize * s.DeadLetterPages
	}
	return s.PageSize
}

// deadLetterTarget is how many dead-lettered messages a browse refresh tries to collect
func (s Settings) deadLetterTarget(count *int64) int {
	limit := s.PageSize * s.DeadLetterPages
	if count == nil {
		return s.PageSize
	}
	if *count < int64(limit) {
		return int(*count)
	}
	return limit
}
