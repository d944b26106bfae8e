package domain

import "sync/atomic"

// Status variable names reported by StatusVars.
const (
	StatusTotalQueries        = "querytally_total_queries"
	StatusTotalSpecialQueries = "querytally_total_special_queries"
	StatusTotalTimeUS         = "querytally_total_time_us"
)

// Counters holds the process-wide audit counters. All updates are atomic
// adds; readers may observe the three values at slightly different points.
type Counters struct {
	totalQueries        atomic.Uint64
	totalSpecialQueries atomic.Uint64
	totalTimeUS         atomic.Uint64
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	TotalQueries        uint64 `json:"total_queries"`
	TotalSpecialQueries uint64 `json:"total_special_queries"`
	TotalTimeUS         uint64 `json:"total_time_us"`
}

// StatusVar is a named counter value, as shown by the status collaborator.
type StatusVar struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) AddQuery() {
	c.totalQueries.Add(1)
}

func (c *Counters) AddSpecialQuery() {
	c.totalSpecialQueries.Add(1)
}

func (c *Counters) AddTime(us uint64) {
	c.totalTimeUS.Add(us)
}

// Snapshot reads each counter once. Special queries are loaded before total
// queries so a snapshot never shows more special than total queries.
func (c *Counters) Snapshot() CounterSnapshot {
	special := c.totalSpecialQueries.Load()
	return CounterSnapshot{
		TotalQueries:        c.totalQueries.Load(),
		TotalSpecialQueries: special,
		TotalTimeUS:         c.totalTimeUS.Load(),
	}
}

// StatusVars returns the counters in reporting order.
func (c *Counters) StatusVars() []StatusVar {
	s := c.Snapshot()
	return []StatusVar{
		{Name: StatusTotalQueries, Value: s.TotalQueries},
		{Name: StatusTotalSpecialQueries, Value: s.TotalSpecialQueries},
		{Name: StatusTotalTimeUS, Value: s.TotalTimeUS},
	}
}
