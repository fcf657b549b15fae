package tracker

// StatsClient receives counters, histograms and gauges.
type StatsClient interface {
	Incr(name string, value int64, tags Tags)
	Histogram(name string, value float64, tags Tags)
	Set(name string, value float64, tags Tags)
}

type NopStats struct{}

func (NopStats) Incr(string, int64, Tags)        {}
func (NopStats) Histogram(string, float64, Tags) {}
func (NopStats) Set(string, float64, Tags)       {}
