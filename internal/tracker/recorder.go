package tracker

import "sync"

// Metric is one call seen by a Recorder.
type Metric struct {
	Kind  string // incr | histogram | set
	Name  string
	Value float64
	Tags  Tags
}

// Recorder is an in-memory StatsClient for inspection.
type Recorder struct {
	mu      sync.Mutex
	metrics []Metric
}

func (r *Recorder) Incr(name string, value int64, tags Tags) {
	r.add(Metric{Kind: "incr", Name: name, Value: float64(value), Tags: tags.With()})
}

func (r *Recorder) Histogram(name string, value float64, tags Tags) {
	r.add(Metric{Kind: "histogram", Name: name, Value: value, Tags: tags.With()})
}

func (r *Recorder) Set(name string, value float64, tags Tags) {
	r.add(Metric{Kind: "set", Name: name, Value: value, Tags: tags.With()})
}

func (r *Recorder) add(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

// Metrics returns a copy of everything recorded so far.
func (r *Recorder) Metrics() []Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Metric, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Named returns the recorded metrics called name, in order.
func (r *Recorder) Named(name string) []Metric {
	var out []Metric
	for _, m := range r.Metrics() {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}
