package metrics

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
)

// Labels is the fixed label set of every tracker-emitted series. Tags with other
// keys are dropped so cardinality stays bounded.
var Labels = []string{"channel", "status_code", "error", "reason", "region"}

var invalidName = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// PromStats exposes tracker stats as prometheus collectors, created on first use.
type PromStats struct {
	namespace string
	reg       prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

func NewPromStats(namespace string, reg prometheus.Registerer) *PromStats {
	return &PromStats{
		namespace:  namespace,
		reg:        reg,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
		gauges:     map[string]*prometheus.GaugeVec{},
	}
}

func (s *PromStats) Incr(name string, value int64, tags tracker.Tags) {
	s.mu.Lock()
	c, ok := s.counters[name]
	if !ok {
		c = register(s.reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      metricName(name) + "_total",
			Help:      "Count of " + name,
		}, Labels))
		s.counters[name] = c
	}
	s.mu.Unlock()

	c.With(labels(tags)).Add(float64(value))
}

func (s *PromStats) Histogram(name string, value float64, tags tracker.Tags) {
	s.mu.Lock()
	h, ok := s.histograms[name]
	if !ok {
		h = register(s.reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      metricName(name) + "_ms",
			Help:      "Distribution of " + name + " in milliseconds",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, Labels))
		s.histograms[name] = h
	}
	s.mu.Unlock()

	h.With(labels(tags)).Observe(value)
}

func (s *PromStats) Set(name string, value float64, tags tracker.Tags) {
	s.mu.Lock()
	g, ok := s.gauges[name]
	if !ok {
		g = register(s.reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      metricName(name),
			Help:      "Last value of " + name,
		}, Labels))
		s.gauges[name] = g
	}
	s.mu.Unlock()

	g.With(labels(tags)).Set(value)
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}

	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}

	return c
}

func metricName(name string) string {
	return invalidName.ReplaceAllString(name, "_")
}

// labels maps tags onto Labels. Any *_status_code tag fills status_code.
func labels(tags tracker.Tags) prometheus.Labels {
	out := make(prometheus.Labels, len(Labels))
	for _, l := range Labels {
		out[l] = ""
	}

	for _, tag := range tags {
		k, v, ok := strings.Cut(tag, ":")
		if !ok {
			continue
		}
		if strings.HasSuffix(k, "_status_code") {
			k = "status_code"
		}
		if _, known := out[k]; known {
			out[k] = v
		}
	}

	return out
}
