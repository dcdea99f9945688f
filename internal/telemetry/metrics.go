// Package telemetry exposes engine counters to Prometheus.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	SamplesTotal        = "nodewatch_samples_total"
	SampleErrorsTotal   = "nodewatch_sample_errors_total"
	AuthLinesTotal      = "nodewatch_auth_lines_total"
	AuthEventsTotal     = "nodewatch_auth_events_total"
	AuthAnomaliesTotal  = "nodewatch_auth_parse_anomalies_total"
	AuthErrorsTotal     = "nodewatch_auth_errors_total"
	ClockAnomaliesTotal = "nodewatch_clock_anomalies_total"
	CompactionsTotal    = "nodewatch_compactions_total"
	CompactionErrors    = "nodewatch_compaction_errors_total"

	CPUPercentGauge    = "nodewatch_target_cpu_percent"
	MemoryPercentGauge = "nodewatch_target_memory_percent"
	DiskPercentGauge   = "nodewatch_disk_percent"
	RxRateGauge        = "nodewatch_network_receive_mib_per_second"
	TxRateGauge        = "nodewatch_network_transmit_mib_per_second"
	EventsHeldGauge    = "nodewatch_auth_events_in_memory"

	TickLatency = "nodewatch_tick_duration_seconds"
)

// Metrics is what the engine reports to
type Metrics interface {
	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)
}

// Noop discards everything
type Noop struct{}

func (Noop) IncCounter(string, float64)     {}
func (Noop) SetGauge(string, float64)       {}
func (Noop) ObserveLatency(string, float64) {}

// PromObs implements Metrics on Prometheus collectors
type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs creates the collectors and registers them on reg
func NewPromObs(reg prometheus.Registerer) (*PromObs, error) {
	p := &PromObs{
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
		histos:   make(map[string]prometheus.Observer),
	}

	counters := map[string]string{
		SamplesTotal:        "Metric samples persisted.",
		SampleErrorsTotal:   "Sampling cycles that failed to read or persist.",
		AuthLinesTotal:      "Auth log lines fetched from the source.",
		AuthEventsTotal:     "New auth events accepted by the store.",
		AuthAnomaliesTotal:  "Auth lines that matched but had no identifier.",
		AuthErrorsTotal:     "Auth polls that failed.",
		ClockAnomaliesTotal: "Times the wall clock was seen moving backwards.",
		CompactionsTotal:    "Store compactions that completed.",
		CompactionErrors:    "Store compactions that failed.",
	}
	gauges := map[string]string{
		CPUPercentGauge:    "Target CPU share of the whole machine.",
		MemoryPercentGauge: "Target memory as a share of total memory.",
		DiskPercentGauge:   "Used disk space including the target data directory.",
		RxRateGauge:        "Network receive throughput.",
		TxRateGauge:        "Network transmit throughput.",
		EventsHeldGauge:    "Auth events held in memory.",
	}

	var collectors []prometheus.Collector
	for name, help := range counters {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		p.counters[name] = c
		collectors = append(collectors, c)
	}
	for name, help := range gauges {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		p.gauges[name] = g
		collectors = append(collectors, g)
	}
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    TickLatency,
		Help:    "Duration of one sampling cycle including the CPU settle delay.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
	})
	p.histos[TickLatency] = latency
	collectors = append(collectors, latency)

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}
