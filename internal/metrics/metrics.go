// Package metrics collects and exposes Prometheus metrics for the
// signal-control core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus metrics of the control service.
// Each Collector registers into its own registry so tests can build
// as many as they need.
type Collector struct {
	registry *prometheus.Registry

	tickWrites       prometheus.Counter
	tickWriteErrors  prometheus.Counter
	phaseTransitions prometheus.Counter
	overrides        prometheus.Counter
	emergencyStops   prometheus.Counter

	junctionsRunning prometheus.Gauge
}

// NewCollector creates and registers the full metric set.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tickWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_tick_writes_total",
			Help: "Total number of per-second light state writes",
		}),
		tickWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_tick_write_errors_total",
			Help: "Total number of failed light state writes",
		}),
		phaseTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_phase_transitions_total",
			Help: "Total number of green/yellow/red phase transitions",
		}),
		overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_manual_overrides_total",
			Help: "Total number of manual force-green overrides",
		}),
		emergencyStops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_emergency_stops_total",
			Help: "Total number of emergency stops",
		}),
		junctionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_junctions_running",
			Help: "Number of junction loops currently cycling",
		}),
	}

	c.registry.MustRegister(
		c.tickWrites,
		c.tickWriteErrors,
		c.phaseTransitions,
		c.overrides,
		c.emergencyStops,
		c.junctionsRunning,
	)
	return c
}

// Handler returns the scrape endpoint handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordTickWrite()       { c.tickWrites.Inc() }
func (c *Collector) RecordTickWriteError()  { c.tickWriteErrors.Inc() }
func (c *Collector) RecordPhaseTransition() { c.phaseTransitions.Inc() }
func (c *Collector) RecordOverride()        { c.overrides.Inc() }
func (c *Collector) RecordEmergencyStop()   { c.emergencyStops.Inc() }

func (c *Collector) SetJunctionsRunning(n int) { c.junctionsRunning.Set(float64(n)) }
