package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prometheus struct {
	Registry             *prometheus.Registry
	TotalRequestCounter  *prometheus.CounterVec
	ItemHitCounter       prometheus.Counter
	ItemMissCounter      *prometheus.CounterVec
	CodeExtractedCounter *prometheus.CounterVec
	buildInfoGaugeVec    *prometheus.GaugeVec
}

// NewPrometheusClient registers the codestore collectors on a fresh registry,
// so several servers can live in one process (tests) without colliding.
func NewPrometheusClient() *Prometheus {
	p := &Prometheus{
		Registry: prometheus.NewRegistry(),
		TotalRequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codestore",
				Name:      "requests_total",
				Help:      "Requests by route and status code",
			}, []string{"method", "route", "status"}),
		ItemHitCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "codestore",
				Name:      "item_hit_counter",
				Help:      "Item reads that returned a value",
			}),
		ItemMissCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codestore",
				Name:      "item_miss_counter",
				Help:      "Item reads that returned not found",
			}, []string{"reason"}),
		CodeExtractedCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codestore",
				Name:      "code_extracted_total",
				Help:      "Codes extracted and stored",
			}, []string{"character_class"}),
		buildInfoGaugeVec: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "codestore_build_info",
				Help: "Build info for codestore",
			}, []string{"version"}),
	}

	p.Registry.MustRegister(
		p.TotalRequestCounter,
		p.ItemHitCounter,
		p.ItemMissCounter,
		p.CodeExtractedCounter,
		p.buildInfoGaugeVec,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) BuildInfo(version string) {
	if len(strings.TrimSpace(version)) > 0 {
		p.buildInfoGaugeVec.WithLabelValues(version).Set(1)
	}
}
