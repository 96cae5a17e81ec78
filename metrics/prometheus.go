// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openrestake/restake/log"
)

const namespace = "restake"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics switches the package to a prometheus
// backend. Meter handles created earlier pick it up on their next use.
func InitializePrometheusMetrics() {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := backend.(*prometheusBackend); ok {
		return
	}
	registry := prometheus.NewRegistry()
	backend = &prometheusBackend{
		registry: registry,
		counters: make(map[string]prometheus.Counter),
		vectors:  make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]prometheus.Gauge),
		hists:    make(map[string]*prometheus.HistogramVec),
	}
	handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

type prometheusBackend struct {
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	vectors  map[string]*prometheus.CounterVec
	gauges   map[string]prometheus.Gauge
	hists    map[string]*prometheus.HistogramVec
}

func (b *prometheusBackend) counter(name string) CounterMeter {
	if c, ok := b.counters[name]; ok {
		return promCounter{c}
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name})
	if err := b.registry.Register(c); err != nil {
		logger.Warn("register counter", "name", name, "err", err)
	}
	b.counters[name] = c
	return promCounter{c}
}

func (b *prometheusBackend) counterVec(name string, labelNames []string) CounterVecMeter {
	if v, ok := b.vectors[name]; ok {
		return promCounterVec{v}
	}
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labelNames)
	if err := b.registry.Register(v); err != nil {
		logger.Warn("register counter vec", "name", name, "err", err)
	}
	b.vectors[name] = v
	return promCounterVec{v}
}

func (b *prometheusBackend) gauge(name string) GaugeMeter {
	if g, ok := b.gauges[name]; ok {
		return promGauge{g}
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
	if err := b.registry.Register(g); err != nil {
		logger.Warn("register gauge", "name", name, "err", err)
	}
	b.gauges[name] = g
	return promGauge{g}
}

func (b *prometheusBackend) histogramVec(name string, labelNames []string, buckets []int64) HistogramVecMeter {
	if h, ok := b.hists[name]; ok {
		return promHistogramVec{h}
	}
	floats := make([]float64, len(buckets))
	for i, bucket := range buckets {
		floats[i] = float64(bucket)
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Buckets: floats,
	}, labelNames)
	if err := b.registry.Register(h); err != nil {
		logger.Warn("register histogram vec", "name", name, "err", err)
	}
	b.hists[name] = h
	return promHistogramVec{h}
}

type promCounter struct{ c prometheus.Counter }

func (p promCounter) Add(delta int64) { p.c.Add(float64(delta)) }

type promCounterVec struct{ v *prometheus.CounterVec }

func (p promCounterVec) AddWithLabel(delta int64, labels map[string]string) {
	p.v.With(labels).Add(float64(delta))
}

type promGauge struct{ g prometheus.Gauge }

func (p promGauge) Set(value int64) { p.g.Set(float64(value)) }
func (p promGauge) Add(delta int64) { p.g.Add(float64(delta)) }

type promHistogramVec struct{ h *prometheus.HistogramVec }

func (p promHistogramVec) ObserveWithLabels(value int64, labels map[string]string) {
	p.h.With(labels).Observe(float64(value))
}
