// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics is a singleton catalog of meters. It defaults to a
// no-op implementation; calling InitializePrometheusMetrics switches
// the package to a prometheus registry. Callers keep their meter
// handles either way.
package metrics

import (
	"net/http"
	"sync"
)

var (
	mu      sync.Mutex
	backend metricsBackend = &noopBackend{}
	handler http.Handler   = http.NotFoundHandler()
)

// CounterMeter counts monotonically.
type CounterMeter interface {
	Add(delta int64)
}

// CounterVecMeter counts with labels.
type CounterVecMeter interface {
	AddWithLabel(delta int64, labels map[string]string)
}

// GaugeMeter goes up and down.
type GaugeMeter interface {
	Set(value int64)
	Add(delta int64)
}

// HistogramVecMeter observes values with labels.
type HistogramVecMeter interface {
	ObserveWithLabels(value int64, labels map[string]string)
}

type metricsBackend interface {
	counter(name string) CounterMeter
	counterVec(name string, labelNames []string) CounterVecMeter
	gauge(name string) GaugeMeter
	histogramVec(name string, labelNames []string, buckets []int64) HistogramVecMeter
}

// Meters resolve the backend lazily on every use, so package-level
// meter variables created before InitializePrometheusMetrics start
// recording once it runs.

// Counter returns a counter meter registered under name.
func Counter(name string) CounterMeter {
	return lazyCounter{name: name}
}

// CounterVec returns a labeled counter meter registered under name.
func CounterVec(name string, labelNames []string) CounterVecMeter {
	return lazyCounterVec{name: name, labelNames: labelNames}
}

// Gauge returns a gauge meter registered under name.
func Gauge(name string) GaugeMeter {
	return lazyGauge{name: name}
}

// HistogramVec returns a labeled histogram meter registered under name.
func HistogramVec(name string, labelNames []string, buckets []int64) HistogramVecMeter {
	return lazyHistogramVec{name: name, labelNames: labelNames, buckets: buckets}
}

type lazyCounter struct{ name string }

func (m lazyCounter) Add(delta int64) {
	mu.Lock()
	defer mu.Unlock()
	backend.counter(m.name).Add(delta)
}

type lazyCounterVec struct {
	name       string
	labelNames []string
}

func (m lazyCounterVec) AddWithLabel(delta int64, labels map[string]string) {
	mu.Lock()
	defer mu.Unlock()
	backend.counterVec(m.name, m.labelNames).AddWithLabel(delta, labels)
}

type lazyGauge struct{ name string }

func (m lazyGauge) Set(value int64) {
	mu.Lock()
	defer mu.Unlock()
	backend.gauge(m.name).Set(value)
}

func (m lazyGauge) Add(delta int64) {
	mu.Lock()
	defer mu.Unlock()
	backend.gauge(m.name).Add(delta)
}

type lazyHistogramVec struct {
	name       string
	labelNames []string
	buckets    []int64
}

func (m lazyHistogramVec) ObserveWithLabels(value int64, labels map[string]string) {
	mu.Lock()
	defer mu.Unlock()
	backend.histogramVec(m.name, m.labelNames, m.buckets).ObserveWithLabels(value, labels)
}

// HTTPHandler returns the scrape endpoint handler, a 404 handler until
// prometheus is initialized.
func HTTPHandler() http.Handler {
	mu.Lock()
	defer mu.Unlock()
	return handler
}

type noopBackend struct{}

type noopMeter struct{}

func (noopMeter) Add(int64)                            {}
func (noopMeter) AddWithLabel(int64, map[string]string) {}
func (noopMeter) Set(int64)                            {}
func (noopMeter) ObserveWithLabels(int64, map[string]string) {}

func (*noopBackend) counter(string) CounterMeter { return noopMeter{} }
func (*noopBackend) counterVec(string, []string) CounterVecMeter {
	return noopMeter{}
}
func (*noopBackend) gauge(string) GaugeMeter { return noopMeter{} }
func (*noopBackend) histogramVec(string, []string, []int64) HistogramVecMeter {
	return noopMeter{}
}
