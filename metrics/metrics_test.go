// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopByDefault(t *testing.T) {
	// meters work without initialization and record nothing
	Counter("noop_counter").Add(1)
	Gauge("noop_gauge").Set(5)
	CounterVec("noop_vec", []string{"op"}).AddWithLabel(1, map[string]string{"op": "x"})

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestPrometheusBackend(t *testing.T) {
	InitializePrometheusMetrics()

	Counter("ops_total").Add(3)
	Counter("ops_total").Add(2)
	Gauge("queue_depth").Set(7)
	CounterVec("calls_total", []string{"method"}).
		AddWithLabel(1, map[string]string{"method": "delegate"})
	HistogramVec("duration_ms", []string{"method"}, []int64{1, 10, 100}).
		ObserveWithLabels(5, map[string]string{"method": "delegate"})

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "restake_ops_total 5")
	assert.Contains(t, string(body), "restake_queue_depth 7")
	assert.Contains(t, string(body), `restake_calls_total{method="delegate"} 1`)
}
