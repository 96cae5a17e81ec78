// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the HTTP surface: delegation reads, the event
// index, health and metrics endpoints.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/openrestake/restake/api/delegationapi"
	"github.com/openrestake/restake/api/eventsapi"
	"github.com/openrestake/restake/eventdb"
	"github.com/openrestake/restake/metrics"
	"github.com/openrestake/restake/state"
)

// New assembles the api handler.
func New(stater *state.Stater, edb *eventdb.EventDB, chainID uint64, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()

	delegationapi.New(stater, chainID).Mount(router, "/delegation")
	if edb != nil {
		eventsapi.New(edb).Mount(router, "/events")
	}
	router.Path("/healthz").
		Methods(http.MethodGet).
		HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	router.Path("/metrics").
		Methods(http.MethodGet).
		Handler(metrics.HTTPHandler())

	handler := instrument(router)
	handler = handlers.CompressHandler(handler)
	handler = handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)
	return handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(next http.Handler) http.Handler {
	requests := metrics.CounterVec("api_requests_total", []string{"path", "code"})
	duration := metrics.HistogramVec("api_request_duration_ms", []string{"path"},
		[]int64{1, 5, 10, 50, 100, 500, 1000})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		requests.AddWithLabel(1, map[string]string{
			"path": path, "code": strconv.Itoa(rec.status),
		})
		duration.ObserveWithLabels(time.Since(started).Milliseconds(), map[string]string{
			"path": path,
		})
	})
}
