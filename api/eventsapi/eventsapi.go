// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventsapi exposes the event index.
package eventsapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/openrestake/restake/api/restutil"
	"github.com/openrestake/restake/eventdb"
	"github.com/openrestake/restake/restake"
)

const maxLimit = 1000

// EventsAPI serves event queries.
type EventsAPI struct {
	db *eventdb.EventDB
}

// New creates the events api.
func New(db *eventdb.EventDB) *EventsAPI {
	return &EventsAPI{db: db}
}

func (a *EventsAPI) handleQuery(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	filter := eventdb.Filter{
		Names: query["name"],
		Desc:  query.Get("desc") == "true",
		Limit: maxLimit,
	}
	if raw := query.Get("operator"); raw != "" {
		addr, err := restake.ParseAddress(raw)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "operator"))
		}
		filter.Operator = &addr
	}
	if raw := query.Get("staker"); raw != "" {
		addr, err := restake.ParseAddress(raw)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "staker"))
		}
		filter.Staker = &addr
	}
	if raw := query.Get("from"); raw != "" {
		block, err := parseBlock(raw)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "from"))
		}
		filter.FromBlock = &block
	}
	if raw := query.Get("to"); raw != "" {
		block, err := parseBlock(raw)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "to"))
		}
		filter.ToBlock = &block
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || limit == 0 || limit > maxLimit {
			return restutil.BadRequest(errors.New("limit: expected 1 to 1000"))
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "offset"))
		}
		filter.Offset = offset
	}

	records, err := a.db.Query(&filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*eventdb.Record{}
	}
	return restutil.WriteJSON(w, records)
}

func parseBlock(raw string) (uint32, error) {
	block, err := strconv.ParseUint(raw, 10, 32)
	return uint32(block), err
}

// Mount attaches the api routes under pathPrefix.
func (a *EventsAPI) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleQuery))
}
