// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb indexes protocol events in sqlite so operators and
// stakers can be queried without replaying state.
package eventdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
)

const schema = `CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	blockNumber INTEGER NOT NULL,
	name TEXT NOT NULL,
	operator BLOB,
	staker BLOB,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_i0 ON events(blockNumber);
CREATE INDEX IF NOT EXISTS events_i1 ON events(name);
CREATE INDEX IF NOT EXISTS events_i2 ON events(operator);
CREATE INDEX IF NOT EXISTS events_i3 ON events(staker);`

// EventDB is a sqlite-backed event index.
type EventDB struct {
	db *sql.DB
}

// New opens or creates the event database at path.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%v?cache=shared", path))
	if err != nil {
		return nil, errors.Wrap(err, "open eventdb")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init eventdb schema")
	}
	return &EventDB{db: db}, nil
}

// NewMem creates an in-memory event database, for tests.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the underlying database.
func (e *EventDB) Close() error {
	return e.db.Close()
}

// Record is one indexed event.
type Record struct {
	Seq         int64            `json:"seq"`
	BlockNumber uint32           `json:"blockNumber"`
	Name        string           `json:"name"`
	Operator    *restake.Address `json:"operator,omitempty"`
	Staker      *restake.Address `json:"staker,omitempty"`
	Data        json.RawMessage  `json:"data"`
}

// Store indexes a batch of events emitted at blockNumber, atomically.
func (e *EventDB) Store(blockNumber uint32, events []runtime.Event) (err error) {
	tx, err := e.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin eventdb tx")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(
		"INSERT INTO events(blockNumber, name, operator, staker, data) VALUES(?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrap(err, "encode event")
		}
		if _, err := stmt.Exec(
			blockNumber,
			ev.EventName(),
			addressColumn(ev, "Operator"),
			addressColumn(ev, "Staker"),
			string(data),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// addressColumn pulls an address field out of an event for indexing,
// nil when the event has no such field.
func addressColumn(ev runtime.Event, field string) []byte {
	v := reflect.ValueOf(ev)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	f := v.FieldByName(field)
	if !f.IsValid() || f.Type() != reflect.TypeOf(restake.Address{}) {
		return nil
	}
	addr := f.Interface().(restake.Address)
	return addr.Bytes()
}

// Filter narrows a query. Zero fields match everything.
type Filter struct {
	Names     []string
	Operator  *restake.Address
	Staker    *restake.Address
	FromBlock *uint32
	ToBlock   *uint32
	Desc      bool
	Limit     uint64
	Offset    uint64
}

// Query returns matching records ordered by insertion.
func (e *EventDB) Query(filter *Filter) ([]*Record, error) {
	if filter == nil {
		filter = &Filter{}
	}
	var (
		conds []string
		args  []any
	)
	if len(filter.Names) > 0 {
		marks := make([]string, len(filter.Names))
		for i, name := range filter.Names {
			marks[i] = "?"
			args = append(args, name)
		}
		conds = append(conds, "name IN ("+strings.Join(marks, ",")+")")
	}
	if filter.Operator != nil {
		conds = append(conds, "operator = ?")
		args = append(args, filter.Operator.Bytes())
	}
	if filter.Staker != nil {
		conds = append(conds, "staker = ?")
		args = append(args, filter.Staker.Bytes())
	}
	if filter.FromBlock != nil {
		conds = append(conds, "blockNumber >= ?")
		args = append(args, *filter.FromBlock)
	}
	if filter.ToBlock != nil {
		conds = append(conds, "blockNumber <= ?")
		args = append(args, *filter.ToBlock)
	}

	query := "SELECT seq, blockNumber, name, operator, staker, data FROM events"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.Desc {
		query += " ORDER BY seq DESC"
	} else {
		query += " ORDER BY seq"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query eventdb")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec      Record
			operator []byte
			staker   []byte
			data     string
		)
		if err := rows.Scan(&rec.Seq, &rec.BlockNumber, &rec.Name, &operator, &staker, &data); err != nil {
			return nil, err
		}
		if len(operator) == restake.AddressLength {
			addr := restake.BytesToAddress(operator)
			rec.Operator = &addr
		}
		if len(staker) == restake.AddressLength {
			addr := restake.BytesToAddress(staker)
			rec.Staker = &addr
		}
		rec.Data = json.RawMessage(data)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
