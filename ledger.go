// In-Memory Rating Ledger
//
// Copyright (c) 2021  Philip Kaludercic
//
// This file is part of go-kgp.
//
// go-kgp is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-kgp is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-kgp. If not, see
// <http://www.gnu.org/licenses/>

package main

import (
	"context"
	"database/sql"
	"embed"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql
var sqlFiles embed.FS

// ledgerAction is a unit of work against the ledger's database: a
// closure, queued on a channel, run by a single goroutine so that
// SQLite never sees concurrent writers.
type ledgerAction func(*sql.DB, context.Context)

// ledger is an in-memory (never persisted across restarts) SQLite
// database recording every rating change, so the otherwise
// in-process-only Player.rating field has a queryable history while
// the server is up.
type ledger struct {
	db   *sql.DB
	act  chan ledgerAction
	ctx  context.Context
	stop context.CancelFunc
}

// openLedger opens the shared in-memory database, applies the
// embedded schema, and starts the single manager goroutine.
func openLedger() (*ledger, error) {
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		return nil, err
	}
	// A shared in-memory database is dropped once every
	// connection is closed; pin it open for the process lifetime.
	db.SetMaxOpenConns(1)

	schema, err := sqlFiles.ReadFile("sql/schema.sql")
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(string(schema)); err != nil {
		db.Close()
		return nil, err
	}

	ctx, stop := context.WithCancel(context.Background())
	l := &ledger{
		db:   db,
		act:  make(chan ledgerAction, 8),
		ctx:  ctx,
		stop: stop,
	}
	go l.run()
	return l, nil
}

func (l *ledger) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case act := <-l.act:
			act(l.db, l.ctx)
		}
	}
}

// record enqueues a rating-history row; it never blocks the caller
// on the database itself, only on the (small, buffered) action
// channel filling up.
func (l *ledger) record(name string, before, after int) {
	l.act <- func(db *sql.DB, ctx context.Context) {
		_, err := db.ExecContext(ctx,
			`INSERT INTO ratings_history (name, before, after) VALUES (?, ?, ?)`,
			name, before, after)
		if err != nil {
			log.Print("ledger: ", err)
		}
	}
}

// Close stops the manager goroutine and closes the database.
func (l *ledger) Close() {
	l.stop()
	l.db.Close()
}
