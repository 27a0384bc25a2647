// Player Registry
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

import "sync"

// PlayerRegistry is the process-wide, append-only directory of known
// players, keyed by name. Once a record exists it is never removed
// until Close, at which point the registry drops its own retained
// reference to every record.
type PlayerRegistry struct {
	mu      sync.Mutex
	players []*Player
	ledger  *ledger
}

// newPlayerRegistry creates an empty registry. ledger may be nil, in
// which case rating changes are not recorded anywhere beyond the
// Player records themselves.
func newPlayerRegistry(ledger *ledger) *PlayerRegistry {
	return &PlayerRegistry{ledger: ledger}
}

// Register returns the player named name, creating it if it does not
// already exist, with a reference retained on the caller's behalf.
func (r *PlayerRegistry) Register(name string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if p.name == name {
			return p.Ref()
		}
	}

	p := newPlayer(name)
	r.players = append(r.players, p.Ref())
	return p.Ref()
}

// All returns a reference to every known player, including players
// no longer logged in. The caller must Unref each entry once done.
func (r *PlayerRegistry) All() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.Ref())
	}
	return out
}

// PostResult applies an Elo update between the two players of a
// finished game and, if a ledger is attached, records the change for
// the lifetime of the process (not persisted across
// restarts, merely queryable while the server is up).
func (r *PlayerRegistry) PostResult(p1, p2 *Player, outcome Outcome) {
	before1, before2 := p1.Rating(), p2.Rating()
	PostResult(p1, p2, outcome)

	if r.ledger != nil {
		r.ledger.record(p1.Name(), before1, p1.Rating())
		r.ledger.record(p2.Name(), before2, p2.Rating())
	}
}

// Close drops the registry's retained reference on every known
// player; called once at shutdown.
func (r *PlayerRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		p.Unref()
	}
	r.players = nil
}
