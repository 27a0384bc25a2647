// Client Registry
//
// Copyright (c) 2021, 2022  Philip Kaludercic
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
	"io"
	"sync"
)

// MaxClients bounds the number of concurrently connected sessions.
// Like InitialRating, this is a genuine compile-time constant, not a
// configuration knob.
const MaxClients = 1024

// ClientRegistry is the process-wide table of active sessions: a
// sparse list of at most MaxClients entries, plus a condition
// variable used to release anyone blocked in waitForEmpty once the
// table drains to zero.
type ClientRegistry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	sessions sparseList[*Client]
	players  *PlayerRegistry
}

// newClientRegistry returns an empty registry. players is handed down
// to every session it creates, so sessions can post Elo updates
// without consulting a package-level global.
func newClientRegistry(players *PlayerRegistry) *ClientRegistry {
	r := &ClientRegistry{players: players}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// register creates a session for rwc and places it in the lowest
// empty slot, or refuses if the registry is already full.
func (r *ClientRegistry) register(rwc io.ReadWriteCloser, label string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions.count() >= MaxClients {
		return nil, false
	}
	cli := newClient(rwc, label, r.players)
	r.sessions.insert(cli)
	return cli, true
}

// unregister removes cli from the registry, if present, dropping the
// reference the table held. If the registry is now empty, every
// goroutine blocked in waitForEmpty is released.
func (r *ClientRegistry) unregister(cli *Client) {
	r.mu.Lock()
	idx, ok := r.sessions.indexOf(cli)
	if ok {
		r.sessions.removeAt(idx)
		cli.Unref()
	}
	empty := r.sessions.count() == 0
	r.mu.Unlock()

	if empty {
		r.cond.Broadcast()
	}
}

// lookup returns the first session logged in as name, with an
// incremented reference, or nil if none is found.
func (r *ClientRegistry) lookup(name string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *Client
	r.sessions.each(func(_ int, cli *Client) {
		if found != nil {
			return
		}
		if p := cli.Player(); p != nil && p.Name() == name {
			found = cli.Ref()
		}
	})
	return found
}

// allPlayers returns one reference per session that currently has a
// logged-in player. The caller must Unref each entry once done.
func (r *ClientRegistry) allPlayers() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Player
	r.sessions.each(func(_ int, cli *Client) {
		if p := cli.Player(); p != nil {
			out = append(out, p.Ref())
		}
	})
	return out
}

// waitForEmpty blocks until the registry holds no sessions.
func (r *ClientRegistry) waitForEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.sessions.count() > 0 {
		r.cond.Wait()
	}
}

// shutdownAll half-closes the read side of every session's
// connection, which forces its service loop's next recv to return
// EOF and exit on its own.
func (r *ClientRegistry) shutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.each(func(_ int, cli *Client) {
		cli.halfCloseRead()
	})
}
