// Invitation Lifecycle
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
	"errors"
	"sync"
	"sync/atomic"
)

// InvState is the invitation lifecycle state
type InvState uint8

const (
	InvOpen InvState = iota
	InvAccepted
	InvClosed
)

var (
	errSelfInvite    = errors.New("cannot invite oneself")
	errWrongState    = errors.New("invitation is not in the required state")
	errNotResignable = errors.New("no active game to resign")
)

// Invitation is shared state between two clients: a pair of
// endpoints, a pair of intended roles, a three-state lifecycle, and
// (once accepted) an owned game. It is reference counted the same
// way Client and Player are: every holder calls Ref when
// it takes a copy and Unref when it's done, and the last Unref
// releases the endpoint and game references.
type Invitation struct {
	mu   sync.Mutex
	refs int32

	source, target         *Client
	sourceRole, targetRole Role
	state                  InvState
	game                   *Board
}

// newInvitation creates an open invitation between source and
// target, with a single reference owned by the caller. source and
// target must differ.
func newInvitation(source, target *Client, sourceRole, targetRole Role) (*Invitation, error) {
	if source == target {
		return nil, errSelfInvite
	}

	inv := &Invitation{
		refs:       1,
		source:     source.Ref(),
		target:     target.Ref(),
		sourceRole: sourceRole,
		targetRole: targetRole,
		state:      InvOpen,
	}
	return inv, nil
}

// Ref increments the invitation's reference count and returns it
func (inv *Invitation) Ref() *Invitation {
	atomic.AddInt32(&inv.refs, 1)
	return inv
}

// Unref drops a reference; the last one releases the endpoint and
// game references.
func (inv *Invitation) Unref() {
	if atomic.AddInt32(&inv.refs, -1) > 0 {
		return
	}

	inv.mu.Lock()
	source, target, game := inv.source, inv.target, inv.game
	inv.source, inv.target, inv.game = nil, nil, nil
	inv.mu.Unlock()

	if source != nil {
		source.Unref()
	}
	if target != nil {
		target.Unref()
	}
	_ = game // the Board has no registry-level refcount of its own
}

// Source returns the source endpoint
func (inv *Invitation) Source() *Client {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.source
}

// Target returns the target endpoint
func (inv *Invitation) Target() *Client {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.target
}

// SourceRole returns the role assigned to the source endpoint
func (inv *Invitation) SourceRole() Role {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.sourceRole
}

// TargetRole returns the role assigned to the target endpoint
func (inv *Invitation) TargetRole() Role {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.targetRole
}

// State returns the current lifecycle state
func (inv *Invitation) State() InvState {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// Game returns the invitation's game, or nil if it was never accepted
func (inv *Invitation) Game() *Board {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.game
}

// RoleOf returns the role assigned to cli within this invitation, and
// whether cli is a participant at all.
func (inv *Invitation) RoleOf(cli *Client) (Role, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	switch cli {
	case inv.source:
		return inv.sourceRole, true
	case inv.target:
		return inv.targetRole, true
	default:
		return RoleNone, false
	}
}

// Accept transitions an open invitation to accepted and materialises
// its game. It fails if the invitation is not open.
func (inv *Invitation) Accept() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.state != InvOpen {
		return errWrongState
	}
	inv.state = InvAccepted
	inv.game = makeBoard()
	return nil
}

// Close transitions the invitation to closed. If it was open,
// resigningRole is ignored and the close always succeeds. If it was
// accepted, resigningRole is used to resign the game as that role
// (setting its winner to the opposite role) unless the game has
// already ended on its own (a move completed it), in which case
// resigningRole is ignored and the already-decided winner stands. Any
// other combination — already closed, or accepted with RoleNone on a
// game that is not yet over — fails.
func (inv *Invitation) Close(resigningRole Role) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	switch inv.state {
	case InvOpen:
		inv.state = InvClosed
		return nil
	case InvAccepted:
		if resigningRole != RoleNone {
			if err := inv.game.Resign(resigningRole); err != nil {
				return err
			}
		} else if !inv.game.IsOver() {
			return errNotResignable
		}
		inv.state = InvClosed
		return nil
	default:
		return errWrongState
	}
}
