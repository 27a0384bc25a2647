// Client Session Management
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
	"io"
	"log"
	"sync"
	"sync/atomic"
)

var (
	errNotLoggedIn      = errors.New("session is not logged in")
	errAlreadyLoggedIn  = errors.New("session is already logged in")
	errNameInUse        = errors.New("player is already logged in elsewhere")
)

// loginMu is the process-wide login lock: held across the whole of
// both Login and Logout, so that "at most one session has a given
// player logged in at a time" is checked and established atomically.
var loginMu sync.Mutex
var loggedIn = map[*Player]*Client{}

// Client is one accepted connection's session: its wire endpoint, the
// player it is logged in as (if any), and the table of invitations it
// currently holds a slot in. Every field but refs is guarded by mu.
// mu is not re-entrant, so an operation that must fan out to other
// operations (Logout) computes a plan of what to do while holding mu,
// then releases it before calling them, rather than nesting locks.
type Client struct {
	mu    sync.Mutex
	rwc   io.ReadWriteCloser
	label string
	// players is the registry consulted for Elo updates; it is
	// handed down explicitly from main rather than read from a
	// package-level global.
	players *PlayerRegistry

	player  *Player
	invites sparseList[*Invitation]

	refs int32
}

// newClient wraps an accepted connection, logged out, with a single
// reference owned by the caller.
func newClient(rwc io.ReadWriteCloser, label string, players *PlayerRegistry) *Client {
	return &Client{rwc: rwc, label: label, players: players, refs: 1}
}

// Ref increments the session's reference count and returns it. An
// invitation holding a reference to an endpoint keeps the session
// alive even after its connection drops, so a peer notification can
// still look up its slot table until the invitation itself is freed.
func (cli *Client) Ref() *Client {
	atomic.AddInt32(&cli.refs, 1)
	return cli
}

// Unref drops a reference. The runtime reclaims the session once
// nothing, including a lingering invitation, still needs it.
func (cli *Client) Unref() {
	atomic.AddInt32(&cli.refs, -1)
}

// String identifies the session for logging: the player name once
// logged in, otherwise the label it was created with.
func (cli *Client) String() string {
	cli.mu.Lock()
	defer cli.mu.Unlock()
	if cli.player != nil {
		return cli.player.Name()
	}
	return cli.label
}

// Player returns the session's logged-in player, or nil.
func (cli *Client) Player() *Player {
	cli.mu.Lock()
	defer cli.mu.Unlock()
	return cli.player
}

// send builds a header stamped with the current time and writes it,
// and payload if any, to the connection. Header preparation and the
// write are serialised by the session lock, so two notifications
// racing to reach the same peer cannot interleave their bytes. A
// write failure closes and forgets the connection; there is no
// separate notification of this back to the caller of send.
func (cli *Client) send(typ PacketType, id, role uint8, payload []byte) {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	if cli.rwc == nil {
		return
	}
	header := newHeader(typ, id, role, len(payload))
	if err := sendPacket(cli.rwc, header, payload); err != nil {
		log.Print(cli, ": send failed: ", err)
		cli.rwc.Close()
		cli.rwc = nil
	}
}

// halfCloseRead half-closes the read side of the connection if the
// underlying type supports it (a *net.TCPConn does), otherwise closes
// it outright. shutdownAll uses this to force a blocked recv to
// return EOF without cutting off a write already in flight.
func (cli *Client) halfCloseRead() {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	type readCloser interface{ CloseRead() error }
	if rc, ok := cli.rwc.(readCloser); ok {
		rc.CloseRead()
		return
	}
	if cli.rwc != nil {
		cli.rwc.Close()
		cli.rwc = nil
	}
}

// slotOf locks cli briefly to find inv's index in cli's own
// invitation table. A peer about to notify cli calls this first, to
// learn the id it must stamp on the notification.
func (cli *Client) slotOf(inv *Invitation) (int, bool) {
	cli.mu.Lock()
	defer cli.mu.Unlock()
	return cli.invites.indexOf(inv)
}

// other returns whichever of inv's two endpoints is not cli, or nil.
func (cli *Client) other(inv *Invitation) *Client {
	if inv.Source() == cli {
		return inv.Target()
	}
	return inv.Source()
}

// Login associates cli with p, failing if cli is already logged in or
// p is logged in on a different session.
func (cli *Client) Login(p *Player) error {
	loginMu.Lock()
	defer loginMu.Unlock()

	cli.mu.Lock()
	defer cli.mu.Unlock()

	if cli.player != nil {
		return errAlreadyLoggedIn
	}
	if _, taken := loggedIn[p]; taken {
		return errNameInUse
	}

	loggedIn[p] = cli
	cli.player = p.Ref()
	return nil
}

// Logout reverses Login, first winding down every invitation cli
// still holds a slot in. A plan of (slot, action) pairs is computed
// while cli is locked, then carried out with the lock released, since
// ResignGame/RevokeInvitation/DeclineInvitation each take the lock
// themselves.
func (cli *Client) Logout() error {
	loginMu.Lock()
	defer loginMu.Unlock()

	cli.mu.Lock()
	if cli.player == nil {
		cli.mu.Unlock()
		return errNotLoggedIn
	}

	type step struct {
		id     int
		resign bool
		source bool
	}
	var plan []step
	cli.invites.each(func(id int, inv *Invitation) {
		switch {
		case inv.Game() != nil:
			plan = append(plan, step{id: id, resign: true})
		case inv.Source() == cli:
			plan = append(plan, step{id: id, source: true})
		default:
			plan = append(plan, step{id: id})
		}
	})
	player := cli.player
	cli.mu.Unlock()

	for _, s := range plan {
		switch {
		case s.resign:
			cli.ResignGame(s.id)
		case s.source:
			cli.RevokeInvitation(s.id)
		default:
			cli.DeclineInvitation(s.id)
		}
	}

	cli.mu.Lock()
	delete(loggedIn, player)
	cli.player.Unref()
	cli.player = nil
	cli.mu.Unlock()
	return nil
}

// AddInvitation places inv in cli's slot table, failing if cli is not
// logged in or is not one of inv's two endpoints.
func (cli *Client) AddInvitation(inv *Invitation) int {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	if cli.player == nil {
		return -1
	}
	if inv.Source() != cli && inv.Target() != cli {
		return -1
	}
	return cli.invites.insert(inv.Ref())
}

// RemoveInvitation removes inv from cli's slot table, if present,
// dropping the reference the table held on it.
func (cli *Client) RemoveInvitation(inv *Invitation) int {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	idx, ok := cli.invites.indexOf(inv)
	if !ok {
		return -1
	}
	cli.invites.removeAt(idx)
	inv.Unref()
	return idx
}

// MakeInvitation creates an open invitation from cli to target with
// the given roles, registers it in both slot tables, and notifies
// target. It returns cli's own slot, or -1 on any failure.
func (cli *Client) MakeInvitation(target *Client, sourceRole, targetRole Role) int {
	if cli.Player() == nil || target.Player() == nil {
		return -1
	}

	inv, err := newInvitation(cli, target, sourceRole, targetRole)
	if err != nil {
		return -1
	}

	srcId := cli.AddInvitation(inv)
	if srcId < 0 {
		inv.Unref()
		return -1
	}

	tgtId := target.AddInvitation(inv)
	if tgtId < 0 {
		cli.RemoveInvitation(inv)
		inv.Unref()
		return -1
	}
	inv.Unref() // drop the constructor's transient reference; both slots now hold their own

	target.send(PktInvited, uint8(tgtId), uint8(targetRole), []byte(cli.String()))
	return srcId
}

// RevokeInvitation closes the open invitation at slot id, which must
// be one cli is the source of, removes it from both slot tables, and
// notifies the target. It returns id, or -1 on any failure.
func (cli *Client) RevokeInvitation(id int) int {
	cli.mu.Lock()
	inv, ok := cli.invites.at(id)
	cli.mu.Unlock()
	if !ok {
		return -1
	}
	if inv.Source() != cli {
		return -1
	}
	if err := inv.Close(RoleNone); err != nil {
		return -1
	}

	target := inv.Target()
	targetId := -1
	if target != nil {
		if idx, ok := target.slotOf(inv); ok {
			targetId = idx
		}
	}

	cli.RemoveInvitation(inv)
	if target != nil {
		target.RemoveInvitation(inv)
	}
	if target != nil && targetId >= 0 {
		target.send(PktRevoked, uint8(targetId), 0, nil)
	}
	return id
}

// DeclineInvitation closes the open invitation at slot id, which must
// be one cli is the target of, removes it from both slot tables, and
// notifies the source. It returns id, or -1 on any failure.
func (cli *Client) DeclineInvitation(id int) int {
	cli.mu.Lock()
	inv, ok := cli.invites.at(id)
	cli.mu.Unlock()
	if !ok {
		return -1
	}
	if inv.Target() != cli {
		return -1
	}
	if err := inv.Close(RoleNone); err != nil {
		return -1
	}

	source := inv.Source()
	sourceId := -1
	if source != nil {
		if idx, ok := source.slotOf(inv); ok {
			sourceId = idx
		}
	}

	cli.RemoveInvitation(inv)
	if source != nil {
		source.RemoveInvitation(inv)
	}
	if source != nil && sourceId >= 0 {
		source.send(PktDeclined, uint8(sourceId), 0, nil)
	}
	return id
}

// AcceptInvitation accepts the open invitation at slot id, which must
// be one cli is the target of, materialising its game and notifying
// the source. It returns the rendered game state and true if cli
// turns out to be the first player of the new game, "" and true if
// cli is second, or "" and false on any failure.
func (cli *Client) AcceptInvitation(id int) (string, bool) {
	cli.mu.Lock()
	inv, ok := cli.invites.at(id)
	cli.mu.Unlock()
	if !ok {
		return "", false
	}
	if inv.Target() != cli {
		return "", false
	}
	if err := inv.Accept(); err != nil {
		return "", false
	}

	game := inv.Game()
	source := inv.Source()
	sourceRole := inv.SourceRole()
	targetRole := inv.TargetRole()

	if source != nil {
		if sourceId, ok := source.slotOf(inv); ok {
			if sourceRole == RoleFirst {
				source.send(PktAccepted, uint8(sourceId), 0, []byte(game.String()))
			} else {
				source.send(PktAccepted, uint8(sourceId), 0, nil)
			}
		}
	}

	if targetRole == RoleFirst {
		return game.String(), true
	}
	return "", true
}

// ResignGame resigns the game held by the invitation at slot id, of
// which cli must be a participant, closes the invitation, notifies
// the opponent, emits an end-of-game notice to both sides, and posts
// the Elo update. It returns id, or -1 on any failure.
func (cli *Client) ResignGame(id int) int {
	cli.mu.Lock()
	inv, ok := cli.invites.at(id)
	cli.mu.Unlock()
	if !ok {
		return -1
	}
	role, participant := inv.RoleOf(cli)
	if !participant {
		return -1
	}
	game := inv.Game()
	if game == nil {
		return -1
	}
	// Capture everything postElo needs before either session drops
	// its slot reference: once both have, inv's own refcount may
	// hit zero and its Unref clears inv.source/inv.target, so
	// reading them through inv afterwards is not safe.
	source, target, sourceRole := inv.Source(), inv.Target(), inv.SourceRole()

	if err := inv.Close(role); err != nil {
		return -1
	}

	opponent := cli.other(inv)
	opponentId := -1
	if opponent != nil {
		if idx, ok := opponent.slotOf(inv); ok {
			opponentId = idx
		}
	}
	selfId, _ := cli.slotOf(inv)

	cli.RemoveInvitation(inv)
	if opponent != nil {
		opponent.RemoveInvitation(inv)
	}

	winner := game.Winner()
	if opponent != nil && opponentId >= 0 {
		opponent.send(PktResigned, uint8(opponentId), 0, nil)
		opponent.send(PktEnded, uint8(opponentId), uint8(winner), nil)
	}
	cli.send(PktEnded, uint8(selfId), uint8(winner), nil)

	postElo(source, target, sourceRole, game)
	return id
}

// MakeMove parses and applies text as a move for cli's role in the
// game held by the invitation at slot id, notifies the opponent with
// the new state, and, if the game is now over, closes the invitation,
// emits an end-of-game notice to both sides, and posts the Elo
// update. It returns id, or -1 on any failure, including an illegal
// move.
func (cli *Client) MakeMove(id int, text string) int {
	cli.mu.Lock()
	inv, ok := cli.invites.at(id)
	cli.mu.Unlock()
	if !ok {
		return -1
	}
	role, participant := inv.RoleOf(cli)
	if !participant {
		return -1
	}
	game := inv.Game()
	if game == nil {
		return -1
	}

	move, err := ParseMove(role, text)
	if err != nil {
		return -1
	}
	if err := game.Apply(move); err != nil {
		return -1
	}

	// Captured now, before either session's slot removal can drop
	// inv's own refcount to zero and clear its endpoint fields.
	source, target, sourceRole := inv.Source(), inv.Target(), inv.SourceRole()

	opponent := cli.other(inv)
	opponentId := -1
	if opponent != nil {
		if idx, ok := opponent.slotOf(inv); ok {
			opponentId = idx
		}
	}
	if opponent != nil && opponentId >= 0 {
		opponent.send(PktMoved, uint8(opponentId), 0, []byte(game.String()))
	}

	if !game.IsOver() {
		return id
	}

	if err := inv.Close(RoleNone); err != nil {
		log.Print(cli, ": closing a naturally finished game: ", err)
		return id
	}

	selfId, _ := cli.slotOf(inv)
	cli.RemoveInvitation(inv)
	if opponent != nil {
		opponent.RemoveInvitation(inv)
	}

	winner := game.Winner()
	cli.send(PktEnded, uint8(selfId), uint8(winner), nil)
	if opponent != nil && opponentId >= 0 {
		opponent.send(PktEnded, uint8(opponentId), uint8(winner), nil)
	}

	postElo(source, target, sourceRole, game)
	return id
}

// postElo applies and records the Elo update for a just-finished
// game between source and target, translating the board's own
// first/second outcome into one relative to them via sourceRole
// (the role source was assigned when the invitation was made).
func postElo(source, target *Client, sourceRole Role, game *Board) {
	if source == nil || target == nil {
		return
	}
	registry := source.players
	if registry == nil {
		registry = target.players
	}
	if registry == nil {
		return
	}
	sp, tp := source.Player(), target.Player()
	if sp == nil || tp == nil {
		return
	}

	outcome := game.Outcome()
	if sourceRole == RoleSecond {
		outcome = transpose(outcome)
	}
	registry.PostResult(sp, tp, outcome)
}
