// Connection Service Loop
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
	"bytes"
	"fmt"
	"io"
	"log"
)

// serve runs one connection's service loop to completion: register,
// dispatch packets until recv fails, then tear down. It is run in its
// own goroutine per accepted connection, detached from the caller.
func serve(rwc io.ReadWriteCloser, label string, clients *ClientRegistry, players *PlayerRegistry) {
	cli, ok := clients.register(rwc, label)
	if !ok {
		rwc.Close()
		return
	}
	debug.Printf("%s: connected", label)

	for {
		header, payload, err := recvPacket(rwc)
		if err != nil {
			break
		}
		dispatch(cli, players, clients, header, payload)
	}

	if cli.Player() != nil {
		cli.Logout()
	}
	clients.unregister(cli)
	rwc.Close()
	debug.Printf("%s: disconnected", cli)
}

// dispatch interprets a single received packet against the
// precondition table, calls the matching session operation, and
// emits exactly one ACK, specialized reply, or NACK.
func dispatch(cli *Client, players *PlayerRegistry, clients *ClientRegistry, header Header, payload []byte) {
	switch PacketType(header.Type) {
	case PktLogin:
		if len(payload) == 0 {
			sendNack(cli)
			return
		}
		p := players.Register(string(payload))
		err := cli.Login(p)
		p.Unref()
		if err != nil {
			sendNack(cli)
			return
		}
		sendAck(cli, 0, 0, nil)

	case PktUsers:
		if len(payload) != 0 || cli.Player() == nil {
			sendNack(cli)
			return
		}
		// USERS reports who is currently online, which is the
		// client registry's view, not the player registry's
		// append-only historical directory.
		list := clients.allPlayers()
		sendAck(cli, 0, 0, []byte(formatUsers(list)))
		for _, p := range list {
			p.Unref()
		}

	case PktInvite:
		if len(payload) == 0 || cli.Player() == nil {
			sendNack(cli)
			return
		}
		role := Role(header.Role)
		if role != RoleFirst && role != RoleSecond {
			sendNack(cli)
			return
		}
		target := clients.lookup(string(payload))
		if target == nil {
			sendNack(cli)
			return
		}
		id := cli.MakeInvitation(target, role, role.Other())
		target.Unref()
		if id < 0 {
			sendNack(cli)
			return
		}
		sendAck(cli, uint8(id), 0, nil)

	case PktRevoke:
		if len(payload) != 0 || cli.Player() == nil {
			sendNack(cli)
			return
		}
		if cli.RevokeInvitation(int(header.Id)) < 0 {
			sendNack(cli)
			return
		}
		sendAck(cli, 0, 0, nil)

	case PktAccept:
		if len(payload) != 0 || cli.Player() == nil {
			sendNack(cli)
			return
		}
		state, ok := cli.AcceptInvitation(int(header.Id))
		if !ok {
			sendNack(cli)
			return
		}
		sendAck(cli, 0, 0, []byte(state))

	case PktDecline:
		if len(payload) != 0 || cli.Player() == nil {
			sendNack(cli)
			return
		}
		if cli.DeclineInvitation(int(header.Id)) < 0 {
			sendNack(cli)
			return
		}
		sendAck(cli, 0, 0, nil)

	case PktMove:
		if len(payload) == 0 || cli.Player() == nil {
			sendNack(cli)
			return
		}
		if cli.MakeMove(int(header.Id), string(payload)) < 0 {
			sendNack(cli)
			return
		}
		sendAck(cli, 0, 0, nil)

	case PktResign:
		if len(payload) != 0 || cli.Player() == nil {
			sendNack(cli)
			return
		}
		if cli.ResignGame(int(header.Id)) < 0 {
			sendNack(cli)
			return
		}
		sendAck(cli, 0, 0, nil)

	default:
		log.Printf("%s: unrecognised packet type %d", cli, header.Type)
		sendNack(cli)
	}
}

func sendAck(cli *Client, id, role uint8, payload []byte) {
	cli.send(PktAck, id, role, payload)
}

func sendNack(cli *Client) {
	cli.send(PktNack, 0, 0, nil)
}

// formatUsers renders the USERS ACK payload: one tab-separated
// "name\trating" line per player, in registry order.
func formatUsers(players []*Player) string {
	var buf bytes.Buffer
	for _, p := range players {
		fmt.Fprintf(&buf, "%s\t%d\n", p.Name(), p.Rating())
	}
	return buf.String()
}
