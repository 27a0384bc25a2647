// Websocket Transport Adapter
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
	"fmt"
	"net/http"

	ws "nhooyr.io/websocket"
)

// webHandler upgrades incoming HTTP requests on /socket to a
// websocket and feeds the resulting connection into the same service
// loop used for raw TCP: the framed binary protocol doesn't care
// which transport produced its io.ReadWriteCloser.
func webHandler(clients *ClientRegistry, players *PlayerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := ws.Accept(w, r, nil)
		if err != nil {
			http.Error(w, "failed to establish websocket connection", http.StatusBadRequest)
			return
		}

		conn := ws.NetConn(context.Background(), c, ws.MessageBinary)
		label := fmt.Sprintf("ws:%s", conn.RemoteAddr())
		debug.Printf("New websocket connection from %s", conn.RemoteAddr())
		go serve(conn, label, clients, players)
	}
}
