// Entry point
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
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
)

// Default file name for the configuration file
const defConfName = "server.toml"

// conf is the active configuration, defaulted until -conf is loaded.
var conf = &defaultConfig

func main() {
	port := flag.Uint("p", 0, "TCP port to listen on (required)")
	confFile := flag.String("conf", defConfName, "Name of configuration file")
	dumpConf := flag.Bool("dump-config", false, "Dump default configuration")
	wantDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()
	if flag.NArg() != 0 || *port == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if *dumpConf {
		if err := toml.NewEncoder(os.Stdout).Encode(defaultConfig); err != nil {
			log.Fatal("failed to encode default configuration: ", err)
		}
		os.Exit(0)
	}

	if loaded, err := openConf(*confFile); err == nil {
		conf = loaded
	} else if !os.IsNotExist(err) {
		log.Fatal(err)
	}
	if *wantDebug {
		conf.Debug = true
	}
	conf.apply()

	// Writes to a connection whose peer has gone away return an
	// error rather than killing the process.
	signal.Ignore(syscall.SIGPIPE)

	lg, err := openLedger()
	if err != nil {
		log.Print("rating ledger unavailable, ratings will not be recorded to it: ", err)
	}
	players := newPlayerRegistry(lg)
	clients := newClientRegistry(players)

	tcpAddr := fmt.Sprintf(":%d", *port)
	listener, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		log.Fatal(err)
	}
	debug.Printf("Listening on TCP %s", tcpAddr)
	go acceptLoop(listener, clients, players)

	var webServer *http.Server
	if conf.Web.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/socket", webHandler(clients, players))
		webServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", conf.Web.Host, conf.Web.Port),
			Handler: mux,
		}
		go func() {
			if err := webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Print(err)
			}
		}()
		debug.Printf("Listening on websocket %s", webServer.Addr)
	}

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	<-sighup
	debug.Print("Received SIGHUP, shutting down")

	listener.Close()
	if webServer != nil {
		webServer.Close()
	}
	clients.shutdownAll()
	clients.waitForEmpty()
	players.Close()
	if lg != nil {
		lg.Close()
	}

	debug.Print("Terminating")
	os.Exit(0)
}

// acceptLoop accepts connections on listener until it is closed,
// spawning a detached service goroutine per connection.
func acceptLoop(listener net.Listener, clients *ClientRegistry, players *PlayerRegistry) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			debug.Print("accept loop stopping: ", err)
			return
		}
		label := conn.RemoteAddr().String()
		log.Printf("New connection from %s", label)
		go serve(conn, label, clients, players)
	}
}
