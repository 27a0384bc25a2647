// Configuration Specification and Management
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
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// WebConf controls the optional secondary websocket listener. It is
// off by default.
type WebConf struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    uint   `toml:"port"`
}

// Conf holds the knobs left as runtime-configurable rather than fixed
// compile-time constants. MaxClients and the initial Elo rating are
// not here: they are genuine Go constants.
type Conf struct {
	Debug        bool    `toml:"debug"`
	WriteRetries uint    `toml:"write_retries"`
	Web          WebConf `toml:"web"`

	file string
}

var defaultConfig = Conf{
	Debug:        false,
	WriteRetries: 8,
	Web: WebConf{
		Enabled: false,
		Host:    "0.0.0.0",
		Port:    8080,
	},
}

// defaultWriteRetries is consulted by sendPacket; it is set from the
// active configuration in main before the server starts accepting
// connections.
var defaultWriteRetries uint = defaultConfig.WriteRetries

// readConf decodes name into conf, leaving fields the file omits
// untouched — callers start from a copy of defaultConfig so that
// omitted fields keep their defaults.
func readConf(name string, conf *Conf) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = toml.NewDecoder(file).Decode(conf)
	conf.file = name
	return err
}

// openConf loads name into a fresh Conf seeded with defaultConfig.
func openConf(name string) (*Conf, error) {
	conf := defaultConfig
	if err := readConf(name, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// apply wires a loaded configuration into the running process: the
// debug logger's output and the write-retry count used by the wire
// protocol.
func (c *Conf) apply() {
	if c.Debug {
		debug.SetOutput(os.Stderr)
		debug.Print("Enabled debugging output")
	} else {
		debug.SetOutput(io.Discard)
	}
	defaultWriteRetries = c.WriteRetries
}
