// Copyright 2021 The casper-signer Authors
// This file is part of the casper-signer library.
//
// The casper-signer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The casper-signer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the casper-signer library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

// Config is the daemon's TOML-configurable surface. Flags override file
// values.
type Config struct {
	DataDir   string
	WSAddr    string
	Verbosity int
	MemDB     bool
}

func defaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:   filepath.Join(home, ".casper-signer"),
		WSAddr:    "localhost:7744",
		Verbosity: 3,
	}
}

// loadConfig builds the effective configuration from the defaults, the
// optional TOML file and the command line, in that order.
func loadConfig(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if path := ctx.String(configFlag.Name); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("opening config file: %w", err)
		}
		defer f.Close()
		if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(wsAddrFlag.Name) {
		cfg.WSAddr = ctx.String(wsAddrFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(memDBFlag.Name) {
		cfg.MemDB = ctx.Bool(memDBFlag.Name)
	}
	return cfg, nil
}
