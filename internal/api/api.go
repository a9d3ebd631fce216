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

// Package api exposes the background process's method surface over a tunnel:
// the account.* and sign.* and connection.* namespaces for the privileged
// popup UI, and the reduced page-facing set for connected sites.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/casper-ecosystem/signer/connection"
	"github.com/casper-ecosystem/signer/signer"
	"github.com/casper-ecosystem/signer/tunnel"
	"github.com/casper-ecosystem/signer/vault"
)

// Version is reported to pages via getVersion.
var Version = "1.0.0"

// Backend bundles the background-owned controllers the methods operate on.
type Backend struct {
	Vault       *vault.Controller
	Queue       *signer.Queue
	Connections *connection.Manager
	Popups      signer.PopupCoordinator
}

// RegisterAll registers the privileged surface (popup UI side) on the
// tunnel. The page-facing subset is registered separately.
func RegisterAll(t *tunnel.Tunnel, b *Backend) {
	registerAccount(t, b)
	registerSign(t, b)
	registerConnection(t, b)
}

// arg decodes the i-th call argument into T.
func arg[T any](args []json.RawMessage, i int) (T, error) {
	var v T
	if i >= len(args) {
		return v, fmt.Errorf("missing argument %d", i)
	}
	if err := json.Unmarshal(args[i], &v); err != nil {
		return v, fmt.Errorf("bad argument %d: %v", i, err)
	}
	return v, nil
}

// optArg decodes the i-th call argument if present.
func optArg[T any](args []json.RawMessage, i int) (T, error) {
	var v T
	if i >= len(args) || string(args[i]) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(args[i], &v); err != nil {
		return v, fmt.Errorf("bad argument %d: %v", i, err)
	}
	return v, nil
}
