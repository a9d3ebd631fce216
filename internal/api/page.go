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

package api

import (
	"context"
	"encoding/json"

	"github.com/casper-ecosystem/signer/signer"
	"github.com/casper-ecosystem/signer/tunnel"
)

// RegisterPageFacing registers the reduced surface a web page reaches
// through its proxy stub. The caller identity is the page origin carried on
// the envelope; the connected-sites gate is applied inside the signing
// queue and connection manager, not here.
func RegisterPageFacing(t *tunnel.Tunnel, b *Backend) {
	t.Register("sign", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		deployJSON, err := arg[json.RawMessage](args, 0)
		if err != nil {
			return nil, err
		}
		signingKey, err := arg[string](args, 1)
		if err != nil {
			return nil, err
		}
		targetKey, err := optArg[string](args, 2)
		if err != nil {
			return nil, err
		}
		signed, err := b.Queue.RequestSignature(ctx, caller, deployJSON, signingKey, targetKey)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(signed), nil
	})

	t.Register("signMessage", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		message, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		signingKey, err := arg[string](args, 1)
		if err != nil {
			return nil, err
		}
		return b.Queue.SignMessage(ctx, caller, []byte(message), signingKey)
	})

	t.Register("getActivePublicKey", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return b.Vault.ActivePublicKeyHex()
	})

	t.Register("isConnected", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return b.Connections.IsConnected(caller), nil
	})

	t.Register("requestConnection", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		b.Connections.RequestConnection(caller)
		b.Popups.Open(signer.PurposeConnect, 0)
		return nil, nil
	})

	t.Register("connectToSite", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return nil, b.Connections.ConnectToSite(caller)
	})

	t.Register("disconnectFromSite", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return nil, b.Connections.DisconnectFromSite(caller)
	})

	t.Register("removeSite", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		b.Connections.RemoveSite(caller)
		return nil, nil
	})

	t.Register("getVersion", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return Version, nil
	})
}
