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

func registerConnection(t *tunnel.Tunnel, b *Backend) {
	t.Register("connection.requestConnection", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		b.Connections.RequestConnection(caller)
		b.Popups.Open(signer.PurposeConnect, 0)
		return nil, nil
	})

	t.Register("connection.connectToSite", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		site, err := optArg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Connections.ConnectToSite(site)
	})

	t.Register("connection.disconnectFromSite", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		site, err := optArg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Connections.DisconnectFromSite(site)
	})

	t.Register("connection.removeSite", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		site, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		b.Connections.RemoveSite(site)
		return nil, nil
	})

	t.Register("connection.isConnected", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		site, err := optArg[string](args, 0)
		if err != nil {
			return nil, err
		}
		if site == "" {
			site = caller
		}
		return b.Connections.IsConnected(site), nil
	})

	t.Register("connection.getSites", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return b.Connections.Sites(), nil
	})
}
