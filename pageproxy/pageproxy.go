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

// Package pageproxy is the stub a web page talks to. It wraps a tunnel
// toward the background context in typed methods; every call crosses the
// content-script relay and resolves once the background replies. Errors
// arrive as plain message strings.
package pageproxy

import (
	"context"
	"encoding/json"

	"github.com/casper-ecosystem/signer/tunnel"
)

// Client is the page-side endpoint.
type Client struct {
	t *tunnel.Tunnel
}

// New builds a client over the page's half of the message channel. origin is
// the page origin; the background applies the connected-sites gate to it.
func New(port tunnel.Port, origin string) (*Client, error) {
	t, err := tunnel.NewOverPort("page", "background", port, tunnel.WithOrigin(origin))
	if err != nil {
		return nil, err
	}
	return &Client{t: t}, nil
}

// Sign submits a deploy for user approval and blocks until it is resolved.
// It returns the signed deploy JSON.
func (c *Client) Sign(ctx context.Context, deployJSON json.RawMessage, signingKey, targetKey string) (json.RawMessage, error) {
	var signed json.RawMessage
	if err := c.t.Call(ctx, &signed, "sign", deployJSON, signingKey, targetKey); err != nil {
		return nil, err
	}
	return signed, nil
}

// SignMessage submits a free-form message for user approval and returns the
// hex signature.
func (c *Client) SignMessage(ctx context.Context, message, signingKey string) (string, error) {
	var sig string
	if err := c.t.Call(ctx, &sig, "signMessage", message, signingKey); err != nil {
		return "", err
	}
	return sig, nil
}

// GetActivePublicKey returns the tagged hex of the active account's key.
func (c *Client) GetActivePublicKey(ctx context.Context) (string, error) {
	var key string
	if err := c.t.Call(ctx, &key, "getActivePublicKey"); err != nil {
		return "", err
	}
	return key, nil
}

// IsConnected reports whether this page's origin is on the allow-list.
func (c *Client) IsConnected(ctx context.Context) (bool, error) {
	var connected bool
	if err := c.t.Call(ctx, &connected, "isConnected"); err != nil {
		return false, err
	}
	return connected, nil
}

// RequestConnection asks the user to add this page's origin.
func (c *Client) RequestConnection(ctx context.Context) error {
	return c.t.Call(ctx, nil, "requestConnection")
}

// ConnectToSite marks this page's origin connected.
func (c *Client) ConnectToSite(ctx context.Context) error {
	return c.t.Call(ctx, nil, "connectToSite")
}

// DisconnectFromSite drops this page's origin from the connected set.
func (c *Client) DisconnectFromSite(ctx context.Context) error {
	return c.t.Call(ctx, nil, "disconnectFromSite")
}

// RemoveSite forgets this page's origin entirely.
func (c *Client) RemoveSite(ctx context.Context) error {
	return c.t.Call(ctx, nil, "removeSite")
}

// GetVersion returns the signer's version string.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.t.Call(ctx, &version, "getVersion"); err != nil {
		return "", err
	}
	return version, nil
}
