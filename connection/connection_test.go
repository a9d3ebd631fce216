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

package connection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"example.com":                     "example.com",
		"Example.COM":                     "example.com",
		"https://example.com":             "example.com",
		"https://Example.com/some/path":   "example.com",
		"http://example.com:8080/path":    "example.com:8080",
		"  https://example.com  ":         "example.com",
		"cspr.live":                       "cspr.live",
		"":                                "",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), in)
	}
}

func TestConnectDisconnectCycle(t *testing.T) {
	m := NewManager()
	require.False(t, m.IsConnected("example.com"))

	require.NoError(t, m.ConnectToSite("https://example.com"))
	require.True(t, m.IsConnected("example.com"))
	// The check normalizes too, so any spelling of the origin matches.
	require.True(t, m.IsConnected("https://Example.com/page"))

	require.NoError(t, m.DisconnectFromSite("example.com"))
	require.False(t, m.IsConnected("example.com"))

	// A disconnected site stays on the known list.
	sites := m.Sites()
	require.Len(t, sites, 1)
	require.Equal(t, Site{URL: "example.com", Connected: false}, sites[0])

	m.RemoveSite("example.com")
	require.Empty(t, m.Sites())
}

func TestPendingRequestFlow(t *testing.T) {
	m := NewManager()

	// Connecting with no site and no pending request has no target.
	require.ErrorIs(t, m.ConnectToSite(""), ErrNoSite)
	require.ErrorIs(t, m.DisconnectFromSite(""), ErrNoSite)

	m.RequestConnection("https://cspr.live")
	require.True(t, m.HasPendingRequest())
	require.False(t, m.IsConnected("cspr.live"))

	// An empty origin resolves the pending request.
	require.NoError(t, m.ConnectToSite(""))
	require.True(t, m.IsConnected("cspr.live"))
	require.False(t, m.HasPendingRequest())
}

func TestPendingRequestCleared(t *testing.T) {
	m := NewManager()

	m.RequestConnection("cspr.live")
	require.NoError(t, m.DisconnectFromSite(""))
	require.False(t, m.HasPendingRequest())

	m.RequestConnection("cspr.live")
	m.RemoveSite("cspr.live")
	require.False(t, m.HasPendingRequest())
	require.Empty(t, m.Sites())
}

func TestSitesSnapshot(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.ConnectToSite("a.example"))
	require.NoError(t, m.ConnectToSite("b.example"))
	require.NoError(t, m.DisconnectFromSite("b.example"))

	byURL := make(map[string]bool)
	for _, s := range m.Sites() {
		byURL[s.URL] = s.Connected
	}
	require.Equal(t, map[string]bool{"a.example": true, "b.example": false}, byURL)
}
