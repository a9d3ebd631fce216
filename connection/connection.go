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

// Package connection tracks which sites may talk to the signer. Sites the
// user has seen before stay on the known list even while disconnected, so
// reconnecting skips the approval prompt rendering. The signing queue
// consults IsConnected before any request is enqueued.
package connection

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/casper-ecosystem/signer/log"
)

// ErrNoSite is returned when connect/disconnect is called without a site and
// no connection request is pending to take the origin from.
var ErrNoSite = errors.New("no site given and no pending connection request")

// Site is one entry of the allow-list snapshot.
type Site struct {
	URL       string `json:"url"`
	Connected bool   `json:"isConnected"`
}

// Manager owns the connected-sites allow-list. All methods are safe for
// concurrent use.
type Manager struct {
	mu        sync.Mutex
	known     mapset.Set[string]
	connected mapset.Set[string]
	requested string // origin of the pending connection request, "" if none
	log       log.Logger
}

// NewManager returns an empty allow-list.
func NewManager() *Manager {
	return &Manager{
		known:     mapset.NewThreadUnsafeSet[string](),
		connected: mapset.NewThreadUnsafeSet[string](),
		log:       log.New("module", "connection"),
	}
}

// Normalize reduces a caller-supplied url to the origin form the allow-list
// keys on: lowercase host, scheme and path stripped.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	return strings.ToLower(u.Host)
}

// RequestConnection records that the given origin wants to connect. The
// badge collaborator reads the pending flag; the UI resolves it by calling
// ConnectToSite or clearing it via Disconnect/Remove.
func (m *Manager) RequestConnection(origin string) {
	origin = Normalize(origin)
	m.mu.Lock()
	m.requested = origin
	m.known.Add(origin)
	m.mu.Unlock()
	m.log.Info("Connection requested", "origin", origin)
}

// ConnectToSite adds the origin to the connected set. An empty origin
// resolves the pending connection request instead.
func (m *Manager) ConnectToSite(origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	origin = Normalize(origin)
	if origin == "" {
		if m.requested == "" {
			return ErrNoSite
		}
		origin = m.requested
	}
	m.known.Add(origin)
	m.connected.Add(origin)
	if m.requested == origin {
		m.requested = ""
	}
	m.log.Info("Site connected", "origin", origin)
	return nil
}

// DisconnectFromSite removes the origin from the connected set but keeps it
// on the known list. An empty origin targets the pending request's origin.
func (m *Manager) DisconnectFromSite(origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	origin = Normalize(origin)
	if origin == "" {
		if m.requested == "" {
			return ErrNoSite
		}
		origin = m.requested
	}
	m.connected.Remove(origin)
	if m.requested == origin {
		m.requested = ""
	}
	m.log.Info("Site disconnected", "origin", origin)
	return nil
}

// RemoveSite forgets the origin entirely.
func (m *Manager) RemoveSite(origin string) {
	origin = Normalize(origin)
	m.mu.Lock()
	m.known.Remove(origin)
	m.connected.Remove(origin)
	if m.requested == origin {
		m.requested = ""
	}
	m.mu.Unlock()
	m.log.Info("Site removed", "origin", origin)
}

// IsConnected reports whether the origin may submit signing requests.
func (m *Manager) IsConnected(origin string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected.Contains(Normalize(origin))
}

// HasPendingRequest reports whether a connection request awaits the user,
// for the badge collaborator.
func (m *Manager) HasPendingRequest() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requested != ""
}

// Sites returns a snapshot of the known list.
func (m *Manager) Sites() []Site {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Site, 0, m.known.Cardinality())
	for origin := range m.known.Iter() {
		out = append(out, Site{URL: origin, Connected: m.connected.Contains(origin)})
	}
	return out
}
