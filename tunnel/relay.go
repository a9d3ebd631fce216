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

package tunnel

import (
	"sync"

	"github.com/casper-ecosystem/signer/log"
)

// Relay is the content-script hop between the page and the background. The
// page cannot reach the background's channel directly; the relay receives a
// page-origin envelope, forwards it as one additional send on the
// background channel, awaits the correlated reply and relays it back
// unchanged. Correlation across the extra hop rides on the envelope's
// correlation id and sender identifier, which only the original page-side
// sender consumes.
type Relay struct {
	page       Port
	background Port
	log        log.Logger

	mu       sync.Mutex
	inflight map[uint64]string // correlation id -> sender id
}

// NewRelay wires the two ports together and starts forwarding.
func NewRelay(page, background Port) (*Relay, error) {
	if page == nil || background == nil {
		return nil, ErrTransportMisconfigured
	}
	r := &Relay{
		page:       page,
		background: background,
		log:        log.New("module", "relay"),
		inflight:   make(map[uint64]string),
	}
	page.AddListener(r.fromPage)
	background.AddListener(r.fromBackground)
	return r, nil
}

// fromPage forwards page-origin requests toward the background, remembering
// the correlation so the reply can be routed back.
func (r *Relay) fromPage(env Envelope) {
	if env.Type != TypeRequest {
		return
	}
	r.mu.Lock()
	r.inflight[env.CorrelationID] = env.SenderID
	r.mu.Unlock()

	if err := r.background.PostMessage(env); err != nil {
		r.mu.Lock()
		delete(r.inflight, env.CorrelationID)
		r.mu.Unlock()
		r.log.Warn("Failed to forward request", "id", env.CorrelationID, "err", err)
		// Synthesize the failure so the page-side caller settles.
		fail := Envelope{
			Type:          TypeReply,
			Source:        env.Destination,
			Destination:   env.Source,
			CorrelationID: env.CorrelationID,
			SenderID:      env.SenderID,
			Error:         err.Error(),
		}
		if perr := r.page.PostMessage(fail); perr != nil {
			r.log.Warn("Failed to deliver synthesized failure", "id", env.CorrelationID, "err", perr)
		}
	}
}

// fromBackground relays correlated replies back to the page. Replies that
// were never forwarded by this relay instance are ignored; the page side
// additionally filters by sender identifier.
func (r *Relay) fromBackground(env Envelope) {
	if env.Type != TypeReply {
		return
	}
	r.mu.Lock()
	sender, ok := r.inflight[env.CorrelationID]
	if ok && sender == env.SenderID {
		delete(r.inflight, env.CorrelationID)
	}
	r.mu.Unlock()
	if !ok || sender != env.SenderID {
		return
	}
	if err := r.page.PostMessage(env); err != nil {
		r.log.Warn("Failed to relay reply", "id", env.CorrelationID, "err", err)
	}
}
