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

import "sync"

// Listener is the receiving half of a message channel.
type Listener interface {
	// AddListener registers a handler for inbound envelopes. Multiple
	// handlers all see every envelope.
	AddListener(handler func(Envelope))
}

// Sender is the transmitting half of a message channel.
type Sender interface {
	// PostMessage sends one envelope. Delivery is not acknowledged; replies
	// arrive out-of-band through a Listener.
	PostMessage(Envelope) error
}

// Port is a full duplex message channel endpoint.
type Port interface {
	Listener
	Sender
}

// pipePort is one end of an in-process channel pair. Delivery is
// asynchronous, mirroring the event-loop decoupling of window.postMessage.
type pipePort struct {
	mu        sync.Mutex
	listeners []func(Envelope)
	peer      *pipePort
}

// Pipe returns two connected in-process ports. Envelopes posted on one end
// are delivered to the other end's listeners on a fresh goroutine.
func Pipe() (Port, Port) {
	a, b := &pipePort{}, &pipePort{}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipePort) AddListener(handler func(Envelope)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, handler)
}

func (p *pipePort) PostMessage(env Envelope) error {
	peer := p.peer
	peer.mu.Lock()
	handlers := append([]func(Envelope){}, peer.listeners...)
	peer.mu.Unlock()

	go func() {
		for _, h := range handlers {
			h(env)
		}
	}()
	return nil
}
