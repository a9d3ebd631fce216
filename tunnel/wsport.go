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

	"github.com/gorilla/websocket"

	"github.com/casper-ecosystem/signer/log"
)

// WSPort adapts a websocket connection into a Port. The daemon uses it to
// bridge popup and page contexts into the background process; an extension
// build would substitute the browser runtime ports behind the same
// interface.
type WSPort struct {
	conn *websocket.Conn
	log  log.Logger

	wmu sync.Mutex // guards writes, gorilla allows one writer

	lmu       sync.Mutex
	listeners []func(Envelope)

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWSPort wraps an established websocket connection and starts the read
// loop. The port closes itself when the connection drops.
func NewWSPort(conn *websocket.Conn) *WSPort {
	p := &WSPort{
		conn:   conn,
		log:    log.New("module", "wsport", "remote", conn.RemoteAddr().String()),
		closed: make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *WSPort) AddListener(handler func(Envelope)) {
	p.lmu.Lock()
	defer p.lmu.Unlock()
	p.listeners = append(p.listeners, handler)
}

func (p *WSPort) PostMessage(env Envelope) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.conn.WriteJSON(&env)
}

// Close tears down the connection. Idempotent.
func (p *WSPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.conn.Close()
	})
	return err
}

// Done is closed once the connection has dropped.
func (p *WSPort) Done() <-chan struct{} {
	return p.closed
}

func (p *WSPort) readLoop() {
	defer p.Close()
	for {
		var env Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.log.Debug("Websocket read failed", "err", err)
			}
			return
		}
		p.lmu.Lock()
		handlers := append([]func(Envelope){}, p.listeners...)
		p.lmu.Unlock()
		for _, h := range handlers {
			h(env)
		}
	}
}
