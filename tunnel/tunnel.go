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

// Package tunnel implements the call/response transport between the three
// isolated execution contexts: page, content-script relay and background.
// Each context owns a Tunnel bound to one end of a message channel;
// concurrent calls are multiplexed by correlation id and the sender's
// per-instance random identifier.
package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/casper-ecosystem/signer/log"
)

// ErrTransportMisconfigured is returned when constructing a tunnel with
// neither a sender nor a listener. A tunnel that can neither send nor
// receive is a configuration error, not a runtime condition.
var ErrTransportMisconfigured = errors.New("tunnel transport misconfigured")

// errNoSender fails a Call on a receive-only tunnel immediately instead of
// letting it hang.
var errNoSender = errors.New("tunnel has no sender configured")

// Handler is a callable registered under a method name. caller carries the
// requesting envelope's origin when set, otherwise its source context name.
type Handler func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error)

// Tunnel is one context's endpoint of the duplex call mechanism.
type Tunnel struct {
	source      string
	destination string
	senderID    string
	origin      string

	sender   Sender
	log      log.Logger
	handlers sync.Map // method name -> Handler, last registration wins
	nextID   atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Envelope
}

// Option configures a tunnel at construction.
type Option func(*Tunnel)

// WithOrigin stamps outgoing requests with the page origin, so the far side
// can apply the connected-sites check to the real site rather than the
// context name.
func WithOrigin(origin string) Option {
	return func(t *Tunnel) { t.origin = origin }
}

// New builds a tunnel named source, peered with destination, over the given
// halves. Either half may be nil for a one-directional context, but not
// both. sender==nil makes every Call fail fast; listener==nil means this
// tunnel never dispatches inbound envelopes.
func New(source, destination string, sender Sender, listener Listener, opts ...Option) (*Tunnel, error) {
	if sender == nil && listener == nil {
		return nil, ErrTransportMisconfigured
	}
	t := &Tunnel{
		source:      source,
		destination: destination,
		senderID:    uuid.NewString(),
		sender:      sender,
		pending:     make(map[uint64]chan Envelope),
		log:         log.New("module", "tunnel", "source", source),
	}
	for _, opt := range opts {
		opt(t)
	}
	if listener != nil {
		listener.AddListener(t.dispatch)
	}
	return t, nil
}

// NewOverPort is New with a full duplex port.
func NewOverPort(source, destination string, port Port, opts ...Option) (*Tunnel, error) {
	if port == nil {
		return nil, ErrTransportMisconfigured
	}
	return New(source, destination, port, port, opts...)
}

// Register associates a method name with a handler. The last registration
// for a name wins.
func (t *Tunnel) Register(method string, handler Handler) {
	t.handlers.Store(method, handler)
}

// Call invokes a method on the peer and unmarshals the reply into result
// (which may be nil to discard it). The peer's error arrives flattened to
// its message string and is surfaced as a plain error.
func (t *Tunnel) Call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if t.sender == nil {
		return errNoSender
	}
	call := Call{Method: method}
	for i, arg := range args {
		enc, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("encoding argument %d of %s: %w", i, method, err)
		}
		call.Args = append(call.Args, enc)
	}
	payload, err := json.Marshal(&call)
	if err != nil {
		return err
	}
	id := t.nextID.Add(1)
	ch := make(chan Envelope, 1)
	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	err = t.sender.PostMessage(Envelope{
		Type:          TypeRequest,
		Source:        t.source,
		Destination:   t.destination,
		CorrelationID: id,
		SenderID:      t.senderID,
		Origin:        t.origin,
		Payload:       payload,
	})
	if err != nil {
		return err
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return errors.New(reply.Error)
		}
		if result == nil || reply.Payload == nil {
			return nil
		}
		return json.Unmarshal(reply.Payload, result)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch routes one inbound envelope. Replies must carry this tunnel's
// sender identifier and a known correlation id; everything else is dropped
// silently, since unrelated traffic shares the channel.
func (t *Tunnel) dispatch(env Envelope) {
	if env.Destination != t.source || env.Source != t.destination {
		return
	}
	switch env.Type {
	case TypeReply:
		if env.SenderID != t.senderID {
			return
		}
		t.mu.Lock()
		ch, ok := t.pending[env.CorrelationID]
		t.mu.Unlock()
		if ok {
			ch <- env
		}
	case TypeRequest:
		go t.serve(env)
	}
}

// serve invokes the requested method and posts the reply envelope back to
// the original source. A thrown error crosses the boundary as its message
// string only.
func (t *Tunnel) serve(env Envelope) {
	reply := Envelope{
		Type:          TypeReply,
		Source:        t.source,
		Destination:   env.Source,
		CorrelationID: env.CorrelationID,
		SenderID:      env.SenderID,
	}
	var call Call
	if err := json.Unmarshal(env.Payload, &call); err != nil {
		reply.Error = fmt.Sprintf("malformed call payload: %v", err)
	} else if h, ok := t.handlers.Load(call.Method); !ok {
		reply.Error = fmt.Sprintf("Unregistered method call: %s", call.Method)
	} else {
		caller := env.Origin
		if caller == "" {
			caller = env.Source
		}
		result, err := h.(Handler)(context.Background(), caller, call.Args)
		if err != nil {
			reply.Error = err.Error()
		} else if result != nil {
			enc, merr := json.Marshal(result)
			if merr != nil {
				reply.Error = fmt.Sprintf("encoding result of %s: %v", call.Method, merr)
			} else {
				reply.Payload = enc
			}
		}
	}
	if t.sender == nil {
		t.log.Warn("Dropping reply, no sender configured", "method", call.Method)
		return
	}
	if err := t.sender.PostMessage(reply); err != nil {
		t.log.Warn("Failed to post reply", "method", call.Method, "err", err)
	}
}
