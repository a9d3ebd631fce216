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

import "encoding/json"

// MsgType distinguishes the two envelope directions.
type MsgType string

const (
	TypeRequest MsgType = "request"
	TypeReply   MsgType = "reply"
)

// Call is the request payload: a method name and its JSON-encoded arguments.
type Call struct {
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args,omitempty"`
}

// Envelope is the wire form of one tunnel message. Envelopes are transient;
// they exist per call and are never persisted.
//
// CorrelationID matches a reply to its request. SenderID is the per-instance
// random identifier that lets the original sender discard replies meant for
// a different page load sharing the same channel. Error type information
// does not survive the hop; only the message string does.
type Envelope struct {
	Type          MsgType         `json:"type"`
	Source        string          `json:"source"`
	Destination   string          `json:"destination"`
	CorrelationID uint64          `json:"correlationId"`
	SenderID      string          `json:"senderId,omitempty"`
	Origin        string          `json:"origin,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// String renders the envelope for debug logging.
func (e *Envelope) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}
