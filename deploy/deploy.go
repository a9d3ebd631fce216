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

// Package deploy handles the JSON representation of deploys: parsing a
// caller-supplied payload into a signable form, attaching approvals and
// rendering the argument values for the approval popup. The binary layout of
// the deploy body is out of scope; the deploy hash is the signable blob.
package deploy

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is wrapped into every parse failure. A payload that
// cannot be parsed never enters the signing queue.
var ErrMalformedPayload = errors.New("malformed deploy")

// Approval is a signature attached to a deploy, both halves in tagged hex.
type Approval struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

// Header carries the deploy metadata shown to the user before approval.
type Header struct {
	Account      string   `json:"account"`
	Timestamp    string   `json:"timestamp"`
	TTL          string   `json:"ttl"`
	GasPrice     uint64   `json:"gas_price"`
	BodyHash     string   `json:"body_hash"`
	Dependencies []string `json:"dependencies"`
	ChainName    string   `json:"chain_name"`
}

// Deploy is the parsed JSON form. Payment and Session stay raw; their
// argument lists are only decoded on demand for display.
type Deploy struct {
	Hash      string          `json:"hash"`
	Header    Header          `json:"header"`
	Payment   json.RawMessage `json:"payment"`
	Session   json.RawMessage `json:"session"`
	Approvals []Approval      `json:"approvals"`
}

// Parse validates a raw JSON payload into a Deploy. The hash must be present
// and decode to 32 bytes since it is what gets signed.
func Parse(raw []byte) (*Deploy, error) {
	var d Deploy
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	hash, err := hex.DecodeString(d.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: bad hash hex: %v", ErrMalformedPayload, err)
	}
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: hash is %d bytes, want 32", ErrMalformedPayload, len(hash))
	}
	if d.Header.Account == "" {
		return nil, fmt.Errorf("%w: missing header account", ErrMalformedPayload)
	}
	if d.Session == nil {
		return nil, fmt.Errorf("%w: missing session", ErrMalformedPayload)
	}
	return &d, nil
}

// SignableBytes returns the blob a signature is produced over.
func (d *Deploy) SignableBytes() []byte {
	hash, _ := hex.DecodeString(d.Hash)
	return hash
}

// AddApproval appends a signer/signature pair.
func (d *Deploy) AddApproval(signerHex, signatureHex string) {
	d.Approvals = append(d.Approvals, Approval{Signer: signerHex, Signature: signatureHex})
}

// JSON re-serializes the deploy, approvals included.
func (d *Deploy) JSON() ([]byte, error) {
	return json.Marshal(d)
}

// IsTransfer reports whether the session is a native transfer.
func (d *Deploy) IsTransfer() bool {
	var session map[string]json.RawMessage
	if err := json.Unmarshal(d.Session, &session); err != nil {
		return false
	}
	_, ok := session["Transfer"]
	return ok
}

// TransferTarget extracts the parsed "target" argument of a native transfer
// session: either the recipient's tagged public key hex or its account hash.
// The second return is false for non-transfer deploys and for transfers
// without a decodable target.
func (d *Deploy) TransferTarget() (string, bool) {
	var session map[string]struct {
		Args []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(d.Session, &session); err != nil {
		return "", false
	}
	transfer, ok := session["Transfer"]
	if !ok {
		return "", false
	}
	for _, entry := range transfer.Args {
		var pair []json.RawMessage
		if err := json.Unmarshal(entry, &pair); err != nil || len(pair) != 2 {
			continue
		}
		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil || name != "target" {
			continue
		}
		var val struct {
			Parsed string `json:"parsed"`
		}
		if err := json.Unmarshal(pair[1], &val); err != nil || val.Parsed == "" {
			return "", false
		}
		return val.Parsed, true
	}
	return "", false
}
