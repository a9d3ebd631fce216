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

package deploy

import (
	"bytes"
	"encoding/json"
	"sort"
)

// DisplayableData is the human readable breakdown of a deploy rendered in
// the approval popup.
type DisplayableData struct {
	DeployHash   string     `json:"deployHash"`
	SigningKey   string     `json:"signingKey"`
	Account      string     `json:"account"`
	BodyHash     string     `json:"bodyHash"`
	ChainName    string     `json:"chainName"`
	Timestamp    string     `json:"timestamp"`
	GasPrice     uint64     `json:"gasPrice"`
	DeployType   string     `json:"deployType"`
	Payment      []NamedArg `json:"payment"`
	Session      []NamedArg `json:"session"`
	SessionKind  string     `json:"sessionKind"`
	ApprovalHexs []string   `json:"approvals"`
}

// NamedArg is one rendered runtime argument.
type NamedArg struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Displayable renders the deploy for the approval popup. signingKey is the
// tagged hex of the key the site asked to sign with. Argument rendering is
// lenient: an argument that cannot be decoded renders as its raw JSON rather
// than failing the whole popup.
func (d *Deploy) Displayable(signingKey string) DisplayableData {
	out := DisplayableData{
		DeployHash: d.Hash,
		SigningKey: signingKey,
		Account:    d.Header.Account,
		BodyHash:   d.Header.BodyHash,
		ChainName:  d.Header.ChainName,
		Timestamp:  d.Header.Timestamp,
		GasPrice:   d.Header.GasPrice,
		DeployType: "Contract Call",
	}
	if d.IsTransfer() {
		out.DeployType = "Transfer"
	}
	out.SessionKind, out.Session = renderExecutable(d.Session)
	_, out.Payment = renderExecutable(d.Payment)
	for _, a := range d.Approvals {
		out.ApprovalHexs = append(out.ApprovalHexs, a.Signer)
	}
	return out
}

// renderExecutable decodes one executable item ({"ModuleBytes": {...}} and
// friends) and renders its args.
func renderExecutable(raw json.RawMessage) (string, []NamedArg) {
	if raw == nil {
		return "", nil
	}
	var item map[string]struct {
		Args []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return "", nil
	}
	kinds := make([]string, 0, len(item))
	for kind := range item {
		kinds = append(kinds, kind)
	}
	// Executable items carry a single variant key; sorting keeps the
	// degenerate multi-key case deterministic.
	sort.Strings(kinds)
	for _, kind := range kinds {
		args := make([]NamedArg, 0, len(item[kind].Args))
		for _, entry := range item[kind].Args {
			name, value := renderArgEntry(entry)
			args = append(args, NamedArg{Name: name, Value: value})
		}
		return kind, args
	}
	return "", nil
}

// renderArgEntry decodes a ["name", {cl_type, bytes, parsed}] pair.
func renderArgEntry(entry json.RawMessage) (string, string) {
	var pair []json.RawMessage
	if err := json.Unmarshal(entry, &pair); err != nil || len(pair) != 2 {
		return "", compactJSON(entry)
	}
	var name string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		name = compactJSON(pair[0])
	}
	var val struct {
		CLType json.RawMessage `json:"cl_type"`
		Parsed json.RawMessage `json:"parsed"`
	}
	if err := json.Unmarshal(pair[1], &val); err != nil {
		return name, compactJSON(pair[1])
	}
	return name, renderCLValue(val.CLType, val.Parsed, 0)
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
