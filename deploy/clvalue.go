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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// maxRenderDepth bounds CLValue recursion. Nested list flattening is display
// only; anything deeper renders a truncation marker.
const maxRenderDepth = 8

// clType is the decoded form of a cl_type field, which is either a plain
// string tag ("U512") or a single-key object ({"Option": "U512"}).
type clType struct {
	Tag   string
	Inner json.RawMessage
}

func parseCLType(raw json.RawMessage) clType {
	var tag string
	if err := json.Unmarshal(raw, &tag); err == nil {
		return clType{Tag: tag}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for k, v := range obj {
			return clType{Tag: k, Inner: v}
		}
	}
	return clType{}
}

// renderCLValue converts one tagged value into its display string. Unknown
// tags fall back to the compact JSON of the parsed value.
func renderCLValue(rawType, parsed json.RawMessage, depth int) string {
	if depth > maxRenderDepth {
		return "…"
	}
	t := parseCLType(rawType)
	switch t.Tag {
	case "Unit":
		return "()"

	case "Bool", "I32", "I64", "U8", "U32", "U64":
		return compactJSON(parsed)

	case "U128", "U256", "U512":
		var dec string
		if err := json.Unmarshal(parsed, &dec); err != nil {
			return compactJSON(parsed)
		}
		n, err := uint256.FromDecimal(dec)
		if err != nil {
			return dec
		}
		return n.Dec()

	case "String":
		var s string
		if err := json.Unmarshal(parsed, &s); err != nil {
			return compactJSON(parsed)
		}
		return s

	case "PublicKey", "URef", "ByteArray":
		var s string
		if err := json.Unmarshal(parsed, &s); err != nil {
			return compactJSON(parsed)
		}
		return s

	case "Key":
		return renderKey(parsed)

	case "Option":
		if string(parsed) == "null" {
			return "None"
		}
		return "Some(" + renderCLValue(t.Inner, parsed, depth+1) + ")"

	case "List":
		var items []json.RawMessage
		if err := json.Unmarshal(parsed, &items); err != nil {
			return compactJSON(parsed)
		}
		rendered := make([]string, 0, len(items))
		for _, item := range items {
			rendered = append(rendered, renderCLValue(t.Inner, item, depth+1))
		}
		return "[" + strings.Join(rendered, ", ") + "]"

	case "Result":
		return renderResult(t.Inner, parsed, depth)

	case "Map":
		return renderMap(t.Inner, parsed, depth)

	case "Tuple1", "Tuple2", "Tuple3":
		return renderTuple(t.Inner, parsed, depth)

	default:
		return compactJSON(parsed)
	}
}

// renderKey handles the Key variant, whose parsed form is a single-key
// object naming the key space (Account, Hash, URef).
func renderKey(parsed json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(parsed, &obj); err != nil {
		return compactJSON(parsed)
	}
	for space, inner := range obj {
		var s string
		if err := json.Unmarshal(inner, &s); err == nil {
			return fmt.Sprintf("%s(%s)", space, s)
		}
		// Account keys nest once more: {"Account": {"account-hash": "..."}}.
		var nested map[string]string
		if err := json.Unmarshal(inner, &nested); err == nil {
			for _, v := range nested {
				return fmt.Sprintf("%s(%s)", space, v)
			}
		}
		return fmt.Sprintf("%s(%s)", space, compactJSON(inner))
	}
	return compactJSON(parsed)
}

// renderResult handles {"Ok": ...} / {"Err": ...} with the ok/err types
// carried in the cl_type.
func renderResult(innerType, parsed json.RawMessage, depth int) string {
	var types struct {
		Ok  json.RawMessage `json:"ok"`
		Err json.RawMessage `json:"err"`
	}
	json.Unmarshal(innerType, &types)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(parsed, &obj); err != nil {
		return compactJSON(parsed)
	}
	if v, ok := obj["Ok"]; ok {
		return "Ok(" + renderCLValue(types.Ok, v, depth+1) + ")"
	}
	if v, ok := obj["Err"]; ok {
		return "Err(" + renderCLValue(types.Err, v, depth+1) + ")"
	}
	return compactJSON(parsed)
}

// renderMap handles the Map variant, parsed as a list of key/value entries.
func renderMap(innerType, parsed json.RawMessage, depth int) string {
	var types struct {
		Key   json.RawMessage `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	json.Unmarshal(innerType, &types)

	var entries []struct {
		Key   json.RawMessage `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(parsed, &entries); err != nil {
		return compactJSON(parsed)
	}
	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		k := renderCLValue(types.Key, e.Key, depth+1)
		v := renderCLValue(types.Value, e.Value, depth+1)
		rendered = append(rendered, k+": "+v)
	}
	return "{" + strings.Join(rendered, ", ") + "}"
}

// renderTuple handles Tuple1/2/3, whose cl_type inner is a list of element
// types and whose parsed form is a list of values.
func renderTuple(innerType, parsed json.RawMessage, depth int) string {
	var types []json.RawMessage
	json.Unmarshal(innerType, &types)

	var items []json.RawMessage
	if err := json.Unmarshal(parsed, &items); err != nil {
		return compactJSON(parsed)
	}
	rendered := make([]string, 0, len(items))
	for i, item := range items {
		var t json.RawMessage
		if i < len(types) {
			t = types[i]
		}
		rendered = append(rendered, renderCLValue(t, item, depth+1))
	}
	return "(" + strings.Join(rendered, ", ") + ")"
}
