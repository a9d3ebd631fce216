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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testHash = "0102030405060708091011121314151617181920212223242526272829303132"

func transferDeployJSON() []byte {
	return []byte(`{
		"hash": "` + testHash + `",
		"header": {
			"account": "01aabb",
			"timestamp": "2021-07-01T12:00:00.000Z",
			"ttl": "30m",
			"gas_price": 1,
			"body_hash": "aa",
			"dependencies": [],
			"chain_name": "casper-test"
		},
		"payment": {
			"ModuleBytes": {
				"module_bytes": "",
				"args": [
					["amount", {"cl_type": "U512", "bytes": "", "parsed": "10000000000"}]
				]
			}
		},
		"session": {
			"Transfer": {
				"args": [
					["amount", {"cl_type": "U512", "bytes": "", "parsed": "2500000000"}],
					["target", {"cl_type": {"ByteArray": 32}, "bytes": "", "parsed": "0203"}],
					["id", {"cl_type": {"Option": "U64"}, "bytes": "", "parsed": null}]
				]
			}
		},
		"approvals": []
	}`)
}

func TestParseValid(t *testing.T) {
	d, err := Parse(transferDeployJSON())
	require.NoError(t, err)
	require.Equal(t, testHash, d.Hash)
	require.Equal(t, "casper-test", d.Header.ChainName)
	require.Len(t, d.SignableBytes(), 32)
	require.True(t, d.IsTransfer())
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"bad hash hex":    `{"hash":"zz","header":{"account":"01aa"},"session":{}}`,
		"short hash":      `{"hash":"0102","header":{"account":"01aa"},"session":{}}`,
		"missing account": `{"hash":"` + testHash + `","header":{},"session":{}}`,
		"missing session": `{"hash":"` + testHash + `","header":{"account":"01aa"}}`,
	}
	for name, raw := range cases {
		_, err := Parse([]byte(raw))
		require.ErrorIs(t, err, ErrMalformedPayload, name)
	}
}

func TestAddApprovalRoundTrip(t *testing.T) {
	d, err := Parse(transferDeployJSON())
	require.NoError(t, err)

	d.AddApproval("01aabb", "01ccdd")
	out, err := d.JSON()
	require.NoError(t, err)

	d2, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, d2.Approvals, 1)
	require.Equal(t, "01aabb", d2.Approvals[0].Signer)
	require.Equal(t, "01ccdd", d2.Approvals[0].Signature)
}

func TestTransferTarget(t *testing.T) {
	d, err := Parse(transferDeployJSON())
	require.NoError(t, err)
	target, ok := d.TransferTarget()
	require.True(t, ok)
	require.Equal(t, "0203", target)

	// A transfer without a target argument has nothing to report.
	raw := []byte(`{"hash":"` + testHash + `","header":{"account":"01aa"},"session":{"Transfer":{"args":[]}}}`)
	d, err = Parse(raw)
	require.NoError(t, err)
	_, ok = d.TransferTarget()
	require.False(t, ok)

	// Neither does a contract call.
	raw = []byte(`{"hash":"` + testHash + `","header":{"account":"01aa"},"session":{"StoredContractByName":{"name":"counter","args":[]}}}`)
	d, err = Parse(raw)
	require.NoError(t, err)
	_, ok = d.TransferTarget()
	require.False(t, ok)
}

func TestCompactJSON(t *testing.T) {
	require.Equal(t, `{"a":1,"b":[2,3]}`, compactJSON(json.RawMessage("{ \"a\": 1,\n\t\"b\": [2, 3] }")))
	// Input that is not valid JSON falls through untouched.
	require.Equal(t, `{broken`, compactJSON(json.RawMessage(`{broken`)))
}

func TestDisplayableTransfer(t *testing.T) {
	d, err := Parse(transferDeployJSON())
	require.NoError(t, err)

	data := d.Displayable("01ffee")
	require.Equal(t, "01ffee", data.SigningKey)
	require.Equal(t, testHash, data.DeployHash)
	require.Equal(t, "Transfer", data.DeployType)
	require.Equal(t, "Transfer", data.SessionKind)
	require.Equal(t, []NamedArg{
		{Name: "amount", Value: "2500000000"},
		{Name: "target", Value: "0203"},
		{Name: "id", Value: "None"},
	}, data.Session)
	require.Equal(t, []NamedArg{{Name: "amount", Value: "10000000000"}}, data.Payment)
}

func TestDisplayableContractCall(t *testing.T) {
	raw := []byte(`{
		"hash": "` + testHash + `",
		"header": {"account": "01aabb", "chain_name": "casper"},
		"session": {
			"StoredContractByName": {
				"name": "counter",
				"entry_point": "increment",
				"args": []
			}
		}
	}`)
	d, err := Parse(raw)
	require.NoError(t, err)

	data := d.Displayable("01ffee")
	require.Equal(t, "Contract Call", data.DeployType)
	require.Equal(t, "StoredContractByName", data.SessionKind)
	require.Empty(t, data.Session)
}

func TestRenderCLValue(t *testing.T) {
	cases := []struct {
		name   string
		clType string
		parsed string
		want   string
	}{
		{"unit", `"Unit"`, `null`, "()"},
		{"bool", `"Bool"`, `true`, "true"},
		{"i32", `"I32"`, `-7`, "-7"},
		{"u64", `"U64"`, `42`, "42"},
		{"u512", `"U512"`, `"123456789012345678901234567890"`, "123456789012345678901234567890"},
		{"u512 bad decimal", `"U512"`, `"not a number"`, "not a number"},
		{"string", `"String"`, `"hello"`, "hello"},
		{"public key", `"PublicKey"`, `"01aabb"`, "01aabb"},
		{"uref", `"URef"`, `"uref-0202-007"`, "uref-0202-007"},
		{"key hash", `"Key"`, `{"Hash": "hash-aabb"}`, "Hash(hash-aabb)"},
		{"key account", `"Key"`, `{"Account": {"account-hash": "aabb"}}`, "Account(aabb)"},
		{"option none", `{"Option": "U64"}`, `null`, "None"},
		{"option some", `{"Option": "U64"}`, `42`, "Some(42)"},
		{"list", `{"List": "U32"}`, `[1, 2, 3]`, "[1, 2, 3]"},
		{"nested list", `{"List": {"List": "U32"}}`, `[[1], [2, 3]]`, "[[1], [2, 3]]"},
		{"result ok", `{"Result": {"ok": "U64", "err": "String"}}`, `{"Ok": 5}`, "Ok(5)"},
		{"result err", `{"Result": {"ok": "U64", "err": "String"}}`, `{"Err": "boom"}`, "Err(boom)"},
		{"map", `{"Map": {"key": "String", "value": "U64"}}`, `[{"key": "a", "value": 1}]`, "{a: 1}"},
		{"tuple2", `{"Tuple2": ["String", "U64"]}`, `["x", 9]`, "(x, 9)"},
		{"unknown tag", `"Mystery"`, `{"a": 1}`, `{"a":1}`},
	}
	for _, tc := range cases {
		got := renderCLValue(json.RawMessage(tc.clType), json.RawMessage(tc.parsed), 0)
		require.Equal(t, tc.want, got, tc.name)
	}
}

func TestRenderCLValueDepthCap(t *testing.T) {
	// Options nested past the cap render as a truncation marker instead of
	// recursing forever.
	depth := maxRenderDepth + 3
	clType := `"U64"`
	parsed := `1`
	for i := 0; i < depth; i++ {
		clType = `{"Option": ` + clType + `}`
	}
	got := renderCLValue(json.RawMessage(clType), json.RawMessage(parsed), 0)
	require.Contains(t, got, "…")
	require.Equal(t, maxRenderDepth+1, strings.Count(got, "Some("))
}
