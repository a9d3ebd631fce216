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

// Package keypair implements the two signature schemes accounts can use:
// Ed25519 and Secp256k1. Public keys render as hex with a one byte algorithm
// tag prefix.
package keypair

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/blake2b"
)

// Algorithm identifies the signature scheme of a key pair.
type Algorithm byte

const (
	Ed25519   Algorithm = 0x01
	Secp256k1 Algorithm = 0x02
)

var (
	ErrUnknownAlgorithm = errors.New("unknown signature algorithm")
	ErrInvalidKeySize   = errors.New("invalid private key size")
)

// String returns the canonical lowercase name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Ed25519:
		return "ed25519"
	case Secp256k1:
		return "secp256k1"
	default:
		return fmt.Sprintf("unknown(%d)", byte(a))
	}
}

// ParseAlgorithm converts a scheme name to its Algorithm. The comparison is
// case insensitive.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "ed25519":
		return Ed25519, nil
	case "secp256k1":
		return Secp256k1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// PublicKeyFromPrivate deterministically derives the public key bytes for the
// given private key and algorithm. Ed25519 accepts either a 32 byte seed or a
// 64 byte expanded key; Secp256k1 requires a 32 byte scalar.
func PublicKeyFromPrivate(alg Algorithm, priv []byte) ([]byte, error) {
	switch alg {
	case Ed25519:
		switch len(priv) {
		case ed25519.SeedSize:
			key := ed25519.NewKeyFromSeed(priv)
			return bytes.Clone(key[ed25519.SeedSize:]), nil
		case ed25519.PrivateKeySize:
			return bytes.Clone(priv[ed25519.SeedSize:]), nil
		default:
			return nil, fmt.Errorf("%w: %d for ed25519", ErrInvalidKeySize, len(priv))
		}
	case Secp256k1:
		if len(priv) != 32 {
			return nil, fmt.Errorf("%w: %d for secp256k1", ErrInvalidKeySize, len(priv))
		}
		key := secp256k1.PrivKeyFromBytes(priv)
		return key.PubKey().SerializeCompressed(), nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// Sign produces a signature over msg with the given private key. Ed25519
// signs the message directly; Secp256k1 signs its blake2b-256 digest and
// returns the 64 byte compact r||s form.
func Sign(alg Algorithm, priv []byte, msg []byte) ([]byte, error) {
	switch alg {
	case Ed25519:
		key, err := ed25519Key(priv)
		if err != nil {
			return nil, err
		}
		return ed25519.Sign(key, msg), nil
	case Secp256k1:
		if len(priv) != 32 {
			return nil, fmt.Errorf("%w: %d for secp256k1", ErrInvalidKeySize, len(priv))
		}
		key := secp256k1.PrivKeyFromBytes(priv)
		digest := blake2b.Sum256(msg)
		compact := secpecdsa.SignCompact(key, digest[:], false)
		// Strip the recovery id, leaving r || s.
		return compact[1:], nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// Verify reports whether sig is a valid signature of msg under the public
// key. Used by tests and the deploy approval cross-checks.
func Verify(alg Algorithm, pub []byte, msg []byte, sig []byte) bool {
	switch alg {
	case Ed25519:
		if len(pub) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
	case Secp256k1:
		key, err := secp256k1.ParsePubKey(pub)
		if err != nil || len(sig) != 64 {
			return false
		}
		var r, s secp256k1.ModNScalar
		if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
			return false
		}
		digest := blake2b.Sum256(msg)
		return secpecdsa.NewSignature(&r, &s).Verify(digest[:], key)
	default:
		return false
	}
}

// AccountHash computes the 32 byte account hash of a public key: the
// blake2b-256 digest of the lowercase algorithm name, a zero separator byte
// and the raw key bytes.
func AccountHash(alg Algorithm, pub []byte) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(alg.String()))
	h.Write([]byte{0})
	h.Write(pub)
	return h.Sum(nil)
}

// PublicKeyHex renders a public key in the tagged hex form used on the wire:
// one algorithm byte followed by the key bytes.
func PublicKeyHex(alg Algorithm, pub []byte) string {
	return hex.EncodeToString(append([]byte{byte(alg)}, pub...))
}

// ParsePublicKeyHex splits a tagged public key hex string into its algorithm
// and raw key bytes.
func ParsePublicKeyHex(s string) (Algorithm, []byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid public key hex: %v", err)
	}
	if len(raw) < 2 {
		return 0, nil, errors.New("public key hex too short")
	}
	alg := Algorithm(raw[0])
	if alg != Ed25519 && alg != Secp256k1 {
		return 0, nil, ErrUnknownAlgorithm
	}
	return alg, raw[1:], nil
}

func ed25519Key(priv []byte) (ed25519.PrivateKey, error) {
	switch len(priv) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(priv), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(priv), nil
	default:
		return nil, fmt.Errorf("%w: %d for ed25519", ErrInvalidKeySize, len(priv))
	}
}
