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

// Package crypto holds the primitives protecting the vault record: a salted
// one-way password hash and password-authenticated encryption of a
// serializable payload.
//
// There is deliberately no stored password hash to compare against. The only
// wrong-password signal is an authentication failure when opening the vault
// ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// SaltSize is the size of freshly generated vault salts. The salt is stored
// in the clear next to the ciphertext; it is not a secret.
const SaltSize = 64

// CryptoError is returned when an underlying primitive fails. Callers across
// the RPC boundary match on the message, so it must stay stable.
type CryptoError struct {
	msg string
}

func (e *CryptoError) Error() string {
	return e.msg
}

// ErrIncorrectPassword is returned by Decrypt when the derived key does not
// authenticate the ciphertext.
var ErrIncorrectPassword = &CryptoError{"Incorrect password"}

// DeriveKey hashes the concatenation of salt and password with blake2b-512
// and returns the salt alongside the derived key. If salt is nil a fresh
// random SaltSize salt is generated.
//
// The derived key, not the raw password, is what the symmetric sealing key is
// built from: its hex encoding is hashed once more down to the AES key size
// by sealingKey.
func DeriveKey(password []byte, salt []byte) ([]byte, []byte, error) {
	if len(password) == 0 {
		return nil, nil, &CryptoError{"empty password"}
	}
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, nil, &CryptoError{fmt.Sprintf("salt generation failed: %v", err)}
		}
	}
	h, err := blake2b.New512(nil)
	if err != nil {
		return nil, nil, &CryptoError{err.Error()}
	}
	h.Write(salt)
	h.Write(password)
	return salt, h.Sum(nil), nil
}

// sealingKey turns a derived key into the 32 byte AES-256-GCM key. The hex
// encoding step mirrors the derived key's use as an encryption passphrase.
func sealingKey(derivedKey []byte) [32]byte {
	return blake2b.Sum256([]byte(hex.EncodeToString(derivedKey)))
}

// Encrypt serializes the given value as JSON and seals it under the derived
// key. The returned ciphertext carries the nonce in its first bytes.
func Encrypt(derivedKey []byte, value interface{}) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, &CryptoError{fmt.Sprintf("plaintext encoding failed: %v", err)}
	}
	key := sealingKey(derivedKey)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, &CryptoError{err.Error()}
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &CryptoError{err.Error()}
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, &CryptoError{fmt.Sprintf("nonce generation failed: %v", err)}
	}
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt and unmarshals the payload
// into value. A key that fails to authenticate yields ErrIncorrectPassword;
// this is the only way wrong-password detection occurs.
func Decrypt(derivedKey []byte, ciphertext []byte, value interface{}) error {
	key := sealingKey(derivedKey)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return &CryptoError{err.Error()}
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return &CryptoError{err.Error()}
	}
	if len(ciphertext) < aesgcm.NonceSize() {
		return ErrIncorrectPassword
	}
	nonce, sealed := ciphertext[:aesgcm.NonceSize()], ciphertext[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ErrIncorrectPassword
	}
	if err := json.Unmarshal(plaintext, value); err != nil {
		return &CryptoError{fmt.Sprintf("plaintext decoding failed: %v", err)}
	}
	return nil
}
