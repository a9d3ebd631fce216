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

// Package vault owns the user's key pairs. Accounts live in process memory
// only while the vault is unlocked; at rest they exist as a single encrypted
// record in the persistent store, sealed under a password-derived key.
package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/casper-ecosystem/signer/crypto"
	"github.com/casper-ecosystem/signer/crypto/keypair"
	"github.com/casper-ecosystem/signer/log"
	"github.com/casper-ecosystem/signer/storage"
)

// DefaultUnlockAttempts is the wrong-password budget before the controller
// locks out.
const DefaultUnlockAttempts = 5

// Storage keys of the two persisted records. The ciphertext and the salt are
// independent values; the salt is not a secret and is stored in the clear.
var (
	cipherStoreKey = []byte("vault")
	saltStoreKey   = []byte("vault-salt")
)

// Account is a named signing key pair. The private key never leaves process
// memory unencrypted.
type Account struct {
	Alias      string            `json:"alias"`
	PublicKey  []byte            `json:"publicKey"`
	PrivateKey []byte            `json:"privateKey"`
	Algorithm  keypair.Algorithm `json:"algorithm"`
}

// KeyHex returns the tagged public key hex of the account.
func (a *Account) KeyHex() string {
	return keypair.PublicKeyHex(a.Algorithm, a.PublicKey)
}

// Sign produces a signature over msg with the account's private key.
func (a *Account) Sign(msg []byte) ([]byte, error) {
	return keypair.Sign(a.Algorithm, a.PrivateKey, msg)
}

func (a *Account) clone() Account {
	return Account{
		Alias:      a.Alias,
		PublicKey:  bytes.Clone(a.PublicKey),
		PrivateKey: bytes.Clone(a.PrivateKey),
		Algorithm:  a.Algorithm,
	}
}

// vaultData is the serialized form sealed into the persisted ciphertext.
// Account order is significant and round-trips through persistence.
type vaultData struct {
	Accounts      []Account `json:"accounts"`
	ActiveAccount string    `json:"activeAccount,omitempty"`
}

// Controller implements the vault lifecycle: NoVault -> CreateVault ->
// Unlocked <-> Locked, with a wrong-password lockout on the unlock edge.
//
// All methods are safe for concurrent use. Mutating calls persist the full
// vault record before returning; concurrent controllers sharing one store
// follow last-write-wins with no cross-instance serialization.
type Controller struct {
	mu    sync.Mutex
	store storage.Store
	log   log.Logger

	unlocked   bool
	derivedKey []byte // session secret, nil while locked
	salt       []byte
	accounts   []*Account
	active     string // alias of the active account, "" when none

	remainingAttempts int
	maxAttempts       int
}

// NewController returns a locked controller over the given store.
func NewController(store storage.Store) *Controller {
	return &Controller{
		store:             store,
		log:               log.New("module", "vault"),
		remainingAttempts: DefaultUnlockAttempts,
		maxAttempts:       DefaultUnlockAttempts,
	}
}

// Exists reports whether a vault record is persisted.
func (c *Controller) Exists() (bool, error) {
	return c.store.Has(cipherStoreKey)
}

// IsUnlocked reports whether account operations are currently possible.
func (c *Controller) IsUnlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlocked
}

// IsLockedOut reports whether the wrong-password budget is exhausted.
func (c *Controller) IsLockedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingAttempts == 0
}

// RemainingAttempts returns how many wrong passwords remain before lockout.
func (c *Controller) RemainingAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingAttempts
}

// CreateVault derives a fresh salt and key from the password, persists an
// empty vault sealed under that key and leaves the controller unlocked.
func (c *Controller) CreateVault(password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	exists, err := c.store.Has(cipherStoreKey)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}
	salt, derived, err := crypto.DeriveKey([]byte(password), nil)
	if err != nil {
		return err
	}
	c.salt = salt
	c.derivedKey = derived
	c.accounts = nil
	c.active = ""
	if err := c.persist(); err != nil {
		c.clearSession()
		return err
	}
	c.unlocked = true
	c.log.Info("Vault created")
	return nil
}

// Unlock verifies the password against the persisted record. A decryption
// failure consumes one attempt; once the budget hits zero, this and every
// later call fail with ErrLockedOut without evaluating the password.
func (c *Controller) Unlock(password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remainingAttempts == 0 {
		return ErrLockedOut
	}
	exists, err := c.store.Has(cipherStoreKey)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNoVault
	}
	salt, err := c.readRecord(saltStoreKey)
	if err != nil {
		return err
	}
	ciphertext, err := c.readRecord(cipherStoreKey)
	if err != nil {
		return err
	}
	_, derived, err := crypto.DeriveKey([]byte(password), salt)
	if err != nil {
		return err
	}
	var data vaultData
	if err := crypto.Decrypt(derived, ciphertext, &data); err != nil {
		if err == crypto.ErrIncorrectPassword {
			c.remainingAttempts--
			c.log.Warn("Failed unlock attempt", "remaining", c.remainingAttempts)
			if c.remainingAttempts == 0 {
				return ErrLockedOut
			}
		}
		return err
	}
	c.remainingAttempts = c.maxAttempts
	c.salt = salt
	c.derivedKey = derived
	c.accounts = make([]*Account, 0, len(data.Accounts))
	for i := range data.Accounts {
		acc := data.Accounts[i].clone()
		c.accounts = append(c.accounts, &acc)
	}
	c.active = data.ActiveAccount
	c.unlocked = true
	c.log.Info("Vault unlocked", "accounts", len(c.accounts))
	return nil
}

// Lock drops the session key and the in-memory account list. Idempotent.
// Locking does not touch the lockout counter.
func (c *Controller) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearSession()
	c.log.Info("Vault locked")
}

// ResetLockout unconditionally restores the full wrong-password budget. It
// does not require the password; exposure must be gated by the caller.
func (c *Controller) ResetLockout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remainingAttempts = c.maxAttempts
}

// ImportAccount adds a key pair under the given alias, makes it active and
// persists. The public key is derived from the private key. An alias
// collision wins over a key collision when both apply.
func (c *Controller) ImportAccount(alias string, privateKey []byte, alg keypair.Algorithm) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.unlocked {
		return ErrLocked
	}
	if alias == "" {
		return ErrInvalidName
	}
	for _, acc := range c.accounts {
		if acc.Alias == alias {
			return fmt.Errorf("%q: %w", alias, ErrDuplicateAlias)
		}
	}
	for _, acc := range c.accounts {
		if bytes.Equal(acc.PrivateKey, privateKey) {
			return fmt.Errorf("%q: %w", acc.Alias, ErrDuplicateKey)
		}
	}
	pub, err := keypair.PublicKeyFromPrivate(alg, privateKey)
	if err != nil {
		return err
	}
	c.accounts = append(c.accounts, &Account{
		Alias:      alias,
		PublicKey:  pub,
		PrivateKey: bytes.Clone(privateKey),
		Algorithm:  alg,
	})
	c.active = alias
	if err := c.persist(); err != nil {
		return err
	}
	c.log.Info("Account imported", "alias", alias, "algorithm", alg)
	return nil
}

// RemoveAccount deletes the account with the given alias. If it was active,
// the first remaining account becomes active, or none.
func (c *Controller) RemoveAccount(alias string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.unlocked {
		return ErrLocked
	}
	idx := c.indexOf(alias)
	if idx < 0 {
		return fmt.Errorf("account %q %w", alias, ErrAccountNotFound)
	}
	c.accounts = append(c.accounts[:idx], c.accounts[idx+1:]...)
	if c.active == alias {
		if len(c.accounts) > 0 {
			c.active = c.accounts[0].Alias
		} else {
			c.active = ""
		}
	}
	if err := c.persist(); err != nil {
		return err
	}
	c.log.Info("Account removed", "alias", alias)
	return nil
}

// RenameAccount changes an account's alias, keeping its position and active
// status.
func (c *Controller) RenameAccount(oldAlias, newAlias string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.unlocked {
		return ErrLocked
	}
	if newAlias == "" {
		return ErrInvalidName
	}
	idx := c.indexOf(oldAlias)
	if idx < 0 {
		return fmt.Errorf("account %q %w", oldAlias, ErrAccountNotFound)
	}
	if other := c.indexOf(newAlias); other >= 0 && other != idx {
		return fmt.Errorf("%q: %w", newAlias, ErrDuplicateAlias)
	}
	c.accounts[idx].Alias = newAlias
	if c.active == oldAlias {
		c.active = newAlias
	}
	if err := c.persist(); err != nil {
		return err
	}
	c.log.Info("Account renamed", "from", oldAlias, "to", newAlias)
	return nil
}

// ReorderAccount moves the account at fromIndex to toIndex with
// remove-then-insert semantics, preserving the relative order of the others.
func (c *Controller) ReorderAccount(fromIndex, toIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.unlocked {
		return ErrLocked
	}
	if fromIndex < 0 || fromIndex >= len(c.accounts) || toIndex < 0 || toIndex >= len(c.accounts) {
		return ErrInvalidIndex
	}
	if fromIndex == toIndex {
		return nil
	}
	moved := c.accounts[fromIndex]
	rest := append(c.accounts[:fromIndex], c.accounts[fromIndex+1:]...)
	c.accounts = append(rest[:toIndex], append([]*Account{moved}, rest[toIndex:]...)...)
	return c.persist()
}

// SwitchActiveAccount makes the named account active.
func (c *Controller) SwitchActiveAccount(alias string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.unlocked {
		return ErrLocked
	}
	if c.indexOf(alias) < 0 {
		return fmt.Errorf("account %q %w", alias, ErrAccountNotFound)
	}
	c.active = alias
	return c.persist()
}

// GetActiveAccount returns a copy of the active account.
func (c *Controller) GetActiveAccount() (Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.unlocked {
		return Account{}, ErrLocked
	}
	if c.active == "" {
		return Account{}, ErrNoActiveAccount
	}
	idx := c.indexOf(c.active)
	if idx < 0 {
		return Account{}, ErrNoActiveAccount
	}
	return c.accounts[idx].clone(), nil
}

// ActivePublicKeyHex returns the tagged public key hex of the active account.
func (c *Controller) ActivePublicKeyHex() (string, error) {
	acc, err := c.GetActiveAccount()
	if err != nil {
		return "", err
	}
	return acc.KeyHex(), nil
}

// Accounts returns a snapshot of the account list in display order. Private
// keys are omitted from the copies.
func (c *Controller) Accounts() []Account {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Account, 0, len(c.accounts))
	for _, acc := range c.accounts {
		out = append(out, Account{
			Alias:     acc.Alias,
			PublicKey: bytes.Clone(acc.PublicKey),
			Algorithm: acc.Algorithm,
		})
	}
	return out
}

// persist seals the full vault under the session key and replaces both
// persisted records. Callers hold c.mu. This is a full-record write; a crash
// leaves either the previous or the next vault state, never a mix of
// accounts.
func (c *Controller) persist() error {
	data := vaultData{ActiveAccount: c.active}
	for _, acc := range c.accounts {
		data.Accounts = append(data.Accounts, acc.clone())
	}
	ciphertext, err := crypto.Encrypt(c.derivedKey, &data)
	if err != nil {
		return err
	}
	if err := c.writeRecord(cipherStoreKey, ciphertext); err != nil {
		return fmt.Errorf("persisting vault: %w", err)
	}
	if err := c.writeRecord(saltStoreKey, c.salt); err != nil {
		return fmt.Errorf("persisting salt: %w", err)
	}
	return nil
}

func (c *Controller) writeRecord(key, value []byte) error {
	enc, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Put(key, enc)
}

func (c *Controller) readRecord(key []byte) ([]byte, error) {
	enc, err := c.store.Get(key)
	if err != nil {
		return nil, err
	}
	var value []byte
	if err := json.Unmarshal(enc, &value); err != nil {
		return nil, fmt.Errorf("corrupt vault record %q: %w", key, err)
	}
	return value, nil
}

func (c *Controller) indexOf(alias string) int {
	for i, acc := range c.accounts {
		if acc.Alias == alias {
			return i
		}
	}
	return -1
}

// clearSession zeroes the session secrets. Callers hold c.mu.
func (c *Controller) clearSession() {
	for i := range c.derivedKey {
		c.derivedKey[i] = 0
	}
	c.derivedKey = nil
	c.salt = nil
	c.accounts = nil
	c.active = ""
	c.unlocked = false
}
