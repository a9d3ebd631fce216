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

package vault

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casper-ecosystem/signer/crypto"
	"github.com/casper-ecosystem/signer/crypto/keypair"
	"github.com/casper-ecosystem/signer/storage/memorydb"
)

const testPassword = "correct horse battery staple"

func newSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	return seed
}

func newUnlockedVault(t *testing.T) *Controller {
	t.Helper()
	c := NewController(memorydb.New())
	require.NoError(t, c.CreateVault(testPassword))
	return c
}

func aliases(c *Controller) []string {
	var out []string
	for _, acc := range c.Accounts() {
		out = append(out, acc.Alias)
	}
	return out
}

func TestCreateVault(t *testing.T) {
	store := memorydb.New()
	c := NewController(store)

	exists, err := c.Exists()
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, c.CreateVault(testPassword))
	require.True(t, c.IsUnlocked())

	exists, err = c.Exists()
	require.NoError(t, err)
	require.True(t, exists)

	require.ErrorIs(t, c.CreateVault(testPassword), ErrAlreadyExists)
}

func TestUnlockWithoutVault(t *testing.T) {
	c := NewController(memorydb.New())
	require.ErrorIs(t, c.Unlock(testPassword), ErrNoVault)
}

func TestLockUnlockRoundTrip(t *testing.T) {
	store := memorydb.New()
	c := NewController(store)
	require.NoError(t, c.CreateVault(testPassword))
	require.NoError(t, c.ImportAccount("first", newSeed(t), keypair.Ed25519))
	require.NoError(t, c.ImportAccount("second", newSeed(t), keypair.Ed25519))
	require.NoError(t, c.SwitchActiveAccount("first"))

	c.Lock()
	require.False(t, c.IsUnlocked())
	_, err := c.GetActiveAccount()
	require.ErrorIs(t, err, ErrLocked)

	// A fresh controller over the same store sees the persisted state.
	c2 := NewController(store)
	require.NoError(t, c2.Unlock(testPassword))
	require.Equal(t, []string{"first", "second"}, aliases(c2))
	acc, err := c2.GetActiveAccount()
	require.NoError(t, err)
	require.Equal(t, "first", acc.Alias)
}

func TestUnlockWrongPassword(t *testing.T) {
	store := memorydb.New()
	c := NewController(store)
	require.NoError(t, c.CreateVault(testPassword))
	c.Lock()

	cipherBefore, err := store.Get(cipherStoreKey)
	require.NoError(t, err)
	saltBefore, err := store.Get(saltStoreKey)
	require.NoError(t, err)

	require.ErrorIs(t, c.Unlock("nope"), crypto.ErrIncorrectPassword)
	require.Equal(t, DefaultUnlockAttempts-1, c.RemainingAttempts())

	// A failed unlock never touches the persisted records.
	cipherAfter, err := store.Get(cipherStoreKey)
	require.NoError(t, err)
	require.Equal(t, cipherBefore, cipherAfter)
	saltAfter, err := store.Get(saltStoreKey)
	require.NoError(t, err)
	require.Equal(t, saltBefore, saltAfter)

	// A successful unlock restores the full budget.
	require.NoError(t, c.Unlock(testPassword))
	require.Equal(t, DefaultUnlockAttempts, c.RemainingAttempts())
}

func TestLockout(t *testing.T) {
	c := newUnlockedVault(t)
	c.Lock()

	for i := 0; i < DefaultUnlockAttempts-1; i++ {
		require.ErrorIs(t, c.Unlock("nope"), crypto.ErrIncorrectPassword)
	}
	// The attempt that exhausts the budget reports the lockout itself.
	err := c.Unlock("nope")
	require.ErrorIs(t, err, ErrLockedOut)
	require.Equal(t, "Locked out please wait", err.Error())
	require.True(t, c.IsLockedOut())

	// Even the correct password is not evaluated while locked out.
	require.ErrorIs(t, c.Unlock(testPassword), ErrLockedOut)

	c.ResetLockout()
	require.False(t, c.IsLockedOut())
	require.NoError(t, c.Unlock(testPassword))
}

func TestImportDuplicateAlias(t *testing.T) {
	c := newUnlockedVault(t)
	require.NoError(t, c.ImportAccount("main", newSeed(t), keypair.Ed25519))

	err := c.ImportAccount("main", newSeed(t), keypair.Ed25519)
	require.ErrorIs(t, err, ErrDuplicateAlias)
	require.Contains(t, err.Error(), "same name")
}

func TestImportDuplicateKey(t *testing.T) {
	c := newUnlockedVault(t)
	seed := newSeed(t)
	require.NoError(t, c.ImportAccount("main", seed, keypair.Ed25519))

	err := c.ImportAccount("other", seed, keypair.Ed25519)
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.Contains(t, err.Error(), "same secret key")

	// When both collide the alias check wins.
	err = c.ImportAccount("main", seed, keypair.Ed25519)
	require.ErrorIs(t, err, ErrDuplicateAlias)
}

func TestImportMakesActive(t *testing.T) {
	c := newUnlockedVault(t)
	_, err := c.GetActiveAccount()
	require.ErrorIs(t, err, ErrNoActiveAccount)

	require.NoError(t, c.ImportAccount("first", newSeed(t), keypair.Ed25519))
	require.NoError(t, c.ImportAccount("second", newSeed(t), keypair.Ed25519))

	acc, err := c.GetActiveAccount()
	require.NoError(t, err)
	require.Equal(t, "second", acc.Alias)
}

func TestImportSecp256k1(t *testing.T) {
	c := newUnlockedVault(t)
	priv := make([]byte, 32)
	_, err := rand.Read(priv)
	require.NoError(t, err)

	require.NoError(t, c.ImportAccount("secp", priv, keypair.Secp256k1))
	acc, err := c.GetActiveAccount()
	require.NoError(t, err)
	require.Equal(t, keypair.Secp256k1, acc.Algorithm)
	require.Len(t, acc.PublicKey, 33)

	sig, err := acc.Sign([]byte("payload"))
	require.NoError(t, err)
	require.True(t, keypair.Verify(keypair.Secp256k1, acc.PublicKey, []byte("payload"), sig))
}

func TestRemoveAccount(t *testing.T) {
	c := newUnlockedVault(t)
	require.NoError(t, c.ImportAccount("first", newSeed(t), keypair.Ed25519))
	require.NoError(t, c.ImportAccount("second", newSeed(t), keypair.Ed25519))

	// Removing the active account falls back to the first remaining one.
	require.NoError(t, c.RemoveAccount("second"))
	acc, err := c.GetActiveAccount()
	require.NoError(t, err)
	require.Equal(t, "first", acc.Alias)

	require.NoError(t, c.RemoveAccount("first"))
	_, err = c.GetActiveAccount()
	require.ErrorIs(t, err, ErrNoActiveAccount)

	err = c.RemoveAccount("ghost")
	require.ErrorIs(t, err, ErrAccountNotFound)
	require.Contains(t, err.Error(), "doesn't exist")
}

func TestRenameAccount(t *testing.T) {
	c := newUnlockedVault(t)
	require.NoError(t, c.ImportAccount("first", newSeed(t), keypair.Ed25519))
	require.NoError(t, c.ImportAccount("second", newSeed(t), keypair.Ed25519))
	require.NoError(t, c.SwitchActiveAccount("first"))

	require.NoError(t, c.RenameAccount("first", "primary"))
	require.Equal(t, []string{"primary", "second"}, aliases(c))
	acc, err := c.GetActiveAccount()
	require.NoError(t, err)
	require.Equal(t, "primary", acc.Alias)

	require.ErrorIs(t, c.RenameAccount("second", "primary"), ErrDuplicateAlias)
	require.ErrorIs(t, c.RenameAccount("second", ""), ErrInvalidName)
	require.ErrorIs(t, c.RenameAccount("ghost", "new"), ErrAccountNotFound)

	// Renaming to the same alias is a no-op, not a collision.
	require.NoError(t, c.RenameAccount("second", "second"))
}

func TestReorderAccount(t *testing.T) {
	store := memorydb.New()
	c := NewController(store)
	require.NoError(t, c.CreateVault(testPassword))
	for _, alias := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, c.ImportAccount(alias, newSeed(t), keypair.Ed25519))
	}

	// Remove-then-insert semantics: c comes out, lands at index 4.
	require.NoError(t, c.ReorderAccount(2, 4))
	require.Equal(t, []string{"a", "b", "d", "e", "c"}, aliases(c))

	// Moving an entry onto its own index changes nothing.
	require.NoError(t, c.ReorderAccount(2, 2))
	require.Equal(t, []string{"a", "b", "d", "e", "c"}, aliases(c))

	require.NoError(t, c.ReorderAccount(4, 0))
	require.Equal(t, []string{"c", "a", "b", "d", "e"}, aliases(c))

	// Out-of-range indices leave the list untouched.
	require.ErrorIs(t, c.ReorderAccount(0, 5), ErrInvalidIndex)
	require.ErrorIs(t, c.ReorderAccount(-1, 0), ErrInvalidIndex)
	require.Equal(t, []string{"c", "a", "b", "d", "e"}, aliases(c))

	// Order survives persistence.
	c.Lock()
	c2 := NewController(store)
	require.NoError(t, c2.Unlock(testPassword))
	require.Equal(t, []string{"c", "a", "b", "d", "e"}, aliases(c2))
}

func TestSwitchActiveAccount(t *testing.T) {
	c := newUnlockedVault(t)
	require.NoError(t, c.ImportAccount("first", newSeed(t), keypair.Ed25519))
	require.NoError(t, c.ImportAccount("second", newSeed(t), keypair.Ed25519))

	require.NoError(t, c.SwitchActiveAccount("first"))
	key, err := c.ActivePublicKeyHex()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	err = c.SwitchActiveAccount("ghost")
	require.ErrorIs(t, err, ErrAccountNotFound)

	// The failed switch leaves the active account alone.
	acc, err := c.GetActiveAccount()
	require.NoError(t, err)
	require.Equal(t, "first", acc.Alias)
}

func TestLockedOperations(t *testing.T) {
	c := newUnlockedVault(t)
	require.NoError(t, c.ImportAccount("first", newSeed(t), keypair.Ed25519))
	c.Lock()

	require.ErrorIs(t, c.ImportAccount("x", newSeed(t), keypair.Ed25519), ErrLocked)
	require.ErrorIs(t, c.RemoveAccount("first"), ErrLocked)
	require.ErrorIs(t, c.RenameAccount("first", "x"), ErrLocked)
	require.ErrorIs(t, c.ReorderAccount(0, 0), ErrLocked)
	require.ErrorIs(t, c.SwitchActiveAccount("first"), ErrLocked)
}

func TestAccountsOmitPrivateKeys(t *testing.T) {
	c := newUnlockedVault(t)
	require.NoError(t, c.ImportAccount("first", newSeed(t), keypair.Ed25519))

	for _, acc := range c.Accounts() {
		require.Nil(t, acc.PrivateKey)
		require.NotEmpty(t, acc.PublicKey)
	}
}
