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

import "errors"

// The message texts are part of the external contract: they cross the RPC
// tunnel as plain strings and the UI and tests match on them.
var (
	// ErrAlreadyExists is returned when creating a vault while a vault
	// record is already persisted.
	ErrAlreadyExists = errors.New("vault already exists")

	// ErrNoVault is returned when unlocking before any vault was created.
	ErrNoVault = errors.New("vault does not exist")

	// ErrLocked is returned when an operation requires an unlocked vault.
	ErrLocked = errors.New("vault is locked")

	// ErrLockedOut is returned once the wrong-password budget is exhausted.
	// Further unlock attempts are not evaluated until ResetLockout.
	ErrLockedOut = errors.New("Locked out please wait")

	// ErrNoActiveAccount is returned when no account is selected.
	ErrNoActiveAccount = errors.New("no active account")

	// ErrDuplicateAlias is wrapped with the offending alias on import and
	// rename collisions.
	ErrDuplicateAlias = errors.New("account with the same name already exists")

	// ErrDuplicateKey is wrapped with the offending alias when an imported
	// private key is already present under another account.
	ErrDuplicateKey = errors.New("account with the same secret key already exists")

	// ErrAccountNotFound is wrapped with the missing alias.
	ErrAccountNotFound = errors.New("doesn't exist")

	// ErrInvalidName is returned when renaming to an empty alias.
	ErrInvalidName = errors.New("account name cannot be empty")

	// ErrInvalidIndex is returned by reorder when an index falls outside the
	// account list.
	ErrInvalidIndex = errors.New("account index out of range")
)
