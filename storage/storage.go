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

// Package storage defines the persistent key-value store the vault writes
// through. The extension's browser.storage is modeled as the same interface so
// that the vault layer is oblivious to where records actually live.
package storage

import "errors"

// ErrNotFound is returned by Get when no value is stored under a key.
var ErrNotFound = errors.New("not found")

// Store is a flat key-value byte store. Implementations must be safe for
// concurrent use. There are no ordering or atomicity guarantees across keys;
// callers that need consistency across records must write full replacements
// under a single key.
type Store interface {
	// Has retrieves if a key is present in the store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the store, or
	// ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Put inserts the given value into the store, replacing any previous
	// value.
	Put(key []byte, value []byte) error

	// Delete removes the key from the store. Deleting a missing key is not
	// an error.
	Delete(key []byte) error

	// Close releases the underlying resources. Operations after Close fail.
	Close() error
}
