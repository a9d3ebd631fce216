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

package memorydb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casper-ecosystem/signer/storage"
)

func TestPutGetDelete(t *testing.T) {
	db := New()
	key, value := []byte("vault"), []byte("ciphertext")

	has, err := db.Has(key)
	require.NoError(t, err)
	require.False(t, has)

	_, err = db.Get(key)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, db.Put(key, value))
	has, err = db.Has(key)
	require.NoError(t, err)
	require.True(t, has)

	got, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
	require.Equal(t, 1, db.Len())

	require.NoError(t, db.Delete(key))
	_, err = db.Get(key)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Equal(t, 0, db.Len())
}

func TestValueIsolation(t *testing.T) {
	db := New()
	value := []byte{1, 2, 3}
	require.NoError(t, db.Put([]byte("k"), value))

	// Mutating the caller's slice must not reach the stored copy.
	value[0] = 9
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	// Nor must mutating a returned slice.
	got[1] = 9
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, again)
}

func TestOverwrite(t *testing.T) {
	db := New()
	require.NoError(t, db.Put([]byte("k"), []byte("old")))
	require.NoError(t, db.Put([]byte("k"), []byte("new")))

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got)
}

func TestClosedAccess(t *testing.T) {
	db := New()
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	_, err := db.Get([]byte("k"))
	require.Error(t, err)
	_, err = db.Has([]byte("k"))
	require.Error(t, err)
	require.Error(t, db.Put([]byte("k"), []byte("v")))
	require.Error(t, db.Delete([]byte("k")))
}
