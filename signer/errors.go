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

package signer

import "errors"

// Message texts cross the tunnel as strings; the UI and external callers
// match on them.
var (
	// ErrNotFound is returned for ids absent from the queue, including ids
	// that were already resolved. There is no re-resolution.
	ErrNotFound = errors.New("signing request not found")

	// ErrNotConnected fails a request from a site that is not on the
	// connected-sites allow-list.
	ErrNotConnected = errors.New("site is not connected to the signer")

	// ErrActiveAccountChanged is produced when the active key at resolution
	// time differs from the key recorded at enqueue time.
	ErrActiveAccountChanged = errors.New("Active key changed")

	// ErrTargetMismatch is recorded on a deploy approval when the transfer's
	// target argument corresponds to neither the expected target key the site
	// supplied nor its account hash.
	ErrTargetMismatch = errors.New("Target of deploy doesn't match the requested target key")

	// ErrLockedDuringSigning is returned to a waiting caller when the vault
	// locked between enqueue and resolution, regardless of how the request
	// was resolved.
	ErrLockedDuringSigning = errors.New("vault was locked during signing")

	// errInternal covers resolution outcomes that violate the queue's
	// Unsigned -> Signed|Failed lifecycle.
	errInternal = errors.New("internal signing queue error")
)

// userCancelledMsg is the default failure recorded by Reject.
const userCancelledMsg = "User Cancelled Signing"
