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

import (
	"sync"

	"github.com/casper-ecosystem/signer/log"
)

// Purpose tags what an open popup window is for.
type Purpose string

const (
	PurposeUnlock      Purpose = "unlock"
	PurposeSignDeploy  Purpose = "sign-deploy"
	PurposeSignMessage Purpose = "sign-message"
	PurposeConnect     Purpose = "connect"
)

// PopupCoordinator is the UI surface the queue depends on. Implementations
// must guarantee that a surface torn down without the user approving calls
// Reject on the pending request before disappearing; the queue has no other
// way to settle the waiting caller.
type PopupCoordinator interface {
	// Open surfaces the UI for the given purpose and request id. It must
	// not fail loudly; a surface that cannot open degrades to a passive
	// notification.
	Open(purpose Purpose, requestID uint32)

	// Close tears down the surface for the given purpose if it is the one
	// currently open.
	Close(purpose Purpose)
}

// WindowHandle is an open UI window owned by the coordinator.
type WindowHandle interface {
	Focus() error
	Close() error
}

// WindowOpener creates the actual window. Supplied by the embedding
// environment.
type WindowOpener func(purpose Purpose, requestID uint32) (WindowHandle, error)

// Coordinator holds at most one open window, tagged with its purpose. It
// replaces any implicit process-wide popup state with an explicit instance
// owned by the background root.
type Coordinator struct {
	mu      sync.Mutex
	opener  WindowOpener
	log     log.Logger
	current WindowHandle
	purpose Purpose
}

// NewCoordinator returns a coordinator with no open window.
func NewCoordinator(opener WindowOpener) *Coordinator {
	return &Coordinator{
		opener: opener,
		log:    log.New("module", "popup"),
	}
}

// Open opens a window for the purpose, or refocuses the existing one if it
// already serves that purpose. A window serving a different purpose is
// closed first. Failures fall back to a log entry; there is no caller
// awaiting this path.
func (c *Coordinator) Open(purpose Purpose, requestID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		if c.purpose == purpose {
			if err := c.current.Focus(); err != nil {
				c.log.Warn("Failed to refocus popup", "purpose", purpose, "err", err)
			}
			return
		}
		if err := c.current.Close(); err != nil {
			c.log.Warn("Failed to close stale popup", "purpose", c.purpose, "err", err)
		}
		c.current = nil
	}
	win, err := c.opener(purpose, requestID)
	if err != nil {
		c.log.Warn("Failed to open popup, request stays pending", "purpose", purpose, "id", requestID, "err", err)
		return
	}
	c.current = win
	c.purpose = purpose
}

// Close closes the open window if it serves the given purpose.
func (c *Coordinator) Close(purpose Purpose) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.purpose != purpose {
		return
	}
	if err := c.current.Close(); err != nil {
		c.log.Warn("Failed to close popup", "purpose", purpose, "err", err)
	}
	c.current = nil
}

// HasOpenWindow reports whether a window is currently open, and its purpose.
func (c *Coordinator) HasOpenWindow() (Purpose, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purpose, c.current != nil
}
