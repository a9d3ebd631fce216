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

package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casper-ecosystem/signer/connection"
	"github.com/casper-ecosystem/signer/event"
	"github.com/casper-ecosystem/signer/log"
	"github.com/casper-ecosystem/signer/signer"
	"github.com/casper-ecosystem/signer/storage/memorydb"
	"github.com/casper-ecosystem/signer/vault"
)

// syncBuffer collects handler output written from the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchBadge(t *testing.T) {
	out := new(syncBuffer)
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(out, log.LevelFromVerbosity(3), false))

	v := vault.NewController(memorydb.New())
	require.NoError(t, v.CreateVault("badge test"))
	conns := connection.NewManager()
	queue := signer.NewQueue(v, conns, signer.NewCoordinator(logWindowOpener))

	var subs event.SubscriptionScope
	subs.Track(watchBadge(queue, conns, logger))
	require.Equal(t, 1, subs.Count())

	queue.EnqueueMessage([]byte("hello"), "01aabb")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "messages=1")
	}, time.Second, 10*time.Millisecond)

	// Closing the scope tears the watcher down.
	subs.Close()
	require.Zero(t, subs.Count())
}
