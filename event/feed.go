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

package event

import "sync"

// FeedOf implements one-to-many event subscriptions where the carrier of
// events is a channel. Values sent to the feed are delivered to all
// subscribed channels.
//
// The zero value is ready to use.
type FeedOf[T any] struct {
	mu   sync.Mutex
	subs map[*feedSub[T]]struct{}
}

type feedSub[T any] struct {
	feed    *FeedOf[T]
	channel chan<- T
	errOnce sync.Once
	err     chan error
}

// Subscribe adds a channel to the feed. Future sends will be delivered on the
// channel until the subscription is canceled. Sends to the feed block until
// every subscribed channel has accepted the value, so subscribers must drain
// their channel promptly.
func (f *FeedOf[T]) Subscribe(channel chan<- T) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[*feedSub[T]]struct{})
	}
	sub := &feedSub[T]{feed: f, channel: channel, err: make(chan error, 1)}
	f.subs[sub] = struct{}{}
	return sub
}

// Send delivers to all subscribed channels simultaneously and returns the
// number of subscribers the value was delivered to.
func (f *FeedOf[T]) Send(value T) int {
	f.mu.Lock()
	targets := make([]chan<- T, 0, len(f.subs))
	for sub := range f.subs {
		targets = append(targets, sub.channel)
	}
	f.mu.Unlock()

	for _, ch := range targets {
		ch <- value
	}
	return len(targets)
}

func (sub *feedSub[T]) Unsubscribe() {
	sub.errOnce.Do(func() {
		sub.feed.mu.Lock()
		delete(sub.feed.subs, sub)
		sub.feed.mu.Unlock()
		close(sub.err)
	})
}

func (sub *feedSub[T]) Err() <-chan error {
	return sub.err
}
