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

package api

import (
	"context"
	"encoding/json"

	"github.com/casper-ecosystem/signer/tunnel"
)

// QueueStatus is the badge collaborator's view of the queue.
type QueueStatus struct {
	PendingDeploys      int  `json:"pendingDeploys"`
	PendingMessages     int  `json:"pendingMessages"`
	ConnectionRequested bool `json:"connectionRequested"`
}

func registerSign(t *tunnel.Tunnel, b *Backend) {
	t.Register("sign.signDeploy", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		deployJSON, err := arg[json.RawMessage](args, 0)
		if err != nil {
			return nil, err
		}
		signingKey, err := arg[string](args, 1)
		if err != nil {
			return nil, err
		}
		targetKey, err := optArg[string](args, 2)
		if err != nil {
			return nil, err
		}
		signed, err := b.Queue.RequestSignature(ctx, caller, deployJSON, signingKey, targetKey)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(signed), nil
	})

	t.Register("sign.signMessage", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		message, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		signingKey, err := arg[string](args, 1)
		if err != nil {
			return nil, err
		}
		return b.Queue.SignMessage(ctx, caller, []byte(message), signingKey)
	})

	t.Register("sign.approveSignDeploy", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		id, err := arg[uint32](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Queue.Approve(id)
	})

	t.Register("sign.rejectSignDeploy", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		id, err := arg[uint32](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Queue.Reject(id)
	})

	t.Register("sign.approveSigningMessage", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		id, err := arg[uint32](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Queue.Approve(id)
	})

	t.Register("sign.cancelSigningMessage", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		id, err := arg[uint32](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Queue.Reject(id)
	})

	t.Register("sign.parseDeployData", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		id, err := arg[uint32](args, 0)
		if err != nil {
			return nil, err
		}
		return b.Queue.ParseDeployData(id)
	})

	t.Register("sign.getSigningMessage", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		id, err := arg[uint32](args, 0)
		if err != nil {
			return nil, err
		}
		msg, err := b.Queue.Message(id)
		if err != nil {
			return nil, err
		}
		return string(msg), nil
	})

	t.Register("sign.getPending", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return b.Queue.Pending(), nil
	})

	t.Register("sign.getQueueStatus", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		deploys, messages := b.Queue.PendingCounts()
		return QueueStatus{
			PendingDeploys:      deploys,
			PendingMessages:     messages,
			ConnectionRequested: b.Connections.HasPendingRequest(),
		}, nil
	})
}
