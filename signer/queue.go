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

// Package signer implements the user-approval-gated signing queue. Sites
// enqueue deploy or message signing requests; a human approves or rejects
// them in the popup; the waiting caller is resolved exactly once through a
// per-request one-shot completion.
package signer

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/casper-ecosystem/signer/crypto/keypair"
	"github.com/casper-ecosystem/signer/deploy"
	"github.com/casper-ecosystem/signer/event"
	"github.com/casper-ecosystem/signer/log"
	"github.com/casper-ecosystem/signer/vault"
)

// Kind distinguishes the two request variants sharing the id space.
type Kind string

const (
	KindDeploy  Kind = "deploy"
	KindMessage Kind = "message"
)

// Status is the lifecycle state of a request. A request mutates exactly once
// from StatusUnsigned to StatusSigned or StatusFailed.
type Status string

const (
	StatusUnsigned Status = "unsigned"
	StatusSigned   Status = "signed"
	StatusFailed   Status = "failed"
)

// KeySource is the vault surface the queue signs through.
type KeySource interface {
	IsUnlocked() bool
	GetActiveAccount() (vault.Account, error)
}

// ConnectionGate is the connected-sites allow-list check applied before a
// request is enqueued.
type ConnectionGate interface {
	IsConnected(origin string) bool
}

// Request is one queued signing request. Exported fields are copies safe to
// hand to observers.
type Request struct {
	ID         uint32 `json:"id"`
	Kind       Kind   `json:"kind"`
	SigningKey string `json:"signingKey"`
	TargetKey  string `json:"targetKey,omitempty"`
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
}

// ChangeOp tags entries on the queue's change notification stream.
type ChangeOp string

const (
	OpAdded    ChangeOp = "added"
	OpResolved ChangeOp = "resolved"
)

// ChangeEvent is one entry on the change notification stream. Observers that
// prefer polling use Pending instead; there is no per-entry delivery
// bookkeeping.
type ChangeEvent struct {
	Op      ChangeOp
	Request Request
}

// outcome is what a resolution hands to the one-shot completion.
type outcome struct {
	status  Status
	payload []byte // signed deploy JSON or raw signature bytes
	errMsg  string
}

type entry struct {
	req       Request
	deploy    *deploy.Deploy
	message   []byte
	enqueueID string // active key hex at enqueue time, for the message drift check
	done      chan outcome
}

// Queue holds pending signing requests for both kinds. All methods are safe
// for concurrent use; blocking waits happen outside the queue lock.
type Queue struct {
	mu      sync.Mutex
	keys    KeySource
	gate    ConnectionGate
	popups  PopupCoordinator
	log     log.Logger
	nextID  uint32
	entries map[uint32]*entry
	feed    event.FeedOf[ChangeEvent]
}

// NewQueue wires a queue to its vault, allow-list and popup surface.
func NewQueue(keys KeySource, gate ConnectionGate, popups PopupCoordinator) *Queue {
	return &Queue{
		keys:    keys,
		gate:    gate,
		popups:  popups,
		log:     log.New("module", "signer"),
		entries: make(map[uint32]*entry),
	}
}

// EnqueueDeploy parses and queues a deploy signing request, returning its id
// immediately. A payload that fails to parse never enters the queue.
func (q *Queue) EnqueueDeploy(rawDeploy []byte, signingKey, targetKey string) (uint32, error) {
	e, err := q.newDeployEntry(rawDeploy, signingKey, targetKey)
	if err != nil {
		return 0, err
	}
	return q.add(e), nil
}

// EnqueueMessage queues a free-form message signing request.
func (q *Queue) EnqueueMessage(message []byte, signingKey string) uint32 {
	return q.add(q.newMessageEntry(message, signingKey))
}

func (q *Queue) newDeployEntry(rawDeploy []byte, signingKey, targetKey string) (*entry, error) {
	d, err := deploy.Parse(rawDeploy)
	if err != nil {
		return nil, err
	}
	return &entry{
		req:    Request{Kind: KindDeploy, SigningKey: signingKey, TargetKey: targetKey, Status: StatusUnsigned},
		deploy: d,
	}, nil
}

func (q *Queue) newMessageEntry(message []byte, signingKey string) *entry {
	return &entry{
		req:     Request{Kind: KindMessage, SigningKey: signingKey, Status: StatusUnsigned},
		message: message,
	}
}

func (q *Queue) add(e *entry) uint32 {
	if acc, err := q.keys.GetActiveAccount(); err == nil {
		e.enqueueID = acc.KeyHex()
	}
	e.done = make(chan outcome, 1)

	q.mu.Lock()
	// Ids wrap naturally at the uint32 bound; within one session they never
	// collide in practice.
	q.nextID++
	e.req.ID = q.nextID
	q.entries[e.req.ID] = e
	q.mu.Unlock()

	q.log.Debug("Signing request queued", "id", e.req.ID, "kind", e.req.Kind)
	q.feed.Send(ChangeEvent{Op: OpAdded, Request: e.req})
	return e.req.ID
}

// RequestSignature runs the full deploy flow: allow-list check, enqueue,
// popup, then a blocking wait on the one-shot completion. It resolves with
// the signed deploy JSON or the recorded failure.
func (q *Queue) RequestSignature(ctx context.Context, origin string, rawDeploy []byte, signingKey, targetKey string) ([]byte, error) {
	if !q.gate.IsConnected(origin) {
		return nil, ErrNotConnected
	}
	e, err := q.newDeployEntry(rawDeploy, signingKey, targetKey)
	if err != nil {
		return nil, err
	}
	id := q.add(e)
	q.popups.Open(PurposeSignDeploy, id)
	return q.await(ctx, e, "")
}

// SignMessage runs the free-form message flow. On top of the deploy path's
// checks, the active key at resolution time must still equal the active key
// at enqueue time; messages have no target-key cross-check, so drift is
// treated as fatal.
func (q *Queue) SignMessage(ctx context.Context, origin string, message []byte, signingKey string) (string, error) {
	if !q.gate.IsConnected(origin) {
		return "", ErrNotConnected
	}
	e := q.newMessageEntry(message, signingKey)
	id := q.add(e)
	q.popups.Open(PurposeSignMessage, id)
	sig, err := q.await(ctx, e, e.enqueueID)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// await blocks on the request's one-shot completion. A vault lock between
// enqueue and resolution takes precedence over the outcome itself.
func (q *Queue) await(ctx context.Context, e *entry, enqueueKey string) ([]byte, error) {
	var out outcome
	select {
	case out = <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if !q.keys.IsUnlocked() {
		return nil, ErrLockedDuringSigning
	}
	if enqueueKey != "" {
		if acc, err := q.keys.GetActiveAccount(); err != nil || acc.KeyHex() != enqueueKey {
			return nil, ErrActiveAccountChanged
		}
	}
	switch out.status {
	case StatusSigned:
		return out.payload, nil
	case StatusFailed:
		msg := out.errMsg
		if msg == "" {
			msg = userCancelledMsg
		}
		return nil, fmt.Errorf("%s", msg)
	default:
		return nil, errInternal
	}
}

// Approve resolves the request with the active key's signature. Preconditions
// that fail (no active account, missing payload, active key drifted from the
// key recorded at enqueue) are recorded on the entry as a failure rather than
// returned, so the waiting caller always settles. Only an unknown id is an
// error here.
func (q *Queue) Approve(id uint32) error {
	q.mu.Lock()
	e, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return ErrNotFound
	}
	delete(q.entries, id)
	q.mu.Unlock()

	out := q.produce(e)
	e.req.Status = out.status
	e.req.Error = out.errMsg
	e.done <- out
	q.closePopup(e.req.Kind)
	q.feed.Send(ChangeEvent{Op: OpResolved, Request: e.req})
	if out.status == StatusSigned {
		q.log.Info("Signing request approved", "id", id, "kind", e.req.Kind)
	} else {
		q.log.Warn("Signing request failed on approval", "id", id, "err", out.errMsg)
	}
	return nil
}

// produce computes the outcome of an approval attempt.
func (q *Queue) produce(e *entry) outcome {
	acc, err := q.keys.GetActiveAccount()
	if err != nil {
		return outcome{status: StatusFailed, errMsg: err.Error()}
	}
	if acc.KeyHex() != e.req.SigningKey {
		return outcome{status: StatusFailed, errMsg: ErrActiveAccountChanged.Error()}
	}
	switch e.req.Kind {
	case KindDeploy:
		if e.deploy == nil {
			return outcome{status: StatusFailed, errMsg: "deploy payload missing"}
		}
		if e.req.TargetKey != "" {
			if err := matchTarget(e.deploy, e.req.TargetKey); err != nil {
				return outcome{status: StatusFailed, errMsg: err.Error()}
			}
		}
		sig, err := acc.Sign(e.deploy.SignableBytes())
		if err != nil {
			return outcome{status: StatusFailed, errMsg: err.Error()}
		}
		e.deploy.AddApproval(e.req.SigningKey, taggedSignatureHex(acc, sig))
		signed, err := e.deploy.JSON()
		if err != nil {
			return outcome{status: StatusFailed, errMsg: err.Error()}
		}
		return outcome{status: StatusSigned, payload: signed}
	case KindMessage:
		if e.message == nil {
			return outcome{status: StatusFailed, errMsg: "message payload missing"}
		}
		sig, err := acc.Sign(e.message)
		if err != nil {
			return outcome{status: StatusFailed, errMsg: err.Error()}
		}
		return outcome{status: StatusSigned, payload: sig}
	default:
		return outcome{status: StatusFailed, errMsg: errInternal.Error()}
	}
}

// matchTarget cross-checks the site-supplied expected target key against the
// deploy's transfer target. The target argument carries either the tagged
// public key hex or the blake2b account hash of that key; deploys without a
// transfer target have nothing to compare against.
func matchTarget(d *deploy.Deploy, expectedKeyHex string) error {
	target, ok := d.TransferTarget()
	if !ok {
		return nil
	}
	alg, pub, err := keypair.ParsePublicKeyHex(expectedKeyHex)
	if err != nil {
		return fmt.Errorf("bad target key: %v", err)
	}
	target = strings.ToLower(strings.TrimPrefix(target, "account-hash-"))
	expected := strings.ToLower(strings.TrimPrefix(expectedKeyHex, "0x"))
	if target == expected || target == hex.EncodeToString(keypair.AccountHash(alg, pub)) {
		return nil
	}
	return ErrTargetMismatch
}

// taggedSignatureHex renders a signature in the tagged hex form used in
// deploy approvals: one algorithm byte followed by the signature bytes.
func taggedSignatureHex(acc vault.Account, sig []byte) string {
	return hex.EncodeToString(append([]byte{byte(acc.Algorithm)}, sig...))
}

// Reject resolves the request as cancelled by the user and removes it from
// the observable queue.
func (q *Queue) Reject(id uint32) error {
	q.mu.Lock()
	e, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return ErrNotFound
	}
	delete(q.entries, id)
	q.mu.Unlock()

	e.req.Status = StatusFailed
	e.req.Error = userCancelledMsg
	e.done <- outcome{status: StatusFailed, errMsg: userCancelledMsg}
	q.closePopup(e.req.Kind)
	q.feed.Send(ChangeEvent{Op: OpResolved, Request: e.req})
	q.log.Info("Signing request rejected", "id", id, "kind", e.req.Kind)
	return nil
}

func (q *Queue) closePopup(kind Kind) {
	if kind == KindMessage {
		q.popups.Close(PurposeSignMessage)
	} else {
		q.popups.Close(PurposeSignDeploy)
	}
}

// ParseDeployData renders the queued deploy for the approval popup.
func (q *Queue) ParseDeployData(id uint32) (deploy.DisplayableData, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok || e.req.Kind != KindDeploy {
		return deploy.DisplayableData{}, ErrNotFound
	}
	return e.deploy.Displayable(e.req.SigningKey), nil
}

// Message returns the queued message bytes for display.
func (q *Queue) Message(id uint32) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok || e.req.Kind != KindMessage {
		return nil, ErrNotFound
	}
	return e.message, nil
}

// Pending returns a snapshot of unresolved requests. This, together with
// SubscribeChanges, replaces any per-entry delivery flags: queue identity and
// delivery bookkeeping are the observer's problem.
func (q *Queue) Pending() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Request, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.req)
	}
	return out
}

// PendingCounts returns how many deploy and message requests are unresolved,
// for the badge collaborator.
func (q *Queue) PendingCounts() (deploys int, messages int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.req.Kind == KindDeploy {
			deploys++
		} else {
			messages++
		}
	}
	return deploys, messages
}

// SubscribeChanges registers a channel on the change notification stream.
// The channel should be buffered; sends block until accepted.
func (q *Queue) SubscribeChanges(ch chan<- ChangeEvent) event.Subscription {
	return q.feed.Subscribe(ch)
}
