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
	"encoding/base64"
	"encoding/json"

	"github.com/casper-ecosystem/signer/crypto/keypair"
	"github.com/casper-ecosystem/signer/tunnel"
)

// AccountInfo is the externally visible shape of an account. Private keys
// never cross the tunnel.
type AccountInfo struct {
	Alias     string `json:"alias"`
	KeyHex    string `json:"keyHex"`
	Algorithm string `json:"algorithm"`
}

// VaultState is the unlock screen's one-call summary.
type VaultState struct {
	HasVault          bool `json:"hasVault"`
	IsUnlocked        bool `json:"isUnlocked"`
	IsLockedOut       bool `json:"isLockedOut"`
	RemainingAttempts int  `json:"remainingAttempts"`
}

func registerAccount(t *tunnel.Tunnel, b *Backend) {
	t.Register("account.createNewVault", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		password, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Vault.CreateVault(password)
	})

	t.Register("account.unlock", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		password, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Vault.Unlock(password)
	})

	t.Register("account.lock", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		b.Vault.Lock()
		return nil, nil
	})

	t.Register("account.resetLockout", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		b.Vault.ResetLockout()
		return nil, nil
	})

	t.Register("account.importUserAccount", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		alias, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		keyB64, err := arg[string](args, 1)
		if err != nil {
			return nil, err
		}
		algName, err := arg[string](args, 2)
		if err != nil {
			return nil, err
		}
		privateKey, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, err
		}
		alg, err := keypair.ParseAlgorithm(algName)
		if err != nil {
			return nil, err
		}
		return nil, b.Vault.ImportAccount(alias, privateKey, alg)
	})

	t.Register("account.removeUserAccount", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		alias, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Vault.RemoveAccount(alias)
	})

	t.Register("account.renameUserAccount", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		oldAlias, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		newAlias, err := arg[string](args, 1)
		if err != nil {
			return nil, err
		}
		return nil, b.Vault.RenameAccount(oldAlias, newAlias)
	})

	t.Register("account.reorderAccount", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		from, err := arg[int](args, 0)
		if err != nil {
			return nil, err
		}
		to, err := arg[int](args, 1)
		if err != nil {
			return nil, err
		}
		return nil, b.Vault.ReorderAccount(from, to)
	})

	t.Register("account.switchToAccount", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		alias, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, b.Vault.SwitchActiveAccount(alias)
	})

	t.Register("account.getActiveUserAccount", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		acc, err := b.Vault.GetActiveAccount()
		if err != nil {
			return nil, err
		}
		return AccountInfo{Alias: acc.Alias, KeyHex: acc.KeyHex(), Algorithm: acc.Algorithm.String()}, nil
	})

	t.Register("account.getActivePublicKeyHex", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return b.Vault.ActivePublicKeyHex()
	})

	t.Register("account.getAccounts", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		accounts := b.Vault.Accounts()
		out := make([]AccountInfo, 0, len(accounts))
		for _, acc := range accounts {
			out = append(out, AccountInfo{Alias: acc.Alias, KeyHex: acc.KeyHex(), Algorithm: acc.Algorithm.String()})
		}
		return out, nil
	})

	t.Register("account.getVaultState", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		hasVault, err := b.Vault.Exists()
		if err != nil {
			return nil, err
		}
		return VaultState{
			HasVault:          hasVault,
			IsUnlocked:        b.Vault.IsUnlocked(),
			IsLockedOut:       b.Vault.IsLockedOut(),
			RemainingAttempts: b.Vault.RemainingAttempts(),
		}, nil
	})
}
