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

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFromVerbosity(t *testing.T) {
	cases := map[int]slog.Level{
		-1: LevelCrit,
		0:  LevelCrit,
		1:  LevelError,
		2:  LevelWarn,
		3:  LevelInfo,
		4:  LevelDebug,
		5:  LevelTrace,
		9:  LevelTrace,
	}
	for v, want := range cases {
		require.Equal(t, want, LevelFromVerbosity(v), "verbosity %d", v)
	}
}

func TestTerminalHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewTerminalHandler(&buf, false))
	l.Info("Vault unlocked", "accounts", 3, "alias", "my key")

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "INFO "), out)
	require.Contains(t, out, "Vault unlocked")
	require.Contains(t, out, "accounts=3")
	// Values containing spaces are quoted.
	require.Contains(t, out, `alias="my key"`)
	require.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminalHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewTerminalHandlerWithLevel(&buf, LevelWarn, false))

	require.False(t, l.Enabled(context.Background(), LevelInfo))
	require.True(t, l.Enabled(context.Background(), LevelError))

	l.Info("dropped")
	l.Warn("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}

func TestChildLoggerAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewTerminalHandler(&buf, false))
	child := l.New("module", "vault")
	child.Info("ready")

	require.Contains(t, buf.String(), "module=vault")
}

func TestOddArguments(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewTerminalHandler(&buf, false))
	l.Info("lonely", "key")

	require.Contains(t, buf.String(), errorKey)
}

func TestDiscardHandler(t *testing.T) {
	l := NewLogger(DiscardHandler())
	require.False(t, l.Enabled(context.Background(), LevelCrit))
	l.Error("nobody hears this")
}

func TestRootLoggerSwap(t *testing.T) {
	old := Root()
	defer SetDefault(old)

	var buf bytes.Buffer
	SetDefault(NewLogger(NewTerminalHandler(&buf, false)))
	Info("through the root", "k", "v")

	require.Contains(t, buf.String(), "through the root")
	require.Contains(t, buf.String(), "k=v")
}
