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

package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// background returns a tunnel pair: the popup end to call on and the
// background end with an echo method registered.
func popupBackgroundPair(t *testing.T) (*Tunnel, *Tunnel) {
	t.Helper()
	popupPort, backgroundPort := Pipe()
	popup, err := NewOverPort("popup", "background", popupPort)
	require.NoError(t, err)
	background, err := NewOverPort("background", "popup", backgroundPort)
	require.NoError(t, err)
	return popup, background
}

func TestCallRoundTrip(t *testing.T) {
	popup, background := popupBackgroundPair(t)
	background.Register("echo", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		var s string
		if err := json.Unmarshal(args[0], &s); err != nil {
			return nil, err
		}
		return "echo: " + s, nil
	})

	var got string
	require.NoError(t, popup.Call(testContext(t), &got, "echo", "hello"))
	require.Equal(t, "echo: hello", got)
}

func TestCallDiscardsResult(t *testing.T) {
	popup, background := popupBackgroundPair(t)
	background.Register("noop", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return map[string]int{"ignored": 1}, nil
	})
	require.NoError(t, popup.Call(testContext(t), nil, "noop"))
}

func TestErrorFlattening(t *testing.T) {
	popup, background := popupBackgroundPair(t)
	background.Register("fail", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return nil, errors.New("Incorrect password")
	})

	err := popup.Call(testContext(t), nil, "fail")
	require.Error(t, err)
	// The concrete error type is lost crossing the boundary; the message
	// survives verbatim.
	require.Equal(t, "Incorrect password", err.Error())
}

func TestUnregisteredMethod(t *testing.T) {
	popup, _ := popupBackgroundPair(t)

	err := popup.Call(testContext(t), nil, "nonsense")
	require.Error(t, err)
	require.Equal(t, "Unregistered method call: nonsense", err.Error())
}

func TestLastRegistrationWins(t *testing.T) {
	popup, background := popupBackgroundPair(t)
	background.Register("greet", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return "first", nil
	})
	background.Register("greet", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return "second", nil
	})

	var got string
	require.NoError(t, popup.Call(testContext(t), &got, "greet"))
	require.Equal(t, "second", got)
}

func TestOriginReachesHandler(t *testing.T) {
	pagePort, backgroundPort := Pipe()
	page, err := NewOverPort("page", "background", pagePort, WithOrigin("cspr.live"))
	require.NoError(t, err)
	background, err := NewOverPort("background", "page", backgroundPort)
	require.NoError(t, err)

	background.Register("whoami", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return caller, nil
	})

	var got string
	require.NoError(t, page.Call(testContext(t), &got, "whoami"))
	require.Equal(t, "cspr.live", got)
}

func TestCallerFallsBackToSource(t *testing.T) {
	popup, background := popupBackgroundPair(t)
	background.Register("whoami", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return caller, nil
	})

	var got string
	require.NoError(t, popup.Call(testContext(t), &got, "whoami"))
	require.Equal(t, "popup", got)
}

func TestMisconfiguredTransport(t *testing.T) {
	_, err := New("a", "b", nil, nil)
	require.ErrorIs(t, err, ErrTransportMisconfigured)

	_, err = NewOverPort("a", "b", nil)
	require.ErrorIs(t, err, ErrTransportMisconfigured)
}

func TestCallWithoutSender(t *testing.T) {
	port, _ := Pipe()
	receiveOnly, err := New("popup", "background", nil, port)
	require.NoError(t, err)

	err = receiveOnly.Call(testContext(t), nil, "anything")
	require.ErrorIs(t, err, errNoSender)
}

func TestConcurrentCalls(t *testing.T) {
	popup, background := popupBackgroundPair(t)
	background.Register("double", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		var n int
		if err := json.Unmarshal(args[0], &n); err != nil {
			return nil, err
		}
		return n * 2, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var got int
			require.NoError(t, popup.Call(testContext(t), &got, "double", n))
			require.Equal(t, n*2, got)
		}(i)
	}
	wg.Wait()
}

func TestCallContextCancelled(t *testing.T) {
	popup, background := popupBackgroundPair(t)
	background.Register("hang", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		select {} // never replies
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := popup.Call(ctx, nil, "hang")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRelayHop(t *testing.T) {
	// page tunnel <-> pagePipe <-> relay <-> backgroundPipe <-> background
	pageEnd, relayPageEnd := Pipe()
	relayBackgroundEnd, backgroundEnd := Pipe()
	_, err := NewRelay(relayPageEnd, relayBackgroundEnd)
	require.NoError(t, err)

	page, err := NewOverPort("page", "background", pageEnd, WithOrigin("cspr.live"))
	require.NoError(t, err)
	background, err := NewOverPort("background", "page", backgroundEnd)
	require.NoError(t, err)

	background.Register("echo", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		var s string
		if err := json.Unmarshal(args[0], &s); err != nil {
			return nil, err
		}
		return fmt.Sprintf("%s said %s", caller, s), nil
	})

	var got string
	require.NoError(t, page.Call(testContext(t), &got, "echo", "hi"))
	require.Equal(t, "cspr.live said hi", got)

	// Errors cross both hops flattened.
	background.Register("fail", func(ctx context.Context, caller string, args []json.RawMessage) (interface{}, error) {
		return nil, errors.New("User Cancelled Signing")
	})
	err = page.Call(testContext(t), nil, "fail")
	require.Error(t, err)
	require.Equal(t, "User Cancelled Signing", err.Error())
}

func TestRelayRequiresBothPorts(t *testing.T) {
	port, _ := Pipe()
	_, err := NewRelay(nil, port)
	require.ErrorIs(t, err, ErrTransportMisconfigured)
	_, err = NewRelay(port, nil)
	require.ErrorIs(t, err, ErrTransportMisconfigured)
}
