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

// signerd runs the background context of the signer as a standalone daemon.
// The popup UI and pages attach over websocket endpoints and speak the same
// envelope protocol the extension contexts use.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/casper-ecosystem/signer/connection"
	"github.com/casper-ecosystem/signer/event"
	"github.com/casper-ecosystem/signer/internal/api"
	"github.com/casper-ecosystem/signer/log"
	"github.com/casper-ecosystem/signer/signer"
	"github.com/casper-ecosystem/signer/storage"
	"github.com/casper-ecosystem/signer/storage/leveldb"
	"github.com/casper-ecosystem/signer/storage/memorydb"
	"github.com/casper-ecosystem/signer/tunnel"
	"github.com/casper-ecosystem/signer/vault"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the vault database",
	}
	wsAddrFlag = &cli.StringFlag{
		Name:  "ws.addr",
		Usage: "Websocket listening address for UI and page endpoints",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	memDBFlag = &cli.BoolFlag{
		Name:  "memdb",
		Usage: "Keep the vault in memory only (testing, nothing survives exit)",
	}
)

func main() {
	app := &cli.App{
		Name:    "signerd",
		Usage:   "casper signer background daemon",
		Version: api.Version,
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			wsAddrFlag,
			verbosityFlag,
			memDBFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelFromVerbosity(cfg.Verbosity), useColor)
	log.SetDefault(log.NewLogger(handler))

	var store storage.Store
	if cfg.MemDB {
		store = memorydb.New()
	} else {
		db, err := leveldb.New(filepath.Join(cfg.DataDir, "vault"), 16, 16, false)
		if err != nil {
			return fmt.Errorf("opening vault database: %w", err)
		}
		store = db
	}
	defer store.Close()

	backend := &api.Backend{
		Vault:       vault.NewController(store),
		Connections: connection.NewManager(),
	}
	popups := signer.NewCoordinator(logWindowOpener)
	backend.Popups = popups
	backend.Queue = signer.NewQueue(backend.Vault, backend.Connections, popups)

	var subs event.SubscriptionScope
	defer subs.Close()
	subs.Track(watchBadge(backend.Queue, backend.Connections, log.Root()))

	mux := http.NewServeMux()
	mux.HandleFunc("/ui", serveContext(backend, "popup", api.RegisterAll))
	mux.HandleFunc("/page", serveContext(backend, "page", api.RegisterPageFacing))

	srv := &http.Server{Addr: cfg.WSAddr, Handler: mux}
	go func() {
		log.Info("Websocket endpoints up", "addr", cfg.WSAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Crit("Websocket server failed", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutting down")
	return srv.Close()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gate that matters is the connected-sites allow-list applied per
	// origin inside the queue, not the websocket handshake.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveContext upgrades each connection into a Port and binds a background
// tunnel with the given peer name and method surface to it.
func serveContext(backend *api.Backend, peer string, register func(*tunnel.Tunnel, *api.Backend)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("Websocket upgrade failed", "peer", peer, "err", err)
			return
		}
		port := tunnel.NewWSPort(conn)
		t, err := tunnel.NewOverPort("background", peer, port)
		if err != nil {
			log.Error("Tunnel setup failed", "peer", peer, "err", err)
			port.Close()
			return
		}
		register(t, backend)
		log.Debug("Context attached", "peer", peer, "remote", r.RemoteAddr)
		<-port.Done()
		log.Debug("Context detached", "peer", peer, "remote", r.RemoteAddr)
	}
}

// watchBadge stands in for the extension's badge: it follows the queue's
// change stream and logs the pending counters after every transition.
func watchBadge(queue *signer.Queue, conns *connection.Manager, logger log.Logger) event.Subscription {
	ch := make(chan signer.ChangeEvent, 16)
	feedSub := queue.SubscribeChanges(ch)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer feedSub.Unsubscribe()
		for {
			select {
			case <-ch:
				deploys, messages := queue.PendingCounts()
				logger.Info("Pending requests changed", "deploys", deploys, "messages", messages, "connectionRequested", conns.HasPendingRequest())
			case <-quit:
				return nil
			}
		}
	})
}

// logWindowOpener stands in for the browser's window API. The daemon cannot
// raise a popup; surfacing the request in the log is the passive fallback.
func logWindowOpener(purpose signer.Purpose, requestID uint32) (signer.WindowHandle, error) {
	log.Info("User action required", "purpose", purpose, "id", requestID)
	return logWindow{}, nil
}

type logWindow struct{}

func (logWindow) Focus() error { return nil }
func (logWindow) Close() error { return nil }
