// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// restaked runs the restaking delegation service: it initializes the
// state from a genesis configuration and serves the HTTP api.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/openrestake/restake/api"
	"github.com/openrestake/restake/eventdb"
	"github.com/openrestake/restake/genesis"
	"github.com/openrestake/restake/log"
	"github.com/openrestake/restake/lvldb"
	"github.com/openrestake/restake/metrics"
	"github.com/openrestake/restake/state"
)

var version = "1.0.0"

var logger = log.WithContext("pkg", "main")

func main() {
	app := cli.App{
		Version:   version,
		Name:      "restaked",
		Usage:     "restaking delegation service",
		Copyright: "2025 The OpenRestake developers",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			apiAddrFlag,
			apiCORSFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(ctx *cli.Context) {
	level := new(slog.LevelVar)
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))
	var handler slog.Handler
	if !ctx.Bool(jsonLogsFlag.Name) && isatty.IsTerminal(os.Stderr.Fd()) {
		handler = log.LogfmtHandlerWithLevel(os.Stderr, level)
	} else {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	}
	log.SetDefault(handler)
}

func run(ctx *cli.Context) error {
	initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	genesisPath := ctx.String(genesisFlag.Name)
	if genesisPath == "" {
		return errors.New("--genesis is required")
	}
	cfg, err := genesis.LoadConfig(genesisPath)
	if err != nil {
		return err
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	db, err := lvldb.New(filepath.Join(dataDir, "main.db"), lvldb.Options{})
	if err != nil {
		return errors.Wrap(err, "open state db")
	}
	defer db.Close()
	stater := state.NewStater(db)

	edb, err := eventdb.New(filepath.Join(dataDir, "events.db"))
	if err != nil {
		return errors.Wrap(err, "open event db")
	}
	defer edb.Close()

	if err := genesis.Init(stater.NewState(), cfg, edb); err != nil {
		if err != genesis.ErrAlreadyInitialized {
			return err
		}
		logger.Info("state already initialized", "chainId", cfg.ChainID)
	}

	var origins []string
	if raw := ctx.String(apiCORSFlag.Name); raw != "" {
		origins = strings.Split(raw, ",")
	}
	handler := api.New(stater, edb, cfg.ChainID, origins)

	listener, err := net.Listen("tcp", ctx.String(apiAddrFlag.Name))
	if err != nil {
		return errors.Wrap(err, "listen api addr")
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	logger.Info("api started", "addr", listener.Addr(), "version", version)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.Wrap(err, "api server")
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		return srv.Close()
	}
}
