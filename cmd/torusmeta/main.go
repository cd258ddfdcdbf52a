// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Command torusmeta inspects Torus runtime metadata, derives storage keys,
// encodes calls, decodes events and pins runtime compatibility.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/breml/rootcerts"
	"github.com/torus-network/torus-client-go/internal/log"
	"github.com/urfave/cli"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "torusmeta"))

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(ctx, os.Stdout, os.Stderr)
	err := app.Run(os.Args)
	if err != nil {
		logger.Critical(err.Error())
		stop()
		os.Exit(1)
	}
}

func newApp(ctx context.Context, stdout, stderr io.Writer) *cli.App {
	e := &env{ctx: ctx}

	app := cli.NewApp()
	app.Name = "torusmeta"
	app.Usage = "Metadata driven tooling for the Torus chain"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = globalFlags
	app.Before = e.setup
	app.After = e.close
	app.Commands = e.commands()
	return app
}
