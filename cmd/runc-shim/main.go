// Copyright (c) 2014,2015,2016 Docker, Inc.
// Copyright (c) 2017-2018 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/kata-containers/runc-shim/pkg/shim"
)

const name = "runc-shim"

var usage = fmt.Sprintf(`%s

%s launches and supervises a single OCI container via runc, exposing a
ttrpc lifecycle service over a per-container unix socket.`, name, name)

var shimLog = logrus.WithField("source", "runc-shim")

var runtimeFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "id",
		Usage: "container id this shim instance manages",
	},
	cli.StringFlag{
		Name:  "runtime",
		Value: "/usr/sbin/runc",
		Usage: "path to the OCI runtime binary to invoke",
	},
	cli.StringFlag{
		Name:   "socket-root",
		Value:  shim.DefaultSocketRoot,
		Usage:  "directory under which per-container control sockets are created",
		Hidden: true,
	},
}

// configureLogging sets the logrus level from SHIM_LOG ("debug", "info",
// "warn", "error"), defaulting to info, and routes every line to stderr so
// stdout stays reserved for the socket-address handshake line.
func configureLogging() {
	logrus.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(os.Getenv("SHIM_LOG"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func run(c *cli.Context) error {
	configureLogging()

	id := c.String("id")
	if id == "" {
		return cli.NewExitError("--id is required", 1)
	}

	b := &shim.Bootstrap{
		ID:      id,
		Runtime: c.String("runtime"),
		Root:    c.String("socket-root"),
	}

	ctx := context.Background()

	if c.Args().First() == "daemon" || shim.IsDaemon() {
		return b.Serve(ctx)
	}

	address, err := b.Launch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, address)
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = name
	app.Usage = usage
	app.Flags = runtimeFlags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		shimLog.Error(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
