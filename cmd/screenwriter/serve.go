/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/backend"
	"goscreenwriter/internal/config"
	"goscreenwriter/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Runs the paginate, preview and export service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen `ADDRESS`, defaults to general.addr"},
			&cli.BoolFlag{Name: "no-store", Usage: "do not connect the Postgres script store even when a DSN is configured"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	cfg := env.cfg
	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.General.Addr
	}
	opts := server.Options{
		Addr:       addr,
		BatchSize:  cfg.Render.BatchSize,
		PreviewDPI: float64(cfg.Render.PreviewDPI),
		FontPath:   cfg.Render.FontPath,
		Debounce:   cfg.Render.Debounce(),
		Telemetry:  env.tel,
		Debug:      cmd.Root().Bool("debug"),
	}
	if env.dsn != "" && !cmd.Bool("no-store") {
		store, err := backend.Open(ctx, env.dsn, cfg.Backend.Timeout())
		if err != nil {
			return fmt.Errorf("connect script store: %w", err)
		}
		defer func() { _ = store.Close() }()
		opts.Store = store
		env.log.Info("script store connected")
	}
	return server.New(opts).ListenAndServe(ctx)
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Shows and stores configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Prints the effective configuration (YAML)",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "default", Usage: "print the built-in defaults instead"}},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					env := envFromContext(ctx)
					cfg := env.cfg
					if cmd.Bool("default") {
						cfg = config.Defaults()
					}
					data, err := config.Dump(cfg)
					if err != nil {
						return err
					}
					path, _ := config.ConfigPath()
					out := stdout(cmd)
					fmt.Fprintf(out, "# %s\n", path)
					if env.dsn != "" {
						fmt.Fprintln(out, "# backend DSN: set")
					}
					_, err = out.Write(data)
					return err
				},
			},
			{
				Name:  "save",
				Usage: "Writes the effective configuration to the user config file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := config.Save(envFromContext(ctx).cfg, ""); err != nil {
						return err
					}
					path, _ := config.ConfigPath()
					fmt.Fprintln(stdout(cmd), "saved", path)
					return nil
				},
			},
			{
				Name:      "set-dsn",
				Usage:     "Stores the Postgres DSN in the OS keychain",
				ArgsUsage: "DSN",
				Action: func(_ context.Context, cmd *cli.Command) error {
					dsn := cmd.Args().First()
					if dsn == "" {
						return errors.New("set-dsn: DSN is required")
					}
					return config.SaveDSN(dsn)
				},
			},
			{
				Name:  "clear-dsn",
				Usage: "Removes the Postgres DSN from the OS keychain",
				Action: func(_ context.Context, _ *cli.Command) error {
					return config.DeleteDSN()
				},
			},
		},
	}
}
