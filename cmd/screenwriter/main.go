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
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/crash"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/telemetry"
	"goscreenwriter/internal/version"
)

const appName = "screenwriter"

// initializeAppContext runs after the command line is parsed: it loads
// .env and the user config, then sets up logging and telemetry.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}
	env := envFromContext(ctx)
	env.start = time.Now()

	if err := config.LoadDotEnv(); err != nil {
		return ctx, fmt.Errorf("unable to load .env: %w", err)
	}
	if f := cmd.String("config"); f != "" {
		if err := os.Setenv(config.EnvConfigFile, f); err != nil {
			return ctx, err
		}
	}
	cfg, dsn, err := config.Load()
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	env.cfg, env.dsn = cfg, dsn

	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Output:    stderr(cmd),
	}
	if cmd.Bool("debug") {
		opts.Level = "debug"
	}
	if f := cmd.String("log-file"); f != "" {
		opts.File = f
	}
	applog.Init(opts)
	env.log = applog.WithComponent("cli")

	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)
	env.tel = telemetry.Default()

	env.log.Debug("program started", "args", os.Args, "runtime", runtime.Version())
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	if env.log != nil {
		env.log.Debug("program ended", "elapsed", time.Since(env.start), "args", cmd.Args().Slice())
	}
	if env.tel != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		env.tel.Flush(flushCtx)
		env.tel.Close()
	}
	return nil
}

// errWasHandled is set once an error has been logged so main does not
// print it a second time.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	if env := envFromContext(ctx); env.log != nil {
		env.log.Error("program ended with error", "err", err)
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func commandNotFound(_ context.Context, cmd *cli.Command, name string) {
	fmt.Fprintf(stderr(cmd), "unknown command %q, see --help\n", name)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            appName,
		Usage:           "screenplay pagination, preview and export",
		Version:         version.String() + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: commandNotFound,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level"},
			&cli.StringFlag{Name: "log-file", Usage: "also write a rotated JSON log to `FILE`"},
		},
		Commands: []*cli.Command{
			versionCommand(),
			initCommand(),
			importCommand(),
			validateCommand(),
			paginateCommand(),
			scenesCommand(),
			searchCommand(),
			speakersCommand(),
			exportCommand(),
			batchCommand(),
			snapshotCommand(),
			serveCommand(),
			configCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Prints the program version",
		Action: func(_ context.Context, cmd *cli.Command) error {
			fmt.Fprintln(stdout(cmd), "Go Screenwriter", version.String())
			return nil
		},
	}
}

func main() {
	env := &appEnv{start: time.Now()}
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background(), env), os.Interrupt, syscall.SIGTERM)

	var err error
	// os.Exit runs last: no deferred function may follow it
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			}
			os.Exit(1)
		}
	}()
	defer crash.RecoverCommand(strings.Join(os.Args[1:], " "), env.project)

	err = newApp().Run(ctx, os.Args)
}
