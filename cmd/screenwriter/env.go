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
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/telemetry"
)

// appEnv is the state shared by all commands of one run.
type appEnv struct {
	cfg   config.AppConfig
	dsn   string
	log   *slog.Logger
	tel   *telemetry.Client
	start time.Time

	mu sync.Mutex
	// ph is the project the running command opened; crash reports
	// autosave it.
	ph *storage.ProjectHandle
}

type envKey struct{}

func contextWithEnv(ctx context.Context, env *appEnv) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

func envFromContext(ctx context.Context) *appEnv {
	if env, ok := ctx.Value(envKey{}).(*appEnv); ok {
		return env
	}
	return &appEnv{cfg: config.Defaults(), start: time.Now()}
}

func (e *appEnv) project() *storage.ProjectHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ph
}

func (e *appEnv) setProject(ph *storage.ProjectHandle) {
	e.mu.Lock()
	e.ph = ph
	e.mu.Unlock()
}

// openProject opens the project in the command's first argument.
func (e *appEnv) openProject(cmd *cli.Command) (*storage.ProjectHandle, error) {
	dir := cmd.Args().First()
	if dir == "" {
		return nil, fmt.Errorf("%s: project directory is required", cmd.Name)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	ph, err := storage.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", abs, err)
	}
	e.setProject(ph)
	return ph, nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
