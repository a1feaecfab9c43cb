/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash /*

// Package crash turns a panic into a crash report, an autosave copy of the
// open project and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/telemetry"
	"goscreenwriter/internal/version"
)

// ExitCode is used when a panic was recovered.
const ExitCode = 2

var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
)

// Report is everything written for one recovered panic. It holds no
// script text, only counts.
type Report struct {
	Time     time.Time
	Command  string
	Panic    any
	Stack    []byte
	Root     string
	Manifest string
	Elements int
	Autosave string
}

func newReport(cmd string, ph *storage.ProjectHandle, panicVal any, stack []byte) Report {
	r := Report{Time: time.Now(), Command: cmd, Panic: panicVal, Stack: stack}
	if ph != nil {
		r.Root = ph.Root
		r.Manifest = ph.ManifestPath
		r.Elements = len(ph.Project.Screenplay.Elements)
	}
	return r
}

// Bytes renders the report as plain text.
func (r Report) Bytes() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Go Screenwriter Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", r.Time.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if r.Command != "" {
		fmt.Fprintf(&buf, "Command: %s\n", r.Command)
	}
	if r.Root != "" {
		fmt.Fprintf(&buf, "ProjectRoot: %s\nManifest: %s\nElements: %d\n", r.Root, r.Manifest, r.Elements)
	}
	if r.Autosave != "" {
		fmt.Fprintf(&buf, "Autosave: %s\n", r.Autosave)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", r.Panic)
	fmt.Fprintf(&buf, "Stack:\n%s\n", r.Stack)
	return buf.Bytes()
}

// Recover is deferred at the top of a command:
//
//	defer crash.Recover(ph)
func Recover(ph *storage.ProjectHandle) {
	if v := recover(); v != nil {
		handle("", func() *storage.ProjectHandle { return ph }, v, debug.Stack())
	}
}

// RecoverCommand is Recover for code that opens its project lazily; project
// is consulted only after a panic and may return nil.
func RecoverCommand(cmd string, project func() *storage.ProjectHandle) {
	if v := recover(); v != nil {
		handle(cmd, project, v, debug.Stack())
	}
}

func handle(cmd string, project func() *storage.ProjectHandle, v any, stack []byte) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", v), slog.String("cmd", cmd), slog.String("stack", string(stack)))

	var ph *storage.ProjectHandle
	if project != nil {
		ph = project()
	}
	r := newReport(cmd, ph, v, stack)
	if ph != nil {
		if path, err := storage.AutosaveCrashSnapshot(ph); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			r.Autosave = path
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}
	reportPath, err := writeReport(r)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err), slog.String("path", reportPath))
	}
	telemetry.UploadCrash(r.Bytes())

	fmt.Fprintf(stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	if r.Autosave != "" {
		fmt.Fprintf(stderr, "Your unsaved project state was written to: %s\n", r.Autosave)
	}
	exitFn(ExitCode)
}

// writeReport stores r in the project's backups folder, or the temp dir
// when no project is open.
func writeReport(r Report) (string, error) {
	dir := os.TempDir()
	if r.Root != "" {
		dir = filepath.Join(r.Root, storage.BackupsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("ensure backups dir: %w", err)
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", r.Time.Format("20060102-150405")))
	if err := storage.WriteFileAtomic(path, r.Bytes()); err != nil {
		return path, err
	}
	return path, nil
}
