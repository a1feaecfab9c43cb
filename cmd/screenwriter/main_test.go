/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"goscreenwriter/internal/version"
)

const sampleFountain = `Title: Night Shift
Author: Mia Stone

INT. DINER - NIGHT

Rain streaks the window.

MIA
Another coffee, please.

EXT. PARKING LOT - NIGHT

Mia runs to her car.

CUT TO:
`

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GSW_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
	// keeps the keychain out of the test
	t.Setenv("GSW_BACKEND_DSN", "postgres://unused")
	t.Setenv("GSW_TELEMETRY_OPT_IN", "")
	t.Setenv("GSW_LOG_FILE", "")
}

// run executes one command line in-process and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	ctx := contextWithEnv(context.Background(), &appEnv{})
	err := app.Run(ctx, append([]string{appName}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)
	if out := mustRun(t, "version"); !strings.Contains(out, version.String()) {
		t.Fatalf("version output = %q", out)
	}
}

func TestImportPaginateExportFlow(t *testing.T) {
	isolateEnv(t)
	dir := filepath.Join(t.TempDir(), "night")
	src := filepath.Join(t.TempDir(), "night.fountain")
	if err := os.WriteFile(src, []byte(sampleFountain), 0o644); err != nil {
		t.Fatal(err)
	}

	mustRun(t, "init", dir)
	if out := mustRun(t, "import", "--number-scenes", dir, src); !strings.Contains(out, "Imported 7 elements in 2 scenes") {
		t.Fatalf("import output = %q", out)
	}
	if out := mustRun(t, "validate", dir); strings.TrimSpace(out) != "ok" {
		t.Fatalf("validate output = %q", out)
	}
	if out := mustRun(t, "paginate", dir); !strings.Contains(out, "7 elements on 1 pages") {
		t.Fatalf("paginate output = %q", out)
	}

	scenes := mustRun(t, "scenes", dir)
	if !strings.Contains(scenes, "INT. DINER - NIGHT") || !strings.Contains(scenes, "EXT. PARKING LOT - NIGHT") {
		t.Fatalf("scenes output = %q", scenes)
	}
	for _, line := range strings.Split(scenes, "\n")[1:] {
		if line != "" && strings.Fields(line)[1] != "1" {
			t.Fatalf("scene not on page 1: %q", line)
		}
	}

	if out := mustRun(t, "search", dir, "coffee"); !strings.Contains(out, "coffee") {
		t.Fatalf("search output = %q", out)
	}
	if out := mustRun(t, "speakers", dir); !strings.Contains(out, "MIA") {
		t.Fatalf("speakers output = %q", out)
	}

	pdfPath := strings.TrimSpace(mustRun(t, "export", dir))
	if filepath.Base(pdfPath) != "night-shift.pdf" {
		t.Fatalf("pdf path = %q", pdfPath)
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("pdf not written: %v", err)
	}
	ftn := strings.TrimSpace(mustRun(t, "export", "--to", "fountain", "--scene-numbers", dir))
	text, err := os.ReadFile(ftn)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "INT. DINER - NIGHT #1#") || !strings.Contains(string(text), "EXT. PARKING LOT - NIGHT #2#") {
		t.Fatalf("fountain export lacks scene numbers:\n%s", text)
	}
	if _, err := run(t, "export", "--to", "docx", dir); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestSnapshotCommands(t *testing.T) {
	isolateEnv(t)
	dir := filepath.Join(t.TempDir(), "snap")
	src := filepath.Join(t.TempDir(), "night.fountain")
	if err := os.WriteFile(src, []byte(sampleFountain), 0o644); err != nil {
		t.Fatal(err)
	}
	mustRun(t, "init", dir)
	mustRun(t, "import", dir, src)
	if out := mustRun(t, "snapshot", "save", "--label", "first cut", dir); !strings.Contains(out, "snapshot 1 saved (1 pages)") {
		t.Fatalf("save output = %q", out)
	}
	// a second import snapshots the script it replaces
	mustRun(t, "import", dir, src)
	list := mustRun(t, "snapshot", "list", dir)
	if !strings.Contains(list, "first cut") || !strings.Contains(list, "before import of night.fountain") {
		t.Fatalf("list output = %q", list)
	}
	if out := mustRun(t, "snapshot", "restore", dir, "1"); !strings.Contains(out, "restored snapshot 1 (7 elements)") {
		t.Fatalf("restore output = %q", out)
	}
	if out := mustRun(t, "snapshot", "prune", "--keep", "1", dir); !strings.Contains(out, "1 snapshots deleted") {
		t.Fatalf("prune output = %q", out)
	}
	if _, err := run(t, "snapshot", "restore", dir, "x"); err == nil {
		t.Fatalf("expected bad id error")
	}
}

func TestImportFormat(t *testing.T) {
	for _, tc := range []struct {
		flag, path, want string
		ok               bool
	}{
		{"", "a.fountain", "fountain", true},
		{"", "a.FDX", "fdx", true},
		{"fdx", "a.txt", "fdx", true},
		{"", "a.docx", "", false},
		{"pdf", "a.fountain", "", false},
	} {
		got, err := importFormat(tc.flag, tc.path)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("importFormat(%q, %q) = %q, %v", tc.flag, tc.path, got, err)
		}
	}
}

func TestParsePages(t *testing.T) {
	got, err := parsePages("1, 3-5,8")
	if err != nil || !reflect.DeepEqual(got, []int{1, 3, 4, 5, 8}) {
		t.Fatalf("parsePages = %v, %v", got, err)
	}
	if got, err := parsePages(""); err != nil || got != nil {
		t.Fatalf("empty list = %v, %v", got, err)
	}
	for _, bad := range []string{"0", "x", "5-3", "2-"} {
		if _, err := parsePages(bad); err == nil {
			t.Fatalf("parsePages(%q) accepted", bad)
		}
	}
}

func TestProgressBarSilentWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressBar(&buf, "pdf")
	p.Update(50)
	p.Done()
	if buf.Len() != 0 {
		t.Fatalf("non-terminal output written: %q", buf.String())
	}
	p.width = 10
	if got := p.render(40); got != "pdf [####------]  40%" {
		t.Fatalf("render = %q", got)
	}
}
