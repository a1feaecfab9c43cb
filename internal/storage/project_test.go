/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"goscreenwriter/internal/domain"
)

// sampleProject returns a small screenplay used across storage tests.
func sampleProject(name string) domain.Project {
	return domain.Project{
		Name:     name,
		Metadata: domain.Metadata{Series: "Night Shift", Writers: "Sam Roe"},
		Screenplay: domain.Screenplay{
			TitlePage: &domain.TitlePage{Title: "NIGHT SHIFT", Author: "Sam Roe"},
			Elements: []domain.ScriptElement{
				{ID: "h1", Type: domain.SceneHeading, Sequence: 1, Content: "INT. DINER - NIGHT", SceneNumber: "1"},
				{ID: "a1", Type: domain.Action, Sequence: 2, Content: "Rain hammers the windows."},
				{ID: "c1", Type: domain.Character, Sequence: 3, Content: "MIA", Character: "MIA"},
				{ID: "d1", Type: domain.Dialogue, Sequence: 4, Content: "More coffee, detective?", Character: "MIA"},
				{ID: "c2", Type: domain.Character, Sequence: 5, Content: "JOE", Character: "JOE"},
				{ID: "d2", Type: domain.Dialogue, Sequence: 6, Content: "Keep it coming.", Character: "JOE"},
				{ID: "h2", Type: domain.SceneHeading, Sequence: 7, Content: "EXT. PARKING LOT - NIGHT", SceneNumber: "2"},
				{ID: "a2", Type: domain.Action, Sequence: 8, Content: "A car idles in the rain."},
			},
		},
	}
}

func TestInitProjectCreatesStructureAndManifest(t *testing.T) {
	root := t.TempDir()
	proj := sampleProject("Test Project")

	ph, err := InitProject(root, proj)
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	if ph.ManifestPath != filepath.Join(root, ManifestFileName) {
		t.Fatalf("ManifestPath = %q", ph.ManifestPath)
	}
	b, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got domain.Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.Name != proj.Name || len(got.Screenplay.Elements) != len(proj.Screenplay.Elements) {
		t.Fatalf("manifest mismatch: %+v", got)
	}
	if got.Screenplay.Elements[3].Type != domain.Dialogue {
		t.Fatalf("element type lost in round trip: %v", got.Screenplay.Elements[3].Type)
	}
	for _, d := range []string{ExportsDirName, DraftsDirName, BackupsDirName} {
		p := filepath.Join(root, d)
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", p)
		}
	}
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index not built: %v", err)
	}
}

func TestInitProjectWritesEmptyElementArray(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.Project{Name: "Empty"})
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	b, _ := os.ReadFile(ph.ManifestPath)
	if !strings.Contains(string(b), `"elements": []`) {
		t.Fatalf("expected empty elements array in manifest:\n%s", b)
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleProject("Backup Test"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ph.Project.Metadata.Notes = "changed"
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var bakCount int
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			bakCount++
		}
	}
	if bakCount == 0 {
		t.Fatalf("expected at least one backup file, found 0")
	}
}

func TestOpenFallsBackToLatestBackupOnCorruption(t *testing.T) {
	root := t.TempDir()
	proj := sampleProject("Open From Backup")
	ph, err := InitProject(root, proj)
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ph.Project.Metadata.Notes = "touch"
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(ph.ManifestPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Project.Name != proj.Name || len(opened.Elements()) != len(proj.Screenplay.Elements) {
		t.Fatalf("opened project mismatch: %+v", opened.Project)
	}
}

func TestOpenRejectsSchemaViolationWithoutBackup(t *testing.T) {
	root := t.TempDir()
	bad := `{"name": "X", "screenplay": {"elements": [{"id": "a", "type": "action", "content": "x", "sequence": 0}]}}`
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestAutosaveCrashSnapshotWritesFile(t *testing.T) {
	root := t.TempDir()
	proj := sampleProject("Crash Snapshot")
	ph, err := InitProject(root, proj)
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ph.Project.Screenplay.Elements = ph.Project.Screenplay.Elements[:2]

	path, err := AutosaveCrashSnapshot(ph)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var got domain.Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if got.Name != proj.Name || len(got.Screenplay.Elements) != 2 {
		t.Fatalf("snapshot content mismatch: %+v", got)
	}
	// the manifest itself is untouched
	onDisk, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(onDisk.Elements()) != len(proj.Screenplay.Elements) {
		t.Fatalf("crash snapshot overwrote the manifest")
	}
}
