/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"
	"time"
)

func TestScriptSnapshotsSaveListRestorePrune(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleProject("Snapshots"))
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	id1, err := SaveScriptSnapshot(ctx, ph, "first draft", 1, base)
	if err != nil {
		t.Fatalf("save 1: %v", err)
	}
	ph.Project.Screenplay.Elements = ph.Project.Screenplay.Elements[:2]
	if err := Save(ph); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := SaveScriptSnapshot(ctx, ph, "cut", 1, base.Add(time.Hour)); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	latest, ok, err := GetLatestScriptSnapshot(ctx, ph)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.Label != "cut" || len(latest.Screenplay.Elements) != 2 {
		t.Fatalf("latest = %+v", latest)
	}
	list, err := ListScriptSnapshots(ctx, ph, 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %d, err=%v", len(list), err)
	}
	if list[0].Label != "cut" || list[1].ID != id1 {
		t.Fatalf("list order wrong: %+v", list)
	}
	first, err := GetScriptSnapshot(ctx, ph, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !first.TS.Equal(base) || first.Pages != 1 {
		t.Fatalf("snapshot fields: %+v", first)
	}

	if err := RestoreScriptSnapshot(ctx, ph, id1); err != nil {
		t.Fatalf("restore: %v", err)
	}
	reopened, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if n := len(reopened.Project.Screenplay.Elements); n != 8 {
		t.Fatalf("restored manifest has %d elements, want 8", n)
	}
	if hits, _ := Search(ctx, root, SearchQuery{Text: "parking"}); len(hits) != 1 {
		t.Fatalf("index not refreshed after restore: %d hits", len(hits))
	}

	n, err := PruneOldScriptSnapshots(ctx, ph, 1)
	if err != nil || n != 1 {
		t.Fatalf("prune: n=%d err=%v", n, err)
	}
	if _, err := GetScriptSnapshot(ctx, ph, id1); err == nil {
		t.Fatalf("pruned snapshot still readable")
	}
}

func TestLatestScriptSnapshotEmpty(t *testing.T) {
	ph, err := InitProject(t.TempDir(), sampleProject("Empty"))
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	if _, ok, err := GetLatestScriptSnapshot(context.Background(), ph); err != nil || ok {
		t.Fatalf("ok=%v err=%v, want no snapshot", ok, err)
	}
	if _, err := SaveScriptSnapshot(context.Background(), nil, "x", 0, time.Now()); err == nil {
		t.Fatalf("expected nil handle error")
	}
}
