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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	root := t.TempDir()
	proj := sampleProject("CorruptTest")
	if _, err := InitProject(root, proj); err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	idx := IndexPath(root)
	for _, p := range []string{idx + "-wal", idx + "-shm"} {
		_ = os.Remove(p)
	}
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rebuilt, err := DetectAndRebuildIndex(ctx, root, proj)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	res, err := Search(ctx, root, SearchQuery{Text: "coffee"})
	if err != nil || len(res) != 1 {
		t.Fatalf("search after rebuild: %d rows, err=%v", len(res), err)
	}
	bdir := filepath.Join(root, IndexDirName, "backups")
	entries, _ := os.ReadDir(bdir)
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}
}

func TestDetectAndRebuildIndex_HealthyIsNoop(t *testing.T) {
	root := t.TempDir()
	proj := sampleProject("Healthy")
	if _, err := InitProject(root, proj); err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(context.Background(), root, proj)
	if err != nil || rebuilt {
		t.Fatalf("rebuilt=%v err=%v, want no rebuild", rebuilt, err)
	}
}
