/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"goscreenwriter/internal/domain"
)

func TestPreviewsPutGetAndEvict(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.Project{Name: "Prev Test"})
	if err != nil || ph == nil {
		t.Fatalf("InitProject: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// tiny cap forces eviction
	t.Setenv(EnvPreviewsMaxBytes, "64")

	keys := []PreviewKey{
		{Page: 1, Kind: PreviewKindThumb, W: 100, H: 130, Hash: "a"},
		{Page: 2, Kind: PreviewKindThumb, W: 100, H: 130, Hash: "b"},
		{Page: 3, Kind: PreviewKindThumb, W: 100, H: 130, Hash: "c"},
	}
	for _, k := range keys {
		if err := PutPreview(ctx, ph.Root, k, make([]byte, 40)); err != nil {
			t.Fatalf("put page %d: %v", k.Page, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	total, err := TotalPreviewBytes(ctx, ph.Root)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 64 {
		t.Fatalf("expected eviction to <=64 bytes, got %d", total)
	}
	b, err := GetPreview(ctx, ph.Root, keys[2])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(b) != 40 {
		t.Fatalf("most recent preview should survive eviction, got %d bytes", len(b))
	}
	if b, _ := GetPreview(ctx, ph.Root, keys[0]); b != nil {
		t.Fatalf("oldest preview should have been evicted")
	}
}

func TestPreviewStaleHashIsMiss(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	k := PreviewKey{Page: 1, Kind: PreviewKindPage, W: 816, H: 1056, Hash: "v1"}
	if err := PutPreview(ctx, root, k, []byte("png-v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	k.Hash = "v2"
	b, err := GetPreview(ctx, root, k)
	if err != nil || b != nil {
		t.Fatalf("stale preview returned: %q err=%v", b, err)
	}
	calls := 0
	gen := func(context.Context) ([]byte, error) {
		calls++
		return []byte("png-v2"), nil
	}
	for i := 0; i < 2; i++ {
		b, err = GetOrCreatePreview(ctx, root, k, gen)
		if err != nil || string(b) != "png-v2" {
			t.Fatalf("GetOrCreatePreview = %q, %v", b, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator called %d times, want 1", calls)
	}
}

func TestGetOrCreatePreviewPropagatesError(t *testing.T) {
	root := t.TempDir()
	boom := errors.New("boom")
	k := PreviewKey{Page: 1, Kind: PreviewKindThumb, W: 10, H: 10, Hash: "x"}
	_, err := GetOrCreatePreview(context.Background(), root, k, func(context.Context) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestPreviewKeyValidation(t *testing.T) {
	root := t.TempDir()
	if err := PutPreview(context.Background(), root, PreviewKey{Page: 1, Kind: "poster"}, nil); err == nil {
		t.Fatalf("expected invalid kind error")
	}
	if _, err := GetPreview(context.Background(), root, PreviewKey{Page: 0, Kind: PreviewKindThumb}); err == nil {
		t.Fatalf("expected invalid page error")
	}
}

func TestPrunePreviewsDropsPagesPastEnd(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	for p := 1; p <= 4; p++ {
		if err := PutPreview(ctx, root, PreviewKey{Page: p, Kind: PreviewKindThumb, W: 10, H: 10, Hash: "h"}, []byte{1}); err != nil {
			t.Fatalf("put %d: %v", p, err)
		}
	}
	n, err := PrunePreviews(ctx, root, 2)
	if err != nil {
		t.Fatalf("PrunePreviews: %v", err)
	}
	if n != 2 {
		t.Fatalf("pruned %d rows, want 2", n)
	}
	if total, _ := TotalPreviewBytes(ctx, root); total != 2 {
		t.Fatalf("remaining bytes = %d, want 2", total)
	}
}

func TestMaxPreviewsBytesFromEnv(t *testing.T) {
	t.Setenv(EnvPreviewsMaxBytes, "")
	if got := MaxPreviewsBytesFromEnv(); got != 64*1024*1024 {
		t.Fatalf("default = %d", got)
	}
	t.Setenv(EnvPreviewsMaxBytes, "nope")
	if got := MaxPreviewsBytesFromEnv(); got != 64*1024*1024 {
		t.Fatalf("invalid value should fall back, got %d", got)
	}
	t.Setenv(EnvPreviewsMaxBytes, "1024")
	if got := MaxPreviewsBytesFromEnv(); got != 1024 {
		t.Fatalf("got %d, want 1024", got)
	}
}
