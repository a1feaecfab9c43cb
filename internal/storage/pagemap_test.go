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

	"goscreenwriter/internal/pagination"
)

func TestSavePageMapAttachesPages(t *testing.T) {
	root := t.TempDir()
	proj := benchProject(40)
	if _, err := InitProject(root, proj); err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	ctx := context.Background()
	res := pagination.New(pagination.Options{}).Paginate(proj.Screenplay.Elements)
	if res.PageCount < 2 {
		t.Fatalf("sample should span pages, got %d", res.PageCount)
	}
	if err := SavePageMap(ctx, root, res); err != nil {
		t.Fatalf("SavePageMap: %v", err)
	}
	m, err := LoadPageMap(ctx, root)
	if err != nil {
		t.Fatalf("LoadPageMap: %v", err)
	}
	if len(m) != len(proj.Screenplay.Elements) {
		t.Fatalf("page map has %d entries, want %d", len(m), len(proj.Screenplay.Elements))
	}
	pages := Pages(m)
	for id, p := range res.PageMap {
		if pages[id] != p {
			t.Fatalf("element %s stored on page %d, want %d", id, pages[id], p)
		}
	}

	last := res.PageCount
	hits, err := Search(ctx, root, SearchQuery{PageFrom: last, Limit: 1000})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("expected rows on page %d", last)
	}
	for _, h := range hits {
		if h.PageID != last {
			t.Fatalf("row %s on page %d leaked into page filter", h.ElementID, h.PageID)
		}
	}

	// a rebuilt document table picks the stored pages up again
	if err := UpdateIndex(ctx, root, proj); err != nil {
		t.Fatalf("UpdateIndex: %v", err)
	}
	hits, err = Search(ctx, root, SearchQuery{PageTo: 1, Types: []string{"scene_heading"}})
	if err != nil || len(hits) == 0 {
		t.Fatalf("page 1 headings after update: %d, err=%v", len(hits), err)
	}
}

func TestSavePageMapReplacesPreviousPass(t *testing.T) {
	root := t.TempDir()
	proj := benchProject(40)
	if _, err := InitProject(root, proj); err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	ctx := context.Background()
	if err := SavePageMap(ctx, root, pagination.Paginate(proj.Screenplay.Elements)); err != nil {
		t.Fatalf("first SavePageMap: %v", err)
	}
	short := proj.Screenplay.Elements[:4]
	if err := SavePageMap(ctx, root, pagination.Paginate(short)); err != nil {
		t.Fatalf("second SavePageMap: %v", err)
	}
	m, err := LoadPageMap(ctx, root)
	if err != nil {
		t.Fatalf("LoadPageMap: %v", err)
	}
	if len(m) != 4 {
		t.Fatalf("expected 4 entries after replace, got %d", len(m))
	}
}
