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
	"strings"
	"testing"
	"time"
)

func TestSearchFTSAndFilters(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleProject("Search Test"))
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := Search(ctx, ph.Root, SearchQuery{Text: "coffee"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ElementID != "d1" {
		t.Fatalf("expected d1, got %+v", res)
	}
	if !strings.Contains(res[0].Snippet, "[coffee]") {
		t.Fatalf("snippet not highlighted: %q", res[0].Snippet)
	}

	res, err = Search(ctx, ph.Root, SearchQuery{Text: "rain"})
	if err != nil || len(res) != 2 {
		t.Fatalf("rain: %d rows, err=%v", len(res), err)
	}
	if res[0].ElementID != "a1" || res[1].ElementID != "a2" {
		t.Fatalf("rows not in script order: %s, %s", res[0].ElementID, res[1].ElementID)
	}

	res, err = Search(ctx, ph.Root, SearchQuery{Text: "rain", Scene: "parking"})
	if err != nil || len(res) != 1 || res[0].ElementID != "a2" {
		t.Fatalf("scene filter: %+v err=%v", res, err)
	}

	res, err = Search(ctx, ph.Root, SearchQuery{Speaker: "joe"})
	if err != nil {
		t.Fatalf("speaker: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected cue and line for JOE, got %d", len(res))
	}
	for _, r := range res {
		if r.Speaker != "JOE" {
			t.Fatalf("speaker filter leaked %+v", r)
		}
	}

	res, err = Search(ctx, ph.Root, SearchQuery{Types: []string{"project_series"}})
	if err != nil || len(res) != 1 || res[0].Path != "project:series" {
		t.Fatalf("metadata row: %+v err=%v", res, err)
	}

	res, err = Search(ctx, ph.Root, SearchQuery{Types: []string{"scene_heading"}, Limit: 1, Offset: 1})
	if err != nil || len(res) != 1 || res[0].ElementID != "h2" {
		t.Fatalf("paging: %+v err=%v", res, err)
	}
}

func TestSearchRequiresRoot(t *testing.T) {
	if _, err := Search(context.Background(), " ", SearchQuery{Text: "x"}); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestSpeakersCountsDialogue(t *testing.T) {
	root := t.TempDir()
	proj := sampleProject("Speakers")
	els := proj.Screenplay.Elements
	extra := els[4:6]
	for i := range extra {
		e := extra[i]
		e.ID += "b"
		proj.Screenplay.Elements = append(proj.Screenplay.Elements, e)
	}
	for i := range proj.Screenplay.Elements {
		proj.Screenplay.Elements[i].Sequence = i + 1
	}
	if _, err := InitProject(root, proj); err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	got, err := Speakers(context.Background(), root)
	if err != nil {
		t.Fatalf("Speakers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 speakers, got %+v", got)
	}
	if got[0].Name != "JOE" || got[0].Lines != 2 || got[1].Name != "MIA" || got[1].Lines != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}
