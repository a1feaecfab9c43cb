/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"strings"
	"testing"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/script"
)

func sameElements(t *testing.T, got, want []domain.ScriptElement) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Type != w.Type || g.Content != w.Content || g.Dual != w.Dual || g.IsContinued != w.IsContinued || g.SceneNumber != w.SceneNumber {
			t.Fatalf("element %d: got %+v, want %+v", i, g, w)
		}
		if g.Sequence != i+1 {
			t.Fatalf("element %d: sequence %d", i, g.Sequence)
		}
	}
}

func TestFountainRoundTrip(t *testing.T) {
	sp := sampleScreenplay()
	text, err := Fountain(sp, FountainOptions{SceneNumbers: true, TitlePage: true})
	if err != nil {
		t.Fatalf("Fountain: %v", err)
	}
	for _, want := range []string{"Title: Night Shift\n", "INT. DINER - NIGHT #1#\n", "MIA (CONT'D)\n", "MIA ^\n", "> FADE OUT.\n", "CUT TO:\n"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output lacks %q:\n%s", want, text)
		}
	}
	doc, errs := script.ParseFountain(text)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	sameElements(t, doc.Elements, sp.Elements)
	if doc.TitlePage == nil || doc.TitlePage.Title != "Night Shift" || doc.TitlePage.Author != "Sam Roe" || doc.TitlePage.DraftDate != "May 2025" {
		t.Fatalf("title page = %+v", doc.TitlePage)
	}

	again, err := Fountain(doc.Screenplay(), FountainOptions{SceneNumbers: true, TitlePage: true})
	if err != nil || again != text {
		t.Fatalf("second pass differs:\n%s\n---\n%s", again, text)
	}
}

func TestFountainForcedMarkers(t *testing.T) {
	sp := domain.Screenplay{Elements: []domain.ScriptElement{
		{ID: "1", Type: domain.SceneHeading, Content: "THE VOID", Sequence: 1},
		{ID: "2", Type: domain.Action, Content: "EXT. IS NOT A HEADING HERE", Sequence: 2},
		{ID: "3", Type: domain.Character, Content: "NARRATOR:", Sequence: 3},
		{ID: "4", Type: domain.Dialogue, Content: "Hello.", Sequence: 4},
		{ID: "5", Type: domain.Transition, Content: "SMASH CUT", Sequence: 5},
	}}
	text, err := Fountain(sp, FountainOptions{})
	if err != nil {
		t.Fatalf("Fountain: %v", err)
	}
	for _, want := range []string{".THE VOID\n", "!EXT. IS NOT A HEADING HERE\n", "@NARRATOR:\n", "> SMASH CUT\n"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output lacks %q:\n%s", want, text)
		}
	}
	doc, _ := script.ParseFountain(text)
	sameElements(t, doc.Elements, sp.Elements)
}

func TestFountainSceneNumbersOff(t *testing.T) {
	text, _ := Fountain(sampleScreenplay(), FountainOptions{})
	if strings.Contains(text, "#1#") || strings.Contains(text, "Title:") {
		t.Fatalf("scene numbers or title page written while disabled:\n%s", text)
	}
}

func TestFDXRoundTrip(t *testing.T) {
	sp := sampleScreenplay()
	var buf bytes.Buffer
	if err := WriteFDX(&buf, sp, FDXOptions{SceneNumbers: true, TitlePage: true}); err != nil {
		t.Fatalf("WriteFDX: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`<FinalDraft DocumentType="Script" Template="No" Version="4">`, `<DualDialogue>`, `Number="1"`, `MIA (CONT&apos;D)`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "<DualDialogue>") != 1 {
		t.Fatalf("expected one dual block:\n%s", out)
	}
	doc, err := script.ParseFDX(&buf)
	if err != nil {
		t.Fatalf("ParseFDX: %v", err)
	}
	sameElements(t, doc.Elements, sp.Elements)
	if doc.TitlePage == nil || doc.TitlePage.Title != "Night Shift" || doc.TitlePage.Author != "Sam Roe" {
		t.Fatalf("title page = %+v", doc.TitlePage)
	}
}

func TestFDXConsecutiveDualBlocks(t *testing.T) {
	var els []domain.ScriptElement
	for _, side := range []domain.DualSide{domain.DualLeft, domain.DualRight, domain.DualLeft, domain.DualRight} {
		els = append(els,
			domain.ScriptElement{ID: "c" + side.String() + string(rune('0'+len(els))), Type: domain.Character, Content: "A", Dual: side},
			domain.ScriptElement{ID: "d" + side.String() + string(rune('0'+len(els))), Type: domain.Dialogue, Content: "Hi.", Dual: side},
		)
	}
	var buf bytes.Buffer
	if err := WriteFDX(&buf, domain.Screenplay{Elements: els}, FDXOptions{}); err != nil {
		t.Fatalf("WriteFDX: %v", err)
	}
	if n := strings.Count(buf.String(), "<DualDialogue>"); n != 2 {
		t.Fatalf("expected 2 dual blocks, got %d", n)
	}
	if strings.Contains(buf.String(), "Number=") {
		t.Fatalf("scene numbers written while disabled")
	}
}
