/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestProjectJSONRoundTrip(t *testing.T) {
	p := Project{
		Name: "RoundTrip",
		Screenplay: Screenplay{
			TitlePage: &TitlePage{Title: "BRICK & STEEL", Author: "J. Doe"},
			Elements: []ScriptElement{
				{ID: "e1", Type: SceneHeading, Content: "INT. ROOM - DAY", Sequence: 1, SceneNumber: "1"},
				{ID: "e2", Type: Character, Content: "ANNA", Sequence: 2, Dual: DualLeft, IsContinued: true},
			},
		},
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"type":"scene_heading"`) || !strings.Contains(string(b), `"dual":"left"`) {
		t.Fatalf("enum wire names missing: %s", b)
	}
	var got Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != p.Name || got.Screenplay.TitlePage.Title != "BRICK & STEEL" {
		t.Fatalf("unexpected project: %+v", got)
	}
	if len(got.Screenplay.Elements) != 2 || got.Screenplay.Elements[1] != p.Screenplay.Elements[1] {
		t.Fatalf("elements did not survive: %+v", got.Screenplay.Elements)
	}
}

func TestUnknownElementTypeRejected(t *testing.T) {
	var e ScriptElement
	err := json.Unmarshal([]byte(`{"id":"x","type":"montage","content":"","sequence":1}`), &e)
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestElementTypeStringCoversAll(t *testing.T) {
	for _, et := range ElementTypes() {
		back, err := ParseElementType(et.String())
		if err != nil || back != et {
			t.Fatalf("%v did not parse back: %v %v", et, back, err)
		}
	}
	if ElementType(0).Valid() || ElementType(99).Valid() {
		t.Fatalf("out of range types must be invalid")
	}
}

func TestCueName(t *testing.T) {
	cases := map[string]string{
		"anna":                   "ANNA",
		"ANNA (V.O.)":            "ANNA",
		"ANNA (CONT'D)":          "ANNA",
		"@McCLANE":               "MCCLANE",
		"BOB ^":                  "BOB",
		"DR. NO (O.S.) (CONT'D)": "DR. NO",
	}
	for in, want := range cases {
		if got := CueName(in); got != want {
			t.Fatalf("CueName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithContdIdempotent(t *testing.T) {
	if got := WithContd("ANNA"); got != "ANNA (CONT'D)" {
		t.Fatalf("got %q", got)
	}
	if got := WithContd("ANNA (CONT'D)"); got != "ANNA (CONT'D)" {
		t.Fatalf("suffix doubled: %q", got)
	}
}

func TestSpeakerFallsBackToCue(t *testing.T) {
	e := ScriptElement{Type: Character, Content: "marla (o.s.)"}
	if e.Speaker() != "MARLA" {
		t.Fatalf("speaker = %q", e.Speaker())
	}
	d := ScriptElement{Type: Dialogue, Character: "tyler"}
	if d.Speaker() != "TYLER" {
		t.Fatalf("speaker = %q", d.Speaker())
	}
}
