/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"math"
	"strings"
	"testing"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/layout"
)

func TestEstimatorLeading(t *testing.T) {
	est := NewEstimator(nil)
	cases := []struct {
		typ  domain.ElementType
		want int
	}{
		{domain.SceneHeading, 1},
		{domain.Action, 1},
		{domain.Character, 1},
		{domain.Transition, 1},
		{domain.Shot, 1},
		{domain.Dialogue, 0},
		{domain.Parenthetical, 0},
	}
	for _, c := range cases {
		el := domain.ScriptElement{Type: c.typ, Content: "X"}
		if got := est.Height(el, false).Leading; got != c.want {
			t.Fatalf("%v leading = %d, want %d", c.typ, got, c.want)
		}
		if got := est.Height(el, true).Leading; got != 0 {
			t.Fatalf("%v leading at page top = %d, want 0", c.typ, got)
		}
	}
}

func TestEstimatorWrapsPerColumn(t *testing.T) {
	est := NewEstimator(nil)
	text := strings.TrimSpace(strings.Repeat("abcd ", 14)) // 69 chars
	action := domain.ScriptElement{Type: domain.Action, Content: text}
	dlg := domain.ScriptElement{Type: domain.Dialogue, Content: text}
	if got := est.Height(action, true).Lines; got != 2 {
		t.Fatalf("action lines = %d, want 2", got)
	}
	if got := est.Height(dlg, true).Lines; got != 2 {
		t.Fatalf("dialogue lines = %d, want 2", got)
	}
	dual := dlg
	dual.Dual = domain.DualLeft
	if got := est.Height(dual, true).Lines; got != 3 {
		t.Fatalf("dual dialogue lines = %d, want 3", got)
	}
	h := est.Height(action, false)
	if h.Total() != 3 || math.Abs(h.Inches()-0.5) > 1e-9 {
		t.Fatalf("height = %+v (%v in)", h, h.Inches())
	}
}

func TestContinuedCueHeight(t *testing.T) {
	est := NewEstimator(nil)
	cue := domain.ScriptElement{Type: domain.Character, Content: "JOHN"}
	cont := cue
	cont.IsContinued = true
	if got := est.Leading(cue, false); got != 1 {
		t.Fatalf("cue leading = %d, want 1", got)
	}
	if h := est.Height(cont, false); h.Leading != 0 || h.Lines != 1 {
		t.Fatalf("continued cue height = %+v, want no leading and one line", h)
	}
	if got := est.Lines(cont); len(got) != 1 || got[0] != "JOHN (CONT'D)" {
		t.Fatalf("continued cue lines = %q", got)
	}

	// 35 columns: the suffix no longer fits on the name's line.
	long := domain.ScriptElement{Type: domain.Character, Content: strings.Repeat("N", 30), IsContinued: true}
	width := layout.ColumnFor(domain.Character).Cols()
	got := est.Lines(long)
	if len(got) != 2 || est.Height(long, true).Lines != 2 {
		t.Fatalf("long continued cue should wrap to 2 lines, got %q", got)
	}
	for _, l := range got {
		if len([]rune(l)) > width {
			t.Fatalf("line %q wider than %d columns", l, width)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		el   domain.ScriptElement
		want string
	}{
		{domain.ScriptElement{Type: domain.SceneHeading, Content: "int. café - day"}, "INT. CAFÉ - DAY"},
		{domain.ScriptElement{Type: domain.Character, Content: "anna (v.o.)"}, "ANNA (V.O.)"},
		{domain.ScriptElement{Type: domain.Transition, Content: "cut to:"}, "CUT TO:"},
		{domain.ScriptElement{Type: domain.Parenthetical, Content: "quietly"}, "(quietly)"},
		{domain.ScriptElement{Type: domain.Parenthetical, Content: "(beat)"}, "(beat)"},
		{domain.ScriptElement{Type: domain.Action, Content: "  She waits. "}, "She waits."},
	}
	for _, c := range cases {
		if got := Normalize(c.el); got != c.want {
			t.Fatalf("Normalize(%v %q) = %q, want %q", c.el.Type, c.el.Content, got, c.want)
		}
	}
}
