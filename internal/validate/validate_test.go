/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package validate

import (
	"errors"
	"testing"

	"goscreenwriter/internal/domain"
)

func el(id string, t domain.ElementType, seq int, content string) domain.ScriptElement {
	return domain.ScriptElement{ID: id, Type: t, Sequence: seq, Content: content}
}

func TestValidateCleanScript(t *testing.T) {
	els := []domain.ScriptElement{
		el("a", domain.SceneHeading, 1, "INT. HOUSE - DAY"),
		el("b", domain.Character, 2, "ANNA"),
		el("c", domain.Dialogue, 3, "Hello."),
	}
	if err := Validate(els); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAggregatesProblems(t *testing.T) {
	els := []domain.ScriptElement{
		el("a", domain.SceneHeading, 1, "INT. HOUSE - DAY"),
		el("a", domain.Action, 2, "dup"),
		el("", domain.Action, 3, "no id"),
		el("d", domain.ElementType(42), 4, "???"),
		el("e", domain.Action, 9, "gap"),
		el("f", domain.Action, 0, "zero"),
	}
	err := Validate(els)
	if err == nil {
		t.Fatalf("expected problems")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected errors.Is(err, ErrInvalid)")
	}
	ps := Problems(err)
	if len(ps) != 5 {
		for _, p := range ps {
			t.Log(p)
		}
		t.Fatalf("got %d problems, want 5", len(ps))
	}
	if ps[0].Index != 1 || ps[0].ID != "a" {
		t.Fatalf("first problem = %+v", ps[0])
	}
}

func TestValidateUnpairedDual(t *testing.T) {
	left := el("b", domain.Character, 2, "ANNA")
	left.Dual = domain.DualLeft
	leftDlg := el("c", domain.Dialogue, 3, "Hi.")
	leftDlg.Dual = domain.DualLeft
	els := []domain.ScriptElement{el("a", domain.Action, 1, "x"), left, leftDlg, el("d", domain.Action, 4, "y")}
	ps := Problems(Validate(els))
	if len(ps) != 1 || ps[0].Index != 1 {
		t.Fatalf("problems = %v", ps)
	}
}

func TestDualBlocks(t *testing.T) {
	mk := func(d domain.DualSide) domain.ScriptElement { return domain.ScriptElement{Dual: d} }
	els := []domain.ScriptElement{
		mk(domain.DualNone), mk(domain.DualLeft), mk(domain.DualRight), mk(domain.DualNone),
		mk(domain.DualRight), mk(domain.DualLeft),
	}
	bs := DualBlocks(els)
	if len(bs) != 2 || bs[0] != (Block{1, 3}) || bs[1] != (Block{4, 6}) {
		t.Fatalf("blocks = %v", bs)
	}
	if !bs[0].Paired(els) {
		t.Fatalf("first block should be paired")
	}
	if bs[1].Paired(els) {
		t.Fatalf("block opening on the right is not paired")
	}
}

func TestAutoFix(t *testing.T) {
	cue := el("b", domain.Character, 7, "anna (v.o.)")
	cue.KeptTogether = true
	dlg := el("c", domain.Dialogue, 7, "Hello.")
	dlg.ContinuesNext = true
	dlg.IsContinued = true
	lone := el("d", domain.Character, 8, "BOB")
	lone.Dual = domain.DualRight
	in := []domain.ScriptElement{el("a", domain.SceneHeading, 3, "INT. X - DAY"), cue, dlg, lone}

	out := AutoFix(in)
	if err := Validate(out); err != nil {
		t.Fatalf("fixed script still invalid: %v", err)
	}
	for i, e := range out {
		if e.Sequence != i+1 {
			t.Fatalf("sequence[%d] = %d", i, e.Sequence)
		}
		if e.ContinuesNext || e.KeptTogether {
			t.Fatalf("derived flags not cleared on %s", e.ID)
		}
	}
	if out[1].Content != "ANNA (V.O.)" || out[1].Character != "ANNA" {
		t.Fatalf("cue = %+v", out[1])
	}
	if out[2].Character != "ANNA" || !out[2].IsContinued {
		t.Fatalf("dialogue = %+v", out[2])
	}
	if out[3].Dual != domain.DualNone {
		t.Fatalf("unpaired dual marker kept")
	}
	if in[0].Sequence != 3 || !in[1].KeptTogether {
		t.Fatalf("input mutated")
	}
}
