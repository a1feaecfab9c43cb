/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/layout"
)

// Cursor is the complete pagination state between two elements. It holds no
// references, so every Step returns a fresh value and a pass can be resumed
// or inspected at any element.
type Cursor struct {
	Page int // 1-based
	Line int // grid lines used on the current page; 0 means nothing placed yet

	dual dualState
	run  speechRun
}

type dualState struct {
	active   bool
	left     int
	right    int
	sawRight bool
}

type speechRun struct {
	active  bool
	speaker string
	lastID  string
	pieces  int // dialogue/parenthetical elements placed since the cue
}

// Start returns the cursor at the top margin of page 1.
func Start() Cursor { return Cursor{Page: 1} }

// AtTop reports whether nothing has been placed on the current page.
func (c Cursor) AtTop() bool { return c.Line == 0 }

// Y returns the cursor position in inches from the top of the page.
func (c Cursor) Y() float64 { return layout.LineY(c.Line) }

// InDual reports whether a dual-dialogue block is open, and its column
// cursors in grid lines.
func (c Cursor) InDual() (left, right int, open bool) {
	return c.dual.left, c.dual.right, c.dual.active
}

// Flags are the derived per-element outputs of a pass.
type Flags struct {
	ContinuesNext bool `json:"continuesNext,omitempty"`
	KeptTogether  bool `json:"keptTogether,omitempty"`
	// IsContinued is set on a character cue that resumes the speaker whose
	// speech ended right before the page break.
	IsContinued bool `json:"isContinued,omitempty"`
	// Resumed is set on a dialogue or parenthetical that starts a page in
	// the middle of a speech; it is drawn under a synthesized CONT'D cue.
	Resumed bool `json:"resumed,omitempty"`
}

// StepResult is what placing a single element produced.
type StepResult struct {
	Placement Placement
	Flags     Flags
	Break     bool
	// MoreID names an earlier element that now continues onto the next page.
	MoreID string
}

// Step places el at c and returns the advanced cursor. ahead holds the
// elements following el; at most three of them are looked at.
func (e *Engine) Step(c Cursor, el domain.ScriptElement, ahead []domain.ScriptElement) (Cursor, StepResult) {
	if el.Dual != domain.DualNone {
		return e.stepDual(c, el)
	}
	if c.dual.active {
		c.Line = max(c.dual.left, c.dual.right)
		c.dual = dualState{}
	}

	var res StepResult
	h := e.est.Height(el, c.AtTop())
	// a speech piece that may be split from what follows keeps a line for (MORE)
	reserve := 0
	if el.Type.IsSpeech() && c.run.active && moreFollows(c.run.speaker, ahead) {
		reserve = 1
	}
	brk := !c.AtTop() && c.Line+h.Total()+reserve > layout.LinesPerPage
	if !brk && !c.AtTop() {
		if need := e.bondHeight(el, ahead); need > 0 && c.Line+need > layout.LinesPerPage {
			brk = true
			res.Flags.KeptTogether = true
		}
	}

	resumed := false
	if brk {
		res.Break = true
		if c.run.active && c.run.pieces > 0 {
			switch {
			case el.Type.IsSpeech():
				res.MoreID = c.run.lastID
				resumed = true
			case el.Type == domain.Character && el.Speaker() == c.run.speaker:
				res.MoreID = c.run.lastID
				res.Flags.IsContinued = true
			}
		}
		c.Page++
		c.Line = 0
	}

	placed := el
	if res.Flags.IsContinued {
		placed.IsContinued = true
	}
	h = e.est.Height(placed, c.AtTop())
	line := c.Line + h.Leading
	p := Placement{
		ID:       el.ID,
		Type:     el.Type,
		Page:     c.Page,
		Line:     line,
		Column:   layout.ColumnOf(el),
		Lines:    e.est.Lines(placed),
		Continue: el.Type == domain.Character && placed.IsContinued,
	}
	if resumed {
		res.Flags.Resumed = true
		p.Cue = e.est.ContdCue(c.run.speaker)
		p.CueLine = line
		line += len(p.Cue)
		p.Line = line
	}
	if e.opts.SceneNumbers && el.Type == domain.SceneHeading {
		p.SceneNumber = el.SceneNumber
	}
	p.finish()
	res.Placement = p
	c.Line = line + h.Lines

	switch {
	case el.Type == domain.Character:
		c.run = speechRun{active: true, speaker: el.Speaker(), lastID: el.ID}
	case el.Type.IsSpeech() && c.run.active:
		c.run.lastID = el.ID
		c.run.pieces++
	default:
		c.run = speechRun{}
	}
	return c, res
}

// bondHeight returns the lines el and the elements it must share a page with
// occupy below the top of a page, or 0 when el is not bonded to what follows.
// A character cue is bonded to its first speech piece. A scene heading is
// bonded to the next element, and through a following cue to that cue's
// first speech piece. A group that cannot fit on an empty page is not bonded.
func (e *Engine) bondHeight(el domain.ScriptElement, ahead []domain.ScriptElement) int {
	need := e.groupHeight(el, ahead)
	if need-e.est.Leading(el, false) > layout.LinesPerPage {
		return 0
	}
	return need
}

func (e *Engine) groupHeight(el domain.ScriptElement, ahead []domain.ScriptElement) int {
	if len(ahead) == 0 {
		return 0
	}
	next := ahead[0]
	switch el.Type {
	case domain.Character:
		if next.Type.IsSpeech() && next.Dual == domain.DualNone {
			need := e.est.HeightWithNext(el, next, false)
			if moreFollows(el.Speaker(), ahead[1:]) {
				need++
			}
			return need
		}
	case domain.SceneHeading:
		need := e.est.HeightWithNext(el, next, false)
		if next.Type == domain.Character && next.Dual == domain.DualNone && len(ahead) > 1 &&
			ahead[1].Type.IsSpeech() && ahead[1].Dual == domain.DualNone {
			need += e.est.Height(ahead[1], false).Total()
			if moreFollows(next.Speaker(), ahead[2:]) {
				need++
			}
		}
		return need
	}
	return 0
}

// moreFollows reports whether a break before ahead[0] would continue the
// speech of speaker, which puts (MORE) below the piece just placed.
func moreFollows(speaker string, ahead []domain.ScriptElement) bool {
	if len(ahead) == 0 || ahead[0].Dual != domain.DualNone {
		return false
	}
	next := ahead[0]
	return next.Type.IsSpeech() || (next.Type == domain.Character && next.Speaker() == speaker)
}

// stepDual places an element of a dual-dialogue block. Each side advances
// its own column; the shared cursor tracks the lower of the two so the block
// closes at max(left, right). Keep-together rules do not apply inside a block;
// an element that overflows moves both columns to the top of the next page.
func (e *Engine) stepDual(c Cursor, el domain.ScriptElement) (Cursor, StepResult) {
	var res StepResult
	if !c.dual.active || (el.Dual == domain.DualLeft && c.dual.sawRight) {
		if c.dual.active {
			c.Line = max(c.dual.left, c.dual.right)
		}
		open := c.Line + e.est.Leading(el, c.AtTop())
		c.dual = dualState{active: true, left: open, right: open}
		c.run = speechRun{}
	}
	if el.Dual == domain.DualRight {
		c.dual.sawRight = true
	}

	col := &c.dual.left
	if el.Dual == domain.DualRight {
		col = &c.dual.right
	}
	lines := e.est.Lines(el)
	if *col > 0 && *col+len(lines) > layout.LinesPerPage {
		// both columns restart at the top; the block stays open so the other
		// side still pairs with this one on the new page
		res.Break = true
		c.Page++
		c.Line = 0
		c.dual.left, c.dual.right = 0, 0
	}

	p := Placement{
		ID:       el.ID,
		Type:     el.Type,
		Dual:     el.Dual,
		Page:     c.Page,
		Line:     *col,
		Column:   layout.ColumnOf(el),
		Lines:    lines,
		Continue: el.Type == domain.Character && el.IsContinued,
	}
	p.finish()
	res.Placement = p
	*col += len(lines)
	c.Line = max(c.dual.left, c.dual.right)
	return c, res
}
