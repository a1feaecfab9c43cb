/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagination turns an ordered screenplay element list into pages.
//
// A pass is a left fold of Step over the elements starting from Start(). The
// output is a page map keyed by element id, one Placement per element with
// the wrapped lines and coordinates every renderer draws from, and the derived
// continuation and keep-together flags. Input elements are never modified.
package pagination

import (
	"sort"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/textlayout"
)

// Placement is the resolved geometry of one element. Coordinates are inches
// from the top-left corner of the page; Y values are the top of a text line.
type Placement struct {
	ID     string             `json:"id"`
	Type   domain.ElementType `json:"type"`
	Dual   domain.DualSide    `json:"dual,omitempty"`
	Page   int                `json:"page"`
	Line   int                `json:"line"` // grid line of the first text line
	Column layout.Column      `json:"column"`
	Lines  []string           `json:"lines"`
	X      float64            `json:"x"`
	Y      float64            `json:"y"`

	// Continue is true when the last line already carries the CONT'D suffix.
	Continue bool `json:"continue,omitempty"`
	// Cue is the synthesized "NAME (CONT'D)" drawn above a resumed speech piece.
	Cue     []string `json:"cue,omitempty"`
	CueLine int      `json:"cueLine,omitempty"`
	CueX    float64  `json:"cueX,omitempty"`
	CueY    float64  `json:"cueY,omitempty"`
	// More is true when "(MORE)" is drawn at MoreX/MoreY below the element.
	More  bool    `json:"more,omitempty"`
	MoreX float64 `json:"moreX,omitempty"`
	MoreY float64 `json:"moreY,omitempty"`

	SceneNumber string `json:"sceneNumber,omitempty"`
}

// Bottom returns the grid line just below the element's last text line.
func (p Placement) Bottom() int { return p.Line + len(p.Lines) }

// LineY returns the top of the i-th text line in inches.
func (p Placement) LineY(i int) float64 { return layout.LineY(p.Line + i) }

func (p *Placement) finish() {
	p.X = p.Column.X()
	p.Y = layout.LineY(p.Line)
	if len(p.Cue) > 0 {
		p.CueX = layout.ColumnFor(domain.Character).X()
		p.CueY = layout.LineY(p.CueLine)
	}
}

func (p *Placement) markMore() {
	p.More = true
	p.MoreX = layout.LeftMargin + layout.MoreIndent
	p.MoreY = layout.LineY(p.Bottom())
}

// Options toggles optional render annotations.
type Options struct {
	SceneNumbers bool
}

// Engine paginates element lists. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	est  Estimator
	opts Options
}

// New returns an engine using the grid wrapper shared with the renderers.
func New(opts Options) *Engine {
	return &Engine{est: NewEstimator(textlayout.GridWrapper{}), opts: opts}
}

// NewWithEstimator is New with an explicit estimator.
func NewWithEstimator(est Estimator, opts Options) *Engine {
	return &Engine{est: est, opts: opts}
}

// Estimator returns the height estimator the engine measures with.
func (e *Engine) Estimator() Estimator { return e.est }

// Result is the output of a pagination pass.
type Result struct {
	PageMap    map[string]int   `json:"pageMap"`
	Placements []Placement      `json:"placements"`
	Flags      map[string]Flags `json:"flags"`
	PageCount  int              `json:"pageCount"`
}

// Paginate runs a full pass with default options.
func Paginate(elements []domain.ScriptElement) Result {
	return New(Options{}).Paginate(elements)
}

// Paginate folds Step over elements. An empty list yields an empty page map
// and a single blank page.
func (e *Engine) Paginate(elements []domain.ScriptElement) Result {
	res := Result{
		PageMap:    make(map[string]int, len(elements)),
		Placements: make([]Placement, 0, len(elements)),
		Flags:      make(map[string]Flags),
		PageCount:  1,
	}
	index := make(map[string]int, len(elements))
	c := Start()
	for i, el := range elements {
		var sr StepResult
		c, sr = e.Step(c, el, elements[i+1:min(i+4, len(elements))])
		if sr.MoreID != "" {
			if j, ok := index[sr.MoreID]; ok {
				res.Placements[j].markMore()
				f := res.Flags[sr.MoreID]
				f.ContinuesNext = true
				res.Flags[sr.MoreID] = f
			}
		}
		index[el.ID] = len(res.Placements)
		res.Placements = append(res.Placements, sr.Placement)
		res.PageMap[el.ID] = sr.Placement.Page
		if sr.Flags != (Flags{}) {
			res.Flags[el.ID] = sr.Flags
		}
		if sr.Placement.Page > res.PageCount {
			res.PageCount = sr.Placement.Page
		}
	}
	return res
}

// Page returns the placements on page n in element order.
func (r Result) Page(n int) []Placement {
	var out []Placement
	for _, p := range r.Placements {
		if p.Page == n {
			out = append(out, p)
		}
	}
	return out
}

// Pages groups placements by page; index 0 is page 1. Blank pages are
// included so len(Pages()) == PageCount.
func (r Result) Pages() [][]Placement {
	out := make([][]Placement, r.PageCount)
	for _, p := range r.Placements {
		if p.Page >= 1 && p.Page <= r.PageCount {
			out[p.Page-1] = append(out[p.Page-1], p)
		}
	}
	return out
}

// FirstIDs returns the id of the first element on every page, in page order.
func (r Result) FirstIDs() []string {
	first := map[int]string{}
	for _, p := range r.Placements {
		if _, ok := first[p.Page]; !ok {
			first[p.Page] = p.ID
		}
	}
	pages := make([]int, 0, len(first))
	for pg := range first {
		pages = append(pages, pg)
	}
	sort.Ints(pages)
	out := make([]string, len(pages))
	for i, pg := range pages {
		out[i] = first[pg]
	}
	return out
}

// Annotate returns a copy of elements carrying this pass's derived flags.
// Stale ContinuesNext and KeptTogether values are overwritten. IsContinued
// stays as authored; the cue a pass continued is reported in Flags only.
func (r Result) Annotate(elements []domain.ScriptElement) []domain.ScriptElement {
	out := make([]domain.ScriptElement, len(elements))
	for i, el := range elements {
		f := r.Flags[el.ID]
		el.ContinuesNext = f.ContinuesNext
		el.KeptTogether = f.KeptTogether
		out[i] = el
	}
	return out
}
