/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/textlayout"
)

// Height is the vertical extent of an element in whole grid lines.
type Height struct {
	Leading int // blank lines above the text
	Lines   int // wrapped text lines
}

// Total is Leading + Lines.
func (h Height) Total() int { return h.Leading + h.Lines }

// Inches converts the total to inches.
func (h Height) Inches() float64 { return layout.LinesHeight(h.Total()) }

// Estimator measures elements on the character grid. It wraps with the same
// Wrapper the renderers draw from, so a height estimate is exactly the number
// of lines that end up on paper.
type Estimator struct {
	wrap textlayout.Wrapper
}

// NewEstimator returns an estimator using w, or the grid wrapper when w is nil.
func NewEstimator(w textlayout.Wrapper) Estimator {
	if w == nil {
		w = textlayout.GridWrapper{}
	}
	return Estimator{wrap: w}
}

// Normalize applies the per-type case convention and bracket convention.
func Normalize(el domain.ScriptElement) string {
	s := strings.TrimSpace(el.Content)
	switch el.Type {
	case domain.SceneHeading, domain.Character, domain.Transition, domain.Shot:
		// cases.Caser carries state and is not safe for concurrent use.
		return cases.Upper(language.English).String(s)
	case domain.Parenthetical:
		if s != "" && !strings.HasPrefix(s, "(") {
			s = "(" + s
		}
		if s != "" && !strings.HasSuffix(s, ")") {
			s += ")"
		}
	}
	return s
}

// Lines returns the wrapped, normalized text of el in its column. A
// continued cue is wrapped with its "(CONT'D)" suffix.
func (e Estimator) Lines(el domain.ScriptElement) []string {
	s := Normalize(el)
	if el.Type == domain.Character && el.IsContinued && s != "" {
		s = domain.WithContd(s)
	}
	return e.wrapper().Wrap(s, layout.ColumnOf(el).Cols())
}

// Leading returns the blank lines el carries above itself. Nothing is
// added at the top of a page, and a continued cue never gets any.
func (e Estimator) Leading(el domain.ScriptElement, atTop bool) int {
	if atTop {
		return 0
	}
	switch el.Type {
	case domain.Character:
		if el.IsContinued {
			return 0
		}
		return 1
	case domain.SceneHeading, domain.Action, domain.Transition, domain.Shot:
		return 1
	default:
		return 0
	}
}

// Height returns the space el takes when placed at (atTop) or below the top
// of a page.
func (e Estimator) Height(el domain.ScriptElement, atTop bool) Height {
	return Height{Leading: e.Leading(el, atTop), Lines: len(e.Lines(el))}
}

// HeightWithNext returns the combined height of el followed by next, as used
// by the keep-together checks.
func (e Estimator) HeightWithNext(el, next domain.ScriptElement, atTop bool) int {
	return e.Height(el, atTop).Total() + e.Height(next, false).Total()
}

// ContdCue returns the wrapped "NAME (CONT'D)" cue drawn above a speech
// piece that resumes on a new page.
func (e Estimator) ContdCue(speaker string) []string {
	return e.wrapper().Wrap(domain.WithContd(speaker), layout.ColumnFor(domain.Character).Cols())
}

func (e Estimator) wrapper() textlayout.Wrapper {
	if e.wrap == nil {
		return textlayout.GridWrapper{}
	}
	return e.wrap
}
