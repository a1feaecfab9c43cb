/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout holds the fixed US Letter screenplay geometry shared by the
// pagination engine and every renderer. Lengths are inches; use Points to
// convert for PDF output.
package layout

import (
	"math"

	"goscreenwriter/internal/domain"
)

// Page geometry.
const (
	PageWidth    = 8.5
	PageHeight   = 11.0
	TopMargin    = 1.0
	BottomMargin = 1.0
	LeftMargin   = 1.5
	RightMargin  = 1.0

	// UsableHeight is the lowest Y an element may reach; the cursor starts at TopMargin.
	UsableHeight = PageHeight - BottomMargin
	// BodyWidth is the full text column between the margins.
	BodyWidth = PageWidth - LeftMargin - RightMargin
)

// Typography: 12pt Courier, 6 lines per inch, 10 characters per inch.
const (
	FontFamily     = "Courier"
	FontSizePt     = 12.0
	LinesPerInch   = 6.0
	LineHeight     = 1.0 / LinesPerInch
	CharsPerInch   = 10.0
	CharWidth      = 1.0 / CharsPerInch
	PointsPerInch  = 72.0
	PageNumberY    = 0.5
	PageNumberX    = PageWidth - RightMargin
	SceneNumberLX  = 0.75
	SceneNumberRX  = PageWidth - 0.75
	MoreIndent     = 2.0
	WatermarkAngle = 45.0
)

// Dual-dialogue columns.
const (
	DualColumnWidth       = 2.8
	DualCueWidth          = 2.3
	DualLeftCueIndent     = 0.5
	DualLeftSpeechIndent  = 0.0
	DualRightCueIndent    = 3.5
	DualRightSpeechIndent = 3.0
	DualParenNarrow       = 0.6
	DualParenShift        = 0.3
)

// Column is the horizontal slot an element is drawn into, relative to the
// left margin.
type Column struct {
	Indent float64 `json:"indent"`
	Width  float64 `json:"width"`
}

// X returns the absolute left edge of the column on the page.
func (c Column) X() float64 { return LeftMargin + c.Indent }

// Cols returns how many grid characters fit in the column.
func (c Column) Cols() int { return Columns(c.Width) }

var columns = map[domain.ElementType]Column{
	domain.SceneHeading:  {Indent: 0, Width: 6.0},
	domain.Action:        {Indent: 0, Width: 6.0},
	domain.Character:     {Indent: 2.0, Width: 3.5},
	domain.Dialogue:      {Indent: 1.0, Width: 3.5},
	domain.Parenthetical: {Indent: 1.5, Width: 3.0},
	domain.Transition:    {Indent: 4.0, Width: 2.0},
	domain.Shot:          {Indent: 0, Width: 6.0},
}

// ColumnFor returns the single-column geometry of an element type.
// Unknown types fall back to the action column.
func ColumnFor(t domain.ElementType) Column {
	if c, ok := columns[t]; ok {
		return c
	}
	return columns[domain.Action]
}

// DualColumnFor returns the geometry of an element inside a dual-dialogue
// block. side must be DualLeft or DualRight; anything else yields ColumnFor(t).
func DualColumnFor(t domain.ElementType, side domain.DualSide) Column {
	var cue, speech float64
	switch side {
	case domain.DualLeft:
		cue, speech = DualLeftCueIndent, DualLeftSpeechIndent
	case domain.DualRight:
		cue, speech = DualRightCueIndent, DualRightSpeechIndent
	default:
		return ColumnFor(t)
	}
	switch t {
	case domain.Character:
		return Column{Indent: cue, Width: DualCueWidth}
	case domain.Parenthetical:
		return Column{Indent: speech + DualParenShift, Width: DualColumnWidth - DualParenNarrow}
	default:
		return Column{Indent: speech, Width: DualColumnWidth}
	}
}

// ColumnOf picks dual or single geometry for an element.
func ColumnOf(el domain.ScriptElement) Column {
	if el.Dual != domain.DualNone {
		return DualColumnFor(el.Type, el.Dual)
	}
	return ColumnFor(el.Type)
}

// Columns converts a width in inches to whole grid characters (min 1).
func Columns(width float64) int {
	n := int(math.Floor(width*CharsPerInch + 1e-9))
	if n < 1 {
		return 1
	}
	return n
}

// Points converts inches to PDF points.
func Points(in float64) float64 { return in * PointsPerInch }

// LinesPerPage is the number of grid lines between the top margin and the
// usable height. The engine counts in whole lines so cursor math stays exact.
var LinesPerPage = Lines(UsableHeight - TopMargin)

// LineY returns the top Y, in inches, of the given zero-based grid line.
func LineY(line int) float64 { return TopMargin + LinesHeight(line) }

// Lines converts a height in inches to a count of grid lines.
func Lines(h float64) int { return int(math.Round(h * LinesPerInch)) }

// LinesHeight converts a line count to inches.
func LinesHeight(n int) float64 { return float64(n) * LineHeight }
