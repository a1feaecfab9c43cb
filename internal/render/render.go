/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns pagination output into positioned text runs. The PDF
// exporter and the raster preview both draw these runs, so the two outputs
// place every line at the same coordinates.
package render

import (
	"fmt"
	"strings"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/pagination"
)

// Options are the render toggles shared by preview and PDF.
type Options struct {
	SceneNumbers bool
	// Watermark is drawn diagonally across every body page when non-empty.
	Watermark string
	// TitlePage prepends the title page when the screenplay has one.
	TitlePage bool
}

// Kind tells what a run was produced from.
type Kind int

const (
	KindLine Kind = iota
	KindCue
	KindMore
	KindSceneNumber
	KindPageNumber
	KindTitle
)

var kindNames = [...]string{"line", "cue", "more", "scene_number", "page_number", "title"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindNames {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown run kind %q", b)
}

// Align is the horizontal anchor of a run at X.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

func (a Align) String() string {
	switch a {
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	default:
		return "left"
	}
}

func (a Align) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Align) UnmarshalText(b []byte) error {
	switch string(b) {
	case "left", "":
		*a = AlignLeft
	case "right":
		*a = AlignRight
	case "center":
		*a = AlignCenter
	default:
		return fmt.Errorf("unknown alignment %q", b)
	}
	return nil
}

// Run is one line of text at a fixed position. X and Baseline are inches
// from the top-left corner of the page.
type Run struct {
	ID       string  `json:"id,omitempty"`
	Kind     Kind    `json:"kind"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Baseline float64 `json:"baseline"`
	Align    Align   `json:"align"`
}

// ascent places the Courier baseline inside a 1/6 inch grid line.
const ascent = layout.LineHeight * 0.75

// Baseline returns the baseline of a text line whose top is at y.
func Baseline(y float64) float64 { return y + ascent }

// PageNumber formats the page label drawn in the top-right corner.
func PageNumber(n int) string { return fmt.Sprintf("%d.", n) }

// Page returns the runs of page n in drawing order: the page number, then
// every placement on the page. placements must already be filtered to n.
func Page(placements []pagination.Placement, n int, opts Options) []Run {
	runs := []Run{{
		Kind:     KindPageNumber,
		Text:     PageNumber(n),
		X:        layout.PageNumberX,
		Baseline: layout.PageNumberY,
		Align:    AlignRight,
	}}
	for _, p := range placements {
		runs = append(runs, Placement(p, opts)...)
	}
	return runs
}

// Placement returns the runs for one placed element.
func Placement(p pagination.Placement, opts Options) []Run {
	var runs []Run
	for i, s := range p.Cue {
		runs = append(runs, Run{ID: p.ID, Kind: KindCue, Text: s, X: p.CueX, Baseline: Baseline(p.CueY + layout.LinesHeight(i))})
	}
	for i, s := range p.Lines {
		runs = append(runs, Run{ID: p.ID, Kind: KindLine, Text: s, X: p.X, Baseline: Baseline(p.LineY(i))})
	}
	if p.More {
		runs = append(runs, Run{ID: p.ID, Kind: KindMore, Text: domain.MoreMarker, X: p.MoreX, Baseline: Baseline(p.MoreY)})
	}
	if opts.SceneNumbers && p.SceneNumber != "" && p.Type == domain.SceneHeading {
		y := Baseline(p.Y)
		runs = append(runs,
			Run{ID: p.ID, Kind: KindSceneNumber, Text: p.SceneNumber, X: layout.SceneNumberLX, Baseline: y},
			Run{ID: p.ID, Kind: KindSceneNumber, Text: p.SceneNumber, X: layout.SceneNumberRX, Baseline: y, Align: AlignRight},
		)
	}
	return runs
}

// Title grid lines.
const (
	titleLine  = 15
	bottomLine = 46
)

// TitlePage lays out tp statically: title, credit and author centered in
// the upper third, source below them, draft date and contact at the bottom
// left and notes at the bottom right. It returns nil for an empty title page.
func TitlePage(tp *domain.TitlePage) []Run {
	if tp.Empty() {
		return nil
	}
	var runs []Run
	center := layout.PageWidth / 2
	line := titleLine
	block := func(s string, x float64, align Align, upper bool) {
		for _, l := range splitLines(s) {
			if upper {
				l = strings.ToUpper(l)
			}
			runs = append(runs, Run{Kind: KindTitle, Text: l, X: x, Baseline: Baseline(layout.LineY(line)), Align: align})
			line++
		}
	}
	block(tp.Title, center, AlignCenter, true)
	credit := tp.Credit
	if credit == "" && tp.Author != "" {
		credit = "Written by"
	}
	if credit != "" {
		line += 3
		block(credit, center, AlignCenter, false)
		line++
		block(tp.Author, center, AlignCenter, false)
	}
	if tp.Source != "" {
		line += 2
		block(tp.Source, center, AlignCenter, false)
	}

	left := append(splitLines(tp.DraftDate), splitLines(tp.Contact)...)
	line = bottomLine
	for _, l := range left {
		runs = append(runs, Run{Kind: KindTitle, Text: l, X: layout.LeftMargin, Baseline: Baseline(layout.LineY(line))})
		line++
	}
	line = bottomLine
	block(tp.Notes, layout.PageWidth-layout.RightMargin, AlignRight, false)
	return runs
}

func splitLines(s string) []string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
