/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Line breaking on the fixed character grid. Every consumer that draws
// screenplay text (PDF, preview) draws the lines produced here, and the
// pagination height estimate counts the same lines, so estimated and drawn
// heights cannot diverge.

import (
	"strings"
	"unicode/utf8"
)

// Wrapper breaks text into lines no wider than cols grid characters.
type Wrapper interface {
	Wrap(text string, cols int) []string
}

// GridWrapper is the greedy monospace word wrapper. Runs of whitespace
// collapse to one space, explicit newlines force a break, and words longer
// than a line are split hard at the column limit.
type GridWrapper struct{}

// Wrap implements Wrapper.
func (GridWrapper) Wrap(text string, cols int) []string { return Wrap(text, cols) }

// Wrap is the package-level form of GridWrapper.Wrap. It always returns at
// least one line; an empty paragraph yields an empty line.
func Wrap(text string, cols int) []string {
	if cols < 1 {
		cols = 1
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(text, "\n") {
		out = append(out, wrapParagraph(para, cols)...)
	}
	return out
}

func wrapParagraph(para string, cols int) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curLen = 0
	}
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		for wl > cols {
			if curLen > 0 {
				flush()
			}
			head, tail := splitRunes(w, cols)
			lines = append(lines, head)
			w = tail
			wl -= cols
		}
		if wl == 0 {
			continue
		}
		need := wl
		if curLen > 0 {
			need++
		}
		if curLen+need > cols {
			flush()
			need = wl
		}
		if curLen > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
		curLen += need
	}
	if curLen > 0 {
		flush()
	}
	return lines
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// LineCount returns len(Wrap(text, cols)) without keeping the lines.
func LineCount(text string, cols int) int { return len(Wrap(text, cols)) }

// Width returns the widest line in grid characters.
func Width(lines []string) int {
	w := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > w {
			w = n
		}
	}
	return w
}
