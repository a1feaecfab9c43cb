/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preview renders paginated pages to images for on-screen display.
// Only pages intersecting the viewport plus a small overscan are ever
// rasterized; Cache drops everything outside that window.
package preview

// Window is an inclusive range of 1-based page numbers. The zero value is
// empty.
type Window struct {
	First, Last int
}

// Empty reports whether the window holds no pages.
func (w Window) Empty() bool { return w.First < 1 || w.Last < w.First }

// Contains reports whether page n is inside the window.
func (w Window) Contains(n int) bool { return !w.Empty() && n >= w.First && n <= w.Last }

// Pages lists the page numbers of the window in order.
func (w Window) Pages() []int {
	if w.Empty() {
		return nil
	}
	out := make([]int, 0, w.Last-w.First+1)
	for n := w.First; n <= w.Last; n++ {
		out = append(out, n)
	}
	return out
}

// Viewport describes a vertically scrolled strip of pages. All values are
// in the same unit (pixels on screen, usually).
type Viewport struct {
	ScrollTop  float64
	Height     float64
	PageHeight float64
	Gap        float64
}

// Visible returns the pages of a pageCount-page document that intersect v,
// widened by overscan pages on each side.
func Visible(v Viewport, pageCount, overscan int) Window {
	if pageCount < 1 || v.PageHeight <= 0 {
		return Window{}
	}
	if overscan < 0 {
		overscan = 0
	}
	stride := v.PageHeight + max(v.Gap, 0)
	top := max(v.ScrollTop, 0)
	first := int(top/stride) + 1
	bottom := top + max(v.Height, 0)
	last := int(bottom/stride) + 1
	// a bottom edge landing in the gap below a page does not touch the next one
	if bottom-float64(last-1)*stride <= 0 && last > first {
		last--
	}
	first = max(first-overscan, 1)
	last = min(last+overscan, pageCount)
	if first > pageCount {
		first = pageCount
	}
	return Window{First: first, Last: max(last, first)}
}
