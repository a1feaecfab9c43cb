/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// progressBar draws a one-line bar on a terminal and stays silent
// otherwise, so redirected output carries no control characters.
type progressBar struct {
	w     io.Writer
	label string
	width int
	tty   bool

	mu   sync.Mutex
	last int
}

func newProgressBar(w io.Writer, label string) *progressBar {
	p := &progressBar{w: w, label: label, width: 30, last: -1}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = max(10, min(60, cols-len(label)-10))
		}
	}
	return p
}

// Update is safe to call from the exporting goroutine.
func (p *progressBar) Update(percent int) {
	percent = max(0, min(100, percent))
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tty || percent == p.last {
		return
	}
	p.last = percent
	fmt.Fprintf(p.w, "\r%s", p.render(percent))
}

// Done ends the bar's line.
func (p *progressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *progressBar) render(percent int) string {
	filled := p.width * percent / 100
	return fmt.Sprintf("%s [%s%s] %3d%%", p.label, strings.Repeat("#", filled), strings.Repeat("-", p.width-filled), percent)
}
