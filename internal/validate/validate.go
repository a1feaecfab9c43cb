/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package validate checks element lists before they reach the pagination
// engine and repairs the problems that have an unambiguous fix.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"goscreenwriter/internal/domain"
)

// Problem describes one defect found in an element list. Index is the
// position in the list, or -1 for defects that span several elements.
type Problem struct {
	Index int
	ID    string
	Msg   string
}

func (p *Problem) Error() string {
	if p.Index < 0 {
		return p.Msg
	}
	if p.ID == "" {
		return fmt.Sprintf("element %d: %s", p.Index, p.Msg)
	}
	return fmt.Sprintf("element %d (%s): %s", p.Index, p.ID, p.Msg)
}

// ErrInvalid is matched by every Problem through errors.Is.
var ErrInvalid = errors.New("invalid script")

func (p *Problem) Is(target error) bool { return target == ErrInvalid }

// Validate reports every problem in elements. The returned error is a
// multierr aggregate; use Problems to get the individual entries.
func Validate(elements []domain.ScriptElement) error {
	var err error
	seen := make(map[string]int, len(elements))
	for i, el := range elements {
		if el.ID == "" {
			err = multierr.Append(err, &Problem{Index: i, Msg: "empty id"})
		} else if j, dup := seen[el.ID]; dup {
			err = multierr.Append(err, &Problem{Index: i, ID: el.ID, Msg: fmt.Sprintf("duplicate id, first used at %d", j)})
		} else {
			seen[el.ID] = i
		}
		if !el.Type.Valid() {
			err = multierr.Append(err, &Problem{Index: i, ID: el.ID, Msg: fmt.Sprintf("unknown element type %d", int(el.Type))})
		}
		if el.Sequence <= 0 {
			err = multierr.Append(err, &Problem{Index: i, ID: el.ID, Msg: fmt.Sprintf("sequence %d is not positive", el.Sequence)})
		} else if el.Sequence != i+1 {
			err = multierr.Append(err, &Problem{Index: i, ID: el.ID, Msg: fmt.Sprintf("sequence %d, want %d", el.Sequence, i+1)})
		}
	}
	for _, b := range DualBlocks(elements) {
		if !b.Paired(elements) {
			err = multierr.Append(err, &Problem{Index: b.Start, ID: elements[b.Start].ID, Msg: "unpaired dual dialogue block"})
		}
	}
	return err
}

// Problems unpacks the error returned by Validate.
func Problems(err error) []*Problem {
	var out []*Problem
	for _, e := range multierr.Errors(err) {
		var p *Problem
		if errors.As(e, &p) {
			out = append(out, p)
		}
	}
	return out
}

// Block is a maximal run [Start, End) of elements carrying a dual side.
type Block struct {
	Start, End int
}

// Paired reports whether the block opens on the left column and holds at
// least one element on each side.
func (b Block) Paired(elements []domain.ScriptElement) bool {
	var left, right bool
	for _, el := range elements[b.Start:b.End] {
		switch el.Dual {
		case domain.DualLeft:
			left = true
		case domain.DualRight:
			right = true
		}
	}
	return left && right && elements[b.Start].Dual == domain.DualLeft
}

// DualBlocks returns the dual dialogue blocks in order.
func DualBlocks(elements []domain.ScriptElement) []Block {
	var out []Block
	start := -1
	for i, el := range elements {
		if el.Dual != domain.DualNone {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, Block{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Block{Start: start, End: len(elements)})
	}
	return out
}

// AutoFix returns a repaired copy of elements: sequences renumbered from 1,
// derived pagination flags cleared, dual markers of unpaired blocks dropped,
// character cues uppercased and missing speakers filled in. Authored
// IsContinued marks survive. Elements with an unknown type or without an id
// cannot be repaired here and are left for Validate to report.
func AutoFix(elements []domain.ScriptElement) []domain.ScriptElement {
	out := make([]domain.ScriptElement, len(elements))
	copy(out, elements)
	speaker := ""
	for i := range out {
		el := &out[i]
		el.Sequence = i + 1
		el.ContinuesNext = false
		el.KeptTogether = false
		switch el.Type {
		case domain.Character:
			el.Content = strings.ToUpper(strings.TrimSpace(el.Content))
			speaker = domain.CueName(el.Content)
			if el.Character == "" {
				el.Character = speaker
			}
		case domain.Dialogue, domain.Parenthetical:
			if el.Character == "" {
				el.Character = speaker
			}
		default:
			speaker = ""
		}
	}
	for _, b := range DualBlocks(out) {
		if b.Paired(out) {
			continue
		}
		for i := b.Start; i < b.End; i++ {
			out[i].Dual = domain.DualNone
		}
	}
	return out
}
