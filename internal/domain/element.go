/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strings"
)

// ElementType is the closed set of paginatable screenplay units.
type ElementType int

const (
	SceneHeading ElementType = iota + 1
	Action
	Character
	Dialogue
	Parenthetical
	Transition
	Shot
)

var elementTypeNames = [...]string{
	SceneHeading:  "scene_heading",
	Action:        "action",
	Character:     "character",
	Dialogue:      "dialogue",
	Parenthetical: "parenthetical",
	Transition:    "transition",
	Shot:          "shot",
}

// ElementTypes lists every valid element type in declaration order.
func ElementTypes() []ElementType {
	return []ElementType{SceneHeading, Action, Character, Dialogue, Parenthetical, Transition, Shot}
}

// Valid reports whether t is one of the declared element types.
func (t ElementType) Valid() bool { return t >= SceneHeading && t <= Shot }

func (t ElementType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
	return elementTypeNames[t]
}

// ParseElementType converts the wire name of an element type.
func ParseElementType(s string) (ElementType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range ElementTypes() {
		if elementTypeNames[t] == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

func (t ElementType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid element type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *ElementType) UnmarshalText(b []byte) error {
	v, err := ParseElementType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// IsSpeech reports whether t belongs to the body of a speech run.
func (t ElementType) IsSpeech() bool { return t == Dialogue || t == Parenthetical }

// DualSide marks membership in a dual-dialogue block.
type DualSide int

const (
	DualNone DualSide = iota
	DualLeft
	DualRight
)

func (d DualSide) String() string {
	switch d {
	case DualLeft:
		return "left"
	case DualRight:
		return "right"
	default:
		return ""
	}
}

// ParseDualSide accepts "", "left" and "right".
func ParseDualSide(s string) (DualSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DualNone, nil
	case "left":
		return DualLeft, nil
	case "right":
		return DualRight, nil
	}
	return DualNone, fmt.Errorf("unknown dual side %q", s)
}

func (d DualSide) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DualSide) UnmarshalText(b []byte) error {
	v, err := ParseDualSide(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ScriptElement is one paginatable unit of a screenplay.
//
// ContinuesNext and KeptTogether are pagination output. Values read from
// storage are stale and get recomputed on every pass; the engine reports
// fresh values keyed by ID instead of writing them back here.
type ScriptElement struct {
	ID            string      `json:"id"`
	Type          ElementType `json:"type"`
	Content       string      `json:"content"`
	Sequence      int         `json:"sequence"`
	Character     string      `json:"character,omitempty"`
	Dual          DualSide    `json:"dual,omitempty"`
	IsContinued   bool        `json:"isContinued,omitempty"`
	ContinuesNext bool        `json:"continuesNext,omitempty"`
	KeptTogether  bool        `json:"keptTogether,omitempty"`
	SceneNumber   string      `json:"sceneNumber,omitempty"`
}

// Speaker returns the speaking character: the explicit Character field, or
// the cue text for character elements.
func (e ScriptElement) Speaker() string {
	if e.Character != "" {
		return strings.ToUpper(strings.TrimSpace(e.Character))
	}
	if e.Type == Character {
		return CueName(e.Content)
	}
	return ""
}

// CueName strips trailing extensions like "(V.O.)" or "(CONT'D)" from a
// character cue and returns the uppercase name.
func CueName(cue string) string {
	s := strings.TrimSpace(cue)
	for {
		i := strings.LastIndex(s, "(")
		if i <= 0 || !strings.HasSuffix(s, ")") {
			break
		}
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(s, "@")
	return strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(s, "^")))
}

// ContdSuffix is appended to a resumed or continued character cue.
const ContdSuffix = " (CONT'D)"

// MoreMarker is drawn below a speech piece that continues on the next page.
const MoreMarker = "(MORE)"

// WithContd appends the continuation suffix unless the cue carries it already.
func WithContd(cue string) string {
	c := strings.TrimSpace(cue)
	if strings.HasSuffix(strings.ToUpper(c), strings.TrimSpace(ContdSuffix)) {
		return c
	}
	return c + ContdSuffix
}
