/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"goscreenwriter/internal/domain"
)

var (
	reBoneyard  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reNote      = regexp.MustCompile(`(?s)\[\[.*?\]\]`)
	reHeading   = regexp.MustCompile(`(?i)^(INT\.?/EXT|I/E|INT|EXT|EST)[\.\s]`)
	reSceneNum  = regexp.MustCompile(`\s*#([\w.\-]+)#\s*$`)
	reTitleKey  = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*):\s*(.*)$`)
	reContd     = regexp.MustCompile(`(?i)\s*\(\s*CONT['’]?D\s*\)`)
	reShot      = regexp.MustCompile(`^(ANGLE ON|CLOSE ON|CLOSE UP|CLOSEUP|EXTREME CLOSE|WIDE ON|WIDE SHOT|INSERT|POV|BACK TO SCENE|TRACKING|AERIAL)\b`)
	titleFields = map[string]func(tp *domain.TitlePage) *string{
		"title":      func(tp *domain.TitlePage) *string { return &tp.Title },
		"credit":     func(tp *domain.TitlePage) *string { return &tp.Credit },
		"author":     func(tp *domain.TitlePage) *string { return &tp.Author },
		"authors":    func(tp *domain.TitlePage) *string { return &tp.Author },
		"source":     func(tp *domain.TitlePage) *string { return &tp.Source },
		"draft date": func(tp *domain.TitlePage) *string { return &tp.DraftDate },
		"contact":    func(tp *domain.TitlePage) *string { return &tp.Contact },
		"notes":      func(tp *domain.TitlePage) *string { return &tp.Notes },
	}
)

// ParseFountain parses Fountain plain text into a Document.
// Supported syntax:
//   - Title page: "Key: value" lines up to the first blank line, indented
//     lines continue the previous value.
//   - Scene headings: INT/EXT/EST/I/E after a blank line, or forced with a
//     leading "."; a trailing "#12A#" sets the scene number.
//   - Transitions: uppercase lines ending in "TO:" between blank lines, or
//     forced with ">".
//   - Character cues: uppercase lines after a blank line and followed by
//     text, or forced with "@"; "^" marks the right column of dual
//     dialogue and "(CONT'D)" marks an authored continuation.
//   - Parentheticals and dialogue follow a cue up to the next blank line.
//   - Shots: uppercase camera directions (ANGLE ON, CLOSE ON, ...) between
//     blank lines.
//   - Action: everything else; "!" forces action.
//
// Notes [[...]], boneyard /* ... */, sections "#" and synopses "=" are
// dropped. Emphasis markers are kept verbatim.
func ParseFountain(input string) (Document, []Error) {
	var errs []Error
	text := strings.ReplaceAll(input, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	// keep line numbers stable for error reporting
	text = reBoneyard.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("\n", strings.Count(m, "\n"))
	})
	text = reNote.ReplaceAllString(text, "")
	lines := strings.Split(text, "\n")
	if i := strings.Index(text, "/*"); i >= 0 {
		ln := strings.Count(text[:i], "\n")
		errs = append(errs, Error{Line: ln + 1, Column: i - strings.LastIndex(text[:i], "\n"), Message: "unterminated boneyard"})
		lines = lines[:ln]
	}

	tp, body := parseTitlePage(lines)
	p := &fountainParser{lines: lines, offset: body, prevStart: -1}
	for i := body; i < len(lines); i++ {
		p.line(i)
	}
	errs = append(errs, p.errs...)
	for i := range p.out {
		p.out[i].Sequence = i + 1
	}
	return Document{TitlePage: tp, Elements: p.out}, errs
}

func parseTitlePage(lines []string) (*domain.TitlePage, int) {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start >= len(lines) {
		return nil, start
	}
	m := reTitleKey.FindStringSubmatch(strings.TrimSpace(lines[start]))
	if m == nil {
		return nil, 0
	}
	if _, ok := titleFields[strings.ToLower(m[1])]; !ok {
		return nil, 0
	}
	tp := &domain.TitlePage{}
	var cur *string
	i := start
	for ; i < len(lines); i++ {
		raw := lines[i]
		trim := strings.TrimSpace(raw)
		if trim == "" {
			break
		}
		indented := strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")
		if m := reTitleKey.FindStringSubmatch(trim); m != nil && !indented {
			field, ok := titleFields[strings.ToLower(m[1])]
			if !ok {
				cur = nil
				continue
			}
			cur = field(tp)
			*cur = strings.TrimSpace(m[2])
			continue
		}
		if cur == nil {
			continue
		}
		if *cur == "" {
			*cur = trim
		} else {
			*cur += "\n" + trim
		}
	}
	if tp.Empty() {
		return nil, i
	}
	return tp, i
}

type fountainParser struct {
	lines  []string
	offset int
	out    []domain.ScriptElement
	errs   []Error

	inSpeech bool
	speaker  string
	cueIdx   int
	dual     domain.DualSide
	// previous closed speech block [prevStart, prevEnd), candidate left column
	prevStart, prevEnd int
	lastAction         bool
}

func (p *fountainParser) blank(i int) bool {
	if i < p.offset || i >= len(p.lines) {
		return true
	}
	return strings.TrimSpace(p.lines[i]) == ""
}

func (p *fountainParser) add(el domain.ScriptElement) {
	el.ID = uuid.NewString()
	if !el.Type.IsSpeech() && el.Type != domain.Character {
		p.prevStart = -1
	}
	p.out = append(p.out, el)
	p.lastAction = el.Type == domain.Action
}

func (p *fountainParser) closeSpeech() {
	if p.inSpeech {
		p.prevStart, p.prevEnd = p.cueIdx, len(p.out)
	}
	p.inSpeech = false
	p.dual = domain.DualNone
}

func (p *fountainParser) line(i int) {
	raw := p.lines[i]
	line := strings.TrimSpace(raw)
	if line == "" {
		p.closeSpeech()
		p.lastAction = false
		return
	}
	if p.inSpeech {
		p.speech(line)
		return
	}
	switch {
	case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "="):
		// sections, synopses and page breaks carry no printable text
	case strings.HasPrefix(line, "!"):
		p.action(strings.TrimPrefix(line, "!"))
	case strings.HasPrefix(line, ".") && !strings.HasPrefix(line, ".."):
		p.heading(line[1:])
	case strings.HasPrefix(line, ">") && strings.HasSuffix(line, "<"):
		p.action(strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, ">"), "<")))
	case strings.HasPrefix(line, ">"):
		p.add(domain.ScriptElement{Type: domain.Transition, Content: strings.TrimSpace(line[1:])})
	case p.blank(i-1) && reHeading.MatchString(line):
		p.heading(line)
	case p.blank(i-1) && p.blank(i+1) && isUpper(line) && strings.HasSuffix(line, "TO:"):
		p.add(domain.ScriptElement{Type: domain.Transition, Content: line})
	case strings.HasPrefix(line, "@") || (p.blank(i-1) && !p.blank(i+1) && isCue(line)):
		p.cue(i, line)
	case p.blank(i-1) && p.blank(i+1) && isUpper(line) && reShot.MatchString(line):
		p.add(domain.ScriptElement{Type: domain.Shot, Content: line})
	default:
		p.action(line)
	}
}

func (p *fountainParser) heading(s string) {
	el := domain.ScriptElement{Type: domain.SceneHeading}
	if m := reSceneNum.FindStringSubmatch(s); m != nil {
		el.SceneNumber = m[1]
		s = s[:len(s)-len(m[0])]
	}
	el.Content = strings.TrimSpace(s)
	p.add(el)
}

func (p *fountainParser) action(s string) {
	if p.lastAction && len(p.out) > 0 {
		last := &p.out[len(p.out)-1]
		last.Content += "\n" + s
		return
	}
	p.add(domain.ScriptElement{Type: domain.Action, Content: s})
}

func (p *fountainParser) cue(i int, line string) {
	s := strings.TrimPrefix(line, "@")
	right := strings.HasSuffix(s, "^")
	s = strings.TrimSpace(strings.TrimSuffix(s, "^"))
	contd := reContd.MatchString(s)
	s = strings.TrimSpace(reContd.ReplaceAllString(s, ""))

	dual := domain.DualNone
	if right {
		if p.prevStart >= 0 && p.prevEnd == len(p.out) {
			for j := p.prevStart; j < p.prevEnd; j++ {
				p.out[j].Dual = domain.DualLeft
			}
			dual = domain.DualRight
		} else {
			p.errs = append(p.errs, Error{Line: i + 1, Column: len(strings.TrimRight(p.lines[i], " \t")), Message: "dual dialogue marker without preceding dialogue"})
		}
	}
	p.speaker = domain.CueName(s)
	p.cueIdx = len(p.out)
	p.add(domain.ScriptElement{Type: domain.Character, Content: strings.ToUpper(s), Character: p.speaker, IsContinued: contd, Dual: dual})
	p.inSpeech = true
	p.dual = dual
}

func (p *fountainParser) speech(line string) {
	if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
		p.add(domain.ScriptElement{Type: domain.Parenthetical, Content: line, Character: p.speaker, Dual: p.dual})
		return
	}
	if n := len(p.out); n > 0 && p.out[n-1].Type == domain.Dialogue && n-1 > p.cueIdx {
		p.out[n-1].Content += "\n" + line
		return
	}
	p.add(domain.ScriptElement{Type: domain.Dialogue, Content: line, Character: p.speaker, Dual: p.dual})
}

// isUpper reports whether s has at least one letter and no lowercase ones.
func isUpper(s string) bool {
	letter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letter = true
		}
	}
	return letter
}

// isCue accepts an uppercase name with optional extensions in any case,
// e.g. "ANNA (cont'd)" or "BOB (V.O.) ^".
func isCue(line string) bool {
	s := strings.TrimSpace(strings.TrimSuffix(line, "^"))
	if i := strings.Index(s, "("); i > 0 {
		if !strings.HasSuffix(s, ")") {
			return false
		}
		s = strings.TrimSpace(s[:i])
	}
	if strings.HasSuffix(s, ":") {
		return false
	}
	return isUpper(s)
}

// NeedsForcedHeading reports whether a scene heading must be written with a
// leading "." to read back as a heading.
func NeedsForcedHeading(s string) bool { return !reHeading.MatchString(strings.TrimSpace(s)) }

// NeedsForcedAction reports whether an action line would read back as
// another element type unless written with a leading "!".
func NeedsForcedAction(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	switch s[0] {
	case '!', '.', '>', '@', '#', '=', '~':
		return true
	}
	return reHeading.MatchString(s) || isUpper(s)
}

// NeedsForcedCue reports whether a cue must be written with a leading "@".
func NeedsForcedCue(s string) bool { return !isCue(strings.TrimSpace(s)) }

// NeedsForcedTransition reports whether a transition must be written with
// a leading ">".
func NeedsForcedTransition(s string) bool {
	s = strings.TrimSpace(s)
	return !isUpper(s) || !strings.HasSuffix(s, "TO:")
}
