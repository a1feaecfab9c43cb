/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/script"
	"goscreenwriter/internal/storage"
)

// FountainOptions controls Fountain export.
type FountainOptions struct {
	SceneNumbers bool
	TitlePage    bool
}

var titleKeys = []struct {
	key string
	get func(*domain.TitlePage) string
}{
	{"Title", func(tp *domain.TitlePage) string { return tp.Title }},
	{"Credit", func(tp *domain.TitlePage) string { return tp.Credit }},
	{"Author", func(tp *domain.TitlePage) string { return tp.Author }},
	{"Source", func(tp *domain.TitlePage) string { return tp.Source }},
	{"Draft date", func(tp *domain.TitlePage) string { return tp.DraftDate }},
	{"Contact", func(tp *domain.TitlePage) string { return tp.Contact }},
	{"Notes", func(tp *domain.TitlePage) string { return tp.Notes }},
}

// WriteFountain writes sp as Fountain plain text in element order. Markers
// are only emitted where the plain form would read back as a different
// element: "." headings, "!" action, "@" cues and ">" transitions. The
// right column of dual dialogue carries "^".
func WriteFountain(w io.Writer, sp domain.Screenplay, opt FountainOptions) error {
	bw := bufio.NewWriter(w)
	if opt.TitlePage && !sp.TitlePage.Empty() {
		for _, k := range titleKeys {
			v := strings.TrimSpace(k.get(sp.TitlePage))
			if v == "" {
				continue
			}
			lines := strings.Split(v, "\n")
			if len(lines) == 1 {
				bw.WriteString(k.key + ": " + v + "\n")
				continue
			}
			bw.WriteString(k.key + ":\n")
			for _, l := range lines {
				bw.WriteString("    " + strings.TrimSpace(l) + "\n")
			}
		}
		bw.WriteString("\n")
	}
	for i, el := range sp.Elements {
		if i > 0 && !continuesSpeech(sp.Elements[i-1], el) {
			bw.WriteString("\n")
		}
		bw.WriteString(fountainElement(el, opt))
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// continuesSpeech reports whether el is written directly below prev.
func continuesSpeech(prev, el domain.ScriptElement) bool {
	if !el.Type.IsSpeech() {
		return false
	}
	return prev.Type == domain.Character || prev.Type.IsSpeech()
}

func fountainElement(el domain.ScriptElement, opt FountainOptions) string {
	content := strings.TrimSpace(el.Content)
	switch el.Type {
	case domain.SceneHeading:
		s := strings.ReplaceAll(content, "\n", " ")
		if script.NeedsForcedHeading(s) {
			s = "." + s
		}
		if opt.SceneNumbers && el.SceneNumber != "" {
			s += " #" + el.SceneNumber + "#"
		}
		return s
	case domain.Character:
		s := strings.ToUpper(strings.ReplaceAll(content, "\n", " "))
		if el.IsContinued {
			s = domain.WithContd(s)
		}
		if script.NeedsForcedCue(s) {
			s = "@" + s
		}
		if el.Dual == domain.DualRight {
			s += " ^"
		}
		return s
	case domain.Parenthetical:
		return pagination.Normalize(el)
	case domain.Dialogue:
		var lines []string
		for _, l := range strings.Split(content, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		return strings.Join(lines, "\n")
	case domain.Transition:
		s := strings.ToUpper(content)
		if script.NeedsForcedTransition(s) {
			s = "> " + s
		}
		return s
	case domain.Shot:
		return strings.ToUpper(content)
	default:
		lines := strings.Split(content, "\n")
		for i, l := range lines {
			if script.NeedsForcedAction(l) {
				lines[i] = "!" + strings.TrimSpace(l)
			}
		}
		return strings.Join(lines, "\n")
	}
}

// Fountain returns sp as Fountain text.
func Fountain(sp domain.Screenplay, opt FountainOptions) (string, error) {
	var buf bytes.Buffer
	if err := WriteFountain(&buf, sp, opt); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportFountain writes the project's screenplay as a .fountain file.
func ExportFountain(ph *storage.ProjectHandle, outPath string, opt FountainOptions) (string, error) {
	if ph == nil {
		return "", contentError("fountain", errors.New("project handle is nil"), "")
	}
	var buf bytes.Buffer
	if err := WriteFountain(&buf, ph.Project.Screenplay, opt); err != nil {
		return "", contentError("fountain", err, "")
	}
	return writeOutput(ph, outPath, ".fountain", buf.Bytes())
}
