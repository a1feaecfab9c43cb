/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"golang.org/x/net/html/charset"

	"goscreenwriter/internal/domain"
)

var fdxNames = map[domain.ElementType]string{
	domain.SceneHeading:  "Scene Heading",
	domain.Action:        "Action",
	domain.Character:     "Character",
	domain.Dialogue:      "Dialogue",
	domain.Parenthetical: "Parenthetical",
	domain.Transition:    "Transition",
	domain.Shot:          "Shot",
}

// FDXTypeName returns the Final Draft paragraph type for t.
func FDXTypeName(t domain.ElementType) string {
	if n, ok := fdxNames[t]; ok {
		return n
	}
	return "Action"
}

// ParseFDXType maps a Final Draft paragraph type back to an element type.
// Types without a screenplay counterpart ("General", "Cast List", ...)
// become action.
func ParseFDXType(s string) domain.ElementType {
	for t, n := range fdxNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return t
		}
	}
	return domain.Action
}

// ParseFDX reads a Final Draft document. Paragraph text runs are
// concatenated, "Number" on scene headings becomes the scene number, a
// trailing "(CONT'D)" on cues becomes IsContinued and DualDialogue groups
// split into a left and a right column at their second cue.
func ParseFDX(r io.Reader) (Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return Document{}, fmt.Errorf("unable to read FDX: %w", err)
	}
	root := doc.SelectElement("FinalDraft")
	if root == nil {
		return Document{}, fmt.Errorf("unable to read FDX: missing FinalDraft root element")
	}
	var out Document
	if content := root.SelectElement("Content"); content != nil {
		speaker := ""
		for _, par := range content.SelectElements("Paragraph") {
			if dd := par.SelectElement("DualDialogue"); dd != nil {
				side := domain.DualNone
				for _, inner := range dd.SelectElements("Paragraph") {
					el := fdxParagraph(inner, &speaker)
					if el.Type == domain.Character {
						if side == domain.DualNone {
							side = domain.DualLeft
						} else {
							side = domain.DualRight
						}
					}
					if side == domain.DualNone {
						side = domain.DualLeft
					}
					el.Dual = side
					out.Elements = append(out.Elements, el)
				}
				continue
			}
			out.Elements = append(out.Elements, fdxParagraph(par, &speaker))
		}
	}
	for i := range out.Elements {
		out.Elements[i].Sequence = i + 1
	}
	if tp := root.SelectElement("TitlePage"); tp != nil {
		out.TitlePage = fdxTitlePage(tp)
	}
	return out, nil
}

func fdxText(par *etree.Element) string {
	var b strings.Builder
	for _, t := range par.SelectElements("Text") {
		b.WriteString(t.Text())
	}
	return strings.TrimSpace(b.String())
}

func fdxParagraph(par *etree.Element, speaker *string) domain.ScriptElement {
	el := domain.ScriptElement{
		ID:      uuid.NewString(),
		Type:    ParseFDXType(par.SelectAttrValue("Type", "Action")),
		Content: fdxText(par),
	}
	switch el.Type {
	case domain.SceneHeading:
		el.SceneNumber = par.SelectAttrValue("Number", "")
		*speaker = ""
	case domain.Character:
		el.IsContinued = reContd.MatchString(el.Content)
		el.Content = strings.TrimSpace(reContd.ReplaceAllString(el.Content, ""))
		*speaker = domain.CueName(el.Content)
		el.Character = *speaker
	case domain.Dialogue, domain.Parenthetical:
		el.Character = *speaker
	default:
		*speaker = ""
	}
	return el
}

// fdxTitlePage maps the free-form title page paragraphs: the first one is
// the title, a "written by" line is the credit followed by the author, and
// everything after lands in the notes.
func fdxTitlePage(tp *etree.Element) *domain.TitlePage {
	content := tp.SelectElement("Content")
	if content == nil {
		return nil
	}
	var texts []string
	for _, par := range content.SelectElements("Paragraph") {
		if s := fdxText(par); s != "" {
			texts = append(texts, s)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	out := &domain.TitlePage{Title: texts[0]}
	rest := texts[1:]
	if len(rest) > 0 {
		low := strings.ToLower(rest[0])
		if low == "by" || strings.HasPrefix(low, "written by") || strings.HasPrefix(low, "screenplay by") {
			out.Credit = rest[0]
			rest = rest[1:]
			if len(rest) > 0 {
				out.Author = rest[0]
				rest = rest[1:]
			}
		}
	}
	out.Notes = strings.Join(rest, "\n")
	return out
}
