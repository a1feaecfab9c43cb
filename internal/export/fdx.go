/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/beevik/etree"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/script"
	"goscreenwriter/internal/storage"
)

// FDXOptions controls Final Draft export.
type FDXOptions struct {
	SceneNumbers bool
	TitlePage    bool
}

// WriteFDX writes sp as a Final Draft document. The output does not depend
// on pagination: Final Draft paginates on its own.
func WriteFDX(w io.Writer, sp domain.Screenplay, opt FDXOptions) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="no"`)
	root := doc.CreateElement("FinalDraft")
	root.CreateAttr("DocumentType", "Script")
	root.CreateAttr("Template", "No")
	root.CreateAttr("Version", "4")

	content := root.CreateElement("Content")
	var dual *etree.Element
	rightSeen := false
	for _, el := range sp.Elements {
		if el.Dual == domain.DualNone {
			dual = nil
			content.AddChild(fdxParagraph(el, opt))
			continue
		}
		// a new left cue after a right column starts the next block
		if dual == nil || (rightSeen && el.Dual == domain.DualLeft && el.Type == domain.Character) {
			dual = content.CreateElement("Paragraph").CreateElement("DualDialogue")
			rightSeen = false
		}
		if el.Dual == domain.DualRight {
			rightSeen = true
		}
		dual.AddChild(fdxParagraph(el, opt))
	}

	if opt.TitlePage && !sp.TitlePage.Empty() {
		tpContent := root.CreateElement("TitlePage").CreateElement("Content")
		tp := sp.TitlePage
		credit := tp.Credit
		if credit == "" && tp.Author != "" {
			credit = "Written by"
		}
		for _, s := range []string{tp.Title, credit, tp.Author, tp.Source, tp.DraftDate, tp.Contact, tp.Notes} {
			for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
				if line = strings.TrimSpace(line); line == "" {
					continue
				}
				p := tpContent.CreateElement("Paragraph")
				p.CreateAttr("Alignment", "Center")
				p.CreateAttr("Type", "Action")
				p.CreateElement("Text").SetText(line)
			}
		}
	}

	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

func fdxParagraph(el domain.ScriptElement, opt FDXOptions) *etree.Element {
	p := etree.NewElement("Paragraph")
	p.CreateAttr("Type", script.FDXTypeName(el.Type))
	text := strings.TrimSpace(el.Content)
	switch el.Type {
	case domain.SceneHeading:
		if opt.SceneNumbers && el.SceneNumber != "" {
			p.CreateAttr("Number", el.SceneNumber)
		}
	case domain.Character:
		if el.IsContinued {
			text = domain.WithContd(text)
		}
	}
	p.CreateElement("Text").SetText(text)
	return p
}

// ExportFDX writes the project's screenplay as a .fdx file.
func ExportFDX(ph *storage.ProjectHandle, outPath string, opt FDXOptions) (string, error) {
	if ph == nil {
		return "", contentError("fdx", errors.New("project handle is nil"), "")
	}
	var buf bytes.Buffer
	if err := WriteFDX(&buf, ph.Project.Screenplay, opt); err != nil {
		return "", contentError("fdx", err, "")
	}
	return writeOutput(ph, outPath, ".fdx", buf.Bytes())
}
