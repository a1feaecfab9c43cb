/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"goscreenwriter/internal/domain"
)

// Document is an imported screenplay: the optional title page and the
// element list, sequenced from 1 and carrying fresh ids.
type Document struct {
	TitlePage *domain.TitlePage
	Elements  []domain.ScriptElement
}

// Screenplay converts d to the domain model stored in the project manifest.
func (d Document) Screenplay() domain.Screenplay {
	return domain.Screenplay{TitlePage: d.TitlePage, Elements: d.Elements}
}

// Error represents a parse problem with position context. Parsing never
// stops on an Error; the affected construct falls back to plain action.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

// Scene is one entry of the scene list.
type Scene struct {
	Index   int // position of the heading in the element list
	ID      string
	Heading string
	Number  string // authored scene number, or the ordinal when none was given
	Page    int    // 0 when no page map was supplied
}

// Scenes lists the scene headings of elements in script order. pages may
// be nil; when set it supplies the page each heading lands on.
func Scenes(elements []domain.ScriptElement, pages map[string]int) []Scene {
	var out []Scene
	for i, el := range elements {
		if el.Type != domain.SceneHeading {
			continue
		}
		num := strings.TrimSpace(el.SceneNumber)
		if num == "" {
			num = fmt.Sprint(len(out) + 1)
		}
		out = append(out, Scene{Index: i, ID: el.ID, Heading: strings.TrimSpace(el.Content), Number: num, Page: pages[el.ID]})
	}
	return out
}

// SortByNumber orders scenes by scene number the way a reader expects
// ("2" < "10", "12A" after "12").
func SortByNumber(scenes []Scene) {
	sort.SliceStable(scenes, func(i, j int) bool { return natural.Less(scenes[i].Number, scenes[j].Number) })
}

// NumberScenes returns a copy of elements where every scene heading
// without an authored number gets its ordinal.
func NumberScenes(elements []domain.ScriptElement) []domain.ScriptElement {
	out := make([]domain.ScriptElement, len(elements))
	copy(out, elements)
	n := 0
	for i := range out {
		if out[i].Type != domain.SceneHeading {
			continue
		}
		n++
		if strings.TrimSpace(out[i].SceneNumber) == "" {
			out[i].SceneNumber = fmt.Sprint(n)
		}
	}
	return out
}
