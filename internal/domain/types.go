/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Project represents a screenplay project and its metadata.
// It serializes to the human-readable JSON manifest kept at the project root.
type Project struct {
	Name       string     `json:"name"`
	Metadata   Metadata   `json:"metadata,omitempty"`
	Screenplay Screenplay `json:"screenplay"`
}

// Metadata contains optional descriptive metadata for a project.
type Metadata struct {
	Series  string `json:"series,omitempty"`
	Episode string `json:"episode,omitempty"`
	Writers string `json:"writers,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Screenplay is the authored document: an optional title page and the
// ordered element list.
type Screenplay struct {
	TitlePage *TitlePage      `json:"titlePage,omitempty"`
	Elements  []ScriptElement `json:"elements"`
}

// TitlePage is laid out once, statically, ahead of the paginated body.
type TitlePage struct {
	Title     string `json:"title"`
	Credit    string `json:"credit,omitempty"`
	Author    string `json:"author,omitempty"`
	Source    string `json:"source,omitempty"`
	DraftDate string `json:"draftDate,omitempty"`
	Contact   string `json:"contact,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Empty reports whether no title page field carries text.
func (tp *TitlePage) Empty() bool {
	if tp == nil {
		return true
	}
	return tp.Title == "" && tp.Credit == "" && tp.Author == "" && tp.Source == "" &&
		tp.DraftDate == "" && tp.Contact == "" && tp.Notes == ""
}
