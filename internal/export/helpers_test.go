/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"

	"goscreenwriter/internal/domain"
)

// sampleScreenplay covers every element type, a dual block and a continued cue.
func sampleScreenplay() domain.Screenplay {
	els := []domain.ScriptElement{
		{ID: "h1", Type: domain.SceneHeading, Content: "INT. DINER - NIGHT", SceneNumber: "1"},
		{ID: "a1", Type: domain.Action, Content: "Rain hammers the windows. MIA (30s) pours coffee."},
		{ID: "c1", Type: domain.Character, Content: "MIA", Character: "MIA"},
		{ID: "p1", Type: domain.Parenthetical, Content: "(tired)", Character: "MIA"},
		{ID: "d1", Type: domain.Dialogue, Content: "More coffee, detective?", Character: "MIA"},
		{ID: "a2", Type: domain.Action, Content: "He nods."},
		{ID: "c2", Type: domain.Character, Content: "MIA", Character: "MIA", IsContinued: true},
		{ID: "d2", Type: domain.Dialogue, Content: "Thought so.", Character: "MIA"},
		{ID: "c3", Type: domain.Character, Content: "JOE", Character: "JOE", Dual: domain.DualLeft},
		{ID: "d3", Type: domain.Dialogue, Content: "Keep it coming.", Character: "JOE", Dual: domain.DualLeft},
		{ID: "c4", Type: domain.Character, Content: "MIA", Character: "MIA", Dual: domain.DualRight},
		{ID: "d4", Type: domain.Dialogue, Content: "Always do.", Character: "MIA", Dual: domain.DualRight},
		{ID: "s1", Type: domain.Shot, Content: "CLOSE ON THE CUP"},
		{ID: "t1", Type: domain.Transition, Content: "CUT TO:"},
		{ID: "h2", Type: domain.SceneHeading, Content: "EXT. PARKING LOT - NIGHT", SceneNumber: "2"},
		{ID: "a3", Type: domain.Action, Content: "A car idles in the rain."},
		{ID: "t2", Type: domain.Transition, Content: "FADE OUT."},
	}
	for i := range els {
		els[i].Sequence = i + 1
	}
	return domain.Screenplay{
		TitlePage: &domain.TitlePage{Title: "Night Shift", Credit: "Written by", Author: "Sam Roe", DraftDate: "May 2025"},
		Elements:  els,
	}
}

// longScreenplay returns scenes*4 elements spanning several pages.
func longScreenplay(scenes int) domain.Screenplay {
	var els []domain.ScriptElement
	for i := 0; i < scenes; i++ {
		els = append(els,
			domain.ScriptElement{ID: fmt.Sprintf("lh%d", i), Type: domain.SceneHeading, Content: fmt.Sprintf("INT. ROOM %d - DAY", i+1), SceneNumber: fmt.Sprint(i + 1)},
			domain.ScriptElement{ID: fmt.Sprintf("la%d", i), Type: domain.Action, Content: "The room is quiet. Someone waits by the window for a long, long time, counting the cars outside."},
			domain.ScriptElement{ID: fmt.Sprintf("lc%d", i), Type: domain.Character, Content: "ANNA", Character: "ANNA"},
			domain.ScriptElement{ID: fmt.Sprintf("ld%d", i), Type: domain.Dialogue, Content: "We should go before the rain gets any worse out there, don't you think?", Character: "ANNA"},
		)
	}
	for i := range els {
		els[i].Sequence = i + 1
	}
	return domain.Screenplay{Elements: els}
}
