/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"reflect"
	"strings"
	"testing"
)

func TestWrapGreedy(t *testing.T) {
	got := Wrap("The quick brown fox jumps over the lazy dog", 10)
	want := []string{"The quick", "brown fox", "jumps over", "the lazy", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Wrap = %q, want %q", got, want)
	}
}

func TestWrapExactFit(t *testing.T) {
	got := Wrap("abcde fghij", 11)
	if len(got) != 1 || got[0] != "abcde fghij" {
		t.Fatalf("exact fit should stay on one line: %q", got)
	}
	got = Wrap("abcde fghij", 10)
	if len(got) != 2 {
		t.Fatalf("one over should wrap: %q", got)
	}
}

func TestWrapHardBreaksLongWords(t *testing.T) {
	got := Wrap("AAAAAAAAAAAAAAAAAAAAAAAAA end", 10)
	want := []string{"AAAAAAAAAA", "AAAAAAAAAA", "AAAAA end"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Wrap = %q, want %q", got, want)
	}
}

func TestWrapNewlinesAndEmpty(t *testing.T) {
	if got := Wrap("", 20); len(got) != 1 || got[0] != "" {
		t.Fatalf("empty text should be one empty line: %q", got)
	}
	got := Wrap("first\n\nthird", 20)
	if !reflect.DeepEqual(got, []string{"first", "", "third"}) {
		t.Fatalf("newline handling: %q", got)
	}
	if LineCount("a\r\nb", 20) != 2 {
		t.Fatalf("CRLF should count as a single break")
	}
}

func TestWrapRuneAware(t *testing.T) {
	got := Wrap(strings.Repeat("é", 12), 5)
	if len(got) != 3 || got[2] != "éé" {
		t.Fatalf("multi-byte wrap: %q", got)
	}
	if Width(got) != 5 {
		t.Fatalf("Width = %d", Width(got))
	}
}

func TestWrapDeterministic(t *testing.T) {
	text := strings.Repeat("words of varying length here ", 40)
	a := Wrap(text, 35)
	b := GridWrapper{}.Wrap(text, 35)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("wrapper implementations disagree")
	}
	for _, l := range a {
		if len(l) > 35 {
			t.Fatalf("line exceeds columns: %q", l)
		}
	}
}

func TestMeasureBasicFace(t *testing.T) {
	face, m := BasicProvider{}.Resolve(FontSpec{})
	if m.Ascent <= 0 {
		t.Fatalf("metrics: %+v", m)
	}
	if w := Measure(face, "ABC"); w != 21 {
		t.Fatalf("Face7x13 advance for 3 glyphs = %v, want 21", w)
	}
}

func TestTTFProviderFallsBack(t *testing.T) {
	p := &TTFProvider{Path: "does-not-exist.ttf"}
	face, _ := p.Resolve(FontSpec{SizePt: 12, DPI: 72})
	if face == nil || p.Err() == nil {
		t.Fatalf("expected fallback face and load error")
	}
}
