/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor models an edit session over a flat ordered element list.
// Edits are recorded for undo and repagination runs after the edits settle.
package editor

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"goscreenwriter/internal/domain"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/undo"
	"goscreenwriter/internal/validate"
)

var (
	ErrClosed   = errors.New("editor: session closed")
	ErrNotFound = errors.New("editor: element not found")
)

// Observer receives every completed pagination pass.
type Observer func(Pass)

// Pass is the outcome of one repagination.
type Pass struct {
	// Revision is the edit revision the pass was computed for.
	Revision uint64
	Result   pagination.Result
	Took     time.Duration
}

type Options struct {
	// Doc keys the undo history; defaults to "screenplay".
	Doc      string
	Debounce time.Duration
	Engine   *pagination.Engine
	Undo     *undo.Manager
	Observer Observer
	// Now is the clock used for undo timestamps.
	Now func() time.Time
}

// Session is safe for concurrent use. Observers run on the goroutine that
// completed the pass and must not call back into blocking Session methods
// that wait on the same pass.
type Session struct {
	mu       sync.Mutex
	doc      string
	elements []domain.ScriptElement
	engine   *pagination.Engine
	history  *undo.Manager
	observer Observer
	debounce time.Duration
	now      func() time.Time

	timer    *time.Timer
	revision uint64
	last     Pass
	closed   bool

	// notify serializes observer calls; delivered is the newest revision handed out.
	notify    sync.Mutex
	delivered uint64
}

// New starts a session over a copy of elements.
func New(elements []domain.ScriptElement, opts Options) *Session {
	if opts.Doc == "" {
		opts.Doc = "screenplay"
	}
	if opts.Engine == nil {
		opts.Engine = pagination.New(pagination.Options{})
	}
	if opts.Undo == nil {
		opts.Undo = undo.NewManager(undo.Config{MaxPerDoc: 200})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		doc:      opts.Doc,
		elements: renumber(clone(elements)),
		engine:   opts.Engine,
		history:  opts.Undo,
		observer: opts.Observer,
		debounce: opts.Debounce,
		now:      opts.Now,
		revision: 1,
	}
	s.last = Pass{Revision: 0, Result: pagination.Result{PageMap: map[string]int{}, PageCount: 1}}
	return s
}

// Elements returns a copy of the current element list.
func (s *Session) Elements() []domain.ScriptElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.elements)
}

// Revision increments on every applied edit.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Result returns the latest completed pass and whether it reflects the
// current revision.
func (s *Session) Result() (Pass, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last.Revision == s.revision
}

// Validate reports structural problems of the current list.
func (s *Session) Validate() error {
	return validate.Validate(s.Elements())
}

// Insert places el at index at (clamped) and returns its id. An empty id
// is replaced by a fresh UUID.
func (s *Session) Insert(at int, el domain.ScriptElement) (string, error) {
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	err := s.edit("insert", func(els []domain.ScriptElement) ([]domain.ScriptElement, error) {
		if indexOf(els, el.ID) >= 0 {
			return nil, fmt.Errorf("editor: duplicate id %q", el.ID)
		}
		at = max(0, min(at, len(els)))
		out := make([]domain.ScriptElement, 0, len(els)+1)
		out = append(out, els[:at]...)
		out = append(out, el)
		return append(out, els[at:]...), nil
	})
	return el.ID, err
}

// Append adds el at the end of the list.
func (s *Session) Append(el domain.ScriptElement) (string, error) {
	return s.Insert(math.MaxInt, el)
}

// Update replaces the element carrying el.ID in place.
func (s *Session) Update(el domain.ScriptElement) error {
	return s.edit("update", func(els []domain.ScriptElement) ([]domain.ScriptElement, error) {
		i := indexOf(els, el.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, el.ID)
		}
		els[i] = el
		return els, nil
	})
}

// SetContent changes only the text of an element.
func (s *Session) SetContent(id, content string) error {
	return s.edit("type", func(els []domain.ScriptElement) ([]domain.ScriptElement, error) {
		i := indexOf(els, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		els[i].Content = content
		return els, nil
	})
}

func (s *Session) Delete(id string) error {
	return s.edit("delete", func(els []domain.ScriptElement) ([]domain.ScriptElement, error) {
		i := indexOf(els, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return append(els[:i], els[i+1:]...), nil
	})
}

// Move relocates id to index to of the resulting list.
func (s *Session) Move(id string, to int) error {
	return s.edit("move", func(els []domain.ScriptElement) ([]domain.ScriptElement, error) {
		i := indexOf(els, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		el := els[i]
		els = append(els[:i], els[i+1:]...)
		to = max(0, min(to, len(els)))
		out := make([]domain.ScriptElement, 0, len(els)+1)
		out = append(out, els[:to]...)
		out = append(out, el)
		return append(out, els[to:]...), nil
	})
}

// Replace swaps in a whole new list, e.g. after an import.
func (s *Session) Replace(elements []domain.ScriptElement) error {
	return s.edit("replace", func([]domain.ScriptElement) ([]domain.ScriptElement, error) {
		return clone(elements), nil
	})
}

// AutoFix applies validate.AutoFix as one undoable edit.
func (s *Session) AutoFix() error {
	return s.edit("autofix", func(els []domain.ScriptElement) ([]domain.ScriptElement, error) {
		return validate.AutoFix(els), nil
	})
}

func (s *Session) edit(label string, fn func([]domain.ScriptElement) ([]domain.ScriptElement, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	before, err := undo.Capture(s.doc, label, s.elements, s.now())
	if err != nil {
		return err
	}
	next, err := fn(clone(s.elements))
	if err != nil {
		return err
	}
	s.history.Push(before)
	s.elements = renumber(next)
	s.touchLocked()
	return nil
}

// Undo restores the state before the latest edit. ok is false when the
// history is empty.
func (s *Session) Undo() (bool, error) {
	return s.step(s.history.Undo)
}

func (s *Session) Redo() (bool, error) {
	return s.step(s.history.Redo)
}

func (s *Session) step(move func(undo.Snapshot) (undo.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	current, err := undo.Capture(s.doc, "current", s.elements, s.now())
	if err != nil {
		return false, err
	}
	snap, ok := move(current)
	if !ok {
		return false, nil
	}
	els, err := snap.Elements()
	if err != nil {
		return false, err
	}
	s.elements = els
	s.touchLocked()
	return true, nil
}

// touchLocked bumps the revision and (re)arms the debounce timer.
func (s *Session) touchLocked() {
	s.revision++
	if s.debounce <= 0 {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.settle)
		return
	}
	s.timer.Reset(s.debounce)
}

func (s *Session) settle() {
	if _, err := s.repaginate(); err != nil && !errors.Is(err, ErrClosed) {
		applog.WithOperation(applog.WithComponent("editor"), "settle").Warn("repagination failed", "err", err)
	}
}

// Flush cancels any pending debounce and paginates the current revision
// now. It returns the cached pass when nothing changed since the last one.
func (s *Session) Flush() (Pass, error) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.repaginate()
}

func (s *Session) repaginate() (Pass, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Pass{}, ErrClosed
	}
	if s.last.Revision == s.revision {
		p := s.last
		s.mu.Unlock()
		return p, nil
	}
	rev := s.revision
	els := clone(s.elements)
	s.mu.Unlock()

	start := time.Now()
	res := s.engine.Paginate(els)
	p := Pass{Revision: rev, Result: res, Took: time.Since(start)}

	s.mu.Lock()
	if rev <= s.last.Revision {
		// a concurrent pass already published something at least as new
		p = s.last
		s.mu.Unlock()
		return p, nil
	}
	s.last = p
	obs := s.observer
	s.mu.Unlock()

	applog.WithOperation(applog.WithComponent("editor"), "paginate").Debug("pass done",
		"revision", rev, "pages", res.PageCount, "elements", len(els), "took", p.Took)
	if obs != nil {
		s.deliver(obs, p)
	}
	return p, nil
}

// deliver calls obs with p unless a newer pass already went out.
func (s *Session) deliver(obs Observer, p Pass) {
	s.notify.Lock()
	defer s.notify.Unlock()
	if p.Revision <= s.delivered {
		return
	}
	s.delivered = p.Revision
	obs(p)
}

// Close stops pending work and drops the undo history. Further edits fail
// with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.history.Clear(s.doc)
	return nil
}

func indexOf(els []domain.ScriptElement, id string) int {
	for i := range els {
		if els[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(els []domain.ScriptElement) []domain.ScriptElement {
	out := make([]domain.ScriptElement, len(els))
	copy(out, els)
	return out
}

func renumber(els []domain.ScriptElement) []domain.ScriptElement {
	for i := range els {
		els[i].Sequence = i + 1
	}
	return els
}
