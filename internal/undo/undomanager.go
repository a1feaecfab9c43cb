/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps bounded undo/redo history of screenplay element lists.
package undo

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"goscreenwriter/internal/domain"
)

// Snapshot is the state of one document before an edit. Blob holds the
// JSON encoded element list; its length is the memory charged for it.
type Snapshot struct {
	Doc   string
	Label string
	Blob  []byte
	TS    time.Time
}

// Capture encodes elements into a snapshot of doc.
func Capture(doc, label string, elements []domain.ScriptElement, ts time.Time) (Snapshot, error) {
	b, err := json.Marshal(elements)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return Snapshot{Doc: doc, Label: label, Blob: b, TS: ts}, nil
}

// Elements decodes the element list held by s.
func (s Snapshot) Elements() ([]domain.ScriptElement, error) {
	var out []domain.ScriptElement
	if err := json.Unmarshal(s.Blob, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return out, nil
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerDoc limits the undo depth per document (0 means unlimited).
	MaxPerDoc int
	// MinInterval coalesces snapshots pushed within the interval for the
	// same document: a burst of keystrokes becomes one undo step that
	// returns to the state before the burst.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per document with memory
// caps. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-document stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records the state before an edit and clears the document's redo
// stack. Within MinInterval of the previous push the older state is kept
// and only its timestamp moves forward.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearRedoLocked(s.Doc)
	stack := m.undo[s.Doc]
	if n := len(stack); n > 0 && s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		stack[n-1].TS = s.TS
		return
	}
	m.undo[s.Doc] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Doc)
}

// Undo pops the latest state of current.Doc and parks current on the redo
// stack. ok is false when there is nothing to undo.
func (m *Manager) Undo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[current.Doc]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[current.Doc] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[current.Doc] = append(m.redo[current.Doc], current)
	m.totalBytes += len(current.Blob)
	return s, true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[current.Doc]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[current.Doc] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	m.undo[current.Doc] = append(m.undo[current.Doc], current)
	m.totalBytes += len(current.Blob)
	m.enforceCapsLocked(current.Doc)
	return s, true
}

// CanUndo and CanRedo report the stack depths of doc.
func (m *Manager) CanUndo(doc string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[doc])
}

func (m *Manager) CanRedo(doc string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[doc])
}

// Clear drops all history of doc.
func (m *Manager) Clear(doc string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[doc] {
		m.totalBytes -= len(s.Blob)
	}
	m.clearRedoLocked(doc)
	delete(m.undo, doc)
	delete(m.redo, doc)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, docs int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, docs, totalSnapshots
}

func (m *Manager) clearRedoLocked(doc string) {
	for _, s := range m.redo[doc] {
		m.totalBytes -= len(s.Blob)
	}
	m.redo[doc] = nil
}

func (m *Manager) enforceCapsLocked(doc string) {
	if m.cfg.MaxPerDoc > 0 {
		stack := m.undo[doc]
		if len(stack) > m.cfg.MaxPerDoc {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerDoc
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[doc] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all documents
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestDoc := ""
		found := false
		var oldestTS time.Time
		for d, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestDoc, oldestTS, found = d, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestDoc]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestDoc] = stack[1:]
		if len(m.undo[oldestDoc]) == 0 {
			delete(m.undo, oldestDoc)
		}
	}
}
