/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/editor"
	"goscreenwriter/internal/pagination"
)

// EditOp is one client frame of a live edit session.
type EditOp struct {
	// Op is load, insert, update, content, delete, move, undo, redo,
	// autofix or flush.
	Op       string                 `json:"op"`
	At       int                    `json:"at,omitempty"`
	ID       string                 `json:"id,omitempty"`
	To       int                    `json:"to,omitempty"`
	Content  string                 `json:"content,omitempty"`
	Element  *domain.ScriptElement  `json:"element,omitempty"`
	Elements []domain.ScriptElement `json:"elements,omitempty"`
	// SceneNumbers only applies to load.
	SceneNumbers bool `json:"sceneNumbers,omitempty"`
}

// EditEvent is a server frame: an ack per op, a pass per settled
// repagination, or an error. Errors do not end the session. The pass of a
// flush or load may arrive ahead of its ack.
type EditEvent struct {
	Type      string                      `json:"type"` // ack | pass | error
	Op        string                      `json:"op,omitempty"`
	Revision  uint64                      `json:"revision"`
	ID        string                      `json:"id,omitempty"`
	Changed   bool                        `json:"changed,omitempty"`
	PageCount int                         `json:"pageCount,omitempty"`
	PageMap   map[string]int              `json:"pageMap,omitempty"`
	Flags     map[string]pagination.Flags `json:"flags,omitempty"`
	TookMs    int64                       `json:"tookMs,omitempty"`
	Error     string                      `json:"error,omitempty"`
}

// editConn serializes writes: passes arrive from the debounce timer while
// acks come from the read loop.
type editConn struct {
	s    *Server
	conn *websocket.Conn

	mu sync.Mutex
	// gen identifies the current session; passes of a replaced one are dropped.
	gen      int
	lastPass uint64
}

func (ec *editConn) send(ev EditEvent) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.s.wsSendJSON(ec.conn, ev)
}

// reset starts a new generation and returns its observer.
func (ec *editConn) reset() editor.Observer {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.gen++
	ec.lastPass = 0
	gen := ec.gen
	return func(p editor.Pass) { ec.pass(gen, p) }
}

func (ec *editConn) pass(gen int, p editor.Pass) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if gen != ec.gen || p.Revision <= ec.lastPass {
		return
	}
	ec.lastPass = p.Revision
	_ = ec.s.wsSendJSON(ec.conn, EditEvent{
		Type:      "pass",
		Revision:  p.Revision,
		PageCount: p.Result.PageCount,
		PageMap:   p.Result.PageMap,
		Flags:     p.Result.Flags,
		TookMs:    p.Took.Milliseconds(),
	})
}

// wsEdit runs an edit session for the lifetime of the socket. Edits are
// acknowledged at once; pagination follows after the debounce interval.
func (s *Server) wsEdit(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(MaxBodyBytes)

	ec := &editConn{s: s, conn: conn}
	newSession := func(els []domain.ScriptElement, sceneNumbers bool) *editor.Session {
		return editor.New(els, editor.Options{
			Debounce: s.opts.Debounce,
			Engine:   pagination.New(pagination.Options{SceneNumbers: sceneNumbers}),
			Observer: ec.reset(),
		})
	}
	sess := newSession(nil, false)
	defer func() { _ = sess.Close() }()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var op EditOp
		if err := json.Unmarshal(msg, &op); err != nil {
			if ec.send(EditEvent{Type: "error", Error: "bad request: " + err.Error()}) != nil {
				return
			}
			continue
		}
		if op.Op == "load" {
			// a fresh session so the loaded script is not an undoable step
			_ = sess.Close()
			sess = newSession(op.Elements, op.SceneNumbers)
			if _, err := sess.Flush(); err != nil {
				return
			}
			if ec.send(EditEvent{Type: "ack", Op: op.Op, Revision: sess.Revision()}) != nil {
				return
			}
			continue
		}
		ev, err := applyEdit(sess, op)
		if err != nil {
			ev = EditEvent{Type: "error", Op: op.Op, Revision: sess.Revision(), Error: err.Error()}
		}
		if ec.send(ev) != nil {
			return
		}
	}
}

var errMissingElement = errors.New("element is required")

func applyEdit(sess *editor.Session, op EditOp) (EditEvent, error) {
	ev := EditEvent{Type: "ack", Op: op.Op}
	var err error
	switch op.Op {
	case "insert":
		if op.Element == nil {
			return ev, errMissingElement
		}
		ev.ID, err = sess.Insert(op.At, *op.Element)
	case "append":
		if op.Element == nil {
			return ev, errMissingElement
		}
		ev.ID, err = sess.Append(*op.Element)
	case "update":
		if op.Element == nil {
			return ev, errMissingElement
		}
		ev.ID, err = op.Element.ID, sess.Update(*op.Element)
	case "content":
		ev.ID, err = op.ID, sess.SetContent(op.ID, op.Content)
	case "delete":
		ev.ID, err = op.ID, sess.Delete(op.ID)
	case "move":
		ev.ID, err = op.ID, sess.Move(op.ID, op.To)
	case "replace":
		err = sess.Replace(op.Elements)
	case "autofix":
		err = sess.AutoFix()
	case "undo":
		ev.Changed, err = sess.Undo()
	case "redo":
		ev.Changed, err = sess.Redo()
	case "flush":
		_, err = sess.Flush()
	default:
		err = errors.New("unknown op " + op.Op)
	}
	ev.Revision = sess.Revision()
	return ev, err
}
