/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"goscreenwriter/internal/export"
	"goscreenwriter/internal/validate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// WSMessage is a text frame sent during a websocket export. The PDF itself
// follows the "done" message as one binary frame.
type WSMessage struct {
	Type     string `json:"type"` // progress | done | error
	Percent  int    `json:"percent,omitempty"`
	Pages    int    `json:"pages,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Error    string `json:"error,omitempty"`
}

// wsExport streams a PDF export. The client sends one ExportRequest as a
// text frame and receives progress frames, a done frame and the file.
// Closing the socket cancels the export.
func (s *Server) wsExport(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(MaxBodyBytes)

	var req ExportRequest
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return
	}
	if err := json.Unmarshal(msg, &req); err != nil {
		s.wsSend(conn, WSMessage{Type: "error", Error: "bad request: " + err.Error()})
		return
	}
	if err := validate.Validate(req.Screenplay.Elements); err != nil {
		s.wsSend(conn, WSMessage{Type: "error", Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// Any read error means the peer went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	last := -1
	progress := func(p int) {
		if p == last {
			return
		}
		last = p
		if err := s.wsSend(conn, WSMessage{Type: "progress", Percent: p}); err != nil {
			cancel()
		}
	}
	var buf bytes.Buffer
	start := time.Now()
	st, err := export.PDF(ctx, &buf, req.Screenplay, s.pdfOptions(req, progress))
	s.opts.Telemetry.Export("pdf", st.Pages, time.Since(start), err)
	if s.afterExport != nil {
		s.afterExport(st, err)
	}
	if err != nil {
		if export.IsKind(err, export.KindCancelled) {
			s.log.Info("websocket export abandoned", "pages", st.Pages)
			return
		}
		_ = s.wsSend(conn, WSMessage{Type: "error", Error: err.Error()})
		return
	}
	if err := s.wsSend(conn, WSMessage{Type: "done", Pages: st.Pages, Bytes: buf.Len(), FileName: fileName(req.Screenplay, "pdf")}); err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
}

func (s *Server) wsSend(conn *websocket.Conn, m WSMessage) error { return s.wsSendJSON(conn, m) }

func (s *Server) wsSendJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			s.log.Debug("websocket write failed", "err", err)
		}
		return err
	}
	return nil
}
