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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/export"
)

func TestWebsocketExportStreamsProgressThenPDF(t *testing.T) {
	_, ts := newTestServer(t)
	c := NewClient(ts.URL)
	var mu sync.Mutex
	var seen []int
	b, done, err := c.ExportPDFStream(context.Background(), ExportRequest{Screenplay: domain.Screenplay{Elements: longScript(30)}}, func(p int) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("ExportPDFStream: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("expected PDF bytes")
	}
	if done.Pages < 2 || done.Bytes != len(b) || done.FileName != "screenplay.pdf" {
		t.Fatalf("done = %+v (len %d)", done, len(b))
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 || seen[0] != 0 || seen[len(seen)-1] != 100 {
		t.Fatalf("progress = %v", seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress went backwards: %v", seen)
		}
	}
}

func TestWebsocketExportRejectsInvalidScript(t *testing.T) {
	_, ts := newTestServer(t)
	els := scene()
	els[0].ID = ""
	_, msg, err := NewClient(ts.URL).ExportPDFStream(context.Background(), ExportRequest{Screenplay: domain.Screenplay{Elements: els}}, nil)
	if err == nil || msg.Type != "error" || !strings.Contains(msg.Error, "empty id") {
		t.Fatalf("expected error frame, got %+v, %v", msg, err)
	}
}

func TestWebsocketCloseAbandonsExport(t *testing.T) {
	if testing.Short() {
		t.Skip("renders a large script")
	}
	s, ts := newTestServer(t)
	s.opts.BatchSize = 1
	finished := make(chan error, 1)
	s.afterExport = func(_ export.Stats, err error) { finished <- err }

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/export", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.WriteJSON(ExportRequest{Screenplay: domain.Screenplay{Elements: longScript(3000)}}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	var m WSMessage
	if err := conn.ReadJSON(&m); err != nil || m.Type != "progress" {
		t.Fatalf("first frame = %+v, %v", m, err)
	}
	_ = conn.Close()

	select {
	case err := <-finished:
		if !export.IsKind(err, export.KindCancelled) {
			t.Fatalf("expected cancelled export, got %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatalf("export did not stop after the socket closed")
	}
}
