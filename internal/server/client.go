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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to a running server.
type Client struct {
	BaseURL string
	client  *http.Client
}

// NewClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var e struct {
			Error    string   `json:"error"`
			Problems []string `json:"problems"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&e)
		if len(e.Problems) > 0 {
			return nil, fmt.Errorf("server %s %s: %s: %s", method, path, resp.Status, strings.Join(e.Problems, "; "))
		}
		return nil, fmt.Errorf("server %s %s: %s %s", method, path, resp.Status, e.Error)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Version returns the server's version line.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v struct {
		String string `json:"string"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/version", nil, &v); err != nil {
		return "", err
	}
	return v.String, nil
}

func (c *Client) Paginate(ctx context.Context, req PaginateRequest) (PaginateResponse, error) {
	var out PaginateResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/paginate", req, &out)
	return out, err
}

func (c *Client) Preview(ctx context.Context, req PreviewRequest) (PreviewResponse, error) {
	var out PreviewResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/preview", req, &out)
	return out, err
}

// Export fetches the rendered file of format (pdf, fdx or fountain).
func (c *Client) Export(ctx context.Context, format string, req ExportRequest) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/export/"+url.PathEscape(format), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ExportPDFStream runs a websocket export, reporting progress as it
// arrives. Cancelling ctx closes the socket, which abandons the export on
// the server.
func (c *Client) ExportPDFStream(ctx context.Context, req ExportRequest, progress func(int)) ([]byte, WSMessage, error) {
	u, err := url.Parse(c.BaseURL + "/ws/export")
	if err != nil {
		return nil, WSMessage{}, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, WSMessage{}, fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return nil, WSMessage{}, err
	}
	var done WSMessage
	for {
		typ, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, done, ctx.Err()
			}
			return nil, done, fmt.Errorf("websocket export: %w", err)
		}
		if typ == websocket.BinaryMessage {
			if done.Type != "done" {
				return nil, done, fmt.Errorf("websocket export: file before done message")
			}
			return b, done, nil
		}
		var m WSMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, done, fmt.Errorf("websocket export: %w", err)
		}
		switch m.Type {
		case "progress":
			if progress != nil {
				progress(m.Percent)
			}
		case "done":
			done = m
		case "error":
			return nil, m, fmt.Errorf("websocket export: %s", m.Error)
		}
	}
}
