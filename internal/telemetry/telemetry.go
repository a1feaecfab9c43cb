/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a tiny opt-in event sender for anonymous usage
// metrics (pagination and export timings) and optional crash uploads.
// Events never carry script text.
//
// Events are queued and posted in batches: when BatchSize events are
// waiting, every FlushInterval, and on Flush. A full queue drops events.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/version"
)

const (
	EnvOptIn     = "GSW_TELEMETRY_OPT_IN"
	EnvEventsURL = "GSW_TELEMETRY_URL"
	EnvCrashURL  = "GSW_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "GSW_TELEMETRY_TIMEOUT_MS"
	EnvBatch     = "GSW_TELEMETRY_BATCH"
	EnvDebug     = "GSW_TELEMETRY_DEBUG"
)

const (
	// maxPropLen caps string property values so free text cannot leak through.
	maxPropLen = 64
	queueSize  = 64

	defaultTimeout  = 1500 * time.Millisecond
	defaultBatch    = 16
	defaultInterval = 5 * time.Second
)

// Config holds runtime configuration for telemetry and crash uploads.
// Telemetry is opt-in; without an EventsURL nothing is sent even when
// OptIn is set.
type Config struct {
	OptIn         bool
	EventsURL     string
	CrashURL      string
	Timeout       time.Duration // per request
	BatchSize     int           // events per POST
	FlushInterval time.Duration // upper bound on how long an event waits
	DebugLogging  bool
}

// FromEnv reads the GSW_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv(EnvOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMs))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvBatch))); err == nil && n > 0 {
		cfg.BatchSize = n
	}
	return cfg.withDefaults()
}

func (cfg Config) withDefaults() Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatch
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultInterval
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Event is one anonymous usage record. Props only ever hold scalars.
type Event struct {
	Name  string
	At    time.Time
	Props map[string]any
}

// MarshalJSON flattens Props next to name and ts.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Props)+2)
	for k, v := range e.Props {
		m[k] = v
	}
	m["name"] = e.Name
	m["ts"] = e.At.UTC().Format(time.RFC3339Nano)
	return json.Marshal(m)
}

// Batch is the body of one POST to the events URL.
type Batch struct {
	Version string  `json:"version"`
	OS      string  `json:"os"`
	Arch    string  `json:"arch"`
	Events  []Event `json:"events"`
}

// Client queues events and posts them from a single goroutine. A nil
// *Client is valid and does nothing.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan Event
	flush   chan chan struct{}
	ctx     context.Context
	stop    context.CancelFunc
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault installs a client built from the environment unless one is
// already installed.
func InitDefault() {
	defaultOnce.Do(func() {
		defaultClient = New(FromEnv())
	})
}

// NewDefault creates and installs the default client with cfg. A later
// InitDefault keeps it.
func NewDefault(cfg Config) {
	defaultOnce.Do(func() {})
	defaultClient = New(cfg)
}

// Default returns the package-level client.
func Default() *Client {
	InitDefault()
	return defaultClient
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	ctx, stop := context.WithCancel(context.Background())
	c := &Client{
		cfg:   cfg,
		log:   applog.WithComponent("telemetry"),
		cli:   &http.Client{Timeout: cfg.Timeout},
		q:     make(chan Event, queueSize),
		flush: make(chan chan struct{}),
		ctx:   ctx,
		stop:  stop,
		done:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are collected and have somewhere to go.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports Enabled of the default client.
func Enabled() bool { return Default().Enabled() }

// Dropped returns how many events were lost to a full queue or a failed POST.
func (c *Client) Dropped() int64 {
	if c == nil {
		return 0
	}
	return c.dropped.Load()
}

// Event queues a named event. Props that are not scalars or short strings
// are left out. It never blocks.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := Event{Name: name, At: time.Now(), Props: make(map[string]any, len(props))}
	for k, v := range props {
		if v, ok := scalar(v); ok {
			ev.Props[k] = v
		}
	}
	select {
	case c.q <- ev:
	default:
		c.dropped.Add(1)
	}
}

// Track queues a named event on the default client.
func Track(name string, props map[string]any) { Default().Event(name, props) }

// scalar keeps numbers, bools, durations and short strings.
func scalar(v any) (any, bool) {
	switch x := v.(type) {
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return x, true
	case time.Duration:
		return x.Milliseconds(), true
	case string:
		if len(x) > maxPropLen {
			return nil, false
		}
		return x, true
	}
	return nil, false
}

// Paginate records one pagination pass.
func (c *Client) Paginate(elements, pages int, took time.Duration) {
	c.Event("paginate", map[string]any{"elements": elements, "pages": pages, "took_ms": took})
}

// Export records one export; err only contributes whether it failed.
func (c *Client) Export(format string, pages int, took time.Duration, err error) {
	c.Event("export", map[string]any{"format": format, "pages": pages, "took_ms": took, "ok": err == nil})
}

// Paginate using default client.
func Paginate(elements, pages int, took time.Duration) { Default().Paginate(elements, pages, took) }

// Export using default client.
func Export(format string, pages int, took time.Duration, err error) {
	Default().Export(format, pages, took, err)
}

// Flush posts everything queued so far and waits for it, or for ctx.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	ack := make(chan struct{})
	select {
	case c.flush <- ack:
	case <-ctx.Done():
		return
	case <-c.done:
		return
	}
	select {
	case <-ack:
	case <-ctx.Done():
	case <-c.done:
	}
}

// Close stops the sender. Queued events that were not flushed are lost.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		c.stop()
		<-c.done
	})
}

func (c *Client) loop() {
	defer close(c.done)
	tick := time.NewTicker(c.cfg.FlushInterval)
	defer tick.Stop()

	var batch []Event
	send := func() {
		if len(batch) > 0 {
			c.post(batch)
			batch = nil
		}
	}
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.q:
			batch = append(batch, ev)
			if len(batch) >= c.cfg.BatchSize {
				send()
			}
		case <-tick.C:
			send()
		case ack := <-c.flush:
			batch = c.drain(batch)
			send()
			close(ack)
		}
	}
}

func (c *Client) drain(batch []Event) []Event {
	for {
		select {
		case ev := <-c.q:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
}

func (c *Client) post(events []Event) {
	body, err := json.Marshal(Batch{Version: version.String(), OS: runtime.GOOS, Arch: runtime.GOARCH, Events: events})
	if err == nil {
		err = c.postBody(c.ctx, c.cfg.EventsURL, "application/json", body)
	}
	if err != nil {
		c.dropped.Add(int64(len(events)))
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Int("events", len(events)), slog.Any("err", err))
		}
		return
	}
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry batch sent", slog.Int("events", len(events)))
	}
}

func (c *Client) postBody(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry: %s answered %s", url, resp.Status)
	}
	return nil
}

// UploadCrash posts a serialized crash report to the crash URL when the user
// opted in. It blocks for at most the request timeout since the process is
// about to exit.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if err := c.postBody(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("crash upload failed", slog.Any("err", err))
		}
		return
	}
	if c.cfg.DebugLogging {
		c.log.Debug("crash report uploaded")
	}
}

// UploadCrash using default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
