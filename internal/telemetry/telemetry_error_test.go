/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"testing"
	"time"
)

// 127.0.0.1:1 refuses connections, which drives the send failure paths.
func TestUnreachableEndpointsAreHarmless(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	c.Paginate(120, 31, 40*time.Millisecond)
	c.Export("pdf", 31, time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Flush(ctx)
	c.UploadCrash([]byte("report"))
	c.Close()
	c.Close()
}

func TestNewDefaultSurvivesInitDefault(t *testing.T) {
	c := Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events"}
	NewDefault(c)
	installed := Default()
	InitDefault()
	if Default() != installed || !Enabled() {
		t.Fatalf("installed default client was replaced")
	}
	installed.Close()
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	c.Paginate(1, 1, 0)
	c.Export("fdx", 0, 0, nil)
	c.UploadCrash([]byte("x"))
	if c.Enabled() {
		t.Fatalf("nil client reports enabled")
	}
}
