/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// memStore is an in-memory SecretStore.
type memStore map[string]string

func (m memStore) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memStore) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memStore) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	old := secretStore
	secretStore = memStore{}
	t.Cleanup(func() { secretStore = old })
	return path
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	isolate(t)
	cfg, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if dsn != "" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if cfg.Render.BatchSize != 200 || cfg.Render.Debounce() != 400*time.Millisecond {
		t.Fatalf("defaults not applied: %+v", cfg.Render)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Render.SceneNumbers = true
	cfg.Render.Watermark = "CONFIDENTIAL"
	cfg.General.Addr = "0.0.0.0:9000"
	if err := Save(cfg, "postgres://u:p@localhost/db"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Render.SceneNumbers || got.Render.Watermark != "CONFIDENTIAL" || got.General.Addr != "0.0.0.0:9000" {
		t.Fatalf("round trip lost values: %+v", got)
	}
	if dsn != "postgres://u:p@localhost/db" {
		t.Fatalf("dsn from keychain = %q", dsn)
	}
}

func TestEnvOverridesRender(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSceneNumbers, "yes")
	t.Setenv(EnvBatchSize, "50")
	t.Setenv(EnvWatermark, "DRAFT")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Render.SceneNumbers || cfg.Render.BatchSize != 50 || cfg.Render.Watermark != "DRAFT" {
		t.Fatalf("env overrides not applied: %+v", cfg.Render)
	}
	if env, ok := EnvOverrideFor("render.batch_size"); !ok || env != EnvBatchSize {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("render.debounce_ms"); ok {
		t.Fatalf("debounce is not overridden")
	}
}

func TestEnvDSNBypassesKeychain(t *testing.T) {
	isolate(t)
	_ = secretStore.Set(keyringService, keyringDSN, "from-keychain")
	t.Setenv(EnvBackendDSN, "from-env")
	_, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if dsn != "from-env" {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/gsw.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gsw.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/log/gsw.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/log/gsw.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("GSW_TEST_DOTENV_VALUE=hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GSW_TEST_DOTENV_VALUE", "")
	_ = os.Unsetenv("GSW_TEST_DOTENV_VALUE")
	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("GSW_TEST_DOTENV_VALUE"); got != "hello" {
		t.Fatalf("dotenv value = %q", got)
	}
}

func TestInvalidYAMLFallsBackToDefaults(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("render: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Render.BatchSize != Defaults().Render.BatchSize {
		t.Fatalf("expected defaults, got %+v", cfg.Render)
	}
}

func TestSaveDSNAndDump(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendDSN, "")
	if err := SaveDSN("postgres://u:secret@db/gsw"); err != nil {
		t.Fatalf("SaveDSN: %v", err)
	}
	_, dsn, err := Load()
	if err != nil || dsn != "postgres://u:secret@db/gsw" {
		t.Fatalf("Load dsn = %q, %v", dsn, err)
	}
	data, err := Dump(Defaults())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if strings.Contains(string(data), "secret") || !strings.Contains(string(data), "batch_size: 200") {
		t.Fatalf("unexpected dump:\n%s", data)
	}
	if err := SaveDSN(""); err != nil {
		t.Fatalf("clear dsn: %v", err)
	}
	if _, dsn, _ := Load(); dsn != "" {
		t.Fatalf("dsn not cleared: %q", dsn)
	}
}
