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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "goscreenwriter/internal/log"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// scope. Environment variables (optionally loaded from a .env file) override
// file values at runtime and are never written back.
//
// config_version: bump when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Render        RenderConfig  `yaml:"render"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	EnableServer   bool   `yaml:"enable_server"`
	Addr           string `yaml:"addr"`
}

// RenderConfig holds defaults for preview and export.
type RenderConfig struct {
	SceneNumbers    bool   `yaml:"scene_numbers"`
	Watermark       string `yaml:"watermark"`
	TitlePage       bool   `yaml:"title_page"`
	BatchSize       int    `yaml:"batch_size"`
	DebounceMs      int    `yaml:"debounce_ms"`
	PreviewOverscan int    `yaml:"preview_overscan"`
	PreviewDPI      int    `yaml:"preview_dpi"`
	FontPath        string `yaml:"font_path"` // monospace TTF for raster preview
}

// BackendConfig configures the optional Postgres script store. The DSN is a
// secret and lives in the OS keychain, not in the YAML file.
type BackendConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Addr: "127.0.0.1:8750"},
		Render: RenderConfig{
			TitlePage:       true,
			BatchSize:       200,
			DebounceMs:      400,
			PreviewOverscan: 1,
			PreviewDPI:      96,
		},
		Backend: BackendConfig{TimeoutMs: 15000},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile      = "GSW_CONFIG"
	EnvTelemetryOptIn  = "GSW_TELEMETRY_OPT_IN"
	EnvEnableServer    = "GSW_ENABLE_SERVER"
	EnvAddr            = "GSW_ADDR"
	EnvSceneNumbers    = "GSW_SCENE_NUMBERS"
	EnvWatermark       = "GSW_WATERMARK"
	EnvBatchSize       = "GSW_BATCH_SIZE"
	EnvDebounceMs      = "GSW_DEBOUNCE_MS"
	EnvPreviewOverscan = "GSW_PREVIEW_OVERSCAN"
	EnvFontPath        = "GSW_FONT_PATH"
	EnvBackendTimeout  = "GSW_BACKEND_TIMEOUT_MS"
	// EnvBackendDSN bypasses the keychain, for CI and containers.
	EnvBackendDSN = "GSW_BACKEND_DSN"
	EnvLogLevel   = applog.EnvLevel
	EnvLogFormat  = applog.EnvFormat
	EnvLogSource  = applog.EnvSource
	EnvLogFile    = applog.EnvFile
)

// ConfigPath returns the per-user config file path. GSW_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoScreenwriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoScreenwriter")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "goscreenwriter")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "goscreenwriter")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The backend DSN is returned separately: it comes
// from GSW_BACKEND_DSN or the OS keychain.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applog.WithComponent("config").Warn("ignoring unreadable config file", "path", path, "err", err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	if dsn := strings.TrimSpace(os.Getenv(EnvBackendDSN)); dsn != "" {
		return cfg, dsn, nil
	}
	dsn, _ := secretStore.Get(keyringService, keyringDSN)
	return cfg, dsn, nil
}

// Save writes the user config YAML and stores dsn in the keychain when non-empty.
func Save(cfg AppConfig, dsn string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if dsn != "" {
		return secretStore.Set(keyringService, keyringDSN, dsn)
	}
	return nil
}

// Dump renders cfg as YAML. The DSN is never part of it.
func Dump(cfg AppConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans are copied as-is so a file can switch them off again
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableServer = src.General.EnableServer
	if s := strings.TrimSpace(src.General.Addr); s != "" {
		dst.General.Addr = s
	}

	dst.Render.SceneNumbers = src.Render.SceneNumbers
	dst.Render.TitlePage = src.Render.TitlePage
	if src.Render.Watermark != "" {
		dst.Render.Watermark = src.Render.Watermark
	}
	if src.Render.BatchSize > 0 {
		dst.Render.BatchSize = src.Render.BatchSize
	}
	if src.Render.DebounceMs > 0 {
		dst.Render.DebounceMs = src.Render.DebounceMs
	}
	if src.Render.PreviewOverscan > 0 {
		dst.Render.PreviewOverscan = src.Render.PreviewOverscan
	}
	if src.Render.PreviewDPI > 0 {
		dst.Render.PreviewDPI = src.Render.PreviewDPI
	}
	if s := strings.TrimSpace(src.Render.FontPath); s != "" {
		dst.Render.FontPath = s
	}

	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func envBool(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "on", "yes":
			*dst = true
		default:
			*dst = false
		}
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envBool(EnvTelemetryOptIn, &cfg.General.TelemetryOptIn)
	envBool(EnvEnableServer, &cfg.General.EnableServer)
	envString(EnvAddr, &cfg.General.Addr)
	envBool(EnvSceneNumbers, &cfg.Render.SceneNumbers)
	envString(EnvWatermark, &cfg.Render.Watermark)
	envInt(EnvBatchSize, &cfg.Render.BatchSize)
	envInt(EnvDebounceMs, &cfg.Render.DebounceMs)
	envInt(EnvPreviewOverscan, &cfg.Render.PreviewOverscan)
	envString(EnvFontPath, &cfg.Render.FontPath)
	envInt(EnvBackendTimeout, &cfg.Backend.TimeoutMs)
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	envBool(EnvLogSource, &cfg.Logging.Source)
	envString(EnvLogFile, &cfg.Logging.File)
}

var overrideKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.enable_server":    EnvEnableServer,
	"general.addr":             EnvAddr,
	"render.scene_numbers":     EnvSceneNumbers,
	"render.watermark":         EnvWatermark,
	"render.batch_size":        EnvBatchSize,
	"render.debounce_ms":       EnvDebounceMs,
	"render.preview_overscan":  EnvPreviewOverscan,
	"render.font_path":         EnvFontPath,
	"backend.timeout_ms":       EnvBackendTimeout,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrideKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Debounce returns the edit-settle delay for repagination.
func (r RenderConfig) Debounce() time.Duration {
	if r.DebounceMs <= 0 {
		return time.Duration(Defaults().Render.DebounceMs) * time.Millisecond
	}
	return time.Duration(r.DebounceMs) * time.Millisecond
}

// Timeout returns the backend timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
