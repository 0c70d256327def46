/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config holds the user-editable application configuration: a YAML
// file in the user scope with environment variables as read-only runtime
// overrides. The generation-service token never touches disk; it lives in
// the OS keychain.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GenerateConfig points at the remote texture generation service.
type GenerateConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AssetsConfig locates local design assets.
type AssetsConfig struct {
	// MasksDir holds one alpha PNG per vehicle model.
	MasksDir string `yaml:"masks_dir"`
	// FontsDir holds extra TTF/OTF families offered in the text tool.
	FontsDir string `yaml:"fonts_dir"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Generate      GenerateConfig `yaml:"generate"`
	Logging       LoggingConfig  `yaml:"logging"`
	Assets        AssetsConfig   `yaml:"assets"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Generate:      GenerateConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Assets:        AssetsConfig{},
	}
}

// Env var names used as overrides.
const (
	EnvGenerateURL       = "WS_GENERATE_URL"
	EnvGenerateTimeoutMs = "WS_GENERATE_TIMEOUT_MS"
	EnvGenerateTLSInsec  = "WS_TLS_INSECURE"
	EnvTelemetryOptIn    = "WS_TELEMETRY_OPT_IN"
	EnvMasksDir          = "WS_MASKS_DIR"
	EnvFontsDir          = "WS_FONTS_DIR"
	EnvLogLevel          = "WS_LOG_LEVEL"
	EnvLogFormat         = "WS_LOG_FORMAT"
	EnvLogSource         = "WS_LOG_SOURCE"
	EnvLogFile           = "WS_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "WrapStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "WrapStudio")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "wrapstudio")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The generation token comes from the keyring and is
// returned separately, never kept in the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
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
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Generate.BaseURL != "" {
		dst.Generate.BaseURL = src.Generate.BaseURL
	}
	if src.Generate.TimeoutMs != 0 {
		dst.Generate.TimeoutMs = src.Generate.TimeoutMs
	}
	dst.Generate.TLSInsecure = src.Generate.TLSInsecure
	if strings.TrimSpace(src.Assets.MasksDir) != "" {
		dst.Assets.MasksDir = strings.TrimSpace(src.Assets.MasksDir)
	}
	if strings.TrimSpace(src.Assets.FontsDir) != "" {
		dst.Assets.FontsDir = strings.TrimSpace(src.Assets.FontsDir)
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvGenerateURL)); v != "" {
		cfg.Generate.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenerateTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generate.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenerateTLSInsec)); v != "" {
		cfg.Generate.TLSInsecure = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMasksDir)); v != "" {
		cfg.Assets.MasksDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontsDir)); v != "" {
		cfg.Assets.FontsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func isTruthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}
