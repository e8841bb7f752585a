package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cron "github.com/robfig/cron/v3"
	yaml "go.yaml.in/yaml/v3"
)

// Parse reads and strictly decodes the config file at path. JSON is the
// native format; .yaml/.yml files are re-encoded as JSON first so unknown
// reel or settings keys are rejected identically in both formats.
func Parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAMLPath(path) {
		if b, err = yamlToJSON(b); err != nil {
			return nil, err
		}
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Load parses and validates in one step.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON re-encodes a YAML config document as JSON. The numeric settings
// (delays, intervals, the session cap) survive the round trip unchanged, and
// the reel list keeps its order.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	out, err := json.Marshal(stringifyKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	return out, nil
}

// stringifyKeys rewrites any non-string mapping keys a YAML decode can
// produce; encoding/json refuses map[any]any.
func stringifyKeys(v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = stringifyKeys(val)
		}
		return m
	case map[string]any:
		for k, val := range x {
			x[k] = stringifyKeys(val)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stringifyKeys(x[i])
		}
		return x
	default:
		return v
	}
}

// Validate fails fast with a descriptive error on structural problems.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is empty")
	}
	if cfg.Reels == nil {
		return fmt.Errorf("config must contain 'reels' list")
	}

	s := cfg.Settings
	required := []struct {
		name string
		val  *float64
	}{
		{"check_interval_minutes", s.CheckIntervalMinutes},
		{"min_delay_seconds", s.MinDelaySeconds},
		{"max_delay_seconds", s.MaxDelaySeconds},
	}
	for _, r := range required {
		if r.val == nil {
			return fmt.Errorf("missing required setting: %s", r.name)
		}
		if *r.val < 0 {
			return fmt.Errorf("setting '%s' must be a positive number", r.name)
		}
	}
	if s.MaxDMsPerSession == nil {
		return fmt.Errorf("missing required setting: max_dms_per_session")
	}
	if *s.MaxDMsPerSession < 0 {
		return fmt.Errorf("setting 'max_dms_per_session' must be a positive number")
	}
	if s.CheckIntervalSeconds != nil && *s.CheckIntervalSeconds < 0 {
		return fmt.Errorf("setting 'check_interval_seconds' must be a positive number")
	}
	if s.MinDelay() > s.MaxDelay() {
		return fmt.Errorf("min_delay_seconds must not exceed max_delay_seconds")
	}
	if sched := strings.TrimSpace(s.Schedule); sched != "" {
		if _, err := cron.ParseStandard(sched); err != nil {
			return fmt.Errorf("setting 'schedule' is not a valid cron expression: %w", err)
		}
	}

	for i, reel := range cfg.Reels {
		if strings.TrimSpace(reel.URL) == "" {
			return fmt.Errorf("reel %d missing 'url'", i+1)
		}
		if strings.TrimSpace(reel.Message) == "" {
			return fmt.Errorf("reel %d missing 'message'", i+1)
		}
	}

	if n := cfg.Notifications; n != nil {
		if strings.TrimSpace(n.TelegramToken) == "" || n.ChatID == 0 {
			return fmt.Errorf("notifications require both telegram_token and chat_id")
		}
	}
	return nil
}
