package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validJSON = `{
  "reels": [
    {"url": "https://instagram.com/reel/ABC123/", "message": "hey {username}", "keywords": ["giveaway"]}
  ],
  "settings": {
    "check_interval_minutes": 5,
    "min_delay_seconds": 30,
    "max_delay_seconds": 60,
    "max_dms_per_session": 20
  }
}`

func writeTemp(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, "config.json", validJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Reels) != 1 {
		t.Fatalf("expected 1 reel, got %d", len(cfg.Reels))
	}
	if got := cfg.Settings.CheckInterval(); got != 5*time.Minute {
		t.Fatalf("check interval = %v, want 5m", got)
	}
	if got := cfg.Settings.SessionCap(); got != 20 {
		t.Fatalf("session cap = %d, want 20", got)
	}
	if got := cfg.Settings.DispatchWorkers(); got != 3 {
		t.Fatalf("dispatch workers default = %d, want 3", got)
	}
}

func TestLoadYAML(t *testing.T) {
	y := `
reels:
  - url: https://instagram.com/p/XYZ/
    message: "hi {username}"
settings:
  check_interval_minutes: 1
  check_interval_seconds: 30
  min_delay_seconds: 1
  max_delay_seconds: 2
  max_dms_per_session: 5
`
	cfg, err := Load(writeTemp(t, "config.yaml", y))
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	// seconds wins over minutes when both are present
	if got := cfg.Settings.CheckInterval(); got != 30*time.Second {
		t.Fatalf("check interval = %v, want 30s", got)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{
			name: "missing reels",
			data: `{"settings": {"check_interval_minutes": 1, "min_delay_seconds": 1, "max_delay_seconds": 2, "max_dms_per_session": 5}}`,
			want: "'reels'",
		},
		{
			name: "missing setting",
			data: `{"reels": [], "settings": {"check_interval_minutes": 1, "min_delay_seconds": 1, "max_delay_seconds": 2}}`,
			want: "max_dms_per_session",
		},
		{
			name: "negative setting",
			data: `{"reels": [], "settings": {"check_interval_minutes": -1, "min_delay_seconds": 1, "max_delay_seconds": 2, "max_dms_per_session": 5}}`,
			want: "positive",
		},
		{
			name: "reel missing url",
			data: `{"reels": [{"message": "hi"}], "settings": {"check_interval_minutes": 1, "min_delay_seconds": 1, "max_delay_seconds": 2, "max_dms_per_session": 5}}`,
			want: "missing 'url'",
		},
		{
			name: "reel missing message",
			data: `{"reels": [{"url": "https://instagram.com/reel/A/"}], "settings": {"check_interval_minutes": 1, "min_delay_seconds": 1, "max_delay_seconds": 2, "max_dms_per_session": 5}}`,
			want: "missing 'message'",
		},
		{
			name: "bad cron schedule",
			data: `{"reels": [], "settings": {"check_interval_minutes": 1, "min_delay_seconds": 1, "max_delay_seconds": 2, "max_dms_per_session": 5, "schedule": "not a cron"}}`,
			want: "schedule",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, "config.json", tc.data))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	data := `{"reels": [], "settings": {"check_interval_minutes": 1, "min_delay_seconds": 1, "max_delay_seconds": 2, "max_dms_per_session": 5}, "bogus": true}`
	if _, err := Parse(writeTemp(t, "config.json", data)); err == nil {
		t.Fatal("expected unknown-field error, got nil")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	if _, err := Parse(writeTemp(t, "config.json", validJSON+"\n{}")); err == nil {
		t.Fatal("expected trailing-data error, got nil")
	}
}
