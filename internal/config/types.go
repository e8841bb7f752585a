package config

import (
	"strings"
	"time"
)

// Config mirrors config.json (YAML accepted too, see load.go).
//
// Credentials may live here as a fallback; environment variables win
// (INSTAGRAM_USERNAME / INSTAGRAM_PASSWORD).
type Config struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	Reels    []Reel   `json:"reels"`
	Settings Settings `json:"settings"`

	Logging       *LoggingConfig       `json:"logging,omitempty"`
	Notifications *NotificationsConfig `json:"notifications,omitempty"`
	Storage       *StorageConfig       `json:"storage,omitempty"`
}

// Reel is one configured post target. Immutable once loaded.
type Reel struct {
	URL     string `json:"url"`
	Message string `json:"message"`

	// Keywords filter comments by case-insensitive substring match.
	// Empty means match-all.
	Keywords []string `json:"keywords,omitempty"`
}

// Settings holds session behavior knobs.
//
// The four required fields are pointers so validation can distinguish
// "absent" from an explicit zero.
type Settings struct {
	CheckIntervalMinutes *float64 `json:"check_interval_minutes"`
	CheckIntervalSeconds *float64 `json:"check_interval_seconds,omitempty"`
	MinDelaySeconds      *float64 `json:"min_delay_seconds"`
	MaxDelaySeconds      *float64 `json:"max_delay_seconds"`
	MaxDMsPerSession     *int     `json:"max_dms_per_session"`

	MaxParallelReels int     `json:"max_parallel_reels,omitempty"`
	MaxParallelDMs   int     `json:"max_parallel_dms,omitempty"`
	ParallelDMDelay  float64 `json:"parallel_dm_delay,omitempty"`

	CommentReplies []string `json:"comment_replies,omitempty"`

	// Schedule is an optional cron expression for continuous-mode cycles.
	// When set it replaces the fixed check interval.
	Schedule string `json:"schedule,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"`
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

// NotificationsConfig enables operator alerts over Telegram.
type NotificationsConfig struct {
	TelegramToken string `json:"telegram_token"`
	ChatID        int64  `json:"chat_id"`
}

type StorageConfig struct {
	Path        string `json:"path,omitempty"`         // default ./processed.db
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// CheckInterval returns the continuous-mode pause between cycles.
// check_interval_seconds wins over check_interval_minutes when both are set.
func (s Settings) CheckInterval() time.Duration {
	if s.CheckIntervalSeconds != nil {
		return time.Duration(*s.CheckIntervalSeconds * float64(time.Second))
	}
	if s.CheckIntervalMinutes != nil {
		return time.Duration(*s.CheckIntervalMinutes * float64(time.Minute))
	}
	return time.Minute
}

func (s Settings) MinDelay() time.Duration {
	if s.MinDelaySeconds == nil {
		return 0
	}
	return time.Duration(*s.MinDelaySeconds * float64(time.Second))
}

func (s Settings) MaxDelay() time.Duration {
	if s.MaxDelaySeconds == nil {
		return 0
	}
	return time.Duration(*s.MaxDelaySeconds * float64(time.Second))
}

// SessionCap is the per-session DM budget. Zero means send nothing: setting
// max_dms_per_session to 0 pauses outreach without editing the reel list.
func (s Settings) SessionCap() int {
	if s.MaxDMsPerSession == nil {
		return 0
	}
	return *s.MaxDMsPerSession
}

// FetchWorkers bounds the comment-fetch pool.
func (s Settings) FetchWorkers() int {
	if s.MaxParallelReels <= 0 {
		return 5
	}
	return s.MaxParallelReels
}

// DispatchWorkers bounds the parallel DM pool.
func (s Settings) DispatchWorkers() int {
	if s.MaxParallelDMs <= 0 {
		return 3
	}
	return s.MaxParallelDMs
}

// DispatchSpacing is the minimum gap between rate limiter releases.
func (s Settings) DispatchSpacing() time.Duration {
	if s.ParallelDMDelay <= 0 {
		return 3 * time.Second
	}
	return time.Duration(s.ParallelDMDelay * float64(time.Second))
}

func (c *Config) LedgerPath() string {
	if c.Storage != nil && strings.TrimSpace(c.Storage.Path) != "" {
		return c.Storage.Path
	}
	return "./processed.db"
}

func (c *Config) LogConfig() (lvl string, console bool, fileEnabled bool, filePath string) {
	lvl = "INFO"
	console = true
	if c.Logging == nil {
		return
	}
	if strings.TrimSpace(c.Logging.Level) != "" {
		lvl = c.Logging.Level
	}
	if c.Logging.Console != nil {
		console = *c.Logging.Console
	}
	return lvl, console, c.Logging.File.Enabled, c.Logging.File.Path
}
