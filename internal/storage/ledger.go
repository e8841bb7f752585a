package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Config configures the ledger store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Stats summarizes lifetime outreach counts.
type Stats struct {
	TotalSent int
	SentToday int
}

// Ledger is the durable record of contacted (user, reel) pairs.
//
// All methods are safe for concurrent use: MarkProcessed relies on a single
// idempotent INSERT so there is no check-then-insert race window.
type Ledger struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Ledger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("ledger path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	l := &Ledger{db: db, log: log}
	if err := l.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, string(b))
	return err
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// IsProcessed reports whether the (user, reel) pair was already handled.
func (l *Ledger) IsProcessed(ctx context.Context, userID, reelID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_users WHERE user_id = ? AND reel_id = ?`,
		userID, reelID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkProcessed records the pair. It is a no-op if the pair already exists:
// the insert and the existence check are one atomic statement.
func (l *Ledger) MarkProcessed(ctx context.Context, userID, username, reelID, commentID string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO processed_users(user_id, username, reel_id, comment_id)
		 VALUES(?,?,?,?)
		 ON CONFLICT(user_id, reel_id) DO NOTHING`,
		userID, username, reelID, nullStr(commentID),
	)
	return err
}

// MarkCommentReplied flags the pair's comment as replied to.
func (l *Ledger) MarkCommentReplied(ctx context.Context, userID, reelID string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE processed_users SET comment_replied = 1 WHERE user_id = ? AND reel_id = ?`,
		userID, reelID,
	)
	return err
}

func (l *Ledger) IsCommentReplied(ctx context.Context, userID, reelID string) (bool, error) {
	var replied int
	err := l.db.QueryRowContext(ctx,
		`SELECT comment_replied FROM processed_users WHERE user_id = ? AND reel_id = ?`,
		userID, reelID,
	).Scan(&replied)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return replied == 1, nil
}

func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_users`,
	).Scan(&st.TotalSent); err != nil {
		return Stats{}, err
	}
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_users WHERE DATE(dm_sent_at) = DATE('now')`,
	).Scan(&st.SentToday); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
