package bot

import (
	"context"

	"github.com/tarunerror/insta-auto/internal/config"
	"github.com/tarunerror/insta-auto/internal/instagram"
	"github.com/tarunerror/insta-auto/internal/storage"
)

// Strategy selects how a cycle schedules its work. The legacy sequential-only
// and parallel-fetch variants are the same pipeline with different bounds.
type Strategy int

const (
	// StrategySequential fetches and sends one at a time.
	StrategySequential Strategy = iota
	// StrategyFetchParallel fetches all reels concurrently, sends sequentially.
	StrategyFetchParallel
	// StrategyFullParallel fetches and sends concurrently under the rate limiter.
	StrategyFullParallel
)

func (s Strategy) String() string {
	switch s {
	case StrategyFetchParallel:
		return "parallel"
	case StrategyFullParallel:
		return "full-parallel"
	default:
		return "sequential"
	}
}

// commentFetchLimit caps how many comments are pulled per reel.
const commentFetchLimit = 50

// platform is the serialized gateway surface the pipeline needs.
// *instagram.Gateway satisfies it; tests substitute fakes.
type platform interface {
	ResolvePost(ctx context.Context, url string) (instagram.Post, error)
	FetchComments(ctx context.Context, post instagram.Post, limit int) []instagram.Comment
	FollowsBack(ctx context.Context, userID string) bool
	SendMessage(ctx context.Context, userID, username, text string) (bool, error)
	ReplyToComment(ctx context.Context, post instagram.Post, commentID, text string) bool
}

// ledger is the durable dedup record. *storage.Ledger satisfies it.
type ledger interface {
	IsProcessed(ctx context.Context, userID, reelID string) (bool, error)
	MarkProcessed(ctx context.Context, userID, username, reelID, commentID string) error
	MarkCommentReplied(ctx context.Context, userID, reelID string) error
	IsCommentReplied(ctx context.Context, userID, reelID string) (bool, error)
	Stats(ctx context.Context) (storage.Stats, error)
}

// notifier delivers operator alerts. May be a no-op.
type notifier interface {
	CycleDone(ctx context.Context, summary Summary, sessionSent int)
	Blocked(ctx context.Context)
}

// FetchResult is one reel's fetch outcome. A failed fetch never aborts
// sibling reels; it just carries Err.
type FetchResult struct {
	Index    int // position in the configured reel list
	Reel     config.Reel
	Post     instagram.Post
	Comments []instagram.Comment
	OK       bool
	Err      error
}

// Task is one eligible DM, consumed exactly once by the dispatch stage.
type Task struct {
	UserID    string
	Username  string
	Post      instagram.Post
	CommentID string
	Message   string // template with {username} substituted
}

// Outcome classifies one dispatch attempt.
type Outcome string

const (
	OutcomeSent         Outcome = "sent"
	OutcomeSendFailed   Outcome = "send_failed"
	OutcomeLimitReached Outcome = "limit_reached"
	OutcomeStopped      Outcome = "stopped"
	OutcomeBlocked      Outcome = "blocked"
)

// Summary aggregates one cycle's skip decisions and outcomes.
type Summary struct {
	ReelsFetched     int
	ReelsFailed      int
	Matched          int
	Sent             int
	SendFailed       int
	LimitReached     int
	NotFollowing     int
	NoKeyword        int
	AlreadyProcessed int
	Blocked          bool
}
