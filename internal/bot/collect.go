package bot

import (
	"context"
	"strings"

	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

// matchesKeywords reports whether the comment text contains any of the
// configured keywords, case-insensitively. An empty keyword list matches
// every comment.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// renderMessage substitutes the commenter's handle into a template.
func renderMessage(template, username string) string {
	return strings.ReplaceAll(template, "{username}", username)
}

// collect runs the single-threaded filter pass over fetched comments, in
// configured reel order, and emits one Task per eligible commenter.
//
// Skip decisions that are final for this (user, reel) pair are written to the
// ledger immediately so future cycles never reconsider them: a keyword miss
// and a failed follow-back check both mark the pair processed. A commenter
// already in the ledger is skipped silently.
//
// Collection stops outright once the session cap is consumed so no further
// follow-back lookups hit the platform.
func (b *Bot) collect(ctx context.Context, results []FetchResult, cap int, sum *Summary) []Task {
	var tasks []Task

	for _, fr := range results {
		if !fr.OK {
			sum.ReelsFailed++
			continue
		}
		sum.ReelsFetched++
		reelID := fr.Post.Shortcode
		log := b.log.With(logx.String("reel", reelID))

		for _, c := range fr.Comments {
			if err := ctx.Err(); err != nil {
				return tasks
			}
			if ok, reason := b.state.allowSend(cap); !ok {
				if reason == OutcomeLimitReached {
					log.Info("session dm limit reached, stopping collection")
				}
				return tasks
			}
			if c.UserID == "" || c.Username == "" {
				continue
			}

			done, err := b.ledger.IsProcessed(ctx, c.UserID, reelID)
			if err != nil {
				log.Error("ledger lookup failed", logx.String("user", c.Username), logx.Err(err))
				continue
			}
			if done {
				sum.AlreadyProcessed++
				continue
			}

			if !matchesKeywords(c.Text, fr.Reel.Keywords) {
				sum.NoKeyword++
				log.Info("skipping, no keyword match", logx.String("user", c.Username))
				if err := b.ledger.MarkProcessed(ctx, c.UserID, c.Username, reelID, c.ID); err != nil {
					log.Error("ledger mark failed", logx.String("user", c.Username), logx.Err(err))
				}
				continue
			}

			if !b.platform.FollowsBack(ctx, c.UserID) {
				sum.NotFollowing++
				log.Info("skipping, not following back", logx.String("user", c.Username))
				if err := b.ledger.MarkProcessed(ctx, c.UserID, c.Username, reelID, c.ID); err != nil {
					log.Error("ledger mark failed", logx.String("user", c.Username), logx.Err(err))
				}
				continue
			}

			sum.Matched++
			tasks = append(tasks, Task{
				UserID:    c.UserID,
				Username:  c.Username,
				Post:      fr.Post,
				CommentID: c.ID,
				Message:   renderMessage(fr.Reel.Message, c.Username),
			})
		}
	}

	b.log.Info("collect phase complete",
		logx.Int("matched", sum.Matched),
		logx.Int("no_keyword", sum.NoKeyword),
		logx.Int("not_following", sum.NotFollowing),
		logx.Int("already_processed", sum.AlreadyProcessed),
	)
	return tasks
}
