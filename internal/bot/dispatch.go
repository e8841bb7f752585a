package bot

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/tarunerror/insta-auto/internal/config"
	"github.com/tarunerror/insta-auto/internal/instagram"
	"github.com/tarunerror/insta-auto/internal/ratelimit"
	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

// randomDelay draws a uniform duration from [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max < min {
		max = min
	}
	return min + time.Duration(rand.Float64()*float64(max-min))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

// dispatchSequential sends tasks one at a time with a randomized delay before
// each send. The jitter is deliberate pacing, not incidental sleep.
func (b *Bot) dispatchSequential(ctx context.Context, tasks []Task, set config.Settings, sum *Summary) {
	cap := set.SessionCap()
	for i, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		if ok, reason := b.state.allowSend(cap); !ok {
			if reason == OutcomeLimitReached {
				b.log.Info("session dm limit reached", logx.Int("sent", b.state.sentCount()))
				b.countLimitReached(sum, len(tasks)-i)
			}
			return
		}

		if err := sleepCtx(ctx, randomDelay(set.MinDelay(), set.MaxDelay())); err != nil {
			return
		}

		if b.sendOne(ctx, task, set, sum) == OutcomeBlocked {
			return
		}
	}
}

// dispatchParallel fans tasks out to a bounded worker pool behind the rate
// limiter. Outcomes flow back over a buffered channel sized for every task so
// workers never block on the collector.
func (b *Bot) dispatchParallel(ctx context.Context, tasks []Task, set config.Settings, sum *Summary) {
	if len(tasks) == 0 {
		return
	}
	workers := set.DispatchWorkers()
	if workers > len(tasks) {
		workers = len(tasks)
	}
	lim := ratelimit.New(set.DispatchWorkers(), set.DispatchSpacing())

	jobs := make(chan Task)
	outcomes := make(chan Outcome, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				outcomes <- b.sendTask(ctx, lim, task, set, sum)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				return
			case jobs <- t:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	blockedSeen := false
	for oc := range outcomes {
		switch {
		case oc == OutcomeBlocked && !blockedSeen:
			blockedSeen = true
			b.log.Error("platform blocked the session, stopping all sends")
		case oc == OutcomeLimitReached:
			b.countLimitReached(sum, 1)
		}
	}
}

// sendTask is the parallel-path worker body: stop-signal check, limiter
// acquisition, then the send itself (which claims session budget under the
// counter lock).
func (b *Bot) sendTask(ctx context.Context, lim *ratelimit.Limiter, task Task, set config.Settings, sum *Summary) Outcome {
	if b.state.isStopped() {
		return OutcomeStopped
	}
	if err := lim.Acquire(ctx); err != nil {
		return OutcomeStopped
	}
	defer lim.Release()

	return b.sendOne(ctx, task, set, sum)
}

// sendOne performs a single send plus its follow-up bookkeeping. It is the
// shared tail of both dispatch paths. Budget is reserved before the network
// call so racing workers cannot overshoot the cap; a failed send refunds it.
func (b *Bot) sendOne(ctx context.Context, task Task, set config.Settings, sum *Summary) Outcome {
	if ok, reason := b.state.reserveSend(set.SessionCap()); !ok {
		return reason
	}

	sent, err := b.platform.SendMessage(ctx, task.UserID, task.Username, task.Message)
	if err != nil {
		b.state.releaseSend()
		if errors.Is(err, instagram.ErrBlocked) {
			b.state.stop()
			b.markBlocked(sum)
			return OutcomeBlocked
		}
		b.log.Error("send failed", logx.String("user", task.Username), logx.Err(err))
		b.countSendFailed(sum)
		return OutcomeSendFailed
	}
	if !sent {
		b.state.releaseSend()
		b.countSendFailed(sum)
		return OutcomeSendFailed
	}

	total := b.state.sentCount()
	b.countSent(sum)
	b.log.Info("dm sent",
		logx.String("user", task.Username),
		logx.Int("session_total", total),
	)

	if err := b.ledger.MarkProcessed(ctx, task.UserID, task.Username, task.Post.Shortcode, task.CommentID); err != nil {
		b.log.Error("ledger mark failed", logx.String("user", task.Username), logx.Err(err))
	}

	b.replyToComment(ctx, task, set)
	return OutcomeSent
}

// replyToComment posts a best-effort public reply under the commenter's
// comment, using a random template from the configured set. No-op when no
// templates are configured or the comment id is unknown.
func (b *Bot) replyToComment(ctx context.Context, task Task, set config.Settings) {
	if len(set.CommentReplies) == 0 || task.CommentID == "" {
		return
	}
	replied, err := b.ledger.IsCommentReplied(ctx, task.UserID, task.Post.Shortcode)
	if err == nil && replied {
		return
	}

	template := set.CommentReplies[rand.Intn(len(set.CommentReplies))]
	text := renderMessage(template, task.Username)

	if err := sleepCtx(ctx, randomDelay(b.replyDelayMin, b.replyDelayMax)); err != nil {
		return
	}
	if !b.platform.ReplyToComment(ctx, task.Post, task.CommentID, text) {
		return
	}
	if err := b.ledger.MarkCommentReplied(ctx, task.UserID, task.Post.Shortcode); err != nil {
		b.log.Error("reply mark failed", logx.String("user", task.Username), logx.Err(err))
	}
	b.log.Info("replied to comment", logx.String("user", task.Username))
}

// Summary mutation happens from multiple dispatch workers; guard it with the
// session counter lock.
func (b *Bot) countSent(sum *Summary)       { b.state.mu.Lock(); sum.Sent++; b.state.mu.Unlock() }
func (b *Bot) countSendFailed(sum *Summary) { b.state.mu.Lock(); sum.SendFailed++; b.state.mu.Unlock() }
func (b *Bot) markBlocked(sum *Summary)     { b.state.mu.Lock(); sum.Blocked = true; b.state.mu.Unlock() }

func (b *Bot) countLimitReached(sum *Summary, n int) {
	b.state.mu.Lock()
	sum.LimitReached += n
	b.state.mu.Unlock()
}
