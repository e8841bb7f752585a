package bot

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tarunerror/insta-auto/internal/config"
	"github.com/tarunerror/insta-auto/internal/instagram"
	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

// Bot drives the fetch -> collect -> dispatch pipeline over the configured
// reels. One Bot serves one authenticated platform session.
type Bot struct {
	platform platform
	ledger   ledger
	notify   notifier
	cfg      *config.Manager
	strategy Strategy
	log      logx.Logger

	// Pause before a comment reply. Fixed small jitter; overridable in tests.
	replyDelayMin, replyDelayMax time.Duration

	state sessionState
}

type Options struct {
	Platform platform
	Ledger   ledger
	Notifier notifier
	Config   *config.Manager
	Strategy Strategy
	Logger   logx.Logger
}

func New(opts Options) *Bot {
	n := opts.Notifier
	if n == nil {
		n = nopNotifier{}
	}
	return &Bot{
		platform:      opts.Platform,
		ledger:        opts.Ledger,
		notify:        n,
		cfg:           opts.Config,
		strategy:      opts.Strategy,
		log:           opts.Logger,
		replyDelayMin: time.Second,
		replyDelayMax: 2 * time.Second,
	}
}

type nopNotifier struct{}

func (nopNotifier) CycleDone(context.Context, Summary, int) {}
func (nopNotifier) Blocked(context.Context)                 {}

// RunOnce executes a single cycle and returns instagram.ErrBlocked when the
// platform blocked the session mid-cycle.
func (b *Bot) RunOnce(ctx context.Context) error {
	return b.runCycle(ctx, b.cfg.Get())
}

// RunContinuous loops cycles until ctx is canceled or the platform blocks the
// session. The send counter resets every cycle; the stop flag does not.
// Between cycles the loop idles for the configured check interval, or until
// the next cron fire when settings.schedule is set, and picks up config
// edits published by the watcher.
func (b *Bot) RunContinuous(ctx context.Context) error {
	updates := b.cfg.Subscribe(1)
	defer b.cfg.Unsubscribe(updates)

	for cycle := 1; ; cycle++ {
		cfg := b.cfg.Get()
		b.log.Info("starting check cycle", logx.Int("cycle", cycle))

		if err := b.runCycle(ctx, cfg); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := cycleWait(cfg.Settings, time.Now())
		b.log.Info("cycle complete, waiting", logx.Duration("wait", wait))

		tmr := time.NewTimer(wait)
	idle:
		for {
			select {
			case <-ctx.Done():
				tmr.Stop()
				return ctx.Err()
			case <-updates:
				b.log.Info("configuration updated, next cycle uses new settings")
			case <-tmr.C:
				break idle
			}
		}
	}
}

// cycleWait computes the idle between cycles: the cron schedule when one is
// configured and parses, otherwise the fixed check interval.
func cycleWait(set config.Settings, now time.Time) time.Duration {
	if set.Schedule != "" {
		if sched, err := cron.ParseStandard(set.Schedule); err == nil {
			if wait := sched.Next(now).Sub(now); wait > 0 {
				return wait
			}
		}
	}
	return set.CheckInterval()
}

func (b *Bot) runCycle(ctx context.Context, cfg *config.Config) error {
	b.state.reset()
	set := cfg.Settings
	sum := Summary{}

	fetchWorkers := set.FetchWorkers()
	if b.strategy == StrategySequential {
		fetchWorkers = 1
	}
	results := b.fetchAll(ctx, cfg.Reels, fetchWorkers)

	cap := set.SessionCap()
	tasks := b.collect(ctx, results, cap, &sum)

	// Pre-trim the task list to what the session cap still allows; workers
	// re-check under the lock anyway, so this only avoids queueing work that
	// can never run. Dropped tasks count as limit_reached outcomes.
	remaining := cap - b.state.sentCount()
	if remaining < 0 {
		remaining = 0
	}
	if len(tasks) > remaining {
		b.log.Info("trimming tasks to session dm limit",
			logx.Int("tasks", len(tasks)),
			logx.Int("limit", cap),
		)
		sum.LimitReached += len(tasks) - remaining
		tasks = tasks[:remaining]
	}

	if b.strategy == StrategyFullParallel {
		b.dispatchParallel(ctx, tasks, set, &sum)
	} else {
		b.dispatchSequential(ctx, tasks, set, &sum)
	}

	b.logSummary(ctx, sum)

	if b.state.isStopped() {
		b.notify.Blocked(ctx)
		return instagram.ErrBlocked
	}
	return nil
}

func (b *Bot) logSummary(ctx context.Context, sum Summary) {
	b.log.Info("cycle summary",
		logx.Int("reels_fetched", sum.ReelsFetched),
		logx.Int("reels_failed", sum.ReelsFailed),
		logx.Int("matched", sum.Matched),
		logx.Int("sent", sum.Sent),
		logx.Int("send_failed", sum.SendFailed),
		logx.Int("limit_reached", sum.LimitReached),
		logx.Int("no_keyword", sum.NoKeyword),
		logx.Int("not_following", sum.NotFollowing),
		logx.Int("already_processed", sum.AlreadyProcessed),
		logx.Bool("blocked", sum.Blocked),
	)

	if stats, err := b.ledger.Stats(ctx); err == nil {
		b.log.Info("lifetime totals",
			logx.Int("total_sent", stats.TotalSent),
			logx.Int("sent_today", stats.SentToday),
		)
	}

	b.notify.CycleDone(ctx, sum, b.state.sentCount())
}
