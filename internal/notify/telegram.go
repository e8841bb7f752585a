// Package notify delivers operator alerts over Telegram. It is entirely
// optional: when no notifications block is configured the bot runs with a
// no-op notifier instead.
package notify

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/tarunerror/insta-auto/internal/bot"
	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

// Telegram sends cycle summaries and block alerts to one chat. Send-only:
// the bot is never started as a poller.
type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
	log  logx.Logger
}

func NewTelegram(token string, chatID int64, log logx.Logger) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("notify: telegram init: %w", err)
	}
	return &Telegram{bot: b, chat: tele.ChatID(chatID), log: log}, nil
}

func (t *Telegram) CycleDone(ctx context.Context, sum bot.Summary, sessionSent int) {
	msg := fmt.Sprintf(
		"Cycle finished at %s\nReels: %d ok, %d failed\nMatched: %d\nSent: %d (session total %d)\nFailed: %d, over limit: %d\nSkipped: %d no keyword, %d not following, %d already handled",
		time.Now().Format("15:04:05"),
		sum.ReelsFetched, sum.ReelsFailed,
		sum.Matched,
		sum.Sent, sessionSent,
		sum.SendFailed, sum.LimitReached,
		sum.NoKeyword, sum.NotFollowing, sum.AlreadyProcessed,
	)
	t.send(ctx, msg)
}

func (t *Telegram) Blocked(ctx context.Context) {
	t.send(ctx, "Instagram blocked a DM action (feedback_required). The session has been stopped; wait before running again.")
}

func (t *Telegram) send(ctx context.Context, text string) {
	if err := ctx.Err(); err != nil {
		return
	}
	if _, err := t.bot.Send(t.chat, text); err != nil {
		t.log.Warn("telegram notification failed", logx.Err(err))
	}
}
