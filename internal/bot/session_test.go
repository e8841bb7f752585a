package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tarunerror/insta-auto/internal/config"
	"github.com/tarunerror/insta-auto/internal/instagram"
	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

type fakeNotifier struct {
	cycles  int
	blocked int
}

func (f *fakeNotifier) CycleDone(context.Context, Summary, int) { f.cycles++ }
func (f *fakeNotifier) Blocked(context.Context)                 { f.blocked++ }

func managerWith(cfg *config.Config) *config.Manager {
	m := config.NewManager("")
	m.Commit(cfg)
	return m
}

func cycleConfig(reels []config.Reel, cap int) *config.Config {
	return &config.Config{
		Reels: reels,
		Settings: config.Settings{
			CheckIntervalSeconds: fp(0.01),
			MinDelaySeconds:      fp(0),
			MaxDelaySeconds:      fp(0),
			MaxDMsPerSession:     ip(cap),
			ParallelDMDelay:      0.001,
		},
	}
}

func TestRunOnceEndToEnd(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/ABC/", "ABC",
		instagram.Comment{ID: "c1", UserID: "u1", Username: "alice", Text: "giveaway"},
		instagram.Comment{ID: "c2", UserID: "u2", Username: "bob", Text: "giveaway too"},
		instagram.Comment{ID: "c3", UserID: "u3", Username: "carol", Text: "unrelated"},
	)
	p.follows["u1"] = true
	p.follows["u2"] = true

	l := newFakeLedger()
	n := &fakeNotifier{}
	cfg := cycleConfig([]config.Reel{{
		URL:      "https://instagram.com/reel/ABC/",
		Message:  "hey {username}",
		Keywords: []string{"giveaway"},
	}}, 10)

	b := New(Options{
		Platform: p,
		Ledger:   l,
		Notifier: n,
		Config:   managerWith(cfg),
		Strategy: StrategyFetchParallel,
		Logger:   logx.Nop(),
	})

	if err := b.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := p.sentCount(); got != 2 {
		t.Fatalf("sent %d dms, want 2", got)
	}
	if !l.isMarked("u1", "ABC") || !l.isMarked("u2", "ABC") || !l.isMarked("u3", "ABC") {
		t.Fatal("expected all three commenters ledger-marked")
	}
	if n.cycles != 1 {
		t.Fatalf("notifier got %d cycle callbacks, want 1", n.cycles)
	}

	// A second cycle must be a no-op: everyone is in the ledger.
	if err := b.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if got := p.sentCount(); got != 2 {
		t.Fatalf("second cycle re-sent: %d total", got)
	}
}

func TestRunOnceTrimsToSessionCap(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/ABC/", "ABC",
		instagram.Comment{ID: "c1", UserID: "u1", Username: "a", Text: "x"},
		instagram.Comment{ID: "c2", UserID: "u2", Username: "b", Text: "x"},
		instagram.Comment{ID: "c3", UserID: "u3", Username: "c", Text: "x"},
	)
	for _, u := range []string{"u1", "u2", "u3"} {
		p.follows[u] = true
	}

	cfg := cycleConfig([]config.Reel{{URL: "https://instagram.com/reel/ABC/", Message: "hi"}}, 1)
	b := New(Options{
		Platform: p,
		Ledger:   newFakeLedger(),
		Config:   managerWith(cfg),
		Strategy: StrategyFullParallel,
		Logger:   logx.Nop(),
	})

	if err := b.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := p.sentCount(); got != 1 {
		t.Fatalf("sent %d dms, want exactly the cap", got)
	}
}

// Setting max_dms_per_session to 0 pauses the whole pipeline: no follow-back
// lookups, no sends.
func TestRunOnceZeroCapSendsNothing(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/ABC/", "ABC",
		instagram.Comment{ID: "c1", UserID: "u1", Username: "a", Text: "x"},
		instagram.Comment{ID: "c2", UserID: "u2", Username: "b", Text: "x"},
	)
	p.follows["u1"] = true
	p.follows["u2"] = true

	cfg := cycleConfig([]config.Reel{{URL: "https://instagram.com/reel/ABC/", Message: "hi"}}, 0)
	b := New(Options{
		Platform: p,
		Ledger:   newFakeLedger(),
		Config:   managerWith(cfg),
		Logger:   logx.Nop(),
	})

	if err := b.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := p.sentCount(); got != 0 {
		t.Fatalf("sent %d dms with zero cap, want 0", got)
	}
	if p.followChecks != 0 {
		t.Fatalf("made %d follow-back calls with zero cap, want 0", p.followChecks)
	}
}

func TestRunOnceBlockedReturnsError(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/ABC/", "ABC",
		instagram.Comment{ID: "c1", UserID: "u1", Username: "a", Text: "x"},
	)
	p.follows["u1"] = true
	p.sendErr["u1"] = instagram.ErrBlocked

	n := &fakeNotifier{}
	cfg := cycleConfig([]config.Reel{{URL: "https://instagram.com/reel/ABC/", Message: "hi"}}, 10)
	b := New(Options{
		Platform: p,
		Ledger:   newFakeLedger(),
		Notifier: n,
		Config:   managerWith(cfg),
		Logger:   logx.Nop(),
	})

	err := b.RunOnce(context.Background())
	if !errors.Is(err, instagram.ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
	if n.blocked != 1 {
		t.Fatalf("notifier got %d block alerts, want 1", n.blocked)
	}
}

func TestRunContinuousStopsOnBlock(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/ABC/", "ABC",
		instagram.Comment{ID: "c1", UserID: "u1", Username: "a", Text: "x"},
	)
	p.follows["u1"] = true
	p.sendErr["u1"] = instagram.ErrBlocked

	cfg := cycleConfig([]config.Reel{{URL: "https://instagram.com/reel/ABC/", Message: "hi"}}, 10)
	b := New(Options{
		Platform: p,
		Ledger:   newFakeLedger(),
		Config:   managerWith(cfg),
		Logger:   logx.Nop(),
	})

	done := make(chan error, 1)
	go func() { done <- b.RunContinuous(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, instagram.ErrBlocked) {
			t.Fatalf("err = %v, want ErrBlocked", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("continuous loop did not terminate after block")
	}
}

func TestRunContinuousHonorsCancel(t *testing.T) {
	p := newFakePlatform()
	cfg := cycleConfig(nil, 10)
	b := New(Options{
		Platform: p,
		Ledger:   newFakeLedger(),
		Config:   managerWith(cfg),
		Logger:   logx.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.RunContinuous(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("continuous loop ignored cancellation")
	}
}

func TestCycleWait(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	fixed := config.Settings{CheckIntervalSeconds: fp(90)}
	if got := cycleWait(fixed, now); got != 90*time.Second {
		t.Fatalf("fixed interval wait = %v", got)
	}

	cronned := config.Settings{CheckIntervalSeconds: fp(90), Schedule: "0 * * * *"}
	if got := cycleWait(cronned, now); got != time.Hour {
		t.Fatalf("cron wait = %v, want 1h to next top of hour", got)
	}

	bad := config.Settings{CheckIntervalSeconds: fp(90), Schedule: "not a cron"}
	if got := cycleWait(bad, now); got != 90*time.Second {
		t.Fatalf("bad cron must fall back to interval, got %v", got)
	}
}
