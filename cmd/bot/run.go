package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tarunerror/insta-auto/internal/bot"
	"github.com/tarunerror/insta-auto/internal/config"
	"github.com/tarunerror/insta-auto/internal/instagram"
	"github.com/tarunerror/insta-auto/internal/notify"
	"github.com/tarunerror/insta-auto/internal/runtime/supervisor"
	"github.com/tarunerror/insta-auto/internal/storage"
	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	var (
		continuous   bool
		parallel     bool
		fullParallel bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the comment-to-DM pipeline",
		Long: `Run one check cycle (or loop with --continuous): fetch comments from the
configured reels, filter out anyone already contacted, not matching the
keywords or not following back, and DM the rest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategy := bot.StrategySequential
			switch {
			case fullParallel:
				strategy = bot.StrategyFullParallel
			case parallel:
				strategy = bot.StrategyFetchParallel
			}
			return runPipeline(*cfgPath, strategy, continuous)
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "keep cycling on the configured interval or cron schedule")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "fetch reels concurrently, send sequentially")
	cmd.Flags().BoolVar(&fullParallel, "full-parallel", false, "fetch and send concurrently under the rate limiter")
	return cmd
}

func runPipeline(cfgPath string, strategy bot.Strategy, continuous bool) error {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	lvl, console, fileEnabled, filePath := cfg.LogConfig()
	svc, log := logx.New(logx.Config{
		Level:   lvl,
		Console: console,
		File:    logx.FileConfig{Enabled: fileEnabled, Path: filePath},
	})
	defer svc.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	username, password, err := resolveCredentials(cfg)
	if err != nil {
		return err
	}

	ledger, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer ledger.Close()

	client, err := instagram.NewClient(instagram.Options{
		Username: username,
		Password: password,
	}, log.With(logx.String("comp", "instagram")))
	if err != nil {
		return err
	}
	gw := instagram.NewGateway(client, log.With(logx.String("comp", "gateway")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("logging in", logx.String("user", username))
	if err := gw.Login(ctx); err != nil {
		return fmt.Errorf("instagram login failed: %w", err)
	}

	var notifier *notify.Telegram
	if nc := cfg.Notifications; nc != nil && nc.TelegramToken != "" {
		notifier, err = notify.NewTelegram(nc.TelegramToken, nc.ChatID, log.With(logx.String("comp", "notify")))
		if err != nil {
			log.Warn("telegram notifications disabled", logx.Err(err))
			notifier = nil
		}
	}

	opts := bot.Options{
		Platform: gw,
		Ledger:   ledger,
		Config:   mgr,
		Strategy: strategy,
		Logger:   log.With(logx.String("comp", "bot")),
	}
	if notifier != nil {
		opts.Notifier = notifier
	}
	b := bot.New(opts)

	log.Info("starting",
		logx.String("strategy", strategy.String()),
		logx.Bool("continuous", continuous),
		logx.Int("reels", len(cfg.Reels)),
	)

	if !continuous {
		return finishRun(b.RunOnce(ctx))
	}

	sup := supervisor.New(ctx, supervisor.WithLogger(log.With(logx.String("comp", "supervisor"))))
	sup.GoRestart("config-watch", mgr.Watch)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	err = b.RunContinuous(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	sup.Cancel()
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = sup.Wait(stopCtx)

	return finishRun(err)
}

// finishRun maps a clean interrupt to success; anything else surfaces as a
// non-zero exit.
func finishRun(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// resolveCredentials prefers environment variables over the config file.
func resolveCredentials(cfg *config.Config) (string, string, error) {
	username := strings.TrimSpace(os.Getenv("INSTAGRAM_USERNAME"))
	password := os.Getenv("INSTAGRAM_PASSWORD")
	if username == "" {
		username = strings.TrimSpace(cfg.Username)
	}
	if password == "" {
		password = cfg.Password
	}
	if username == "" || password == "" {
		return "", "", errors.New("credentials missing: set INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD (or username/password in the config)")
	}
	return username, password, nil
}

func openLedger(cfg *config.Config, log logx.Logger) (*storage.Ledger, error) {
	sc := storage.Config{Path: cfg.LedgerPath()}
	if cfg.Storage != nil && cfg.Storage.BusyTimeout != "" {
		d, err := time.ParseDuration(cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, fmt.Errorf("storage.busy_timeout: %w", err)
		}
		sc.BusyTimeout = d
	}
	return storage.Open(sc, log.With(logx.String("comp", "ledger")))
}
