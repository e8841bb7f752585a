package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarunerror/insta-auto/internal/config"
	"github.com/tarunerror/insta-auto/internal/storage"
	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

func newStatsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print lifetime DM totals from the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", *cfgPath, err)
			}

			ledger, err := storage.Open(storage.Config{Path: cfg.LedgerPath()}, logx.Nop())
			if err != nil {
				return err
			}
			defer ledger.Close()

			stats, err := ledger.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Total DMs sent: %d\n", stats.TotalSent)
			fmt.Printf("DMs sent today: %d\n", stats.SentToday)
			return nil
		},
	}
}
