package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amila1P/portfolio/internal/store"
	"github.com/spf13/cobra"
)

var cleanupMonths int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete visitor records older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cleanupMonths <= 0 {
			return fmt.Errorf("--months must be positive, got %d", cleanupMonths)
		}

		db, err := store.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		cutoff := time.Now().AddDate(0, -cleanupMonths, 0)
		n, err := db.CleanupVisitors(context.Background(), cutoff)
		if err != nil {
			return err
		}
		logger.Info("Visitor cleanup finished", slog.Int64("removed", n), slog.Time("cutoff", cutoff))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupMonths, "months", 12, "keep visitor records this many months")
	rootCmd.AddCommand(cleanupCmd)
}
