package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Amila1P/portfolio/internal/content"
	"github.com/Amila1P/portfolio/internal/mail"
	"github.com/Amila1P/portfolio/internal/server"
	"github.com/Amila1P/portfolio/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		slog.SetDefault(logger)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		gin.SetMode(cfg.Server.Mode)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := store.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		site, err := content.NewStore(cfg.Content.Path, logger)
		if err != nil {
			return fmt.Errorf("loading content: %w", err)
		}
		if cfg.Content.Path != "" && cfg.Content.Watch {
			go func() {
				if err := site.Watch(ctx); err != nil {
					logger.Error("Content watcher stopped", slog.String("error", err.Error()))
				}
			}()
		}

		var mailer mail.Sender
		if cfg.MailConfigured() {
			mailer = mail.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.To)
		} else {
			logger.Warn("SMTP credentials not configured; contact messages are stored only")
		}

		srv, err := server.New(cfg, server.Deps{
			Content: site,
			Store:   db,
			Mailer:  mailer,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		return srv.Run(ctx, ":"+cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
	// Running the binary without a subcommand serves.
	rootCmd.RunE = serveCmd.RunE
}
