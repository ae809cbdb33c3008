package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardpile/cardpile"
	"github.com/cardpile/cardpile/internal/adapters/hotfolder"
	"github.com/cardpile/cardpile/internal/cliconfig"
	"github.com/cardpile/cardpile/pkg/log"
)

func newRunCommand(cfg *cliconfig.Config, cfgPath *string, logger *log.ZerologAdapter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the drop directory and stage captures until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg, true); err != nil {
				return err
			}

			mode, err := cfg.CaptureMode()
			if err != nil {
				return err
			}

			// Log configuration (masking the token)
			logCfg := *cfg
			if len(logCfg.AuthToken) > 0 {
				logCfg.AuthToken = "*****"
			}
			logger.Info("configuration", log.Any("config", logCfg))

			agentCfg := cardpile.DefaultConfig()
			agentCfg.ServiceURL = cfg.ServiceURL
			agentCfg.AuthToken = cfg.AuthToken
			agentCfg.Mode = mode
			agentCfg.SubmitPollInterval = cfg.SubmitPollInterval
			agentCfg.HTTPTimeout = cfg.HTTPTimeout
			agentCfg.JPEGQuality = cfg.JPEGQuality

			source := hotfolder.New(cfg.WatchDir, cfg.SettleDelay, logger)

			agent, err := cardpile.New(agentCfg,
				cardpile.WithLogger(logger),
				cardpile.WithCaptureSource(source),
				cardpile.WithEventHandler(&cliEvents{logger: logger}),
			)
			if err != nil {
				return fmt.Errorf("create agent: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := agent.Start(ctx); err != nil {
				return fmt.Errorf("start agent: %w", err)
			}

			if cfg.Bulk {
				if err := agent.EnableBulk(ctx); err != nil {
					logger.Warn("bulk accumulation not enabled", log.Err(err))
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			logger.Info("received signal, stopping...")

			pending := agent.Pending()
			if pending.LocalOutstanding() > 0 {
				logger.Warn("unsent captures are lost on exit; the server keeps staged items",
					log.Int("unsent", pending.LocalOutstanding()),
					log.Int("staged", pending.ServerStaged),
				)
			}

			if err := agent.Stop(); err != nil {
				return fmt.Errorf("stop agent: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.WatchDir, "watch-dir", cfg.WatchDir, "drop directory to watch for captured images")
	cmd.Flags().StringVar(&cfg.Mode, "mode", cfg.Mode, "capture mode: single or two-sided")
	cmd.Flags().BoolVar(&cfg.Bulk, "bulk", cfg.Bulk, "enable bulk accumulation on startup")
	cmd.Flags().DurationVar(&cfg.SettleDelay, "settle", cfg.SettleDelay, "delay before a dropped file is treated as fully written")
	cmd.Flags().DurationVar(&cfg.SubmitPollInterval, "submit-poll", cfg.SubmitPollInterval, "submit drain poll interval")
	cmd.Flags().IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "JPEG quality of merged two-sided output")

	return cmd
}

// cliEvents renders pipeline events for the terminal.
type cliEvents struct {
	logger *log.ZerologAdapter
}

func (e *cliEvents) OnPendingChanged(snap cardpile.Snapshot) {
	e.logger.Info("pending",
		log.String("display", snap.Display()),
		log.Int("staged", snap.ServerStaged),
		log.Int("queued", snap.MergeQueued+snap.UploadQueued),
		log.Int("in_flight", snap.InFlight),
	)
}

func (e *cliEvents) OnSubmitProgress(event cardpile.SubmitProgressEvent) {
	e.logger.Info(event.Status, log.Int("outstanding", event.Outstanding))
}

func (e *cliEvents) OnSessionRecovered(event cardpile.SessionRecoveredEvent) {
	e.logger.Info("recovered a staged bulk session; run 'cardpile submit' to commit it or keep capturing",
		log.Int("staged", event.StagedCount),
	)
}

func (e *cliEvents) OnReauthRequired() bool {
	e.logger.Warn("bulk authorization was revoked; re-link your account to continue")
	// Headless agent: always request the re-link URL so it can be printed.
	return true
}

func (e *cliEvents) OnRelinkFlow(event cardpile.RelinkEvent) {
	e.logger.Warn("open this URL to re-link your account", log.String("url", event.AuthURL))
}

func (e *cliEvents) OnItemDropped(event cardpile.ItemDroppedEvent) {
	e.logger.Warn("capture dropped", log.String("stage", event.Stage), log.Err(event.Err))
}
