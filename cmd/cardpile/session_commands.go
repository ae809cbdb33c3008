package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cardpile/cardpile/internal/adapters/httpapi"
	"github.com/cardpile/cardpile/internal/cliconfig"
	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/pkg/log"
)

func stagingClient(cfg *cliconfig.Config, logger *log.ZerologAdapter) (*httpapi.Client, domain.Identity) {
	client := httpapi.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.ServiceURL, logger)
	return client, domain.Identity{Token: cfg.AuthToken}
}

func newCheckCommand(cfg *cliconfig.Config, cfgPath *string, logger *log.ZerologAdapter) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show the bulk capability and server staged count",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg, false); err != nil {
				return err
			}
			client, id := stagingClient(cfg, logger)
			ctx := context.Background()

			capability := "granted"
			capab, err := client.CheckCapability(ctx, id)
			switch {
			case errors.Is(err, domain.ErrAuthorizationRevoked):
				capability = "revoked"
			case err != nil:
				return fmt.Errorf("capability check: %w", err)
			case !capab.Granted:
				capability = "not linked"
			}

			staged := 0
			if capability == "granted" {
				if staged, err = client.StagedCount(ctx, id); err != nil {
					return fmt.Errorf("staged count: %w", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Bulk Capability", "Staged"},
				[][]string{{capability, strconv.Itoa(staged)}},
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newSubmitCommand(cfg *cliconfig.Config, cfgPath *string, logger *log.ZerologAdapter) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Commit the server-staged bulk batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg, false); err != nil {
				return err
			}
			client, id := stagingClient(cfg, logger)

			count, err := client.Commit(context.Background(), id)
			if err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			logger.Info("bulk session committed", log.Int("count", count))
			return nil
		},
	}
}

func newCancelCommand(cfg *cliconfig.Config, cfgPath *string, logger *log.ZerologAdapter) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the server-staged bulk batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg, false); err != nil {
				return err
			}
			client, id := stagingClient(cfg, logger)

			if err := client.Cancel(context.Background(), id); err != nil {
				return fmt.Errorf("cancel: %w", err)
			}
			logger.Info("staged bulk session discarded")
			return nil
		},
	}
}
