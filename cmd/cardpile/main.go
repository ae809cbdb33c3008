package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/cardpile/cardpile/internal/cliconfig"
	"github.com/cardpile/cardpile/pkg/log"
)

const helpDescription = `
Stage stacks of captured card images into your scanner account in bulk.

Highlights:
  - Watches a drop directory; every image that lands there is one capture.
  - Two-sided mode pairs consecutive captures and merges front and back.
  - One background uploader with an accurate live pending counter.
  - Survives restarts: staged-but-uncommitted batches are recovered from
    the server and offered for submission.

Configure via ~/.cardpile/config.toml, CARDPILE_* environment variables,
or flags (flags win).
`

var exampleUsage = strings.TrimSpace(`
  cardpile run --watch-dir ~/scans --auth-token <token> --mode two-sided --bulk
  cardpile check --auth-token <token>
  cardpile submit --auth-token <token>
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	logger := cliconfig.Logger()

	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "cardpile",
		Short:   "Stage captured card images into your scanner account in bulk",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.cardpile/config.toml)")
	root.PersistentFlags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "scanner backend base URL")
	root.PersistentFlags().StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "session token for the capturing account")
	root.PersistentFlags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for staging calls")

	root.AddCommand(newRunCommand(&cfg, &cfgPath, logger))
	root.AddCommand(newCheckCommand(&cfg, &cfgPath, logger))
	root.AddCommand(newSubmitCommand(&cfg, &cfgPath, logger))
	root.AddCommand(newCancelCommand(&cfg, &cfgPath, logger))

	if err := root.Execute(); err != nil {
		logger.Error("cardpile", log.Err(err))
		os.Exit(1)
	}
}

// loadConfig applies file and environment configuration beneath the flags
// that were explicitly set, then validates when full is true. Commands that
// never touch the watch directory validate only the connection settings.
func loadConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config, full bool) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	if full {
		return cfg.Validate()
	}
	if cfg.AuthToken == "" {
		return fmt.Errorf("auth-token is required")
	}
	if cfg.ServiceURL == "" {
		return fmt.Errorf("service-url is required")
	}
	return nil
}
