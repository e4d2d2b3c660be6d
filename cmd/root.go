package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/getantonio/tokenhub/internal/config"
	"github.com/getantonio/tokenhub/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/getantonio/tokenhub/cmd.Version=1.2.3" .
var Version = "0.3.0"

var (
	cfgDir   string
	cfg      *config.Config
	log      = logrus.New()
	verbose  bool
	atFlag   int64
	fromFlag string
	jsonOut  bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "tokenhub",
	Short: "Token issuance, presales and vesting",
	Long: `tokenhub issues tokens with a fixed allocation table, runs capped
presales with refunds, vests team grants and locks launch liquidity.

Every command runs against the configured store (json file, memory or
postgres). Commands that act for an address use --from, or the default
wallet. --at <unix> pins the clock, which is handy for walking a presale
through its lifecycle:

  tokenhub presale status <id> --at 1767225600`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return setupLogger(cfg)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(describeError(err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $TOKENHUB_CONFIG_DIR or ~/.tokenhub)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().Int64Var(&atFlag, "at", 0, "evaluate at this unix time instead of now")
	rootCmd.PersistentFlags().StringVar(&fromFlag, "from", "", "wallet name or address acting as caller (default: default wallet)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		initCmd,
		configCmd,
		walletCmd,
		issuanceCmd,
		presaleCmd,
		claimCmd,
		vestingCmd,
		liquidityCmd,
		serveCmd,
	)
}

// setupLogger applies the configured level and format. --verbose wins.
func setupLogger(c *config.Config) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// clock returns the engine clock: fixed when --at is set.
func clock() func() time.Time {
	if atFlag > 0 {
		at := time.Unix(atFlag, 0)
		return func() time.Time { return at }
	}
	return time.Now
}
