package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getantonio/tokenhub/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup wizard",
	Long:  "Launch the interactive setup wizard to configure tokenhub.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Banner(Version))

		result, err := ui.RunWizard()
		if err != nil {
			return err
		}
		if result.Cancelled {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		if result.Store != "" {
			if err := cfg.Set("store", result.Store); err != nil {
				fmt.Println(ui.Warn(err.Error()))
				fmt.Println(ui.Hint("Set the DSN with: tokenhub config set postgres_dsn <dsn>, then: tokenhub config set store postgres"))
			}
		}
		if result.PercentUnit != "" {
			if err := cfg.Set("percent_unit", result.PercentUnit); err != nil {
				return err
			}
		}

		if result.WalletName != "" {
			mgr, err := newWalletManager()
			if err != nil {
				return err
			}
			w, err := mgr.Generate(result.WalletName)
			if err != nil {
				fmt.Println(ui.Warn(fmt.Sprintf("Could not create wallet: %v", err)))
			} else {
				if err := mgr.SetDefault(w.Name); err != nil {
					return err
				}
				cfg.DefaultWallet = w.Name
				fmt.Println(ui.Success(fmt.Sprintf("Wallet %q created: %s", w.Name, ui.Addr(w.Address.Hex()))))
			}
		}

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Println(ui.Success("tokenhub configured! Run `tokenhub --help` to explore commands."))
		return nil
	},
}
