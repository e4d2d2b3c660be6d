package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/getantonio/tokenhub/internal/ui"
	"github.com/getantonio/tokenhub/internal/wallet"
)

var (
	walletKeyFlag    string
	walletSignFile   string
	walletSignMethod string
	walletYes        bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
	Long: `Manage the wallets tokenhub acts for.

Signing wallets keep their private key in the OS keyring (or an encrypted
file keyring under the config dir, unlocked with $TOKENHUB_KEYRING_PASSWORD).
Watch-only wallets are address book entries: usable as recipients and
beneficiaries, never as --from.`,
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}

		if walletKeyFlag != "" {
			w, err := mgr.AddWithKey(name, walletKeyFlag)
			if err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address.Hex()))))
			fmt.Println(ui.Hint(fmt.Sprintf("Set as default with: tokenhub wallet default %s", name)))
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("address required for watch-only wallet\n  Usage: tokenhub wallet add <name> <address>\n  Or for signing: tokenhub wallet add <name> --key <private-key>")
		}
		if !common.IsHexAddress(args[1]) {
			return fmt.Errorf("invalid address %q", args[1])
		}
		w, err := mgr.Add(name, common.HexToAddress(args[1]))
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address.Hex()))))
		return nil
	},
}

var walletNewCmd = &cobra.Command{
	Use:     "new <name>",
	Aliases: []string{"generate"},
	Short:   "Generate a signing wallet",
	Long: `Generate a fresh secp256k1 key and store it in the keyring. The key never
leaves the keyring; back up the keyring itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		w, err := mgr.Generate(args[0])
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("  %s  %s\n", ui.Meta("Wallet :"), ui.Val(w.Name))
		fmt.Printf("  %s  %s\n\n", ui.Meta("Address:"), ui.Addr(w.Address.Hex()))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(wallets)
		}

		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Create one with: tokenhub wallet new owner"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Type", Width: 12},
			{Title: "Default", Width: 8},
		})
		def := mgr.Default()
		for _, w := range wallets {
			mark := ""
			if (def != nil && def.Name == w.Name) || cfg.DefaultWallet == w.Name {
				mark = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address.Hex(), walletTypeLabel(w.Type), mark})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !walletYes && !ui.ConfirmDanger(fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletDefaultCmd = &cobra.Command{
	Use:     "default <name>",
	Aliases: []string{"use"},
	Short:   "Set the default wallet",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		fmt.Println(ui.Hint("Commands act as this wallet unless --from is given."))
		return nil
	},
}

var walletSignCmd = &cobra.Command{
	Use:   "sign <name> <path>",
	Short: "Sign an API request",
	Long: `Print the EIP-191 signature of a request for the ` + wallet.SignatureHeader + `
header. The signature covers the method, the path and the body, which must
be sent byte-for-byte as signed:

  tokenhub wallet sign owner /v1/issuances/<id>/claims/proceeds -f body.json
  curl -H "` + wallet.SignatureHeader + `: <sig>" --data-binary @body.json …`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			body []byte
			err  error
		)
		if walletSignFile == "" || walletSignFile == "-" {
			body, err = io.ReadAll(os.Stdin)
		} else {
			body, err = os.ReadFile(walletSignFile)
		}
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}

		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		signer, err := mgr.Signer(args[0])
		if err != nil {
			return err
		}
		sig, err := signer.SignIntent(strings.ToUpper(walletSignMethod), args[1], body)
		if err != nil {
			return err
		}
		fmt.Println(sig)
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key for a signing wallet (stored in the keyring)")
	walletSignCmd.Flags().StringVarP(&walletSignFile, "file", "f", "", "request body, - or empty for stdin")
	walletSignCmd.Flags().StringVar(&walletSignMethod, "method", "POST", "HTTP method")
	walletRemoveCmd.Flags().BoolVarP(&walletYes, "yes", "y", false, "skip confirmation")
	walletCmd.AddCommand(walletAddCmd, walletNewCmd, walletListCmd, walletRemoveCmd,
		walletDefaultCmd, walletSignCmd)
}

// walletTypeLabel converts an internal wallet type to a user-friendly label.
func walletTypeLabel(t string) string {
	switch t {
	case wallet.TypeSigning:
		return "signing"
	default:
		return t
	}
}
