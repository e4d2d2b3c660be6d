package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/ui"
	"github.com/getantonio/tokenhub/internal/units"
)

var issuanceFileFlag string

var issuanceCmd = &cobra.Command{
	Use:     "issuance",
	Aliases: []string{"token"},
	Short:   "Create and operate issuances",
}

var issuanceCreateCmd = &cobra.Command{
	Use:   "create --file <definition.json>",
	Short: "Create an issuance from a JSON definition",
	Long: `Create an issuance owned by the acting wallet.

The definition uses the same shape as POST /v1/issuances. Shares are read in
the configured percent_unit unless the file sets "percent_unit"; a presale
without "liquidity_lock_duration" gets liquidity_lock_days from the config.

  {
    "name": "Alpha", "symbol": "ALPHA", "decimals": 18,
    "initial_supply": "1000000", "max_supply": "2000000",
    "presale_share": "20", "liquidity_share": "10",
    "allocations": [
      {"wallet": "0x…", "share": "30", "vesting": true, "duration": 31536000, "cliff": 7776000},
      {"wallet": "0x…", "share": "40"}
    ],
    "presale": {
      "soft_cap": "50", "hard_cap": "100",
      "min_contribution": "1", "max_contribution": "60",
      "start_time": 1767225600, "end_time": 1769904000, "rate": "1000"
    }
  }

Pass --file - to read from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readCreateBody(issuanceFileFlag)
		if err != nil {
			return err
		}
		if body.Caller, err = caller(); err != nil {
			return err
		}
		req, err := body.CreateRequest()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		id, err := eng.CreateIssuance(ctx, req)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]string{"id": id.String()})
		}
		fmt.Println(ui.Success(fmt.Sprintf("Issuance %s created: %s", ui.Symbol(body.Symbol), ui.Addr(id.String()))))
		fmt.Println(ui.Hint("Inspect it with: tokenhub issuance show " + id.String()))
		return nil
	},
}

// readCreateBody loads a definition and fills config defaults.
func readCreateBody(path string) (api.CreateBody, error) {
	var body api.CreateBody
	if path == "" {
		return body, fmt.Errorf("--file is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return body, fmt.Errorf("reading definition: %w", err)
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return body, fmt.Errorf("parsing definition: %w", err)
	}
	if body.PercentUnit == "" {
		body.PercentUnit = cfg.PercentUnit
	}
	if p := body.Presale; p != nil && p.LockDuration == 0 {
		p.LockDuration = int64(cfg.LiquidityLockDays) * 24 * 60 * 60
	}
	return body, nil
}

var issuanceShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an issuance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		id, err := resolveIssuance(ctx, eng, args)
		if err != nil {
			return err
		}
		in, err := eng.Get(ctx, id)
		if err != nil {
			return err
		}
		view := api.NewIssuanceView(in, eng.Now())
		if jsonOut {
			return printJSON(view)
		}
		renderIssuance(view)
		return nil
	},
}

var issuanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issuances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		list, err := eng.List(ctx)
		if err != nil {
			return err
		}
		now := eng.Now()
		if jsonOut {
			views := make([]api.IssuanceView, len(list))
			for i, in := range list {
				views[i] = api.NewIssuanceView(in, now)
			}
			return printJSON(views)
		}
		if len(list) == 0 {
			fmt.Println(ui.Info("No issuances yet."))
			fmt.Println(ui.Hint("Create one with: tokenhub issuance create --file token.json"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Symbol", Width: 8},
			{Title: "Name", Width: 18},
			{Title: "ID", Width: 14},
			{Title: "Supply", Width: 20, Right: true},
			{Title: "Status", Width: 10},
		})
		for _, in := range list {
			t.AddRow(ui.Row{
				in.Issuance.Symbol,
				in.Issuance.Name,
				ui.TruncateAddr(in.ID.String()),
				units.FormatUnits(in.Ledger.TotalSupply, in.Issuance.Decimals),
				in.Status(now),
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d issuance(s) in %s store", len(list), cfg.Store)))
		return nil
	},
}

var issuanceBalanceCmd = &cobra.Command{
	Use:   "balance <id> [holder]",
	Short: "Show a holder's token balance",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		holder, err := holderArg(args, 1)
		if err != nil {
			return err
		}
		in, err := eng.Get(ctx, issuance.ID(args[0]))
		if err != nil {
			return err
		}
		bal := in.Ledger.BalanceOf(holder)
		amount := units.FormatUnits(bal, in.Issuance.Decimals)
		if jsonOut {
			return printJSON(map[string]string{"holder": holder.Hex(), "amount": amount})
		}
		fmt.Printf("%s  %s\n", ui.Addr(holder.Hex()), ui.Amount(amount, in.Issuance.Symbol))
		return nil
	},
}

var issuanceMintCmd = &cobra.Command{
	Use:   "mint <id> <to> <amount>",
	Short: "Mint tokens up to the max supply (owner only)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tokenOp(cmd.Context(), args[0], args[2], func(ctx context.Context, eng *engine.Engine, id issuance.ID, amount *big.Int) (string, error) {
			to, err := resolveAddress(args[1])
			if err != nil {
				return "", err
			}
			owner, err := caller()
			if err != nil {
				return "", err
			}
			return "Minted %s to " + to.Hex(), eng.Mint(ctx, id, owner, to, amount)
		})
	},
}

var issuanceTransferCmd = &cobra.Command{
	Use:   "transfer <id> <to> <amount>",
	Short: "Transfer tokens from the acting wallet",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tokenOp(cmd.Context(), args[0], args[2], func(ctx context.Context, eng *engine.Engine, id issuance.ID, amount *big.Int) (string, error) {
			to, err := resolveAddress(args[1])
			if err != nil {
				return "", err
			}
			holder, err := caller()
			if err != nil {
				return "", err
			}
			return "Transferred %s to " + to.Hex(), eng.Transfer(ctx, id, holder, to, amount)
		})
	},
}

var issuanceBurnCmd = &cobra.Command{
	Use:   "burn <id> <amount>",
	Short: "Burn tokens held by the acting wallet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tokenOp(cmd.Context(), args[0], args[1], func(ctx context.Context, eng *engine.Engine, id issuance.ID, amount *big.Int) (string, error) {
			holder, err := caller()
			if err != nil {
				return "", err
			}
			return "Burned %s", eng.Burn(ctx, id, holder, amount)
		})
	},
}

// tokenOp parses amount at the issuance's decimals and runs op. op returns a
// success format with one %s for the amount.
func tokenOp(ctx context.Context, rawID, rawAmount string, op func(context.Context, *engine.Engine, issuance.ID, *big.Int) (string, error)) error {
	eng, done, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer done()

	id := issuance.ID(rawID)
	in, err := eng.Get(ctx, id)
	if err != nil {
		return err
	}
	amount, err := units.ParseUnits(rawAmount, in.Issuance.Decimals)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	format, err := op(ctx, eng, id, amount)
	if err != nil {
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf(format, rawAmount+" "+in.Issuance.Symbol)))
	return nil
}

// holderArg resolves args[i] when present, otherwise the acting wallet.
func holderArg(args []string, i int) (common.Address, error) {
	if len(args) > i {
		return resolveAddress(args[i])
	}
	return caller()
}

func init() {
	issuanceCreateCmd.Flags().StringVarP(&issuanceFileFlag, "file", "f", "", "issuance definition (JSON), - for stdin")
	issuanceCmd.AddCommand(issuanceCreateCmd, issuanceShowCmd, issuanceListCmd, issuanceBalanceCmd,
		issuanceMintCmd, issuanceTransferCmd, issuanceBurnCmd)
}
