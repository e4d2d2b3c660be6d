package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/ui"
	"github.com/getantonio/tokenhub/internal/units"
)

var watchInterval time.Duration

var presaleCmd = &cobra.Command{
	Use:   "presale",
	Short: "Contribute to, close and finalize presales",
}

var presaleContributeCmd = &cobra.Command{
	Use:   "contribute <id> <amount>",
	Short: "Contribute native coin to an active presale",
	Long: `Contribute <amount> whole coins (18 decimals) from the acting wallet.

A contribution that reaches the hard cap closes the sale immediately.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		from, err := caller()
		if err != nil {
			return err
		}
		amount, err := units.ParseUnits(args[1], api.NativeDecimals)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		id := issuance.ID(args[0])
		if err := eng.Contribute(ctx, id, from, amount); err != nil {
			return err
		}
		in, err := eng.Get(ctx, id)
		if err != nil {
			return err
		}
		c := in.Presale.Contributions[from]
		fmt.Println(ui.Success(fmt.Sprintf("Contributed %s", args[1])))
		fmt.Printf("  %s %s\n", ui.Meta("Position:"), ui.Val(units.FormatUnits(c.Amount, api.NativeDecimals)))
		fmt.Printf("  %s %s\n", ui.Meta("Owed:    "), ui.Amount(units.FormatUnits(c.TokensOwed, in.Issuance.Decimals), in.Issuance.Symbol))
		if in.Presale.ClosedByCap {
			fmt.Println(ui.Info("Hard cap reached; the sale is closed."))
		}
		return nil
	},
}

var presaleCloseCmd = &cobra.Command{
	Use:   "close [id]",
	Short: "Close a presale whose window has ended",
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
		st, err := eng.ClosePresale(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Presale is " + ui.State(string(st))))
		return nil
	},
}

var presaleFinalizeCmd = &cobra.Command{
	Use:   "finalize [id]",
	Short: "Settle a closed presale: distribute and lock, or open refunds",
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
		out, err := eng.FinalizePresale(ctx, id)
		if err != nil {
			return err
		}
		in, err := eng.Get(ctx, id)
		if err != nil {
			return err
		}
		view := api.NewOutcomeView(out, in.Issuance.Decimals)
		if jsonOut {
			return printJSON(view)
		}
		renderOutcome(view, in.Issuance.Symbol)
		if out.State == issuance.StateRefunding {
			fmt.Println(ui.Hint("Contributors reclaim with: tokenhub claim refund " + id.String()))
		} else {
			fmt.Println(ui.Hint("Contributors claim with: tokenhub claim tokens " + id.String()))
		}
		return nil
	},
}

var presaleStatusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show presale progress",
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
		if in.Presale == nil {
			return issuance.ErrNoPresale
		}
		view := api.NewIssuanceView(in, eng.Now())
		if jsonOut {
			return printJSON(view.Presale)
		}
		renderPresale(*view.Presale, in.Issuance.Symbol)
		fmt.Println("  " + ui.ProgressBar(raisedFraction(in.Presale), 30))
		return nil
	},
}

var presaleWhitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage the presale whitelist (owner only)",
}

var presaleWhitelistAddCmd = &cobra.Command{
	Use:   "add <id> <address|wallet>...",
	Short: "Allow addresses to contribute",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return whitelistOp(cmd.Context(), args, "added to", func(ctx context.Context, eng *engine.Engine, id issuance.ID, owner common.Address, addrs []common.Address) error {
			return eng.AddToWhitelist(ctx, id, owner, addrs)
		})
	},
}

var presaleWhitelistRemoveCmd = &cobra.Command{
	Use:   "remove <id> <address|wallet>...",
	Short: "Revoke contribution rights",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return whitelistOp(cmd.Context(), args, "removed from", func(ctx context.Context, eng *engine.Engine, id issuance.ID, owner common.Address, addrs []common.Address) error {
			return eng.RemoveFromWhitelist(ctx, id, owner, addrs)
		})
	},
}

func whitelistOp(ctx context.Context, args []string, verb string, op func(context.Context, *engine.Engine, issuance.ID, common.Address, []common.Address) error) error {
	owner, err := caller()
	if err != nil {
		return err
	}
	addrs := make([]common.Address, 0, len(args)-1)
	for _, ref := range args[1:] {
		a, err := resolveAddress(ref)
		if err != nil {
			return err
		}
		addrs = append(addrs, a)
	}

	eng, done, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := op(ctx, eng, issuance.ID(args[0]), owner, addrs); err != nil {
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf("%d address(es) %s the whitelist", len(addrs), verb)))
	return nil
}

var presaleWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of every presale in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		p := ui.NewMonitor(watchInterval, func() ([]ui.SaleEntry, error) {
			return saleEntries(ctx, eng)
		})
		_, err = p.Run()
		return err
	},
}

// saleEntries lists every issuance with a presale as monitor rows.
func saleEntries(ctx context.Context, eng *engine.Engine) ([]ui.SaleEntry, error) {
	list, err := eng.List(ctx)
	if err != nil {
		return nil, err
	}
	now := eng.Now()
	var out []ui.SaleEntry
	for _, in := range list {
		p := in.Presale
		if p == nil {
			continue
		}
		out = append(out, ui.SaleEntry{
			ID:           in.ID.String(),
			Symbol:       in.Issuance.Symbol,
			State:        string(p.State(now)),
			Raised:       units.FormatUnits(p.TotalContributed, api.NativeDecimals),
			HardCap:      units.FormatUnits(p.Config.HardCap, api.NativeDecimals),
			Progress:     raisedFraction(p),
			Contributors: len(p.Contributors),
			EndsIn:       time.Duration(p.Config.EndTime-now) * time.Second,
		})
	}
	return out, nil
}

// raisedFraction is TotalContributed / HardCap for display.
func raisedFraction(p *issuance.Presale) float64 {
	if p.Config.HardCap == nil || p.Config.HardCap.Sign() == 0 {
		return 0
	}
	raised := decimal.NewFromBigInt(p.TotalContributed, 0)
	frac, _ := raised.Div(decimal.NewFromBigInt(p.Config.HardCap, 0)).Float64()
	return frac
}

func init() {
	presaleWatchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "refresh interval")
	presaleWhitelistCmd.AddCommand(presaleWhitelistAddCmd, presaleWhitelistRemoveCmd)
	presaleCmd.AddCommand(presaleContributeCmd, presaleCloseCmd, presaleFinalizeCmd,
		presaleStatusCmd, presaleWhitelistCmd, presaleWatchCmd)
}
