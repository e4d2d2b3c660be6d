package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/ui"
	"github.com/getantonio/tokenhub/internal/units"
)

var revokeYes bool

var vestingCmd = &cobra.Command{
	Use:   "vesting",
	Short: "Inspect and revoke vesting grants",
}

var vestingShowCmd = &cobra.Command{
	Use:   "show <id> [beneficiary]",
	Short: "Show vesting schedules, or one beneficiary's",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		in, err := eng.Get(ctx, issuance.ID(args[0]))
		if err != nil {
			return err
		}
		view := api.NewIssuanceView(in, eng.Now())
		rows := view.Vesting
		if len(args) > 1 {
			who, err := resolveAddress(args[1])
			if err != nil {
				return err
			}
			s, ok := in.Vesting[who]
			if !ok {
				return fmt.Errorf("%w: %s", issuance.ErrNoVesting, who.Hex())
			}
			rows = []api.VestingView{api.NewVestingView(s, in.Issuance.Decimals, eng.Now())}
		}
		if jsonOut {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			fmt.Println(ui.Info("No vesting schedules."))
			return nil
		}
		renderVesting(rows, in.Issuance.Symbol)
		return nil
	},
}

var vestingRevokeCmd = &cobra.Command{
	Use:   "revoke <id> <beneficiary>",
	Short: "Revoke a revocable grant, returning unvested tokens to the owner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		owner, err := caller()
		if err != nil {
			return err
		}
		who, err := resolveAddress(args[1])
		if err != nil {
			return err
		}
		if !revokeYes && !ui.ConfirmDanger(fmt.Sprintf("Revoke the vesting grant of %s?", who.Hex())) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		id := issuance.ID(args[0])
		returned, err := eng.RevokeVesting(ctx, id, owner, who)
		if err != nil {
			return err
		}
		in, err := eng.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Grant revoked; returned " + ui.Amount(units.FormatUnits(returned, in.Issuance.Decimals), in.Issuance.Symbol)))
		return nil
	},
}

var liquidityCmd = &cobra.Command{
	Use:   "liquidity",
	Short: "Manage the liquidity lock",
}

var liquidityWithdrawCmd = &cobra.Command{
	Use:   "withdraw <id>",
	Short: "Release locked liquidity after the unlock time (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		owner, err := caller()
		if err != nil {
			return err
		}
		eng, done, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer done()

		id := issuance.ID(args[0])
		lock, err := eng.WithdrawLiquidity(ctx, id, owner)
		if err != nil {
			return err
		}
		in, err := eng.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Liquidity released"))
		fmt.Printf("  %s %s\n", ui.Meta("Tokens:"), ui.Amount(units.FormatUnits(lock.TokenAmount, in.Issuance.Decimals), in.Issuance.Symbol))
		fmt.Printf("  %s %s\n", ui.Meta("Native:"), ui.Amount(units.FormatUnits(lock.NativeAmount, api.NativeDecimals), "coin"))
		return nil
	},
}

func init() {
	vestingRevokeCmd.Flags().BoolVarP(&revokeYes, "yes", "y", false, "skip confirmation")
	vestingCmd.AddCommand(vestingShowCmd, vestingRevokeCmd)
	liquidityCmd.AddCommand(liquidityWithdrawCmd)
}
