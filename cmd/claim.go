package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/ui"
	"github.com/getantonio/tokenhub/internal/units"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim tokens, refunds, vested grants or sale proceeds",
}

// claimFunc is one engine claim for the acting wallet.
type claimFunc func(ctx context.Context, eng *engine.Engine, id issuance.ID, who common.Address) (*big.Int, error)

// newClaimCmd builds a claim subcommand. native selects 18-decimal coin
// formatting instead of the token's decimals.
func newClaimCmd(use, short string, native bool, claim claimFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			who, err := caller()
			if err != nil {
				return err
			}
			eng, done, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer done()

			id := issuance.ID(args[0])
			amount, err := claim(ctx, eng, id, who)
			if err != nil {
				return err
			}
			in, err := eng.Get(ctx, id)
			if err != nil {
				return err
			}
			dec, unit := in.Issuance.Decimals, in.Issuance.Symbol
			if native {
				dec, unit = api.NativeDecimals, "coin"
			}
			formatted := units.FormatUnits(amount, dec)
			if jsonOut {
				return printJSON(map[string]string{"amount": formatted})
			}
			fmt.Println(ui.Success("Claimed " + ui.Amount(formatted, unit)))
			if native {
				fmt.Println(ui.Meta("Payout recorded in " + payoutsFile))
			}
			return nil
		},
	}
}

func init() {
	claimCmd.AddCommand(
		newClaimCmd("tokens", "Claim purchased tokens after a successful sale", false,
			func(ctx context.Context, eng *engine.Engine, id issuance.ID, who common.Address) (*big.Int, error) {
				return eng.ClaimTokens(ctx, id, who)
			}),
		newClaimCmd("refund", "Reclaim a contribution after a failed sale", true,
			func(ctx context.Context, eng *engine.Engine, id issuance.ID, who common.Address) (*big.Int, error) {
				return eng.ClaimRefund(ctx, id, who)
			}),
		newClaimCmd("vested", "Release vested tokens", false,
			func(ctx context.Context, eng *engine.Engine, id issuance.ID, who common.Address) (*big.Int, error) {
				return eng.ClaimVested(ctx, id, who)
			}),
		newClaimCmd("proceeds", "Withdraw sale proceeds (owner only)", true,
			func(ctx context.Context, eng *engine.Engine, id issuance.ID, who common.Address) (*big.Int, error) {
				return eng.ClaimProceeds(ctx, id, who)
			}),
	)
}
