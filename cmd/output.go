package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/ui"
)

// printJSON writes v indented to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04 UTC")
}

func formatDuration(secs int64) string {
	if secs == 0 {
		return "0"
	}
	d := time.Duration(secs) * time.Second
	if d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
	return d.String()
}

func renderIssuance(v api.IssuanceView) {
	fmt.Println(ui.KeyValueBlock(v.Name+" ("+v.Symbol+")", [][2]string{
		{"ID", v.ID},
		{"Owner", v.Owner.Hex()},
		{"Total supply", v.TotalSupply},
		{"Max supply", v.MaxSupply},
		{"Decimals", fmt.Sprint(v.Decimals)},
		{"Status", v.Status},
		{"Created", formatTime(v.CreatedAt)},
		{"Version", fmt.Sprint(v.Version)},
	}))

	t := ui.NewTable([]ui.Column{
		{Title: "Wallet", Width: 42},
		{Title: "Share", Width: 8, Right: true},
		{Title: "Vesting", Width: 8},
	})
	for _, a := range v.Allocations {
		vest := ""
		if a.Vesting {
			vest = "yes"
		}
		t.AddRow(ui.Row{a.Wallet.Hex(), a.Share, vest})
	}
	fmt.Println(t.Render())

	if len(v.Vesting) > 0 {
		renderVesting(v.Vesting, v.Symbol)
	}
	if v.Presale != nil {
		renderPresale(*v.Presale, v.Symbol)
	}
	if l := v.Liquidity; l != nil {
		state := "released"
		if l.Locked {
			state = "locked"
		}
		fmt.Println(ui.KeyValueBlock("Liquidity", [][2]string{
			{"Tokens", l.TokenAmount + " " + v.Symbol},
			{"Native", l.NativeAmount},
			{"Unlocks", formatTime(l.UnlockTime)},
			{"State", state},
		}))
	}
}

func renderVesting(rows []api.VestingView, symbol string) {
	t := ui.NewTable([]ui.Column{
		{Title: "Beneficiary", Width: 14},
		{Title: "Total", Width: 18, Right: true},
		{Title: "Released", Width: 18, Right: true},
		{Title: "Releasable", Width: 18, Right: true},
		{Title: "Cliff", Width: 8, Right: true},
		{Title: "Duration", Width: 9, Right: true},
		{Title: "Flags", Width: 10},
	})
	for _, s := range rows {
		flags := ""
		switch {
		case s.Revoked:
			flags = "revoked"
		case s.Revocable:
			flags = "revocable"
		}
		t.AddRow(ui.Row{
			ui.TruncateAddr(s.Beneficiary.Hex()),
			s.Total, s.Released, s.Releasable,
			formatDuration(s.Cliff), formatDuration(s.Duration),
			flags,
		})
	}
	fmt.Println(ui.StyleTitle.Render("Vesting · " + symbol))
	fmt.Println(t.Render())
}

func renderPresale(p api.PresaleView, symbol string) {
	pairs := [][2]string{
		{"State", ui.State(string(p.State))},
		{"Raised", p.TotalContributed + " / " + p.HardCap},
		{"Soft cap", p.SoftCap},
		{"Rate", p.Rate + " " + symbol + " per coin"},
		{"Tokens sold", p.TokensSold},
		{"Window", formatTime(p.StartTime) + " → " + formatTime(p.EndTime)},
		{"Contributors", fmt.Sprint(p.Contributors)},
	}
	if p.ClosedByCap {
		pairs = append(pairs, [2]string{"Closed by cap", "yes"})
	}
	if p.Whitelist {
		pairs = append(pairs, [2]string{"Whitelist", "enabled"})
	}
	fmt.Println(ui.KeyValueBlock("Presale", pairs))
}

func renderOutcome(o api.OutcomeView, symbol string) {
	pairs := [][2]string{
		{"State", ui.State(string(o.State))},
		{"Raised", o.TotalContributed},
	}
	if o.State == "Finalized" {
		pairs = append(pairs,
			[2]string{"Tokens sold", o.TokensSold + " " + symbol},
			[2]string{"Unsold burned", o.UnsoldTokens + " " + symbol},
			[2]string{"Liquidity", o.LiquidityTokens + " " + symbol + " + " + o.LiquidityNative},
			[2]string{"Proceeds", o.Proceeds},
			[2]string{"Unlocks", formatTime(o.LiquidityUnlocksAt)},
		)
	}
	fmt.Println(ui.KeyValueBlock("Finalize", pairs))
}
