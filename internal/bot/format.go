package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"snakepill/internal/service"
)

const helpText = "🐍 Snake pill operator bot\n\n" +
	"/status - system status\n" +
	"/check <wallet> - eligibility of a wallet\n" +
	"/reconcile - run an eligibility check now\n" +
	"/distribute <total_tax_sol> - pay the eligible set"

const distributeUsage = "Usage: /distribute <total_tax_sol>"

// parseTax reads a positive SOL amount from the command arguments.
func parseTax(args []string) (decimal.Decimal, bool) {
	if len(args) != 1 {
		return decimal.Zero, false
	}
	tax, err := decimal.NewFromString(args[0])
	if err != nil || tax.Sign() <= 0 {
		return decimal.Zero, false
	}
	return tax, true
}

func formatStatus(r *service.StatusReport) string {
	var sb strings.Builder
	sb.WriteString("📊 Status\n\n")
	if r.SystemStatus != nil {
		fmt.Fprintf(&sb, "👥 Players: %d\n", r.TotalPlayers)
		fmt.Fprintf(&sb, "🎮 Games: %d\n", r.TotalGames)
		fmt.Fprintf(&sb, "💸 Distributed: %s SOL\n", r.TotalDistributedSOL.String())
	}
	fmt.Fprintf(&sb, "✅ Eligible: %d\n", r.EligibleCount)
	fmt.Fprintf(&sb, "🟢 Online: %d\n", r.OnlineCount)
	fmt.Fprintf(&sb, "💰 Distributor: %s SOL\n", r.WalletBalance.StringFixed(4))
	fmt.Fprintf(&sb, "📐 Payout rate: %s%%", r.DistributionPercentage.String())
	if r.ReconcileRunning {
		sb.WriteString("\n⏳ Reconciliation running")
	}
	return sb.String()
}

func formatEligibility(wallet string, r *service.EligibilityReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 %s\n\n", wallet)
	if r.IsEligible {
		sb.WriteString("✅ Eligible\n")
	} else {
		sb.WriteString("❌ Not eligible")
		if r.Reason != "" {
			sb.WriteString(": " + r.Reason)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "⏱ Playtime: %ds / %ds", r.PlaytimeSeconds, r.MinPlaytimeRequired)
	if r.HoldingUSD != nil && r.MinHoldingRequired != nil {
		fmt.Fprintf(&sb, "\n💵 Holding: $%s / $%s", r.HoldingUSD.StringFixed(2), r.MinHoldingRequired.StringFixed(2))
	}
	return sb.String()
}

func formatReconcile(r *service.ReconcileResult) string {
	return fmt.Sprintf(
		"✅ Reconciliation complete\n\n"+
			"Checked: %d\n"+
			"Eligible: %d\n"+
			"Removed: %d\n"+
			"Failed: %d\n"+
			"Took: %s",
		r.Checked, r.Eligible, r.Removed, r.Failed, r.Duration.Round(time.Millisecond),
	)
}

func formatDistribution(r *service.DistributionResult) string {
	if !r.Success {
		msg := "⚠️ Distribution skipped: " + r.Reason
		if r.Reason == service.ReasonInsufficientBalance {
			msg += fmt.Sprintf("\nBalance %s SOL, need %s SOL", r.Balance.String(), r.Required.String())
		}
		return msg
	}

	var sb strings.Builder
	sb.WriteString("💸 Distribution complete\n\n")
	fmt.Fprintf(&sb, "Pool: %s SOL\n", r.Pool.String())
	fmt.Fprintf(&sb, "Per player: %s SOL\n", r.PerRecipient.StringFixed(6))
	fmt.Fprintf(&sb, "Paid: %d / %d", r.SuccessCount, r.EligibleCount)
	for _, f := range r.Failures {
		fmt.Fprintf(&sb, "\n❌ %s: %v", f.Wallet, f.Err)
	}
	return sb.String()
}
