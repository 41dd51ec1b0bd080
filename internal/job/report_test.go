package job

import (
	"testing"
	"time"

	"github.com/ayo6706/prepaid-recharge/internal/currency"
	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestReportBodyRendersEveryLine(t *testing.T) {
	f := currency.NewFormatter()
	newBalance := usd(t, "29.98")
	rep := &Report{
		Target:   domain.DeveloperTarget("dev@example.com"),
		Previous: usd(t, "19.99"),
		Applied:  usd(t, "19.99"),
		Expected: usd(t, "39.98"),
		New:      &newBalance,
	}

	body := rep.Body(f, time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC))

	expected := "Calculation discrepancy applying adjustment to developer `dev@example.com`.\n" +
		"\n" +
		"Existing credit added (August):  `$19.99`\n" +
		"Amount Applied:                   `$19.99`.\n" +
		"New Balance:                      `$29.98`.\n" +
		"Expected New Balance:             `$39.98`."
	require.Equal(t, expected, body)
}

func TestReportBodyUsesPlaceholderWhenNewBalanceMissing(t *testing.T) {
	f := currency.NewFormatter()
	rep := &Report{
		Target:   domain.DeveloperTarget("dev@example.com"),
		Previous: usd(t, "0"),
		Applied:  usd(t, "19.99"),
		Expected: usd(t, "19.99"),
	}

	body := rep.Body(f, time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC))

	require.Contains(t, body, "Existing credit added (January):  `$0`")
	require.Contains(t, body, "New Balance:                      `Error retrieving the new balance.`.")
	require.Equal(t, NewBalanceUnavailable, rep.NewBalanceDisplay(f))
}

func TestReportMessages(t *testing.T) {
	rep := &Report{Target: domain.TeamTarget("team-a")}
	require.Equal(t, "Adjustment applied to team `team-a`.", rep.SuccessMessage())
	require.Equal(t, "Calculation discrepancy applying adjustment to team `team-a`.", rep.DiscrepancyMessage())
}
