package holdings

import (
	"testing"
	"time"

	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(txType model.TransactionType, qty int, cost string, date string) model.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return model.Transaction{
		Type:      txType,
		Quantity:  qty,
		CostBasis: decimal.RequireFromString(cost),
		Date:      d,
	}
}

func TestQuantityHeld(t *testing.T) {
	tests := []struct {
		name         string
		transactions []model.Transaction
		want         int
	}{
		{
			name:         "empty ledger",
			transactions: nil,
			want:         0,
		},
		{
			name: "buys only",
			transactions: []model.Transaction{
				tx(model.TransactionTypeBuy, 3, "10", "2024-01-01"),
				tx(model.TransactionTypeBuy, 2, "12", "2024-02-01"),
			},
			want: 5,
		},
		{
			name: "buys and sells",
			transactions: []model.Transaction{
				tx(model.TransactionTypeBuy, 5, "10", "2024-01-01"),
				tx(model.TransactionTypeSell, 2, "15", "2024-03-01"),
			},
			want: 3,
		},
		{
			name: "oversold ledger goes negative",
			transactions: []model.Transaction{
				tx(model.TransactionTypeBuy, 2, "10", "2024-01-01"),
				tx(model.TransactionTypeSell, 5, "15", "2024-03-01"),
			},
			want: -3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuantityHeld(tt.transactions))
		})
	}
}

func TestCompute(t *testing.T) {
	t.Run("average cost from server cost basis", func(t *testing.T) {
		ledger := []model.Transaction{
			tx(model.TransactionTypeBuy, 3, "10", "2024-01-01"),
			tx(model.TransactionTypeBuy, 2, "12", "2024-02-01"),
		}
		stats := model.PortfolioStats{TotalCostBasis: decimal.RequireFromString("54")}

		snap := Compute(ledger, decimal.RequireFromString("15"), stats)

		assert.Equal(t, 5, snap.QuantityHeld)
		assert.True(t, snap.AverageCostPerUnit.Equal(decimal.RequireFromString("10.8")),
			"got %s", snap.AverageCostPerUnit)
		assert.True(t, snap.MarketValue.Equal(decimal.RequireFromString("75")),
			"got %s", snap.MarketValue)
	})

	t.Run("zero quantity forces zero average", func(t *testing.T) {
		ledger := []model.Transaction{
			tx(model.TransactionTypeBuy, 4, "10", "2024-01-01"),
			tx(model.TransactionTypeSell, 4, "15", "2024-02-01"),
		}
		stats := model.PortfolioStats{TotalCostBasis: decimal.RequireFromString("40")}

		snap := Compute(ledger, decimal.RequireFromString("15"), stats)

		assert.Equal(t, 0, snap.QuantityHeld)
		assert.True(t, snap.AverageCostPerUnit.IsZero())
		assert.True(t, snap.MarketValue.IsZero())
	})

	t.Run("negative quantity forces zero average and zero market value", func(t *testing.T) {
		ledger := []model.Transaction{
			tx(model.TransactionTypeSell, 3, "15", "2024-02-01"),
		}

		snap := Compute(ledger, decimal.RequireFromString("15"), model.PortfolioStats{})

		assert.Equal(t, -3, snap.QuantityHeld)
		assert.True(t, snap.AverageCostPerUnit.IsZero())
		assert.True(t, snap.MarketValue.IsZero())
	})

	t.Run("financials pass through from server stats", func(t *testing.T) {
		stats := model.PortfolioStats{
			TotalCostBasis: decimal.RequireFromString("100"),
			UnrealizedGain: decimal.RequireFromString("23.5"),
			RealizedGain:   decimal.RequireFromString("-4"),
		}

		snap := Compute([]model.Transaction{tx(model.TransactionTypeBuy, 1, "100", "2024-01-01")}, decimal.Zero, stats)

		assert.True(t, snap.UnrealizedGain.Equal(stats.UnrealizedGain))
		assert.True(t, snap.RealizedGain.Equal(stats.RealizedGain))
	})
}

func TestInsertSorted(t *testing.T) {
	ledger := []model.Transaction{
		tx(model.TransactionTypeBuy, 1, "10", "2024-03-01"),
		tx(model.TransactionTypeBuy, 1, "10", "2024-01-01"),
	}

	res := InsertSorted(ledger, tx(model.TransactionTypeBuy, 1, "10", "2024-02-01"))

	require.Len(t, res, 3)
	assert.True(t, res[0].Date.After(res[1].Date))
	assert.True(t, res[1].Date.After(res[2].Date))

	// original slice untouched
	assert.Len(t, ledger, 2)
}
