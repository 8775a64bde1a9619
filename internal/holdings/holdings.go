// Package holdings derives a holding snapshot from a transaction ledger.
// Everything here is pure computation: no I/O, no logging, no failure modes.
//
// Only quantity is trusted to local math. Cost basis and gains come from the
// server stats, which own the lot-matching accounting.
package holdings

import (
	"sort"

	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/shopspring/decimal"
)

// QuantityHeld is the sum of buy quantities minus the sum of sell quantities.
// The result may be negative if the ledger oversells; callers decide what to
// do with that.
func QuantityHeld(transactions []model.Transaction) int {
	qty := 0
	for _, t := range transactions {
		switch t.Type {
		case model.TransactionTypeBuy:
			qty += t.Quantity
		case model.TransactionTypeSell:
			qty -= t.Quantity
		}
	}
	return qty
}

// Compute merges the locally derived quantity with the server-sourced
// financials into a snapshot. marketPrice is the unit price for the holding's
// condition+finish.
func Compute(transactions []model.Transaction, marketPrice decimal.Decimal, stats model.PortfolioStats) model.HoldingSnapshot {
	qty := QuantityHeld(transactions)

	avg := decimal.Zero
	if qty > 0 {
		avg = stats.TotalCostBasis.Div(decimal.NewFromInt(int64(qty)))
	}

	marketQty := qty
	if marketQty < 0 {
		marketQty = 0
	}

	return model.HoldingSnapshot{
		QuantityHeld:       qty,
		TotalCostBasis:     stats.TotalCostBasis,
		AverageCostPerUnit: avg,
		MarketPrice:        marketPrice,
		MarketValue:        marketPrice.Mul(decimal.NewFromInt(int64(marketQty))),
		UnrealizedGain:     stats.UnrealizedGain,
		RealizedGain:       stats.RealizedGain,
	}
}

// SortByDateDesc orders a ledger newest first, the order the card view shows.
func SortByDateDesc(transactions []model.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.After(transactions[j].Date)
	})
}

// InsertSorted appends a transaction keeping date-descending order. Used for
// the optimistic ledger update after a successful buy, before the
// authoritative refresh lands.
func InsertSorted(transactions []model.Transaction, tx model.Transaction) []model.Transaction {
	res := append(append([]model.Transaction(nil), transactions...), tx)
	SortByDateDesc(res)
	return res
}
