package model

import "github.com/shopspring/decimal"

// PortfolioStats are the server-computed financials for one collection-card
// pairing. The backend owns cost-basis and gain accounting (lot matching
// happens there), the client never recomputes these from the raw ledger.
type PortfolioStats struct {
	CurrentValue   decimal.Decimal
	TotalCostBasis decimal.Decimal
	UnrealizedGain decimal.Decimal
	RealizedGain   decimal.Decimal
}

// HoldingSnapshot is derived, never persisted: quantity comes from the local
// ledger, financials from PortfolioStats.
type HoldingSnapshot struct {
	QuantityHeld       int
	TotalCostBasis     decimal.Decimal
	AverageCostPerUnit decimal.Decimal
	MarketPrice        decimal.Decimal
	MarketValue        decimal.Decimal
	UnrealizedGain     decimal.Decimal
	RealizedGain       decimal.Decimal
}

// CardRef addresses one collection-card pairing: a card in a given
// condition+finish inside a collection.
type CardRef struct {
	CollectionID     string
	CollectionCardID string
	CardID           string
	Condition        string
	Finish           string
}

// CardHoldingPage is everything the card detail view renders.
type CardHoldingPage struct {
	Ref          CardRef
	Card         Card
	Snapshot     HoldingSnapshot
	Transactions []Transaction
}
