package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Card struct {
	ID      string
	Name    string
	SetCode string
	Number  string
	Rarity  string
}

type Set struct {
	Code       string
	Name       string
	Series     string
	CardCount  int
	ReleasedAt time.Time
}

// PriceKey identifies a market price within a card: prices are quoted per
// condition+finish, not per card.
type PriceKey struct {
	Condition string
	Finish    string
}

type CardPrices struct {
	CardID string
	Prices map[PriceKey]decimal.Decimal
}

func (p CardPrices) Price(condition, finish string) decimal.Decimal {
	return p.Prices[PriceKey{Condition: condition, Finish: finish}]
}
