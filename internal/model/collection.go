package model

import "github.com/shopspring/decimal"

type Collection struct {
	ID   string
	Name string
}

// CollectionCard is one holding row inside a collection listing.
type CollectionCard struct {
	CollectionCardID string
	Card             Card
	Condition        string
	Finish           string
	Quantity         int
	CurrentValue     decimal.Decimal
}

type CollectionPage struct {
	Collection  Collection
	Cards       []CollectionCard
	CurPage     int
	HasNextPage bool
}

// CollectionReport is the input of the xlsx export: the full holding list
// plus the ledger of every holding, keyed by collection-card ID.
type CollectionReport struct {
	Collection Collection
	Cards      []CollectionCard
	Histories  map[string][]Transaction
}
