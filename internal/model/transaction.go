package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// Transaction is one buy or sell event for a card-condition-finish
// combination inside a collection. CostBasis is the total amount paid or
// received for the transaction.
type Transaction struct {
	ID        string
	Type      TransactionType
	Quantity  int
	CostBasis decimal.Decimal
	Date      time.Time
	// CollectionCardID is only set on transactions returned from create
	// calls; history items leave it empty.
	CollectionCardID string
}

type BuyRequest struct {
	CardID       string
	Condition    string
	Finish       string
	Quantity     int
	PurchaseDate time.Time
	CostBasis    decimal.Decimal
	CollectionID string
}

// TransactionRequest records a BUY or SELL against an existing holding.
type TransactionRequest struct {
	Type      TransactionType
	Condition string
	Finish    string
	Quantity  int
	Date      time.Time
	CostBasis decimal.Decimal
}

// TransactionPatch carries only the fields the user edited.
type TransactionPatch struct {
	Quantity  *int
	CostBasis *decimal.Decimal
	Date      *time.Time
}
