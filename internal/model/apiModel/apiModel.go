// Package apiModel holds the wire representations of the collection/card
// REST API. Converters in internal/converter/apiConverter translate them to
// the domain models.
package apiModel

import "github.com/shopspring/decimal"

// DateLayout is how the API serializes transaction and release dates.
const DateLayout = "2006-01-02"

type Stats struct {
	CurrentValue   decimal.Decimal `json:"currentValue"`
	TotalCostBasis decimal.Decimal `json:"totalCostBasis"`
	UnrealizedGain decimal.Decimal `json:"unrealizedGain"`
	RealizedGain   decimal.Decimal `json:"realizedGain"`
}

type Transaction struct {
	ID               string          `json:"id"`
	TransactionType  string          `json:"transactionType"`
	Quantity         int             `json:"quantity"`
	CostBasis        decimal.Decimal `json:"costBasis"`
	TransactionDate  string          `json:"transactionDate"`
	CollectionCardID string          `json:"collectionCardId,omitempty"`
}

type TransactionHistory struct {
	Items []Transaction `json:"items"`
}

type CreateCardRequest struct {
	CardID       string          `json:"cardId"`
	Condition    string          `json:"condition"`
	Finish       string          `json:"finish"`
	Quantity     int             `json:"quantity"`
	PurchaseDate string          `json:"purchaseDate"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	CollectionID string          `json:"collectionId"`
}

type CreateTransactionRequest struct {
	Condition       string          `json:"condition"`
	Finish          string          `json:"finish"`
	TransactionType string          `json:"transactionType"`
	Quantity        int             `json:"quantity"`
	PurchaseDate    string          `json:"purchaseDate"`
	CostBasis       decimal.Decimal `json:"costBasis"`
}

type PatchTransactionRequest struct {
	Quantity     *int             `json:"quantity,omitempty"`
	CostBasis    *decimal.Decimal `json:"costBasis,omitempty"`
	PurchaseDate *string          `json:"purchaseDate,omitempty"`
}

type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Collections struct {
	Items []Collection `json:"items"`
}

type Card struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SetCode string `json:"setCode"`
	Number  string `json:"number"`
	Rarity  string `json:"rarity"`
}

type CollectionCard struct {
	ID           string          `json:"id"`
	Card         Card            `json:"card"`
	Condition    string          `json:"condition"`
	Finish       string          `json:"finish"`
	Quantity     int             `json:"quantity"`
	CurrentValue decimal.Decimal `json:"currentValue"`
}

type CollectionCards struct {
	Items []CollectionCard `json:"items"`
}

type Set struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Series     string `json:"series"`
	CardCount  int    `json:"cardCount"`
	ReleasedAt string `json:"releasedAt"`
}

type Sets struct {
	Items []Set `json:"items"`
}

type Cards struct {
	Items []Card `json:"items"`
}

type CardPrice struct {
	Condition string          `json:"condition"`
	Finish    string          `json:"finish"`
	Price     decimal.Decimal `json:"price"`
}

type CardPrices struct {
	CardID string      `json:"cardId"`
	Items  []CardPrice `json:"items"`
}

// ErrorResponse is the optional error body; Message may be empty and the
// caller falls back to a generic message.
type ErrorResponse struct {
	Message string `json:"message"`
}
