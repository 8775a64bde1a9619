package apiConverter

import (
	"time"

	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/apiModel"
	"github.com/shopspring/decimal"
)

func ConvertStats(s apiModel.Stats) model.PortfolioStats {
	return model.PortfolioStats{
		CurrentValue:   s.CurrentValue,
		TotalCostBasis: s.TotalCostBasis,
		UnrealizedGain: s.UnrealizedGain,
		RealizedGain:   s.RealizedGain,
	}
}

func ConvertTransaction(t apiModel.Transaction) model.Transaction {
	date, err := time.Parse(apiModel.DateLayout, t.TransactionDate)
	if err != nil {
		// malformed date from the API renders as zero time, the ledger
		// still shows the row
		date = time.Time{}
	}
	return model.Transaction{
		ID:               t.ID,
		Type:             model.TransactionType(t.TransactionType),
		Quantity:         t.Quantity,
		CostBasis:        t.CostBasis,
		Date:             date,
		CollectionCardID: t.CollectionCardID,
	}
}

func ConvertTransactions(items []apiModel.Transaction) []model.Transaction {
	res := make([]model.Transaction, 0, len(items))
	for _, item := range items {
		res = append(res, ConvertTransaction(item))
	}
	return res
}

func ConvertCard(c apiModel.Card) model.Card {
	return model.Card{
		ID:      c.ID,
		Name:    c.Name,
		SetCode: c.SetCode,
		Number:  c.Number,
		Rarity:  c.Rarity,
	}
}

func ConvertCollection(c apiModel.Collection) model.Collection {
	return model.Collection{ID: c.ID, Name: c.Name}
}

func ConvertCollectionCard(c apiModel.CollectionCard) model.CollectionCard {
	return model.CollectionCard{
		CollectionCardID: c.ID,
		Card:             ConvertCard(c.Card),
		Condition:        c.Condition,
		Finish:           c.Finish,
		Quantity:         c.Quantity,
		CurrentValue:     c.CurrentValue,
	}
}

func ConvertSet(s apiModel.Set) model.Set {
	released, _ := time.Parse(apiModel.DateLayout, s.ReleasedAt)
	return model.Set{
		Code:       s.Code,
		Name:       s.Name,
		Series:     s.Series,
		CardCount:  s.CardCount,
		ReleasedAt: released,
	}
}

func ConvertSets(items []apiModel.Set) []model.Set {
	res := make([]model.Set, 0, len(items))
	for _, item := range items {
		res = append(res, ConvertSet(item))
	}
	return res
}

func ConvertCardPrices(p apiModel.CardPrices) model.CardPrices {
	prices := make(map[model.PriceKey]decimal.Decimal, len(p.Items))
	for _, item := range p.Items {
		prices[model.PriceKey{Condition: item.Condition, Finish: item.Finish}] = item.Price
	}
	return model.CardPrices{CardID: p.CardID, Prices: prices}
}

func ConvertBuyRequest(req model.BuyRequest) apiModel.CreateCardRequest {
	return apiModel.CreateCardRequest{
		CardID:       req.CardID,
		Condition:    req.Condition,
		Finish:       req.Finish,
		Quantity:     req.Quantity,
		PurchaseDate: req.PurchaseDate.Format(apiModel.DateLayout),
		CostBasis:    req.CostBasis,
		CollectionID: req.CollectionID,
	}
}

func ConvertTransactionRequest(req model.TransactionRequest) apiModel.CreateTransactionRequest {
	return apiModel.CreateTransactionRequest{
		Condition:       req.Condition,
		Finish:          req.Finish,
		TransactionType: string(req.Type),
		Quantity:        req.Quantity,
		PurchaseDate:    req.Date.Format(apiModel.DateLayout),
		CostBasis:       req.CostBasis,
	}
}

func ConvertPatch(patch model.TransactionPatch) apiModel.PatchTransactionRequest {
	res := apiModel.PatchTransactionRequest{
		Quantity:  patch.Quantity,
		CostBasis: patch.CostBasis,
	}
	if patch.Date != nil {
		d := patch.Date.Format(apiModel.DateLayout)
		res.PurchaseDate = &d
	}
	return res
}
