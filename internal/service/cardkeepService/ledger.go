package cardkeepService

import (
	"context"
	"log/slog"

	"github.com/cardkeep/cardkeep_bot/internal/holdings"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/service"
	"github.com/cardkeep/cardkeep_bot/utils"
)

// BuyCard submits a BUY and returns an optimistic page: the created
// transaction is inserted into the current ledger (date-descending) and the
// quantity recomputed locally. Server-trusted financials stay untouched until
// the caller refreshes with GetCardDetails, which reconciles the backend's
// lot accounting. On failure the current page comes back unchanged.
func (s *CardkeepService) BuyCard(ctx context.Context, req model.BuyRequest, current model.CardHoldingPage) (model.CardHoldingPage, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.BuyCard"

	slog.Debug("BuyCard start", slog.String("rqID", rqID), slog.String("op", op), slog.String("cardID", req.CardID), slog.Int("quantity", req.Quantity))
	defer func() {
		slog.Debug("BuyCard finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	var tx model.Transaction
	var err error

	if current.Ref.CollectionCardID == "" {
		// first purchase creates the holding itself
		tx, err = s.api.CreateHolding(ctx, req.CollectionID, req)
	} else {
		tx, err = s.api.CreateTransaction(ctx, req.CollectionID, current.Ref.CollectionCardID, model.TransactionRequest{
			Type:      model.TransactionTypeBuy,
			Condition: req.Condition,
			Finish:    req.Finish,
			Quantity:  req.Quantity,
			Date:      req.PurchaseDate,
			CostBasis: req.CostBasis,
		})
	}
	if err != nil {
		slog.Error("buy submission failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return current, err
	}

	optimistic := current
	if optimistic.Ref.CollectionCardID == "" {
		optimistic.Ref = model.CardRef{
			CollectionID:     req.CollectionID,
			CollectionCardID: tx.CollectionCardID,
			CardID:           req.CardID,
			Condition:        req.Condition,
			Finish:           req.Finish,
		}
	}
	optimistic.Transactions = holdings.InsertSorted(current.Transactions, tx)
	optimistic.Snapshot.QuantityHeld = current.Snapshot.QuantityHeld + req.Quantity

	return optimistic, nil
}

// SellCard submits a SELL. heldBefore is the quantity from the pre-sale
// snapshot shown in the view. Liquidated reports whether the view should
// navigate back to the collection: either the pre-check saw the sale empty
// the position, or the post-sale refresh found quantity at or below zero
// (another session may have sold concurrently).
func (s *CardkeepService) SellCard(ctx context.Context, ref model.CardRef, req model.TransactionRequest, heldBefore int) (page model.CardHoldingPage, liquidated bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.SellCard"

	slog.Debug("SellCard start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("ref", ref), slog.Int("quantity", req.Quantity), slog.Int("heldBefore", heldBefore))
	defer func() {
		slog.Debug("SellCard finished", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("liquidated", liquidated))
	}()

	if req.Quantity > heldBefore {
		// callers validate in the dialog already; no network call either way
		return model.CardHoldingPage{}, false, service.ErrSellExceedsHolding
	}

	req.Type = model.TransactionTypeSell

	if req.Quantity >= heldBefore {
		// full liquidation: nothing left to display, skip the refresh
		_, err = s.api.CreateTransaction(ctx, ref.CollectionID, ref.CollectionCardID, req)
		if err != nil {
			slog.Error("sell submission failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.CardHoldingPage{}, false, err
		}
		return model.CardHoldingPage{}, true, nil
	}

	_, err = s.api.CreateTransaction(ctx, ref.CollectionID, ref.CollectionCardID, req)
	if err != nil {
		slog.Error("sell submission failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CardHoldingPage{}, false, err
	}

	page, err = s.GetCardDetails(ctx, ref)
	if err != nil {
		return model.CardHoldingPage{}, false, err
	}

	// re-check on refreshed data: a concurrent sell elsewhere may have
	// emptied the position in the meantime
	if page.Snapshot.QuantityHeld <= 0 {
		return page, true, nil
	}

	return page, false, nil
}

// UpdateTransaction patches one transaction and refreshes ledger and stats.
// Errors go back to the invoking dialog unchanged so it can render them
// inline instead of closing.
func (s *CardkeepService) UpdateTransaction(ctx context.Context, ref model.CardRef, transactionID string, patch model.TransactionPatch) (model.CardHoldingPage, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.UpdateTransaction"

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID))
	defer func() {
		slog.Debug("UpdateTransaction finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	_, err := s.api.UpdateTransaction(ctx, ref.CollectionID, transactionID, patch)
	if err != nil {
		slog.Error("got error from api.UpdateTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CardHoldingPage{}, err
	}

	return s.GetCardDetails(ctx, ref)
}

// DeleteTransactions removes transactions one at a time, in the given order.
// A failure stops the batch; the returned DeleteFailedError names the failed
// transaction and how many deletions completed before it. The refreshed page
// reflects only the completed deletions.
func (s *CardkeepService) DeleteTransactions(ctx context.Context, ref model.CardRef, transactionIDs []string) (page model.CardHoldingPage, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.DeleteTransactions"

	slog.Debug("DeleteTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(transactionIDs)))
	defer func() {
		slog.Debug("DeleteTransactions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	deleted := 0
	var deleteErr error
	for _, transactionID := range transactionIDs {
		if err := s.api.DeleteTransaction(ctx, ref.CollectionID, transactionID); err != nil {
			slog.Error(
				"delete stopped partway",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("transactionID", transactionID),
				slog.Int("deleted", deleted),
				slog.String("err", err.Error()),
			)
			deleteErr = &service.DeleteFailedError{TransactionID: transactionID, Deleted: deleted, Err: err}
			break
		}
		deleted++
	}

	if deleted == 0 {
		return model.CardHoldingPage{}, deleteErr
	}

	page, refreshErr := s.GetCardDetails(ctx, ref)
	if deleteErr != nil {
		return page, deleteErr
	}
	if refreshErr != nil {
		return model.CardHoldingPage{}, refreshErr
	}

	return page, nil
}

// RemoveHolding deletes the collection-card pairing with its whole ledger.
func (s *CardkeepService) RemoveHolding(ctx context.Context, ref model.CardRef) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.RemoveHolding"

	slog.Debug("RemoveHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("ref", ref))
	defer func() {
		slog.Debug("RemoveHolding finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	err := s.api.DeleteHolding(ctx, ref.CollectionID, ref.CollectionCardID)
	if err != nil {
		slog.Error("got error from api.DeleteHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	go s.cache.FlushCardPrices(context.WithoutCancel(ctx), ref.CardID)

	return nil
}
