package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cardkeep/cardkeep_bot/internal/converter/telebotConverter"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/service"
	"github.com/cardkeep/cardkeep_bot/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const (
	defaultCondition = "NM"
	defaultFinish    = "nonfoil"
)

// OpenCard opens the detail view of a holding from the current collection
// page.
func (ctrl *Controller) OpenCard(c tele.Context, collectionCardID string) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	ref, ok := chatSession.PageRefs[collectionCardID]
	if !ok {
		return c.Send("this page is out of date, open the collection again: /collections")
	}

	return ctrl.showCardDetails(ctx, c, chatSession, ref)
}

// RetryCardLoad re-runs the last failed card load.
func (ctrl *Controller) RetryCardLoad(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Ref.CollectionCardID == "" {
		return c.Send("nothing to retry, open the collection: /collections")
	}

	return ctrl.showCardDetails(ctx, c, chatSession, chatSession.Ref)
}

func (ctrl *Controller) showCardDetails(ctx context.Context, c tele.Context, chatSession model.Session, ref model.CardRef) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	page, err := ctrl.cardkeepService.GetCardDetails(ctx, ref)
	if err != nil {
		slog.Error("got error from cardkeepService.GetCardDetails", slog.String("rqID", rqID), slog.String("err", err.Error()))

		chatSession.Ref = ref
		_ = ctrl.saveSession(ctx, c, chatSession)

		return c.EditOrSend(telebotConverter.RetryResponse("Failed to load the card."))
	}

	chatSession.Ref = ref
	chatSession.QuantityHeld = page.Snapshot.QuantityHeld
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.EditOrSend(telebotConverter.CardDetailResponse(page))
}

// AddCard starts a buy dialog for a card picked from search results, before
// any holding exists for it.
func (ctrl *Controller) AddCard(c tele.Context, cardID string) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	if chatSession.CollectionID == "" {
		defaultID, err := ctrl.cardkeepService.GetDefaultCollection(ctx, c.Chat().ID)
		if err != nil {
			return c.Send("choose a collection first: /collections")
		}
		chatSession.CollectionID = defaultID
	}

	chatSession.Ref = model.CardRef{
		CollectionID: chatSession.CollectionID,
		CardID:       cardID,
		Condition:    defaultCondition,
		Finish:       defaultFinish,
	}
	chatSession.QuantityHeld = 0
	chatSession.Draft = &model.TransactionDraft{Type: model.TransactionTypeBuy}
	chatSession.Action = model.ExpectingTxQuantity
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("How many cards?")
}

func (ctrl *Controller) InitBuy(c tele.Context) error {
	return ctrl.initTransaction(c, model.TransactionTypeBuy)
}

func (ctrl *Controller) InitSell(c tele.Context) error {
	return ctrl.initTransaction(c, model.TransactionTypeSell)
}

func (ctrl *Controller) initTransaction(c tele.Context, txType model.TransactionType) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Mutating {
		return c.Respond(&tele.CallbackResponse{Text: "previous operation is still running"})
	}

	chatSession.Draft = &model.TransactionDraft{Type: txType}
	chatSession.Action = model.ExpectingTxQuantity
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	if txType == model.TransactionTypeSell {
		return c.Send(fmt.Sprintf("How many cards to sell? (you have %d)", chatSession.QuantityHeld))
	}
	return c.Send("How many cards?")
}

func (ctrl *Controller) ProcessTxQuantity(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Draft == nil {
		return c.Send("dialog expired, start over from the card view")
	}

	quantity, err := strconv.Atoi(c.Message().Text)
	if err != nil || quantity <= 0 {
		return c.Send("Enter a positive whole number")
	}

	// sell quantity is checked against the held snapshot right in the
	// dialog, no request leaves the bot
	if chatSession.Draft.Type == model.TransactionTypeSell && quantity > chatSession.QuantityHeld {
		return c.Send(fmt.Sprintf("Cannot sell more than %d cards", chatSession.QuantityHeld))
	}

	chatSession.Draft.Quantity = quantity
	chatSession.Action = model.ExpectingTxCostBasis
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter total amount in $:")
}

func (ctrl *Controller) ProcessTxCostBasis(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Draft == nil {
		return c.Send("dialog expired, start over from the card view")
	}
	if chatSession.Mutating {
		return c.Send("previous operation is still running")
	}

	costBasis, err := decimal.NewFromString(c.Message().Text)
	if err != nil || costBasis.IsNegative() {
		return c.Send("Enter a non-negative amount, e.g. 12.50")
	}

	chatSession.Mutating = true
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	// showCollectionPage saves a newer session itself, the deferred save
	// must not overwrite it
	saveOnExit := true
	defer func() {
		if !saveOnExit {
			return
		}
		chatSession.Mutating = false
		chatSession.Action = model.DefaultAction
		chatSession.Draft = nil
		_ = ctrl.saveSession(ctx, c, chatSession)
	}()

	draft := *chatSession.Draft

	if draft.Type == model.TransactionTypeBuy {
		return ctrl.processBuy(ctx, c, &chatSession, draft, costBasis)
	}

	page, liquidated, err := ctrl.cardkeepService.SellCard(ctx, chatSession.Ref, model.TransactionRequest{
		Condition: chatSession.Ref.Condition,
		Finish:    chatSession.Ref.Finish,
		Quantity:  draft.Quantity,
		Date:      time.Now(),
		CostBasis: costBasis,
	}, chatSession.QuantityHeld)
	if err != nil {
		if errors.Is(err, service.ErrSellExceedsHolding) {
			return c.Send(fmt.Sprintf("Cannot sell more than %d cards", chatSession.QuantityHeld))
		}
		slog.Error("got error from cardkeepService.SellCard", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if liquidated {
		chatSession.Mutating = false
		chatSession.Action = model.DefaultAction
		chatSession.Draft = nil
		saveOnExit = false
		_ = c.Send("Position closed")
		return ctrl.showCollectionPage(ctx, c, chatSession, chatSession.Page)
	}

	chatSession.QuantityHeld = page.Snapshot.QuantityHeld

	return c.Send(telebotConverter.CardDetailResponse(page))
}

// processBuy sends the optimistic page right away, then edits it in place
// once the authoritative refresh lands.
func (ctrl *Controller) processBuy(ctx context.Context, c tele.Context, chatSession *model.Session, draft model.TransactionDraft, costBasis decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	current := model.CardHoldingPage{
		Ref:      chatSession.Ref,
		Snapshot: model.HoldingSnapshot{QuantityHeld: chatSession.QuantityHeld},
	}

	optimistic, err := ctrl.cardkeepService.BuyCard(ctx, model.BuyRequest{
		CardID:       chatSession.Ref.CardID,
		Condition:    chatSession.Ref.Condition,
		Finish:       chatSession.Ref.Finish,
		Quantity:     draft.Quantity,
		PurchaseDate: time.Now(),
		CostBasis:    costBasis,
		CollectionID: chatSession.Ref.CollectionID,
	}, current)
	if err != nil {
		slog.Error("got error from cardkeepService.BuyCard", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	chatSession.Ref = optimistic.Ref
	chatSession.QuantityHeld = optimistic.Snapshot.QuantityHeld

	text, markup := telebotConverter.CardDetailResponse(optimistic)
	msg, err := c.Bot().Send(c.Recipient(), text, markup)
	if err != nil {
		slog.Error("got error sending optimistic page", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	page, err := ctrl.cardkeepService.GetCardDetails(ctx, optimistic.Ref)
	if err != nil {
		// the buy went through, the optimistic page stays on screen
		slog.Error("got error from cardkeepService.GetCardDetails", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil
	}

	chatSession.QuantityHeld = page.Snapshot.QuantityHeld

	text, markup = telebotConverter.CardDetailResponse(page)
	if _, err := c.Bot().Edit(msg, text, markup); err != nil {
		slog.Error("got error editing page after refresh", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	return nil
}

func (ctrl *Controller) InitEditTransaction(c tele.Context, transactionID string) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Mutating {
		return c.Respond(&tele.CallbackResponse{Text: "previous operation is still running"})
	}

	chatSession.Draft = &model.TransactionDraft{TransactionID: transactionID}
	chatSession.Action = model.ExpectingEditQuantity
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter new quantity:")
}

func (ctrl *Controller) ProcessEditQuantity(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Draft == nil {
		return c.Send("dialog expired, start over from the card view")
	}

	quantity, err := strconv.Atoi(c.Message().Text)
	if err != nil || quantity <= 0 {
		return c.Send("Enter a positive whole number")
	}

	chatSession.Draft.Quantity = quantity
	chatSession.Action = model.ExpectingEditCostBasis
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter new total amount in $:")
}

func (ctrl *Controller) ProcessEditCostBasis(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Draft == nil {
		return c.Send("dialog expired, start over from the card view")
	}

	costBasis, err := decimal.NewFromString(c.Message().Text)
	if err != nil || costBasis.IsNegative() {
		return c.Send("Enter a non-negative amount, e.g. 12.50")
	}

	patch := model.TransactionPatch{
		Quantity:  &chatSession.Draft.Quantity,
		CostBasis: &costBasis,
	}

	page, err := ctrl.cardkeepService.UpdateTransaction(ctx, chatSession.Ref, chatSession.Draft.TransactionID, patch)
	if err != nil {
		slog.Error("got error from cardkeepService.UpdateTransaction", slog.String("rqID", rqID), slog.String("err", err.Error()))
		// dialog stays open so the user can adjust the amount or /cancel
		return c.Send("Couldn't save the change, enter the amount again or /cancel")
	}

	chatSession.Action = model.DefaultAction
	chatSession.Draft = nil
	chatSession.QuantityHeld = page.Snapshot.QuantityHeld
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.CardDetailResponse(page))
}

func (ctrl *Controller) DeleteTransaction(c tele.Context, transactionID string) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Mutating {
		return c.Respond(&tele.CallbackResponse{Text: "previous operation is still running"})
	}

	chatSession.Mutating = true
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}
	defer func() {
		chatSession.Mutating = false
		_ = ctrl.saveSession(ctx, c, chatSession)
	}()

	page, err := ctrl.cardkeepService.DeleteTransactions(ctx, chatSession.Ref, []string{transactionID})
	if err != nil {
		slog.Error("got error from cardkeepService.DeleteTransactions", slog.String("rqID", rqID), slog.String("err", err.Error()))

		var deleteErr *service.DeleteFailedError
		if errors.As(err, &deleteErr) && deleteErr.Deleted > 0 {
			// partial batch: show what the backend now holds
			chatSession.QuantityHeld = page.Snapshot.QuantityHeld
			_ = c.Send("Some deletions failed, showing current state")
			return c.Send(telebotConverter.CardDetailResponse(page))
		}
		return c.Send("Couldn't delete the transaction, try again")
	}

	chatSession.QuantityHeld = page.Snapshot.QuantityHeld

	return c.EditOrSend(telebotConverter.CardDetailResponse(page))
}

func (ctrl *Controller) RemoveHolding(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.Mutating {
		return c.Respond(&tele.CallbackResponse{Text: "previous operation is still running"})
	}

	if err := ctrl.cardkeepService.RemoveHolding(ctx, chatSession.Ref); err != nil {
		slog.Error("got error from cardkeepService.RemoveHolding", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	_ = c.Send("Card removed from the collection")
	return ctrl.showCollectionPage(ctx, c, chatSession, chatSession.Page)
}

func (ctrl *Controller) BackToCollection(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.CollectionID == "" {
		return c.Send("choose a collection first: /collections")
	}

	return ctrl.showCollectionPage(ctx, c, chatSession, chatSession.Page)
}
