package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/data/session"
	"github.com/cardkeep/cardkeep_bot/internal/converter/telebotConverter"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/service"
	"github.com/cardkeep/cardkeep_bot/utils"
	tele "gopkg.in/telebot.v4"
)

const internalErrMsg = "something went wrong, try again later"

type CardkeepService interface {
	RegUser(ctx context.Context, chatID int64) error
	GetCollections(ctx context.Context) ([]model.Collection, error)
	SetDefaultCollection(ctx context.Context, chatID int64, collectionID string) error
	GetDefaultCollection(ctx context.Context, chatID int64) (string, error)
	GetCollectionPage(ctx context.Context, collection model.Collection, page int) (model.CollectionPage, error)
	GetSetsBySeries(ctx context.Context, series string) ([]model.Set, error)
	GetSetCards(ctx context.Context, setCode string) ([]model.Card, error)
	SearchCards(ctx context.Context, query string) ([]model.Card, error)
	GetCardDetails(ctx context.Context, ref model.CardRef) (model.CardHoldingPage, error)
	BuyCard(ctx context.Context, req model.BuyRequest, current model.CardHoldingPage) (model.CardHoldingPage, error)
	SellCard(ctx context.Context, ref model.CardRef, req model.TransactionRequest, heldBefore int) (page model.CardHoldingPage, liquidated bool, err error)
	UpdateTransaction(ctx context.Context, ref model.CardRef, transactionID string, patch model.TransactionPatch) (model.CardHoldingPage, error)
	DeleteTransactions(ctx context.Context, ref model.CardRef, transactionIDs []string) (model.CardHoldingPage, error)
	RemoveHolding(ctx context.Context, ref model.CardRef) error
	ExportCollectionReport(ctx context.Context, chatID int64, collection model.Collection) (downloadLink string, err error)
	GetReportLinks(ctx context.Context, chatID int64) ([]model.ReportLink, error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	cfg             *config.Config
	cardkeepService CardkeepService
	session         Session
}

func NewController(cfg *config.Config, cardkeepService CardkeepService, session Session) *Controller {
	return &Controller{
		cfg:             cfg,
		cardkeepService: cardkeepService,
		session:         session,
	}
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return model.Session{}, nil
		}
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}
	return chatSession, nil
}

func (ctrl *Controller) saveSession(ctx context.Context, c tele.Context, chatSession model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	err := ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}
	return err
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = ctrl.cardkeepService.RegUser(ctx, c.Chat().ID)
	return c.Send("Hello! Commands:\n/collections - your collections\n/search - find a card\n/sets - browse sets by series\n/reports - recent exported reports\n/cancel - abort current dialog")
}

func (ctrl *Controller) Cancel(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.Action = model.DefaultAction
	chatSession.Draft = nil
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Cancelled")
}

func (ctrl *Controller) Collections(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	collections, err := ctrl.cardkeepService.GetCollections(ctx)
	if err != nil {
		slog.Error("got error from cardkeepService.GetCollections", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	defaultID, err := ctrl.cardkeepService.GetDefaultCollection(ctx, c.Chat().ID)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		slog.Error("got error from cardkeepService.GetDefaultCollection", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.CollectionListResponse(collections, defaultID))
}

// SelectCollection handles a collection button: remembers it as the default
// and opens its first page.
func (ctrl *Controller) SelectCollection(c tele.Context, collectionID string) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	collections, err := ctrl.cardkeepService.GetCollections(ctx)
	if err != nil {
		slog.Error("got error from cardkeepService.GetCollections", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	var collection model.Collection
	for _, col := range collections {
		if col.ID == collectionID {
			collection = col
			break
		}
	}
	if collection.ID == "" {
		return c.Send("collection not found, try /collections again")
	}

	if err := ctrl.cardkeepService.SetDefaultCollection(ctx, c.Chat().ID, collection.ID); err != nil {
		slog.Error("got error from cardkeepService.SetDefaultCollection", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	chatSession.CollectionID = collection.ID
	chatSession.CollectionName = collection.Name

	return ctrl.showCollectionPage(ctx, c, chatSession, 0)
}

func (ctrl *Controller) ShowCollectionPage(c tele.Context, page int) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.CollectionID == "" {
		return c.Send("choose a collection first: /collections")
	}

	return ctrl.showCollectionPage(ctx, c, chatSession, page)
}

func (ctrl *Controller) showCollectionPage(ctx context.Context, c tele.Context, chatSession model.Session, page int) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	collection := model.Collection{ID: chatSession.CollectionID, Name: chatSession.CollectionName}

	collectionPage, err := ctrl.cardkeepService.GetCollectionPage(ctx, collection, page)
	if err != nil {
		slog.Error("got error from cardkeepService.GetCollectionPage", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	chatSession.Page = page
	chatSession.PageRefs = make(map[string]model.CardRef, len(collectionPage.Cards))
	for _, card := range collectionPage.Cards {
		chatSession.PageRefs[card.CollectionCardID] = model.CardRef{
			CollectionID:     collection.ID,
			CollectionCardID: card.CollectionCardID,
			CardID:           card.Card.ID,
			Condition:        card.Condition,
			Finish:           card.Finish,
		}
	}
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	text, markup := telebotConverter.CollectionPageResponse(collectionPage)
	return c.EditOrSend(text, markup)
}

func (ctrl *Controller) InitCardSearch(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.Action = model.ExpectingCardSearch
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter card name:")
}

func (ctrl *Controller) ProcessCardSearch(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.Action = model.DefaultAction
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	cards, err := ctrl.cardkeepService.SearchCards(ctx, c.Message().Text)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send("Nothing found, try another name: /search")
		}
		slog.Error("got error from cardkeepService.SearchCards", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.SearchResultsResponse(cards))
}

func (ctrl *Controller) InitSetsBrowse(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.Action = model.ExpectingSeriesName
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter series name:")
}

func (ctrl *Controller) ProcessSeriesName(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.Action = model.DefaultAction
	if err := ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	sets, err := ctrl.cardkeepService.GetSetsBySeries(ctx, c.Message().Text)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send("No sets found for this series, try again: /sets")
		}
		slog.Error("got error from cardkeepService.GetSetsBySeries", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.SetsResponse(c.Message().Text, sets))
}

// ShowSetCards lists a set's roster; every card button starts an add dialog.
func (ctrl *Controller) ShowSetCards(c tele.Context, setCode string) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	cards, err := ctrl.cardkeepService.GetSetCards(ctx, setCode)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send("set not found, browse again: /sets")
		}
		slog.Error("got error from cardkeepService.GetSetCards", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.SearchResultsResponse(cards))
}

func (ctrl *Controller) ExportReport(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.CollectionID == "" {
		return c.Send("choose a collection first: /collections")
	}

	_ = c.Send("Generating report...")

	link, err := ctrl.cardkeepService.ExportCollectionReport(ctx, c.Chat().ID, model.Collection{ID: chatSession.CollectionID, Name: chatSession.CollectionName})
	if err != nil {
		slog.Error("got error from cardkeepService.ExportCollectionReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("Report is ready: " + link)
}

func (ctrl *Controller) Reports(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	links, err := ctrl.cardkeepService.GetReportLinks(ctx, c.Chat().ID)
	if err != nil {
		slog.Error("got error from cardkeepService.GetReportLinks", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if len(links) == 0 {
		return c.Send("No reports yet, export one from a collection view")
	}

	return c.Send(telebotConverter.ReportLinksResponse(links))
}
