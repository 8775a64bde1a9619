package cardkeepService

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/data/repository"
	"github.com/cardkeep/cardkeep_bot/internal/externalApi"
	"github.com/cardkeep/cardkeep_bot/internal/holdings"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/dbModel"
	"github.com/cardkeep/cardkeep_bot/internal/service"
	"github.com/cardkeep/cardkeep_bot/utils"
	"github.com/shopspring/decimal"
)

type CollectionApi interface {
	GetPortfolioStats(ctx context.Context, collectionID, collectionCardID string) (model.PortfolioStats, error)
	GetTransactionHistory(ctx context.Context, collectionID, collectionCardID string) ([]model.Transaction, error)
	CreateHolding(ctx context.Context, collectionID string, req model.BuyRequest) (model.Transaction, error)
	CreateTransaction(ctx context.Context, collectionID, collectionCardID string, req model.TransactionRequest) (model.Transaction, error)
	UpdateTransaction(ctx context.Context, collectionID, transactionID string, patch model.TransactionPatch) (model.Transaction, error)
	DeleteTransaction(ctx context.Context, collectionID, transactionID string) error
	DeleteHolding(ctx context.Context, collectionID, collectionCardID string) error
	GetCollections(ctx context.Context) ([]model.Collection, error)
	GetCollectionCards(ctx context.Context, collectionID string, limit, offset int) ([]model.CollectionCard, error)
	GetSetsBySeries(ctx context.Context, series string) ([]model.Set, error)
	GetSetCards(ctx context.Context, setCode string) ([]model.Card, error)
	SearchCards(ctx context.Context, query string) ([]model.Card, error)
	GetCard(ctx context.Context, cardID string) (model.Card, error)
	GetCardPrices(ctx context.Context, cardID string) (model.CardPrices, error)
}

type Cache interface {
	GetCardPrices(ctx context.Context, cardID string) (model.CardPrices, error)
	SetCardPrices(ctx context.Context, prices model.CardPrices) error
	SetCardsPrices(ctx context.Context, prices []model.CardPrices) error
	GetSetsBySeries(ctx context.Context, series string) ([]model.Set, error)
	SetSetsBySeries(ctx context.Context, series string, sets []model.Set) error
	FlushCardPrices(ctx context.Context, cardID string) error
}

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	RegUser(ctx context.Context, chatID int64) (userID int64, err error)
	SetDefaultCollection(ctx context.Context, chatID int64, collectionID string) error
	GetDefaultCollection(ctx context.Context, chatID int64) (collectionID string, err error)
	InsertReportLink(ctx context.Context, chatID int64, collectionID, downloadLink string) error
	GetReportLinks(ctx context.Context, chatID int64, limit int) ([]dbModel.ReportLink, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.CollectionReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type CardkeepService struct {
	cfg     *config.Config
	repo    Repository
	cache   Cache
	api     CollectionApi
	reports ReportGenerator
	storage CloudStorage
}

func New(cfg *config.Config, repo Repository, cache Cache, api CollectionApi, reports ReportGenerator, storage CloudStorage) *CardkeepService {
	return &CardkeepService{
		cfg:     cfg,
		repo:    repo,
		cache:   cache,
		api:     api,
		reports: reports,
		storage: storage,
	}
}

func (s *CardkeepService) RegUser(ctx context.Context, chatID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.RegUser"

	slog.Debug("RegUser start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	defer func() {
		slog.Debug("RegUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	}()

	_, err := s.repo.RegUser(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil
		}
		slog.Error("got error from repo.RegUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *CardkeepService) GetCollections(ctx context.Context) ([]model.Collection, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.GetCollections"

	slog.Debug("GetCollections start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetCollections finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	collections, err := s.api.GetCollections(ctx)
	if err != nil {
		slog.Error("got error from api.GetCollections", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return collections, nil
}

// SetDefaultCollection registers the chat if needed and points it at the
// collection, in one transaction.
func (s *CardkeepService) SetDefaultCollection(ctx context.Context, chatID int64, collectionID string) error {
	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.repo.RegUser(ctx, chatID)
		if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			return err
		}
		return s.repo.SetDefaultCollection(ctx, chatID, collectionID)
	})
}

func (s *CardkeepService) GetDefaultCollection(ctx context.Context, chatID int64) (string, error) {
	collectionID, err := s.repo.GetDefaultCollection(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", service.ErrNotFound
		}
		return "", err
	}
	return collectionID, nil
}

// GetCollectionPage selects limit+1 rows to know whether a next page exists.
func (s *CardkeepService) GetCollectionPage(ctx context.Context, collection model.Collection, page int) (model.CollectionPage, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.GetCollectionPage"

	slog.Debug("GetCollectionPage start", slog.String("rqID", rqID), slog.String("op", op), slog.String("collectionID", collection.ID), slog.Int("page", page))
	defer func() {
		slog.Debug("GetCollectionPage finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	limit := s.cfg.CardsPerPage
	offset := page * limit

	cards, err := s.api.GetCollectionCards(ctx, collection.ID, limit+1, offset)
	if err != nil {
		slog.Error("got error from api.GetCollectionCards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CollectionPage{}, err
	}

	hasNextPage := false
	if len(cards) > limit {
		hasNextPage = true
		cards = cards[:limit]
	}

	return model.CollectionPage{
		Collection:  collection,
		Cards:       cards,
		CurPage:     page,
		HasNextPage: hasNextPage,
	}, nil
}

// GetSetsBySeries is a read-through cache over the set catalog: the series
// listing changes rarely and is requested on every browse.
func (s *CardkeepService) GetSetsBySeries(ctx context.Context, series string) ([]model.Set, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.GetSetsBySeries"

	slog.Debug("GetSetsBySeries start", slog.String("rqID", rqID), slog.String("op", op), slog.String("series", series))
	defer func() {
		slog.Debug("GetSetsBySeries finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	sets, err := s.cache.GetSetsBySeries(ctx, series)
	if err == nil {
		return sets, nil
	}

	slog.Warn("can't get sets from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	sets, err = s.api.GetSetsBySeries(ctx, series)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return nil, service.ErrNotFound
		}
		slog.Error("got error from api.GetSetsBySeries", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	go s.cache.SetSetsBySeries(context.WithoutCancel(ctx), series, sets)

	return sets, nil
}

func (s *CardkeepService) GetSetCards(ctx context.Context, setCode string) ([]model.Card, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.GetSetCards"

	slog.Debug("GetSetCards start", slog.String("rqID", rqID), slog.String("op", op), slog.String("setCode", setCode))
	defer func() {
		slog.Debug("GetSetCards finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	cards, err := s.api.GetSetCards(ctx, setCode)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return nil, service.ErrNotFound
		}
		slog.Error("got error from api.GetSetCards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return cards, nil
}

func (s *CardkeepService) SearchCards(ctx context.Context, query string) ([]model.Card, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.SearchCards"

	slog.Debug("SearchCards start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		slog.Debug("SearchCards finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	cards, err := s.api.SearchCards(ctx, query)
	if err != nil {
		slog.Error("got error from api.SearchCards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if len(cards) == 0 {
		return nil, service.ErrNotFound
	}

	return cards, nil
}

// getCardPrice resolves the unit market price for a condition+finish, cache
// first, API on miss.
func (s *CardkeepService) getCardPrice(ctx context.Context, cardID, condition, finish string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.getCardPrice"

	prices, err := s.cache.GetCardPrices(ctx, cardID)
	if err == nil {
		return prices.Price(condition, finish), nil
	}

	slog.Warn("can't get card prices from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	prices, err = s.api.GetCardPrices(ctx, cardID)
	if err != nil {
		slog.Error("got error from api.GetCardPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	go s.cache.SetCardPrices(context.WithoutCancel(ctx), prices)

	return prices.Price(condition, finish), nil
}

// GetCardDetails assembles the card detail view: the transaction ledger and
// the server stats are fetched fresh, quantity is derived locally, financials
// are taken from the stats as-is.
func (s *CardkeepService) GetCardDetails(ctx context.Context, ref model.CardRef) (model.CardHoldingPage, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.GetCardDetails"

	slog.Debug("GetCardDetails start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("ref", ref))
	defer func() {
		slog.Debug("GetCardDetails finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	transactions, err := s.api.GetTransactionHistory(ctx, ref.CollectionID, ref.CollectionCardID)
	if err != nil {
		slog.Error("got error from api.GetTransactionHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CardHoldingPage{}, err
	}

	stats, err := s.api.GetPortfolioStats(ctx, ref.CollectionID, ref.CollectionCardID)
	if err != nil {
		slog.Error("got error from api.GetPortfolioStats", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CardHoldingPage{}, err
	}

	card, err := s.api.GetCard(ctx, ref.CardID)
	if err != nil {
		slog.Error("got error from api.GetCard", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CardHoldingPage{}, err
	}

	price, err := s.getCardPrice(ctx, ref.CardID, ref.Condition, ref.Finish)
	if err != nil {
		return model.CardHoldingPage{}, err
	}

	holdings.SortByDateDesc(transactions)

	return model.CardHoldingPage{
		Ref:          ref,
		Card:         card,
		Snapshot:     holdings.Compute(transactions, price, stats),
		Transactions: transactions,
	}, nil
}
