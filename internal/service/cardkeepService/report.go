package cardkeepService

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardkeep/cardkeep_bot/internal/converter/dbConverter"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/utils"
)

// collectAllCards walks the paginated listing until the API returns a short
// page.
func (s *CardkeepService) collectAllCards(ctx context.Context, collectionID string) ([]model.CollectionCard, error) {
	const batch = 100

	var all []model.CollectionCard
	for offset := 0; ; offset += batch {
		cards, err := s.api.GetCollectionCards(ctx, collectionID, batch, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, cards...)
		if len(cards) < batch {
			return all, nil
		}
	}
}

// ExportCollectionReport builds the xlsx snapshot of a collection, uploads it
// to cloud storage and records the download link for the chat.
func (s *CardkeepService) ExportCollectionReport(ctx context.Context, chatID int64, collection model.Collection) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.ExportCollectionReport"

	slog.Debug("ExportCollectionReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("collectionID", collection.ID))
	defer func() {
		slog.Debug("ExportCollectionReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	cards, err := s.collectAllCards(ctx, collection.ID)
	if err != nil {
		slog.Error("got error from api.GetCollectionCards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	histories := make(map[string][]model.Transaction, len(cards))
	for _, card := range cards {
		transactions, err := s.api.GetTransactionHistory(ctx, collection.ID, card.CollectionCardID)
		if err != nil {
			slog.Error("got error from api.GetTransactionHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("collectionCardID", card.CollectionCardID), slog.String("err", err.Error()))
			return "", err
		}
		histories[card.CollectionCardID] = transactions
	}

	fileBytes, ext, err := s.reports.Generate(ctx, model.CollectionReport{
		Collection: collection,
		Cards:      cards,
		Histories:  histories,
	})
	if err != nil {
		slog.Error("got error from reports.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("%s_%s.%s", collection.Name, time.Now().Format("2006-01-02_15-04-05"), ext)

	downloadLink, err = s.storage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from storage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if err := s.repo.InsertReportLink(ctx, chatID, collection.ID, downloadLink); err != nil {
		// the upload succeeded; losing the bookkeeping row is not worth
		// failing the export
		slog.Error("got error from repo.InsertReportLink", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return downloadLink, nil
}

const reportLinksLimit = 10

// GetReportLinks returns the most recent exported reports for a chat.
func (s *CardkeepService) GetReportLinks(ctx context.Context, chatID int64) ([]model.ReportLink, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.GetReportLinks"

	links, err := s.repo.GetReportLinks(ctx, chatID, reportLinksLimit)
	if err != nil {
		slog.Error("got error from repo.GetReportLinks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return dbConverter.ConvertReportLinks(links), nil
}

// FillPriceCache warms the price cache for every card currently held in any
// collection. Runs on a schedule so detail views mostly hit the cache.
func (s *CardkeepService) FillPriceCache(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.FillPriceCache"

	slog.Debug("FillPriceCache start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("FillPriceCache finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	collections, err := s.api.GetCollections(ctx)
	if err != nil {
		slog.Error("got error from api.GetCollections", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	seen := make(map[string]struct{})
	var prices []model.CardPrices
	for _, collection := range collections {
		cards, err := s.collectAllCards(ctx, collection.ID)
		if err != nil {
			slog.Error("got error from api.GetCollectionCards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
		for _, card := range cards {
			if _, ok := seen[card.Card.ID]; ok {
				continue
			}
			seen[card.Card.ID] = struct{}{}

			cardPrices, err := s.api.GetCardPrices(ctx, card.Card.ID)
			if err != nil {
				// skip the card, the detail view falls back to the API
				slog.Warn("can't get card prices", slog.String("rqID", rqID), slog.String("op", op), slog.String("cardID", card.Card.ID), slog.String("err", err.Error()))
				continue
			}
			prices = append(prices, cardPrices)
		}
	}

	if len(prices) == 0 {
		return nil
	}

	if err := s.cache.SetCardsPrices(ctx, prices); err != nil {
		slog.Error("got error from cache.SetCardsPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("price cache warmed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("cards", len(prices)))

	return nil
}

// CleanupOldReports drops expired report files from cloud storage.
func (s *CardkeepService) CleanupOldReports(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CardkeepService.CleanupOldReports"

	slog.Debug("CleanupOldReports start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("CleanupOldReports finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err := s.storage.DeleteOldFiles(ctx); err != nil {
		slog.Error("got error from storage.DeleteOldFiles", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
