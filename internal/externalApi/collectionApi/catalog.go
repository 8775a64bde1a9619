package collectionApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cardkeep/cardkeep_bot/internal/converter/apiConverter"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/apiModel"
	"github.com/cardkeep/cardkeep_bot/utils"
)

func (a *CollectionApi) GetCollections(ctx context.Context) ([]model.Collection, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetCollections"

	slog.Debug("GetCollections start", slog.String("rqID", rqID), slog.String("op", op))

	resp, err := a.client.R().SetContext(ctx).Get("/collections")
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	collections := apiModel.Collections{}
	if err := json.Unmarshal(resp.Body(), &collections); err != nil {
		slog.Error("can't unmarshal response into apiModel.Collections", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make([]model.Collection, 0, len(collections.Items))
	for _, c := range collections.Items {
		res = append(res, apiConverter.ConvertCollection(c))
	}

	slog.Debug("GetCollections completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("items", len(res)))

	return res, nil
}

func (a *CollectionApi) GetCollectionCards(ctx context.Context, collectionID string, limit, offset int) ([]model.CollectionCard, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetCollectionCards"
	url := fmt.Sprintf("/collections/%s/cards", collectionID)
	params := map[string]string{
		"limit":  fmt.Sprintf("%d", limit),
		"offset": fmt.Sprintf("%d", offset),
	}

	slog.Debug("GetCollectionCards start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url), slog.Any("params", params))

	resp, err := a.client.R().SetContext(ctx).SetQueryParams(params).Get(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	cards := apiModel.CollectionCards{}
	if err := json.Unmarshal(resp.Body(), &cards); err != nil {
		slog.Error("can't unmarshal response into apiModel.CollectionCards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make([]model.CollectionCard, 0, len(cards.Items))
	for _, c := range cards.Items {
		res = append(res, apiConverter.ConvertCollectionCard(c))
	}

	slog.Debug("GetCollectionCards completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("items", len(res)))

	return res, nil
}

func (a *CollectionApi) GetSetsBySeries(ctx context.Context, series string) ([]model.Set, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetSetsBySeries"

	slog.Debug("GetSetsBySeries start", slog.String("rqID", rqID), slog.String("op", op), slog.String("series", series))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("series", series).
		Get("/sets")
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	sets := apiModel.Sets{}
	if err := json.Unmarshal(resp.Body(), &sets); err != nil {
		slog.Error("can't unmarshal response into apiModel.Sets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("GetSetsBySeries completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("items", len(sets.Items)))

	return apiConverter.ConvertSets(sets.Items), nil
}

// GetSetCards lists the full card roster of one set.
func (a *CollectionApi) GetSetCards(ctx context.Context, setCode string) ([]model.Card, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetSetCards"
	url := fmt.Sprintf("/sets/%s/cards", setCode)

	slog.Debug("GetSetCards start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	cards := apiModel.Cards{}
	if err := json.Unmarshal(resp.Body(), &cards); err != nil {
		slog.Error("can't unmarshal response into apiModel.Cards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make([]model.Card, 0, len(cards.Items))
	for _, c := range cards.Items {
		res = append(res, apiConverter.ConvertCard(c))
	}

	slog.Debug("GetSetCards completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("items", len(res)))

	return res, nil
}

func (a *CollectionApi) SearchCards(ctx context.Context, query string) ([]model.Card, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.SearchCards"

	slog.Debug("SearchCards start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("name", query).
		Get("/cards")
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	cards := apiModel.Cards{}
	if err := json.Unmarshal(resp.Body(), &cards); err != nil {
		slog.Error("can't unmarshal response into apiModel.Cards", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make([]model.Card, 0, len(cards.Items))
	for _, c := range cards.Items {
		res = append(res, apiConverter.ConvertCard(c))
	}

	slog.Debug("SearchCards completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("items", len(res)))

	return res, nil
}

func (a *CollectionApi) GetCard(ctx context.Context, cardID string) (model.Card, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetCard"
	url := fmt.Sprintf("/cards/%s", cardID)

	slog.Debug("GetCard start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Card{}, err
	}

	if resp.IsError() {
		return model.Card{}, a.apiError(resp)
	}

	card := apiModel.Card{}
	if err := json.Unmarshal(resp.Body(), &card); err != nil {
		slog.Error("can't unmarshal response into apiModel.Card", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Card{}, err
	}

	slog.Debug("GetCard completed", slog.String("rqID", rqID), slog.String("op", op))

	return apiConverter.ConvertCard(card), nil
}

// GetCardPrices returns the condition+finish keyed market prices for one card.
func (a *CollectionApi) GetCardPrices(ctx context.Context, cardID string) (model.CardPrices, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetCardPrices"
	url := fmt.Sprintf("/cards/%s/prices", cardID)

	slog.Debug("GetCardPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CardPrices{}, err
	}

	if resp.IsError() {
		return model.CardPrices{}, a.apiError(resp)
	}

	prices := apiModel.CardPrices{}
	if err := json.Unmarshal(resp.Body(), &prices); err != nil {
		slog.Error("can't unmarshal response into apiModel.CardPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CardPrices{}, err
	}

	if prices.CardID == "" {
		prices.CardID = cardID
	}

	slog.Debug("GetCardPrices completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("items", len(prices.Items)))

	return apiConverter.ConvertCardPrices(prices), nil
}
