package collectionApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/internal/converter/apiConverter"
	"github.com/cardkeep/cardkeep_bot/internal/externalApi"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/apiModel"
	"github.com/cardkeep/cardkeep_bot/utils"
	"github.com/go-resty/resty/v2"
)

// CollectionApi is the client for the remote collection/card REST service.
// The service is the source of truth for all collection data; the bot never
// retries a failed mutation on its own.
type CollectionApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *CollectionApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CollectionApi.Url).
		SetAuthToken(cfg.API.CollectionApi.Token).
		SetHeader("Accept", "application/json")
	return &CollectionApi{client: client}
}

// apiError converts a non-2xx response into an error. The body is expected
// to be JSON with an optional message field; anything unparseable falls back
// to a generic message.
func (a *CollectionApi) apiError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return externalApi.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return externalApi.ErrUnauthorized
	}

	errResp := apiModel.ErrorResponse{}
	if err := json.Unmarshal(resp.Body(), &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("collection api: %s (status %d)", errResp.Message, resp.StatusCode())
	}

	return fmt.Errorf("collection api request failed with status %d", resp.StatusCode())
}

func (a *CollectionApi) GetPortfolioStats(ctx context.Context, collectionID, collectionCardID string) (model.PortfolioStats, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetPortfolioStats"
	url := fmt.Sprintf("/collections/%s/cards/%s", collectionID, collectionCardID)

	slog.Debug("GetPortfolioStats start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioStats{}, err
	}

	if resp.IsError() {
		return model.PortfolioStats{}, a.apiError(resp)
	}

	stats := apiModel.Stats{}
	if err := json.Unmarshal(resp.Body(), &stats); err != nil {
		slog.Error("can't unmarshal response into apiModel.Stats", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioStats{}, err
	}

	slog.Debug("GetPortfolioStats completed", slog.String("rqID", rqID), slog.String("op", op))

	return apiConverter.ConvertStats(stats), nil
}

func (a *CollectionApi) GetTransactionHistory(ctx context.Context, collectionID, collectionCardID string) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.GetTransactionHistory"
	url := fmt.Sprintf("/collections/%s/cards/%s/transaction-history", collectionID, collectionCardID)

	slog.Debug("GetTransactionHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	history := apiModel.TransactionHistory{}
	if err := json.Unmarshal(resp.Body(), &history); err != nil {
		slog.Error("can't unmarshal response into apiModel.TransactionHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("GetTransactionHistory completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("items", len(history.Items)))

	return apiConverter.ConvertTransactions(history.Items), nil
}

// CreateHolding creates a new collection-card pairing with its initial BUY
// transaction and returns that transaction.
func (a *CollectionApi) CreateHolding(ctx context.Context, collectionID string, req model.BuyRequest) (model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.CreateHolding"
	url := fmt.Sprintf("/collections/%s/cards", collectionID)

	slog.Debug("CreateHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(apiConverter.ConvertBuyRequest(req)).
		Post(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	if resp.IsError() {
		return model.Transaction{}, a.apiError(resp)
	}

	tx := apiModel.Transaction{}
	if err := json.Unmarshal(resp.Body(), &tx); err != nil {
		slog.Error("can't unmarshal response into apiModel.Transaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	slog.Debug("CreateHolding completed", slog.String("rqID", rqID), slog.String("op", op))

	return apiConverter.ConvertTransaction(tx), nil
}

// CreateTransaction records a BUY or SELL against an existing holding.
func (a *CollectionApi) CreateTransaction(ctx context.Context, collectionID, collectionCardID string, req model.TransactionRequest) (model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.CreateTransaction"
	url := fmt.Sprintf("/collections/%s/cards/%s/transactions", collectionID, collectionCardID)

	slog.Debug("CreateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(apiConverter.ConvertTransactionRequest(req)).
		Post(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	if resp.IsError() {
		return model.Transaction{}, a.apiError(resp)
	}

	tx := apiModel.Transaction{}
	if err := json.Unmarshal(resp.Body(), &tx); err != nil {
		slog.Error("can't unmarshal response into apiModel.Transaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	slog.Debug("CreateTransaction completed", slog.String("rqID", rqID), slog.String("op", op))

	return apiConverter.ConvertTransaction(tx), nil
}

func (a *CollectionApi) UpdateTransaction(ctx context.Context, collectionID, transactionID string, patch model.TransactionPatch) (model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.UpdateTransaction"
	url := fmt.Sprintf("/collections/%s/transactions/%s", collectionID, transactionID)

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(apiConverter.ConvertPatch(patch)).
		Patch(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	if resp.IsError() {
		return model.Transaction{}, a.apiError(resp)
	}

	tx := apiModel.Transaction{}
	if err := json.Unmarshal(resp.Body(), &tx); err != nil {
		slog.Error("can't unmarshal response into apiModel.Transaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	slog.Debug("UpdateTransaction completed", slog.String("rqID", rqID), slog.String("op", op))

	return apiConverter.ConvertTransaction(tx), nil
}

func (a *CollectionApi) DeleteTransaction(ctx context.Context, collectionID, transactionID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.DeleteTransaction"
	url := fmt.Sprintf("/collections/%s/transactions/%s", collectionID, transactionID)

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().SetContext(ctx).Delete(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if resp.IsError() {
		return a.apiError(resp)
	}

	slog.Debug("DeleteTransaction completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}

// DeleteHolding removes the collection-card pairing entirely, ledger
// included.
func (a *CollectionApi) DeleteHolding(ctx context.Context, collectionID, collectionCardID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CollectionApi.DeleteHolding"
	url := fmt.Sprintf("/collections/%s/cards/%s", collectionID, collectionCardID)

	slog.Debug("DeleteHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url))

	resp, err := a.client.R().SetContext(ctx).Delete(url)
	if err != nil {
		slog.Error("error while dialing collection api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if resp.IsError() {
		return a.apiError(resp)
	}

	slog.Debug("DeleteHolding completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}
