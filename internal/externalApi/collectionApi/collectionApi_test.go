package collectionApi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/internal/externalApi"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/apiModel"
	"github.com/shopspring/decimal"
)

func newTestClient(serverURL string) *CollectionApi {
	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.CollectionApi.Url = serverURL
	cfg.API.CollectionApi.Token = "test-token"
	return New(cfg)
}

func TestGetPortfolioStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/col-1/cards/cc-1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(apiModel.Stats{
			CurrentValue:   decimal.NewFromInt(100),
			TotalCostBasis: decimal.NewFromInt(80),
			UnrealizedGain: decimal.NewFromInt(20),
			RealizedGain:   decimal.NewFromInt(5),
		})
	}))
	defer srv.Close()

	stats, err := newTestClient(srv.URL).GetPortfolioStats(context.Background(), "col-1", "cc-1")
	require.NoError(t, err)
	assert.True(t, stats.CurrentValue.Equal(decimal.NewFromInt(100)))
	assert.True(t, stats.TotalCostBasis.Equal(decimal.NewFromInt(80)))
	assert.True(t, stats.RealizedGain.Equal(decimal.NewFromInt(5)))
}

func TestGetTransactionHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/col-1/cards/cc-1/transaction-history", r.URL.Path)
		_ = json.NewEncoder(w).Encode(apiModel.TransactionHistory{Items: []apiModel.Transaction{
			{ID: "tx-1", TransactionType: "BUY", Quantity: 3, CostBasis: decimal.NewFromInt(30), TransactionDate: "2026-08-01"},
			{ID: "tx-2", TransactionType: "SELL", Quantity: 1, CostBasis: decimal.NewFromInt(12), TransactionDate: "2026-08-15"},
		}})
	}))
	defer srv.Close()

	transactions, err := newTestClient(srv.URL).GetTransactionHistory(context.Background(), "col-1", "cc-1")
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, model.TransactionTypeBuy, transactions[0].Type)
	assert.Equal(t, model.TransactionTypeSell, transactions[1].Type)
	assert.Equal(t, 2026, transactions[0].Date.Year())
}

func TestCreateTransaction_Body(t *testing.T) {
	var got apiModel.CreateTransactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collections/col-1/cards/cc-1/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(apiModel.Transaction{ID: "tx-new", TransactionType: got.TransactionType, Quantity: got.Quantity, CostBasis: got.CostBasis, TransactionDate: got.PurchaseDate})
	}))
	defer srv.Close()

	tx, err := newTestClient(srv.URL).CreateTransaction(context.Background(), "col-1", "cc-1", model.TransactionRequest{
		Type:      model.TransactionTypeSell,
		Condition: "NM",
		Finish:    "nonfoil",
		Quantity:  2,
		Date:      time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		CostBasis: decimal.NewFromInt(24),
	})
	require.NoError(t, err)

	assert.Equal(t, "SELL", got.TransactionType)
	assert.Equal(t, "2026-08-20", got.PurchaseDate)
	assert.Equal(t, "NM", got.Condition)
	assert.Equal(t, "tx-new", tx.ID)
	assert.Equal(t, model.TransactionTypeSell, tx.Type)
}

func TestApiErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: externalApi.ErrNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: externalApi.ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, wantErr: externalApi.ErrUnauthorized},
		{name: "server error with message", status: http.StatusInternalServerError, body: `{"message":"boom"}`, wantMsg: "boom"},
		{name: "server error without body", status: http.StatusBadGateway, wantMsg: "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).GetPortfolioStats(context.Background(), "col-1", "cc-1")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/collections/col-1/transactions/tx-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).DeleteTransaction(context.Background(), "col-1", "tx-1")
	require.NoError(t, err)
}
