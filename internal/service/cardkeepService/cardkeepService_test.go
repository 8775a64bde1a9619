package cardkeepService

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/dbModel"
	"github.com/cardkeep/cardkeep_bot/internal/service"
)

type fakeApi struct {
	transactions map[string][]model.Transaction // keyed by collectionCardID
	stats        model.PortfolioStats
	card         model.Card
	prices       model.CardPrices
	createErr    error
	deleteErrs   map[string]error // per transaction ID
	createCalls  int
	deleteCalls  []string
	collections  []model.Collection
}

func newFakeApi() *fakeApi {
	return &fakeApi{
		transactions: map[string][]model.Transaction{},
		deleteErrs:   map[string]error{},
		card:         model.Card{ID: "card-1", Name: "Test Card"},
		prices: model.CardPrices{
			CardID: "card-1",
			Prices: map[model.PriceKey]decimal.Decimal{
				{Condition: "NM", Finish: "nonfoil"}: decimal.NewFromInt(10),
			},
		},
	}
}

func (f *fakeApi) GetPortfolioStats(_ context.Context, _, _ string) (model.PortfolioStats, error) {
	return f.stats, nil
}

func (f *fakeApi) GetTransactionHistory(_ context.Context, _, collectionCardID string) ([]model.Transaction, error) {
	return f.transactions[collectionCardID], nil
}

func (f *fakeApi) CreateHolding(_ context.Context, _ string, req model.BuyRequest) (model.Transaction, error) {
	f.createCalls++
	if f.createErr != nil {
		return model.Transaction{}, f.createErr
	}
	tx := model.Transaction{
		ID:               "tx-new",
		Type:             model.TransactionTypeBuy,
		Quantity:         req.Quantity,
		CostBasis:        req.CostBasis,
		Date:             req.PurchaseDate,
		CollectionCardID: "cc-new",
	}
	f.transactions["cc-new"] = append(f.transactions["cc-new"], tx)
	return tx, nil
}

func (f *fakeApi) CreateTransaction(_ context.Context, _, collectionCardID string, req model.TransactionRequest) (model.Transaction, error) {
	f.createCalls++
	if f.createErr != nil {
		return model.Transaction{}, f.createErr
	}
	tx := model.Transaction{
		ID:        "tx-created",
		Type:      req.Type,
		Quantity:  req.Quantity,
		CostBasis: req.CostBasis,
		Date:      req.Date,
	}
	f.transactions[collectionCardID] = append(f.transactions[collectionCardID], tx)
	return tx, nil
}

func (f *fakeApi) UpdateTransaction(_ context.Context, _, transactionID string, patch model.TransactionPatch) (model.Transaction, error) {
	for ccID, txs := range f.transactions {
		for i, tx := range txs {
			if tx.ID != transactionID {
				continue
			}
			if patch.Quantity != nil {
				tx.Quantity = *patch.Quantity
			}
			if patch.CostBasis != nil {
				tx.CostBasis = *patch.CostBasis
			}
			if patch.Date != nil {
				tx.Date = *patch.Date
			}
			f.transactions[ccID][i] = tx
			return tx, nil
		}
	}
	return model.Transaction{}, errors.New("transaction not found")
}

func (f *fakeApi) DeleteTransaction(_ context.Context, _, transactionID string) error {
	f.deleteCalls = append(f.deleteCalls, transactionID)
	if err, ok := f.deleteErrs[transactionID]; ok {
		return err
	}
	for ccID, txs := range f.transactions {
		kept := txs[:0]
		for _, tx := range txs {
			if tx.ID != transactionID {
				kept = append(kept, tx)
			}
		}
		f.transactions[ccID] = kept
	}
	return nil
}

func (f *fakeApi) DeleteHolding(_ context.Context, _, collectionCardID string) error {
	delete(f.transactions, collectionCardID)
	return nil
}

func (f *fakeApi) GetCollections(_ context.Context) ([]model.Collection, error) {
	return f.collections, nil
}

func (f *fakeApi) GetCollectionCards(_ context.Context, _ string, _, _ int) ([]model.CollectionCard, error) {
	return nil, nil
}

func (f *fakeApi) GetSetsBySeries(_ context.Context, _ string) ([]model.Set, error) {
	return nil, nil
}

func (f *fakeApi) GetSetCards(_ context.Context, _ string) ([]model.Card, error) {
	return nil, nil
}

func (f *fakeApi) SearchCards(_ context.Context, _ string) ([]model.Card, error) {
	return nil, nil
}

func (f *fakeApi) GetCard(_ context.Context, _ string) (model.Card, error) {
	return f.card, nil
}

func (f *fakeApi) GetCardPrices(_ context.Context, _ string) (model.CardPrices, error) {
	return f.prices, nil
}

type fakeCache struct{}

func (fakeCache) GetCardPrices(_ context.Context, _ string) (model.CardPrices, error) {
	return model.CardPrices{}, errors.New("cache miss")
}

func (fakeCache) SetCardPrices(_ context.Context, _ model.CardPrices) error { return nil }

func (fakeCache) SetCardsPrices(_ context.Context, _ []model.CardPrices) error { return nil }

func (fakeCache) GetSetsBySeries(_ context.Context, _ string) ([]model.Set, error) {
	return nil, errors.New("cache miss")
}

func (fakeCache) SetSetsBySeries(_ context.Context, _ string, _ []model.Set) error { return nil }

func (fakeCache) FlushCardPrices(_ context.Context, _ string) error { return nil }

type fakeRepo struct{}

func (fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

func (fakeRepo) RegUser(_ context.Context, _ int64) (int64, error) { return 1, nil }

func (fakeRepo) SetDefaultCollection(_ context.Context, _ int64, _ string) error { return nil }

func (fakeRepo) GetDefaultCollection(_ context.Context, _ int64) (string, error) { return "", nil }

func (fakeRepo) InsertReportLink(_ context.Context, _ int64, _, _ string) error { return nil }

func (fakeRepo) GetReportLinks(_ context.Context, _ int64, _ int) ([]dbModel.ReportLink, error) {
	return nil, nil
}

type fakeReports struct{}

func (fakeReports) Generate(_ context.Context, _ model.CollectionReport) ([]byte, string, error) {
	return []byte("xlsx"), "xlsx", nil
}

type fakeStorage struct{}

func (fakeStorage) UploadFile(_ context.Context, _ io.Reader, _ string) (string, error) {
	return "https://example.com/file", nil
}
func (fakeStorage) DeleteOldFiles(_ context.Context) error { return nil }

func newTestService(api *fakeApi) *CardkeepService {
	return New(&config.Config{CardsPerPage: 5}, fakeRepo{}, fakeCache{}, api, fakeReports{}, fakeStorage{})
}

func buyTx(id string, qty int, cost int64, daysAgo int) model.Transaction {
	return model.Transaction{
		ID:        id,
		Type:      model.TransactionTypeBuy,
		Quantity:  qty,
		CostBasis: decimal.NewFromInt(cost),
		Date:      time.Now().AddDate(0, 0, -daysAgo),
	}
}

func testRef() model.CardRef {
	return model.CardRef{
		CollectionID:     "col-1",
		CollectionCardID: "cc-1",
		CardID:           "card-1",
		Condition:        "NM",
		Finish:           "nonfoil",
	}
}

func TestBuyCard_OptimisticAppendKeepsFinancials(t *testing.T) {
	api := newFakeApi()
	s := newTestService(api)

	current := model.CardHoldingPage{
		Ref: testRef(),
		Snapshot: model.HoldingSnapshot{
			QuantityHeld:   3,
			TotalCostBasis: decimal.NewFromInt(30),
		},
		Transactions: []model.Transaction{buyTx("tx-1", 3, 30, 5)},
	}

	page, err := s.BuyCard(context.Background(), model.BuyRequest{
		CardID:       "card-1",
		CollectionID: "col-1",
		Condition:    "NM",
		Finish:       "nonfoil",
		Quantity:     2,
		CostBasis:    decimal.NewFromInt(24),
		PurchaseDate: time.Now(),
	}, current)
	require.NoError(t, err)

	assert.Len(t, page.Transactions, 2)
	assert.Equal(t, 5, page.Snapshot.QuantityHeld)
	// financials stay at the pre-buy values until the authoritative refresh
	assert.True(t, page.Snapshot.TotalCostBasis.Equal(decimal.NewFromInt(30)))
	// newest first
	assert.Equal(t, "tx-created", page.Transactions[0].ID)
	// the passed-in page was not mutated
	assert.Len(t, current.Transactions, 1)
	assert.Equal(t, 3, current.Snapshot.QuantityHeld)
}

func TestBuyCard_FirstPurchaseCreatesHolding(t *testing.T) {
	api := newFakeApi()
	s := newTestService(api)

	page, err := s.BuyCard(context.Background(), model.BuyRequest{
		CardID:       "card-1",
		CollectionID: "col-1",
		Condition:    "NM",
		Finish:       "nonfoil",
		Quantity:     1,
		CostBasis:    decimal.NewFromInt(10),
		PurchaseDate: time.Now(),
	}, model.CardHoldingPage{Ref: model.CardRef{CollectionID: "col-1", CardID: "card-1", Condition: "NM", Finish: "nonfoil"}})
	require.NoError(t, err)

	assert.Equal(t, "cc-new", page.Ref.CollectionCardID)
	assert.Equal(t, 1, page.Snapshot.QuantityHeld)
}

func TestBuyCard_ErrorLeavesPageUnchanged(t *testing.T) {
	api := newFakeApi()
	api.createErr = errors.New("boom")
	s := newTestService(api)

	current := model.CardHoldingPage{
		Ref:          testRef(),
		Snapshot:     model.HoldingSnapshot{QuantityHeld: 3},
		Transactions: []model.Transaction{buyTx("tx-1", 3, 30, 5)},
	}

	page, err := s.BuyCard(context.Background(), model.BuyRequest{CollectionID: "col-1", CardID: "card-1", Quantity: 1}, current)
	require.Error(t, err)
	assert.Equal(t, current, page)
}

func TestSellCard_ExceedsHoldingNoNetworkCall(t *testing.T) {
	api := newFakeApi()
	s := newTestService(api)

	_, liquidated, err := s.SellCard(context.Background(), testRef(), model.TransactionRequest{Quantity: 5}, 3)
	require.ErrorIs(t, err, service.ErrSellExceedsHolding)
	assert.False(t, liquidated)
	assert.Zero(t, api.createCalls)
}

func TestSellCard_FullLiquidationOnlyOnSuccess(t *testing.T) {
	api := newFakeApi()
	s := newTestService(api)

	_, liquidated, err := s.SellCard(context.Background(), testRef(), model.TransactionRequest{Quantity: 3, Date: time.Now()}, 3)
	require.NoError(t, err)
	assert.True(t, liquidated)

	api.createErr = errors.New("boom")
	_, liquidated, err = s.SellCard(context.Background(), testRef(), model.TransactionRequest{Quantity: 3, Date: time.Now()}, 3)
	require.Error(t, err)
	assert.False(t, liquidated)
}

func TestSellCard_PartialSellRefreshesAndRechecks(t *testing.T) {
	api := newFakeApi()
	api.transactions["cc-1"] = []model.Transaction{buyTx("tx-1", 5, 50, 10)}
	api.stats = model.PortfolioStats{TotalCostBasis: decimal.NewFromInt(30)}
	s := newTestService(api)

	page, liquidated, err := s.SellCard(context.Background(), testRef(), model.TransactionRequest{Quantity: 2, Date: time.Now()}, 5)
	require.NoError(t, err)
	assert.False(t, liquidated)
	assert.Equal(t, 3, page.Snapshot.QuantityHeld)
	// avg cost comes from the refreshed server stats, not local math
	assert.True(t, page.Snapshot.AverageCostPerUnit.Equal(decimal.NewFromInt(10)))
}

func TestSellCard_PartialSellLiquidatedByConcurrentChange(t *testing.T) {
	api := newFakeApi()
	// the refreshed ledger already contains an outside sell of the rest
	api.transactions["cc-1"] = []model.Transaction{
		buyTx("tx-1", 5, 50, 10),
		{ID: "tx-out", Type: model.TransactionTypeSell, Quantity: 3, Date: time.Now().AddDate(0, 0, -1)},
	}
	s := newTestService(api)

	page, liquidated, err := s.SellCard(context.Background(), testRef(), model.TransactionRequest{Quantity: 2, Date: time.Now()}, 5)
	require.NoError(t, err)
	assert.True(t, liquidated)
	assert.LessOrEqual(t, page.Snapshot.QuantityHeld, 0)
}

func TestDeleteTransactions_SequentialStopAtFirstFailure(t *testing.T) {
	api := newFakeApi()
	api.transactions["cc-1"] = []model.Transaction{
		buyTx("tx-1", 1, 10, 3),
		buyTx("tx-2", 1, 10, 2),
		buyTx("tx-3", 1, 10, 1),
	}
	api.deleteErrs["tx-2"] = errors.New("conflict")
	s := newTestService(api)

	page, err := s.DeleteTransactions(context.Background(), testRef(), []string{"tx-1", "tx-2", "tx-3"})
	require.Error(t, err)

	var deleteErr *service.DeleteFailedError
	require.ErrorAs(t, err, &deleteErr)
	assert.Equal(t, "tx-2", deleteErr.TransactionID)
	assert.Equal(t, 1, deleteErr.Deleted)

	// tx-3 never attempted
	assert.Equal(t, []string{"tx-1", "tx-2"}, api.deleteCalls)
	// the refreshed page reflects the one completed deletion
	assert.Len(t, page.Transactions, 2)
}

func TestDeleteTransactions_FirstFailureSkipsRefresh(t *testing.T) {
	api := newFakeApi()
	api.transactions["cc-1"] = []model.Transaction{buyTx("tx-1", 1, 10, 1)}
	api.deleteErrs["tx-1"] = errors.New("conflict")
	s := newTestService(api)

	page, err := s.DeleteTransactions(context.Background(), testRef(), []string{"tx-1"})
	require.Error(t, err)
	assert.Empty(t, page.Transactions)
	assert.Empty(t, page.Ref.CollectionID)
}

func TestDeleteTransactions_AllSucceed(t *testing.T) {
	api := newFakeApi()
	api.transactions["cc-1"] = []model.Transaction{
		buyTx("tx-1", 2, 20, 2),
		buyTx("tx-2", 1, 10, 1),
	}
	s := newTestService(api)

	page, err := s.DeleteTransactions(context.Background(), testRef(), []string{"tx-1"})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 1)
	assert.Equal(t, 1, page.Snapshot.QuantityHeld)
}

func TestUpdateTransaction_Refreshes(t *testing.T) {
	api := newFakeApi()
	api.transactions["cc-1"] = []model.Transaction{buyTx("tx-1", 2, 20, 1)}
	s := newTestService(api)

	qty := 4
	page, err := s.UpdateTransaction(context.Background(), testRef(), "tx-1", model.TransactionPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Snapshot.QuantityHeld)
}

func TestGetCardDetails_DerivesQuantityLocally(t *testing.T) {
	api := newFakeApi()
	api.transactions["cc-1"] = []model.Transaction{
		buyTx("tx-1", 3, 30, 10),
		{ID: "tx-2", Type: model.TransactionTypeSell, Quantity: 1, Date: time.Now().AddDate(0, 0, -5)},
	}
	api.stats = model.PortfolioStats{
		TotalCostBasis: decimal.NewFromInt(20),
		RealizedGain:   decimal.NewFromInt(2),
	}
	s := newTestService(api)

	page, err := s.GetCardDetails(context.Background(), testRef())
	require.NoError(t, err)

	assert.Equal(t, 2, page.Snapshot.QuantityHeld)
	assert.True(t, page.Snapshot.AverageCostPerUnit.Equal(decimal.NewFromInt(10)))
	assert.True(t, page.Snapshot.MarketValue.Equal(decimal.NewFromInt(20)))
	assert.True(t, page.Snapshot.RealizedGain.Equal(decimal.NewFromInt(2)))
	// newest first in the rendered ledger
	assert.Equal(t, "tx-2", page.Transactions[0].ID)
}
