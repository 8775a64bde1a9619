package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	cardPricesKeyPrefix = "card_prices:"
	setsKeyPrefix       = "sets:"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

// cachedCardPrices is the storage shape: PriceKey is a struct and can't be a
// JSON object key directly.
type cachedCardPrices struct {
	CardID string            `json:"cardId"`
	Prices []cachedCardPrice `json:"prices"`
}

type cachedCardPrice struct {
	Condition string          `json:"condition"`
	Finish    string          `json:"finish"`
	Price     decimal.Decimal `json:"price"`
}

func toCached(prices model.CardPrices) cachedCardPrices {
	res := cachedCardPrices{CardID: prices.CardID, Prices: make([]cachedCardPrice, 0, len(prices.Prices))}
	for key, price := range prices.Prices {
		res.Prices = append(res.Prices, cachedCardPrice{Condition: key.Condition, Finish: key.Finish, Price: price})
	}
	return res
}

func fromCached(cached cachedCardPrices) model.CardPrices {
	res := model.CardPrices{CardID: cached.CardID, Prices: make(map[model.PriceKey]decimal.Decimal, len(cached.Prices))}
	for _, p := range cached.Prices {
		res.Prices[model.PriceKey{Condition: p.Condition, Finish: p.Finish}] = p.Price
	}
	return res
}

func (r *RedisCache) SetCardsPrices(ctx context.Context, prices []model.CardPrices) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetCardsPrices start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, cardPrices := range prices {
		pricesJson, err := json.Marshal(toCached(cardPrices))
		if err != nil {
			slog.Error(
				"can't marshal card prices in SetCardsPrices",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.String("cardID", cardPrices.CardID),
			)
			return errors.New("can't marshal card prices")
		}

		pipe.Set(ctx, cardPricesKeyPrefix+cardPrices.CardID, pricesJson, r.cfg.Cache.PricesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetCardsPrices completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) SetCardPrices(ctx context.Context, prices model.CardPrices) error {
	return r.SetCardsPrices(ctx, []model.CardPrices{prices})
}

func (r *RedisCache) GetCardPrices(ctx context.Context, cardID string) (model.CardPrices, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetCardPrices start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, cardPricesKeyPrefix+cardID).Result()
	if err != nil {
		slog.Warn("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", cardPricesKeyPrefix+cardID))
		return model.CardPrices{}, err
	}

	cached := cachedCardPrices{}
	err = json.Unmarshal([]byte(res), &cached)
	if err != nil {
		slog.Error(
			"can't unmarshal card prices in GetCardPrices",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.CardPrices{}, errors.New("can't unmarshal card prices")
	}

	slog.Debug("GetCardPrices finished", slog.String("rqID", rqID))

	return fromCached(cached), nil
}

// GetSetsBySeries is the read side of the set catalog cache, keyed by series
// name. Callers fall through to the API on any error.
func (r *RedisCache) GetSetsBySeries(ctx context.Context, series string) ([]model.Set, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetSetsBySeries start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, setsKeyPrefix+series).Result()
	if err != nil {
		slog.Warn("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", setsKeyPrefix+series))
		return nil, err
	}

	var sets []model.Set
	err = json.Unmarshal([]byte(res), &sets)
	if err != nil {
		slog.Error(
			"can't unmarshal sets in GetSetsBySeries",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshal sets")
	}

	slog.Debug("GetSetsBySeries finished", slog.String("rqID", rqID), slog.Int("sets", len(sets)))

	return sets, nil
}

func (r *RedisCache) SetSetsBySeries(ctx context.Context, series string, sets []model.Set) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetSetsBySeries start", slog.String("rqID", rqID))

	setsJson, err := json.Marshal(sets)
	if err != nil {
		slog.Error("can't marshal sets in SetSetsBySeries", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshal sets")
	}

	_, err = r.redis.Set(ctx, setsKeyPrefix+series, setsJson, r.cfg.Cache.SetsExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetSetsBySeries completed", slog.String("rqID", rqID))

	return nil
}

// FlushCardPrices drops cached prices for a card, forcing the next view to
// re-fetch. Called after mutations so the card view never renders a stale
// price next to a fresh ledger.
func (r *RedisCache) FlushCardPrices(ctx context.Context, cardID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	_, err := r.redis.Del(ctx, cardPricesKeyPrefix+cardID).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", fmt.Sprintf("%s%s", cardPricesKeyPrefix, cardID)))
		return err
	}

	return nil
}
