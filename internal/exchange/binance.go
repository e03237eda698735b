package exchange

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"github.com/skalibog/bfsignals/internal/config"
	"github.com/skalibog/bfsignals/pkg/logger"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// одновременных запросов свечей
const maxConcurrentRequests = 4

// BinanceClient клиент для получения баров с фьючерсного рынка Binance
type BinanceClient struct {
	futures *futures.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) *BinanceClient {
	futures.UseTestnet = cfg.Testnet
	return &BinanceClient{futures: futures.NewClient(cfg.APIKey, cfg.APISecret)}
}

// GetKlines получает исторические свечи
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей %s: %w", symbol, err)
	}

	candles := make([]*models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := klineCandle(symbol, interval, k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetFrame собирает свечи нескольких символов в одну таблицу,
// отсортированную по времени
func (c *BinanceClient) GetFrame(ctx context.Context, symbols []string, interval string, limit int) (*models.Frame, error) {
	var (
		mu  sync.Mutex
		all []*models.Candle
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			candles, err := c.GetKlines(ctx, symbol, interval, limit)
			if err != nil {
				return err
			}
			logger.Debug("Получены свечи", zap.String("symbol", symbol), zap.Int("count", len(candles)))
			mu.Lock()
			all = append(all, candles...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candlesFrame(all), nil
}

// candlesFrame упорядочивает свечи по времени и символу
func candlesFrame(candles []*models.Candle) *models.Frame {
	sort.SliceStable(candles, func(i, j int) bool {
		if !candles[i].OpenTime.Equal(candles[j].OpenTime) {
			return candles[i].OpenTime.Before(candles[j].OpenTime)
		}
		return candles[i].Symbol < candles[j].Symbol
	})
	return models.FromCandles(candles)
}

// klineCandle переводит свечу биржи в модель. Цены приходят строками.
func klineCandle(symbol, interval string, k *futures.Kline) (*models.Candle, error) {
	fields := [...]string{k.Open, k.High, k.Low, k.Close, k.Volume}
	var values [len(fields)]float64
	for i, raw := range fields {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора свечи %s: %q: %w", symbol, raw, err)
		}
		values[i] = d.InexactFloat64()
	}
	return &models.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
	}, nil
}
