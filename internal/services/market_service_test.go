package services

import (
	"context"
	"testing"
	"time"

	"portfolio-dashboard/internal/cache"
	"portfolio-dashboard/internal/market"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMarketService(source MarketSource) *MarketService {
	qc := cache.NewQueryCache(cache.NewMemoryStore(), time.Minute, zerolog.Nop())
	return NewMarketService(source, qc, zerolog.Nop())
}

func TestNormalizeSymbols(t *testing.T) {
	got, err := NormalizeSymbols([]string{"ethusdt, btcusdt", "BTCUSDT", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got)

	_, err = NormalizeSymbols([]string{"BTC/USDT"})
	assert.True(t, IsValidationError(err))
}

func TestMarket_TickersCachedWithMovers(t *testing.T) {
	source := &MockMarketSource{}
	source.On("Tickers", mock.Anything, []string{"BTCUSDT", "ETHUSDT"}).Return([]market.Ticker24hr{
		{Symbol: "BTCUSDT", PriceChangePercent: 2.5},
		{Symbol: "ETHUSDT", PriceChangePercent: -1.2},
	}, nil).Once()
	svc := newMarketService(source)

	view, err := svc.Tickers(context.Background(), []string{"ETHUSDT", "btcusdt"})
	require.NoError(t, err)
	require.Len(t, view.Gainers, 1)
	assert.Equal(t, "BTCUSDT", view.Gainers[0].Symbol)
	require.Len(t, view.Losers, 1)
	assert.Equal(t, "ETHUSDT", view.Losers[0].Symbol)

	_, err = svc.Tickers(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)
	source.AssertExpectations(t)
}

func TestMarket_KlinesRequiresSymbol(t *testing.T) {
	svc := newMarketService(&MockMarketSource{})

	_, err := svc.Klines(context.Background(), "", "1h", 10)
	assert.True(t, IsValidationError(err))
}

func TestMarket_KlinesCapsLimit(t *testing.T) {
	source := &MockMarketSource{}
	source.On("Klines", mock.Anything, "BTCUSDT", "4h", 1000).Return([]market.Kline{}, nil).Once()
	svc := newMarketService(source)

	_, err := svc.Klines(context.Background(), "BTCUSDT", "4h", 5000)
	require.NoError(t, err)
	source.AssertExpectations(t)
}

func TestMarket_KlinesDefaults(t *testing.T) {
	source := &MockMarketSource{}
	source.On("Klines", mock.Anything, "BTCUSDT", "1h", 100).Return([]market.Kline{{OpenTime: 1, Close: 2}}, nil).Once()
	svc := newMarketService(source)

	klines, err := svc.Klines(context.Background(), "btcusdt", "", 0)
	require.NoError(t, err)
	assert.Len(t, klines, 1)
	source.AssertExpectations(t)
}

func TestMarket_Coins(t *testing.T) {
	source := &MockMarketSource{}
	source.On("Coins", mock.Anything, "usd", 20).Return([]market.Coin{{ID: "bitcoin"}}, nil).Once()
	source.On("Coins", mock.Anything, "usd", 250).Return([]market.Coin{}, nil).Once()
	svc := newMarketService(source)

	coins, err := svc.Coins(context.Background(), " USD ", 0)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", coins[0].ID)

	_, err = svc.Coins(context.Background(), "usd", 251)
	require.NoError(t, err)
	source.AssertExpectations(t)
}

func TestMarket_PricesNormalizesAndCaches(t *testing.T) {
	source := &MockMarketSource{}
	source.On("Prices", mock.Anything, []string{"BTCUSDT"}).Return([]market.PriceTicker{{Symbol: "BTCUSDT", Price: 65000}}, nil).Once()
	svc := newMarketService(source)

	for i := 0; i < 2; i++ {
		prices, err := svc.Prices(context.Background(), []string{" btcusdt "})
		require.NoError(t, err)
		require.Len(t, prices, 1)
		assert.Equal(t, 65000.0, prices[0].Price)
	}
	source.AssertExpectations(t)
}

func TestMarket_Overview(t *testing.T) {
	source := &MockMarketSource{}
	source.On("Overview", mock.Anything, []string{"BTCUSDT", "ETHUSDT"}, defaultMovers).
		Return(&market.Overview{Tickers: []market.Ticker24hr{{Symbol: "BTCUSDT"}}}, nil).Once()
	svc := newMarketService(source)

	overview, err := svc.Overview(context.Background(), []string{"ETHUSDT,BTCUSDT"})
	require.NoError(t, err)
	assert.Len(t, overview.Tickers, 1)

	_, err = svc.Overview(context.Background(), []string{"bad symbol!"})
	assert.True(t, IsValidationError(err))
	source.AssertExpectations(t)
}
