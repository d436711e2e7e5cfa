package services

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"portfolio-dashboard/internal/cache"
	"portfolio-dashboard/internal/market"

	"github.com/rs/zerolog"
)

// marketOwner is the cache owner of public market data
const marketOwner = "market"

const (
	defaultKlineInterval = "1h"
	defaultKlineLimit    = 100
	maxKlineLimit        = 1000
	defaultCoinsPerPage  = 20
	maxCoinsPerPage      = 250
	defaultMovers        = 5
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// SymbolsQuery is the query string of the ticker, price and overview
// endpoints
type SymbolsQuery struct {
	Symbols []string `form:"symbols" binding:"omitempty,max=50"`
}

// KlinesQuery is the query string of a klines request
type KlinesQuery struct {
	Symbol   string `form:"symbol" binding:"required"`
	Interval string `form:"interval" binding:"omitempty,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// CoinsQuery is the query string of a coin markets request
type CoinsQuery struct {
	VsCurrency string `form:"vs_currency" binding:"omitempty,alpha,max=10"`
	PerPage    int    `form:"per_page" binding:"omitempty,min=1,max=250"`
}

// MarketSource is the public market data upstream
type MarketSource interface {
	Tickers(ctx context.Context, symbols []string) ([]market.Ticker24hr, error)
	Prices(ctx context.Context, symbols []string) ([]market.PriceTicker, error)
	Overview(ctx context.Context, symbols []string, movers int) (*market.Overview, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Kline, error)
	Coins(ctx context.Context, vsCurrency string, perPage int) ([]market.Coin, error)
}

// TickersView is the market ticker widget payload
type TickersView struct {
	Tickers []market.Ticker24hr `json:"tickers"`
	Gainers []market.Ticker24hr `json:"gainers"`
	Losers  []market.Ticker24hr `json:"losers"`
}

// MarketService serves cached public market data
type MarketService struct {
	source MarketSource
	cache  *cache.QueryCache
	logger zerolog.Logger
}

// NewMarketService creates a market service
func NewMarketService(source MarketSource, qc *cache.QueryCache, logger zerolog.Logger) *MarketService {
	return &MarketService{
		source: source,
		cache:  qc,
		logger: logger.With().Str("component", "market_service").Logger(),
	}
}

// NormalizeSymbols upper-cases, de-duplicates and validates symbols
func NormalizeSymbols(symbols []string) ([]string, error) {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		for _, part := range strings.Split(raw, ",") {
			sym := strings.ToUpper(strings.TrimSpace(part))
			if sym == "" || seen[sym] {
				continue
			}
			if !symbolPattern.MatchString(sym) {
				return nil, invalid("symbols", "invalid symbol %q", sym)
			}
			seen[sym] = true
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Tickers returns 24h statistics plus the top movers
func (s *MarketService) Tickers(ctx context.Context, symbols []string) (*TickersView, error) {
	normalized, err := NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}
	key := "tickers:" + strings.Join(normalized, ",")
	tickers, err := cache.Fetch(ctx, s.cache, marketOwner, key, func(ctx context.Context) ([]market.Ticker24hr, error) {
		return s.source.Tickers(ctx, normalized)
	})
	if err != nil {
		return nil, err
	}
	gainers, losers := market.TopMovers(tickers, defaultMovers)
	return &TickersView{Tickers: tickers, Gainers: gainers, Losers: losers}, nil
}

// Prices returns the latest price of each symbol
func (s *MarketService) Prices(ctx context.Context, symbols []string) ([]market.PriceTicker, error) {
	normalized, err := NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}
	key := "prices:" + strings.Join(normalized, ",")
	return cache.Fetch(ctx, s.cache, marketOwner, key, func(ctx context.Context) ([]market.PriceTicker, error) {
		return s.source.Prices(ctx, normalized)
	})
}

// Overview returns tickers, movers and the top coins in one payload
func (s *MarketService) Overview(ctx context.Context, symbols []string) (*market.Overview, error) {
	normalized, err := NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}
	key := "overview:" + strings.Join(normalized, ",")
	return cache.Fetch(ctx, s.cache, marketOwner, key, func(ctx context.Context) (*market.Overview, error) {
		return s.source.Overview(ctx, normalized, defaultMovers)
	})
}

// Klines returns candlesticks for a symbol
func (s *MarketService) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Kline, error) {
	normalized, err := NormalizeSymbols([]string{symbol})
	if err != nil {
		return nil, err
	}
	if len(normalized) != 1 {
		return nil, invalid("symbol", "is required")
	}
	if interval == "" {
		interval = defaultKlineInterval
	}
	limit = clamp(limit, defaultKlineLimit, maxKlineLimit)

	key := strings.Join([]string{"klines", normalized[0], interval, strconv.Itoa(limit)}, ":")
	return cache.Fetch(ctx, s.cache, marketOwner, key, func(ctx context.Context) ([]market.Kline, error) {
		return s.source.Klines(ctx, normalized[0], interval, limit)
	})
}

// Coins returns CoinGecko market rows
func (s *MarketService) Coins(ctx context.Context, vsCurrency string, perPage int) ([]market.Coin, error) {
	vsCurrency = strings.ToLower(strings.TrimSpace(vsCurrency))
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	perPage = clamp(perPage, defaultCoinsPerPage, maxCoinsPerPage)

	key := strings.Join([]string{"coins", vsCurrency, strconv.Itoa(perPage)}, ":")
	return cache.Fetch(ctx, s.cache, marketOwner, key, func(ctx context.Context) ([]market.Coin, error) {
		return s.source.Coins(ctx, vsCurrency, perPage)
	})
}

// clamp applies def to unset values and caps the rest at max
func clamp(v, def, max int) int {
	switch {
	case v <= 0:
		return def
	case v > max:
		return max
	}
	return v
}
