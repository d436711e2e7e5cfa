package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"portfolio-dashboard/internal/config"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Observer receives one call per market data round trip
type Observer interface {
	ObserveUpstream(target, endpoint string, statusCode int, duration time.Duration)
}

// Ticker24hr is Binance's rolling 24h statistics for a symbol
type Ticker24hr struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"lastPrice,string"`
	PriceChange        float64 `json:"priceChange,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	HighPrice          float64 `json:"highPrice,string"`
	LowPrice           float64 `json:"lowPrice,string"`
	Volume             float64 `json:"volume,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
}

// PriceTicker is Binance's latest price for a symbol
type PriceTicker struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price,string"`
}

// Kline is one candlestick
type Kline struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// Coin is one row of CoinGecko's /coins/markets
type Coin struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            int     `json:"market_cap_rank"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

// Overview bundles the market widgets' data
type Overview struct {
	Tickers []Ticker24hr `json:"tickers"`
	Gainers []Ticker24hr `json:"gainers"`
	Losers  []Ticker24hr `json:"losers"`
	Coins   []Coin       `json:"coins"`
}

// Client reads public market data
type Client struct {
	binanceURL   string
	coinGeckoURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
	observer     Observer
	logger       zerolog.Logger
}

// NewClient creates a market data client
func NewClient(cfg config.MarketConfig, logger zerolog.Logger) *Client {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		binanceURL:   strings.TrimRight(cfg.BinanceURL, "/"),
		coinGeckoURL: strings.TrimRight(cfg.CoinGeckoURL, "/"),
		httpClient:   &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		limiter:      rate.NewLimiter(limit, burst),
		logger:       logger.With().Str("component", "market").Logger(),
	}
}

// WithObserver attaches a request observer
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// Tickers fetches 24h statistics. An empty symbol list returns every symbol.
func (c *Client) Tickers(ctx context.Context, symbols []string) ([]Ticker24hr, error) {
	params := url.Values{}
	if len(symbols) > 0 {
		params.Set("symbols", symbolsParam(symbols))
	}
	var out []Ticker24hr
	if err := c.get(ctx, "binance", c.binanceURL, "/api/v3/ticker/24hr", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Prices fetches the latest prices. An empty symbol list returns every symbol.
func (c *Client) Prices(ctx context.Context, symbols []string) ([]PriceTicker, error) {
	params := url.Values{}
	if len(symbols) > 0 {
		params.Set("symbols", symbolsParam(symbols))
	}
	var out []PriceTicker
	if err := c.get(ctx, "binance", c.binanceURL, "/api/v3/ticker/price", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Klines fetches candlesticks for a symbol
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var raw [][]jsoniter.RawMessage
	if err := c.get(ctx, "binance", c.binanceURL, "/api/v3/klines", params, &raw); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(raw))
	for i, row := range raw {
		k, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// Coins fetches CoinGecko market rows ordered by market cap
func (c *Client) Coins(ctx context.Context, vsCurrency string, perPage int) ([]Coin, error) {
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	params := url.Values{}
	params.Set("vs_currency", vsCurrency)
	params.Set("order", "market_cap_desc")
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}
	params.Set("page", "1")

	var out []Coin
	if err := c.get(ctx, "coingecko", c.coinGeckoURL, "/coins/markets", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Overview loads tickers and coins in parallel. Either failure fails the
// whole overview.
func (c *Client) Overview(ctx context.Context, symbols []string, movers int) (*Overview, error) {
	g, gctx := errgroup.WithContext(ctx)

	var tickers []Ticker24hr
	var coins []Coin
	g.Go(func() error {
		var err error
		tickers, err = c.Tickers(gctx, symbols)
		return err
	})
	g.Go(func() error {
		var err error
		coins, err = c.Coins(gctx, "usd", 20)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gainers, losers := TopMovers(tickers, movers)
	return &Overview{Tickers: tickers, Gainers: gainers, Losers: losers, Coins: coins}, nil
}

// TopMovers returns up to n biggest gainers and losers by 24h change
func TopMovers(tickers []Ticker24hr, n int) (gainers, losers []Ticker24hr) {
	if n <= 0 || len(tickers) == 0 {
		return nil, nil
	}
	sorted := make([]Ticker24hr, len(tickers))
	copy(sorted, tickers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriceChangePercent > sorted[j].PriceChangePercent
	})

	for _, t := range sorted {
		if len(gainers) == n || t.PriceChangePercent <= 0 {
			break
		}
		gainers = append(gainers, t)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		t := sorted[i]
		if len(losers) == n || t.PriceChangePercent >= 0 {
			break
		}
		losers = append(losers, t)
	}
	return gainers, losers
}

func (c *Client) get(ctx context.Context, target, baseURL, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: rate limiter: %w", target, path, err)
	}

	endpoint := baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(target, path, 0, start)
		return fmt.Errorf("error fetching %s %s: %w", target, path, err)
	}
	defer resp.Body.Close()
	c.observe(target, path, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("target", target).Str("path", path).Int("status", resp.StatusCode).Msg("market data request failed")
		return fmt.Errorf("%s API error: status %d: %s", target, resp.StatusCode, truncate(string(body), 256))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing %s %s: %w", target, path, err)
	}
	return nil
}

func (c *Client) observe(target, path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(target, path, status, time.Since(start))
	}
}

func symbolsParam(symbols []string) string {
	quoted := make([]string, 0, len(symbols))
	for _, s := range symbols {
		quoted = append(quoted, strconv.Quote(strings.ToUpper(strings.TrimSpace(s))))
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func parseKline(row []jsoniter.RawMessage) (Kline, error) {
	if len(row) < 7 {
		return Kline{}, fmt.Errorf("expected at least 7 fields, got %d", len(row))
	}
	var k Kline
	if err := json.Unmarshal(row[0], &k.OpenTime); err != nil {
		return Kline{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &k.CloseTime); err != nil {
		return Kline{}, fmt.Errorf("close time: %w", err)
	}
	fields := []*float64{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume}
	for i, dst := range fields {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return Kline{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Kline{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		*dst = v
	}
	return k, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
