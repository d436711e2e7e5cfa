package api

import (
	"net/http"

	"portfolio-dashboard/internal/services"

	"github.com/gin-gonic/gin"
)

// MarketHandler handles public market data endpoints
type MarketHandler struct {
	marketService  MarketServiceInterface
	defaultSymbols []string
}

// NewMarketHandler creates a new market handler. defaultSymbols is used when
// the request names none.
func NewMarketHandler(marketService MarketServiceInterface, defaultSymbols []string) *MarketHandler {
	return &MarketHandler{
		marketService:  marketService,
		defaultSymbols: defaultSymbols,
	}
}

// GetTickers returns 24h ticker statistics and top movers
// @Summary Market tickers
// @Tags Market
// @Produce json
// @Param symbols query string false "Comma separated symbols, e.g. BTCUSDT,ETHUSDT"
// @Success 200 {object} services.TickersView
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /market/tickers [get]
func (h *MarketHandler) GetTickers(c *gin.Context) {
	symbols, ok := h.symbols(c)
	if !ok {
		return
	}

	view, err := h.marketService.Tickers(c.Request.Context(), symbols)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "MARKET_UNAVAILABLE", "Failed to load market tickers")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(view, getTraceID(c)))
}

// GetPrices returns the latest prices
// @Summary Latest prices
// @Tags Market
// @Produce json
// @Param symbols query string false "Comma separated symbols"
// @Success 200 {array} market.PriceTicker
// @Router /market/prices [get]
func (h *MarketHandler) GetPrices(c *gin.Context) {
	symbols, ok := h.symbols(c)
	if !ok {
		return
	}

	prices, err := h.marketService.Prices(c.Request.Context(), symbols)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "MARKET_UNAVAILABLE", "Failed to load prices")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(prices, getTraceID(c)))
}

// GetOverview returns tickers, movers and top coins together
// @Summary Market overview
// @Tags Market
// @Produce json
// @Param symbols query string false "Comma separated symbols"
// @Success 200 {object} market.Overview
// @Router /market/overview [get]
func (h *MarketHandler) GetOverview(c *gin.Context) {
	symbols, ok := h.symbols(c)
	if !ok {
		return
	}

	overview, err := h.marketService.Overview(c.Request.Context(), symbols)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "MARKET_UNAVAILABLE", "Failed to load market overview")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(overview, getTraceID(c)))
}

// GetKlines returns candlesticks for one symbol
// @Summary Klines
// @Tags Market
// @Produce json
// @Param symbol query string true "Symbol, e.g. BTCUSDT"
// @Param interval query string false "Interval (default 1h)"
// @Param limit query int false "Number of candles (default 100, max 1000)"
// @Success 200 {array} market.Kline
// @Router /market/klines [get]
func (h *MarketHandler) GetKlines(c *gin.Context) {
	var query services.KlinesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err, "INVALID_QUERY_PARAMS", "Invalid query parameters")
		return
	}

	klines, err := h.marketService.Klines(c.Request.Context(), query.Symbol, query.Interval, query.Limit)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "MARKET_UNAVAILABLE", "Failed to load klines")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(klines, getTraceID(c)))
}

// GetCoins returns coin market rows
// @Summary Coin markets
// @Tags Market
// @Produce json
// @Param vs_currency query string false "Quote currency (default usd)"
// @Param per_page query int false "Rows (default 20, max 250)"
// @Success 200 {array} market.Coin
// @Router /market/coins [get]
func (h *MarketHandler) GetCoins(c *gin.Context) {
	var query services.CoinsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err, "INVALID_QUERY_PARAMS", "Invalid query parameters")
		return
	}

	coins, err := h.marketService.Coins(c.Request.Context(), query.VsCurrency, query.PerPage)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "MARKET_UNAVAILABLE", "Failed to load coin markets")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(coins, getTraceID(c)))
}

// symbols returns the requested symbols or the configured defaults
func (h *MarketHandler) symbols(c *gin.Context) ([]string, bool) {
	var query services.SymbolsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err, "INVALID_QUERY_PARAMS", "Invalid query parameters")
		return nil, false
	}
	if len(query.Symbols) > 0 {
		return query.Symbols, true
	}
	return h.defaultSymbols, true
}
