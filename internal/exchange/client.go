package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/ratelimit"
	"sentiment-trader/internal/types"
)

const (
	pathOrder        = "/api/v3/order"
	pathTickerPrice  = "/api/v3/ticker/price"
	pathExchangeInfo = "/api/v3/exchangeInfo"

	headerAPIKey = "X-MBX-APIKEY"
)

type Params struct {
	BaseURL    string
	APIKey     string
	Signer     Signer
	RecvWindow time.Duration
	Timeout    time.Duration
	UserAgent  string
	// Limiter throttles order submission. Nil means unthrottled.
	Limiter *ratelimit.Limiter
}

// Client talks to the Binance spot REST API.
type Client struct {
	p    Params
	http *resty.Client
	now  func() time.Time
}

var _ interfaces.Venue = (*Client)(nil)

func NewClient(p Params) *Client {
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.RecvWindow <= 0 {
		p.RecvWindow = 5 * time.Second
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(p.BaseURL, "/")).
		SetTimeout(p.Timeout).
		SetHeader("Accept", "application/json")
	if p.UserAgent != "" {
		http.SetHeader("User-Agent", p.UserAgent)
	}

	return &Client{p: p, http: http, now: time.Now}
}

type fillResponse struct {
	Price           decimal.Decimal `json:"price"`
	Qty             decimal.Decimal `json:"qty"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commissionAsset"`
}

type orderResponse struct {
	Symbol      string          `json:"symbol"`
	OrderID     int64           `json:"orderId"`
	Status      string          `json:"status"`
	Side        string          `json:"side"`
	ExecutedQty decimal.Decimal `json:"executedQty"`
	Fills       []fillResponse  `json:"fills"`
}

// PlaceOrder submits a signed order and asks for the FULL response so the
// fills and their commissions are available.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if c.p.Signer == nil {
		return types.OrderResult{}, fmt.Errorf("place order: no signer configured")
	}
	if c.p.Limiter != nil {
		if err := c.p.Limiter.Wait(ctx); err != nil {
			return types.OrderResult{}, err
		}
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", req.Quantity.String())
	params.Set("newOrderRespType", "FULL")

	query, err := c.signedQuery(params)
	if err != nil {
		return types.OrderResult{}, err
	}

	var out orderResponse
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerAPIKey, c.p.APIKey).
		SetResult(&out).
		SetError(apiErr).
		Post(pathOrder + "?" + query)
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("place order: %w", err)
	}
	if resp.IsError() {
		return types.OrderResult{}, asAPIError(resp, apiErr)
	}

	result := types.OrderResult{
		OrderID:          strconv.FormatInt(out.OrderID, 10),
		Symbol:           out.Symbol,
		Side:             types.OrderSide(out.Side),
		Status:           out.Status,
		ExecutedQuantity: out.ExecutedQty,
		Fills:            make([]types.Fill, 0, len(out.Fills)),
	}
	for _, f := range out.Fills {
		result.Fills = append(result.Fills, types.Fill{
			Price:           f.Price,
			Quantity:        f.Qty,
			Commission:      f.Commission,
			CommissionAsset: f.CommissionAsset,
		})
	}
	return result, nil
}

// signedQuery encodes params and appends the signature of exactly that
// string. The result must be sent verbatim: no request-level query params may
// be set next to it, or resty re-encodes the whole query in sorted order.
func (c *Client) signedQuery(params url.Values) (string, error) {
	params.Set("recvWindow", strconv.FormatInt(c.p.RecvWindow.Milliseconds(), 10))
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	query := params.Encode()

	sig, err := c.p.Signer.Sign(query)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	return query + "&signature=" + url.QueryEscape(sig), nil
}

func (c *Client) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		SetError(apiErr).
		Get(pathTickerPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ticker price %s: %w", symbol, err)
	}
	if resp.IsError() {
		return decimal.Zero, asAPIError(resp, apiErr)
	}
	return out.Price, nil
}

type exchangeFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty"`
	MaxQty      string `json:"maxQty"`
	StepSize    string `json:"stepSize"`
	MinNotional string `json:"minNotional"`
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol  string           `json:"symbol"`
		Filters []exchangeFilter `json:"filters"`
	} `json:"symbols"`
}

// TradingRuleFilter reads the LOT_SIZE and NOTIONAL filters of symbol from
// exchangeInfo. The legacy MIN_NOTIONAL filter is used when NOTIONAL is absent.
func (c *Client) TradingRuleFilter(ctx context.Context, symbol string) (types.TradingRuleFilter, error) {
	var out exchangeInfo
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		SetError(apiErr).
		Get(pathExchangeInfo)
	if err != nil {
		return types.TradingRuleFilter{}, fmt.Errorf("exchange info %s: %w", symbol, err)
	}
	if resp.IsError() {
		return types.TradingRuleFilter{}, asAPIError(resp, apiErr)
	}
	return parseFilters(symbol, out)
}

func asAPIError(resp *resty.Response, apiErr *APIError) *APIError {
	apiErr.StatusCode = resp.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(resp.String())
	}
	return apiErr
}

func parseFilters(symbol string, info exchangeInfo) (types.TradingRuleFilter, error) {
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}

		f := types.TradingRuleFilter{Symbol: symbol}
		var lotSize, notional, legacy bool
		var legacyMin decimal.Decimal
		for _, flt := range s.Filters {
			var err error
			switch flt.FilterType {
			case "LOT_SIZE":
				lotSize = true
				if f.StepSize, err = decimal.NewFromString(flt.StepSize); err != nil {
					return f, fmt.Errorf("LOT_SIZE stepSize %q: %w", flt.StepSize, err)
				}
				if f.MinQty, err = decimal.NewFromString(flt.MinQty); err != nil {
					return f, fmt.Errorf("LOT_SIZE minQty %q: %w", flt.MinQty, err)
				}
				if f.MaxQty, err = decimal.NewFromString(flt.MaxQty); err != nil {
					return f, fmt.Errorf("LOT_SIZE maxQty %q: %w", flt.MaxQty, err)
				}
			case "NOTIONAL":
				notional = true
				if f.MinNotional, err = decimal.NewFromString(flt.MinNotional); err != nil {
					return f, fmt.Errorf("NOTIONAL minNotional %q: %w", flt.MinNotional, err)
				}
			case "MIN_NOTIONAL":
				legacy = true
				if legacyMin, err = decimal.NewFromString(flt.MinNotional); err != nil {
					return f, fmt.Errorf("MIN_NOTIONAL minNotional %q: %w", flt.MinNotional, err)
				}
			}
		}

		if !lotSize {
			return f, fmt.Errorf("symbol %s has no LOT_SIZE filter", symbol)
		}
		if !notional {
			if !legacy {
				return f, fmt.Errorf("symbol %s has no NOTIONAL filter", symbol)
			}
			f.MinNotional = legacyMin
		}
		return f, nil
	}
	return types.TradingRuleFilter{}, fmt.Errorf("symbol %s not found in exchange info", symbol)
}
