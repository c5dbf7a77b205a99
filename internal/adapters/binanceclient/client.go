package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	defaultCandleLimit = 300
	maxRangeLimit      = 1500
)

// Client implements ports.CandleSource and ports.OrderExecutor using the go-binance library.
type Client struct {
	futuresClient     *futures.Client
	logger            ports.Logger
	candleLimit       int
	feeRate           float64
	pricePrecision    int32
	quantityPrecision int32
	now               func() time.Time
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey            string
	SecretKey         string
	UseTestnet        bool
	BaseURL           string // Overrides the production/testnet URL when set
	Logger            ports.Logger
	CandleLimit       int     // Candles per FetchRecentCandles call (default 300)
	FeeRate           float64 // Fee charged on filled notional (e.g., 0.0004)
	PricePrecision    int     // Decimal places sent for limit prices
	QuantityPrecision int     // Decimal places sent for quantities; excess is truncated
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		// Public endpoints still work; order calls will fail authentication.
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}
	if cfg.FeeRate < 0 || cfg.PricePrecision < 0 || cfg.QuantityPrecision < 0 {
		return nil, fmt.Errorf("%w: negative fee rate or precision", ports.ErrConfigurationError)
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL})

	limit := cfg.CandleLimit
	if limit <= 0 {
		limit = defaultCandleLimit
	}
	return &Client{
		futuresClient:     client,
		logger:            cfg.Logger,
		candleLimit:       min(limit, maxRangeLimit),
		feeRate:           cfg.FeeRate,
		pricePrecision:    int32(cfg.PricePrecision),
		quantityPrecision: int32(cfg.QuantityPrecision),
		now:               time.Now,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120, -1121: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2011: // Cancel order rejected
			mappedErr = ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / invalid key, IP, or permissions
			mappedErr = ports.ErrInvalidAPIKeys
		case -2019: // Margin is insufficient
			mappedErr = ports.ErrInsufficientFunds
		case -4003, -4014: // Qty or price not within permissible range
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// FetchRecentCandles implements ports.CandleSource. The still-open candle is
// left out so a stored candle never changes later.
func (c *Client) FetchRecentCandles(ctx context.Context, product string, granularity time.Duration) ([]domain.Candle, error) {
	op := "FetchRecentCandles"
	interval, err := IntervalFor(granularity)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	klines, err := c.futuresClient.NewKlinesService().Symbol(product).Interval(interval).Limit(c.candleLimit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	now := c.now()
	candles := make([]domain.Candle, 0, len(klines))
	for _, bk := range klines {
		if time.UnixMilli(bk.CloseTime).After(now) {
			continue
		}
		candle, err := translateKline(bk)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		candles = append(candles, candle)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s failed: %w: %s %s", op, ports.ErrNoCandles, product, interval)
	}
	return candles, nil
}

// GetKlinesRange fetches all closed candles for a product between start and end.
func (c *Client) GetKlinesRange(ctx context.Context, product string, granularity time.Duration, start, end time.Time) ([]domain.Candle, error) {
	op := "GetKlinesRange"
	interval, err := IntervalFor(granularity)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}

	var all []domain.Candle
	from := start
	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(product).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxRangeLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			candle, err := translateKline(bk)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline range: %w", err), op)
			}
			all = append(all, candle)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < maxRangeLimit {
			break
		}
	}
	return all, nil
}

// PlaceLimitOrder implements ports.OrderExecutor with a GTC limit order.
func (c *Client) PlaceLimitOrder(ctx context.Context, side domain.OrderSide, product string, price, quantity float64) (*ports.OrderHandle, error) {
	op := "PlaceLimitOrder"
	priceStr := decimal.NewFromFloat(price).StringFixed(c.pricePrecision)
	qtyStr := decimal.NewFromFloat(quantity).Truncate(c.quantityPrecision).StringFixed(c.quantityPrecision)
	if qty, _ := strconv.ParseFloat(qtyStr, 64); qty <= 0 {
		return nil, fmt.Errorf("%s failed: %w: quantity %s after truncation", op, ports.ErrInvalidRequest, qtyStr)
	}

	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(product).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeLimit).
		TimeInForce(futures.TimeInForceTypeGTC).
		Price(priceStr).
		Quantity(qtyStr).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	handle := c.toHandle(orderFields{
		id:          order.OrderID,
		symbol:      order.Symbol,
		side:        order.Side,
		status:      order.Status,
		price:       order.Price,
		avgPrice:    order.AvgPrice,
		origQty:     order.OrigQuantity,
		executedQty: order.ExecutedQuantity,
		updateTime:  order.UpdateTime,
	})
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"product":  product,
		"side":     side,
		"price":    priceStr,
		"quantity": qtyStr,
		"orderID":  handle.ID,
		"status":   handle.Status,
	})
	return handle, nil
}

// GetOrder implements ports.OrderExecutor.
func (c *Client) GetOrder(ctx context.Context, order *ports.OrderHandle) (*ports.OrderHandle, error) {
	op := "GetOrder"
	id, err := strconv.ParseInt(order.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: order id %q", op, ports.ErrInvalidRequest, order.ID)
	}
	res, err := c.futuresClient.NewGetOrderService().Symbol(order.Product).OrderID(id).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return c.toHandle(orderFields{
		id:          res.OrderID,
		symbol:      res.Symbol,
		side:        res.Side,
		status:      res.Status,
		price:       res.Price,
		avgPrice:    res.AvgPrice,
		origQty:     res.OrigQuantity,
		executedQty: res.ExecutedQuantity,
		updateTime:  res.UpdateTime,
	}), nil
}

// CancelOrder implements ports.OrderExecutor.
func (c *Client) CancelOrder(ctx context.Context, order *ports.OrderHandle) (*ports.OrderHandle, error) {
	op := "CancelOrder"
	id, err := strconv.ParseInt(order.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: order id %q", op, ports.ErrInvalidRequest, order.ID)
	}
	c.logger.Debug(ctx, "Attempting to cancel order", map[string]interface{}{"product": order.Product, "orderID": id})

	res, err := c.futuresClient.NewCancelOrderService().Symbol(order.Product).OrderID(id).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	handle := c.toHandle(orderFields{
		id:          res.OrderID,
		symbol:      res.Symbol,
		side:        res.Side,
		status:      res.Status,
		price:       res.Price,
		origQty:     res.OrigQuantity,
		executedQty: res.ExecutedQuantity,
		updateTime:  res.UpdateTime,
	})
	// The cancel response carries no average price; keep what we knew.
	if handle.Price == 0 {
		handle.Price = order.Price
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"product": order.Product, "orderID": id, "status": handle.Status})
	return handle, nil
}

// --- Translation Helpers ---

var intervals = map[time.Duration]string{
	time.Minute:        "1m",
	3 * time.Minute:    "3m",
	5 * time.Minute:    "5m",
	15 * time.Minute:   "15m",
	30 * time.Minute:   "30m",
	time.Hour:          "1h",
	2 * time.Hour:      "2h",
	4 * time.Hour:      "4h",
	6 * time.Hour:      "6h",
	8 * time.Hour:      "8h",
	12 * time.Hour:     "12h",
	24 * time.Hour:     "1d",
	3 * 24 * time.Hour: "3d",
	7 * 24 * time.Hour: "1w",
}

// IntervalFor maps a candle granularity to a Binance kline interval.
func IntervalFor(granularity time.Duration) (string, error) {
	if iv, ok := intervals[granularity]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("%w: %s", ports.ErrUnsupportedInterval, granularity)
}

// orderFields is the common subset of the create, get and cancel responses.
type orderFields struct {
	id          int64
	symbol      string
	side        futures.SideType
	status      futures.OrderStatusType
	price       string
	avgPrice    string
	origQty     string
	executedQty string
	updateTime  int64
}

func (c *Client) toHandle(o orderFields) *ports.OrderHandle {
	limit, _ := strconv.ParseFloat(o.price, 64)
	avg, _ := strconv.ParseFloat(o.avgPrice, 64)
	orig, _ := strconv.ParseFloat(o.origQty, 64)
	executed, _ := strconv.ParseFloat(o.executedQty, 64)

	fees := decimal.NewFromFloat(avg).
		Mul(decimal.NewFromFloat(executed)).
		Mul(decimal.NewFromFloat(c.feeRate)).
		InexactFloat64()

	return &ports.OrderHandle{
		ID:         strconv.FormatInt(o.id, 10),
		Product:    o.symbol,
		Side:       domain.OrderSide(o.side),
		LimitPrice: limit,
		Quantity:   orig,
		Status:     translateStatus(o.status, executed),
		FilledSize: executed,
		Price:      avg,
		Fees:       fees,
		UpdatedAt:  time.UnixMilli(o.updateTime),
	}
}

func translateStatus(s futures.OrderStatusType, executed float64) domain.OrderStatus {
	switch s {
	case futures.OrderStatusTypeFilled:
		return domain.OrderFilled
	case futures.OrderStatusTypeRejected:
		return domain.OrderRejected
	case futures.OrderStatusTypeCanceled, futures.OrderStatusTypeExpired:
		// A partly filled order that ended is done, with its fill.
		if executed > 0 {
			return domain.OrderDone
		}
		return domain.OrderCancelled
	default:
		return domain.OrderPending
	}
}

func translateKline(bk *futures.Kline) (domain.Candle, error) {
	if bk == nil {
		return domain.Candle{}, errors.New("received nil kline")
	}
	var vals [5]float64
	for i, s := range []string{bk.Open, bk.High, bk.Low, bk.Close, bk.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("parsing kline field %d '%s': %w", i, s, err)
		}
		vals[i] = v
	}
	return domain.Candle{
		Timestamp: time.UnixMilli(bk.OpenTime).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}
