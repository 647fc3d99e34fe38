package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"vendascli/internal/config"
	"vendascli/pkg/contracts/domain"
)

// apiKeyHeader carries the order API credential on every request.
const apiKeyHeader = "X-MAGIS5-APIKEY"

// OrdersClient fetches sales orders from the paginated order API. The
// inter-page delay is a courtesy rate limit against the upstream, not a
// correctness mechanism.
type OrdersClient struct {
	baseURL    string
	apiKey     string
	pageSize   int
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewOrdersClient creates an order API client from configuration.
func NewOrdersClient(cfg config.APIConfig, logger *slog.Logger) *OrdersClient {
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.PageDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &OrdersClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.Key,
		pageSize:   cfg.PageSize,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		logger:     logger,
	}
}

// apiResponse is one page of the order API.
type apiResponse struct {
	Total  *int       `json:"total"`
	Orders []apiOrder `json:"orders"`
}

type apiOrder struct {
	ID          flexString  `json:"id"`
	ERPID       flexString  `json:"erpId"`
	PackID      flexString  `json:"packId"`
	DateCreated string      `json:"dateCreated"`
	ChannelName string      `json:"channelName"`
	Channel     flexString  `json:"channel"`
	Status      string      `json:"status"`
	Shipping    apiShipping `json:"shipping"`
	Items       []apiItem   `json:"order_items"`
}

type apiShipping struct {
	ShippingNumber string `json:"shipping_number"`
	LogisticType   string `json:"logistic_type"`
}

type apiItem struct {
	Item      apiItemDetail `json:"item"`
	UnitPrice flexString    `json:"unit_price"`
	Quantity  flexString    `json:"quantity"`
}

type apiItemDetail struct {
	SellerCustomField string `json:"seller_custom_field"`
	Title             string `json:"title"`
}

// flexString accepts JSON strings and numbers; order ids arrive as either
// depending on the channel.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// FetchOrders pages through the API for the inclusive [from, to] date
// window and flattens each order's items into source rows. It returns the
// rows, the number of HTTP requests made, and an error only when nothing
// could be fetched at all; a failure part-way degrades to the pages already
// loaded.
func (c *OrdersClient) FetchOrders(ctx context.Context, from, to time.Time) ([]domain.SourceRow, int, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, to.Location())

	var rows []domain.SourceRow
	requests := 0
	totalPages := -1

	for page := 1; ; page++ {
		if totalPages >= 0 && page > totalPages {
			c.logger.Info("page exceeds computed total, pagination done",
				slog.Int("page", page), slog.Int("total_pages", totalPages))
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return rows, requests, err
		}

		resp, n, err := c.fetchPage(ctx, page, start.Unix(), end.Unix())
		requests += n
		if err != nil {
			if page == 1 && len(rows) == 0 {
				return nil, requests, fmt.Errorf("order API fetch failed: %w", err)
			}
			c.logger.Warn("order API fetch failed mid-run, proceeding with pages already loaded",
				slog.Int("page", page),
				slog.String("error", err.Error()))
			break
		}

		if page == 1 {
			if resp.Total != nil {
				totalPages = (*resp.Total + c.pageSize - 1) / c.pageSize
				c.logger.Info("order API reports total",
					slog.Int("records", *resp.Total),
					slog.Int("pages", totalPages))
			} else {
				c.logger.Warn("order API response has no total field, paginating until empty")
			}
		}
		if len(resp.Orders) == 0 {
			break
		}
		for _, order := range resp.Orders {
			rows = append(rows, flattenOrder(order)...)
		}
	}

	c.logger.Info("order API rows loaded",
		slog.Int("rows", len(rows)),
		slog.Int("requests", requests))
	return rows, requests, nil
}

// fetchPage requests one page, retrying transient failures with capped
// exponential backoff. It returns the parsed page and the number of
// requests spent on it.
func (c *OrdersClient) fetchPage(ctx context.Context, page int, tsFrom, tsTo int64) (*apiResponse, int, error) {
	url := fmt.Sprintf("%s?page=%d&limit=%d&structureType=complete&timestampFrom=%d&timestampTo=%d",
		c.baseURL, page, c.pageSize, tsFrom, tsTo)

	backoff := time.Second
	var lastErr error
	requests := 0

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying order API page",
				slog.Int("page", page),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, requests, ctx.Err()
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, requests, err
		}
		req.Header.Set(apiKeyHeader, c.apiKey)

		requests++
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %s", resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, requests, fmt.Errorf("unexpected status %s", resp.Status)
		}

		var parsed apiResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to decode page %d: %w", page, err)
			continue
		}
		return &parsed, requests, nil
	}
	return nil, requests, lastErr
}

// flattenOrder turns one API order into one source row per item. An order
// without items still yields one placeholder row so the order is not lost.
func flattenOrder(order apiOrder) []domain.SourceRow {
	var date, clock string
	if order.DateCreated != "" {
		if t, err := time.Parse(time.RFC3339, order.DateCreated); err == nil {
			date = t.Format("02/01/2006")
			clock = t.Format("15:04:05")
		}
	}

	items := order.Items
	if len(items) == 0 {
		items = []apiItem{{}}
	}

	rows := make([]domain.SourceRow, 0, len(items))
	for _, item := range items {
		sku := item.Item.SellerCustomField
		if sku == "" {
			sku = "N/A"
		}
		title := item.Item.Title
		if title == "" {
			title = "N/A"
		}
		rows = append(rows, domain.SourceRow{
			OrderNumber:    string(order.ID),
			ERPOrderNumber: string(order.ERPID),
			CartNumber:     string(order.PackID),
			OrderDate:      date,
			OrderTime:      clock,
			Store:          order.ChannelName,
			SKU:            sku,
			Title:          title,
			ChannelID:      string(order.Channel),
			Tracking:       order.Shipping.ShippingNumber,
			Status:         order.Status,
			Logistics:      order.Shipping.LogisticType,
			UnitPrice:      string(item.UnitPrice),
			Quantity:       string(item.Quantity),
			Source:         domain.SourceAPI,
		})
	}
	return rows
}
