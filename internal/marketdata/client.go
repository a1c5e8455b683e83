// Package marketdata fetches market snapshots from prediction-market
// platforms. The Gamma client covers discovery and metadata; a caching
// provider sits in front of it for the scan and resolution loops.
package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/pkg/types"
)

const (
	// Platform is the platform name stamped on every market this client
	// returns.
	Platform = "polymarket"

	// MaxBatchSize is the maximum number of markets per API request.
	MaxBatchSize = 100
)

// Client is an HTTP client for the Polymarket Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Gamma API client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// gammaMarket mirrors the Gamma API's market payload. Prices arrive as a
// JSON array encoded inside a string.
type gammaMarket struct {
	ID            string       `json:"id"`
	Question      string       `json:"question"`
	Description   string       `json:"description"`
	Category      string       `json:"category"`
	EndDate       string       `json:"endDate"`
	OutcomePrices string       `json:"outcomePrices"`
	Volume        string       `json:"volume"`
	VolumeNum     *float64     `json:"volumeNum"`
	Liquidity     string       `json:"liquidity"`
	LiquidityNum  *float64     `json:"liquidityNum"`
	Closed        bool         `json:"closed"`
	Outcome       string       `json:"outcome"`
	UpdatedAt     string       `json:"updatedAt"`
	Events        []gammaEvent `json:"events"`
}

type gammaEvent struct {
	Category string `json:"category"`
}

// FetchActiveMarkets fetches open markets with automatic pagination. A
// limit of 0 fetches everything available.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit int) ([]types.Market, error) {
	var (
		all          []types.Market
		offset       int
		fetchAll     = limit == 0
		totalFetched int
	)

	for {
		batch := MaxBatchSize
		if !fetchAll {
			remaining := limit - totalFetched
			if remaining <= 0 {
				break
			}
			if remaining < batch {
				batch = remaining
			}
		}

		page, err := c.fetchPage(ctx, batch, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		all = append(all, page...)
		totalFetched += len(page)

		if len(page) < batch {
			break
		}
		if !fetchAll && totalFetched >= limit {
			break
		}
		offset += batch
	}

	c.logger.Debug("fetched-markets", zap.Int("count", len(all)))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, limit, offset int) ([]types.Market, error) {
	params := url.Values{}
	params.Add("closed", "false")
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("order", "volume24hr")
	params.Add("ascending", "false")

	requestURL := fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	// The Gamma API returns a direct array, not a wrapped object.
	var raw []gammaMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	markets := make([]types.Market, 0, len(raw))
	for i := range raw {
		m, err := parseMarket(&raw[i])
		if err != nil {
			c.logger.Warn("skipping-unparseable-market",
				zap.String("market-id", raw[i].ID),
				zap.Error(err))
			continue
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// FetchMarket fetches a single market by id. Returns ErrMarketNotFound on a
// 404 so callers can distinguish a vanished market from a transport error.
func (c *Client) FetchMarket(ctx context.Context, marketID string) (*types.Market, error) {
	requestURL := fmt.Sprintf("%s/markets/%s", c.baseURL, url.PathEscape(marketID))

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var raw gammaMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	m, err := parseMarket(&raw)
	if err != nil {
		return nil, fmt.Errorf("parse market %s: %w", marketID, err)
	}
	return &m, nil
}

// ErrMarketNotFound is returned when the platform does not know the market.
var ErrMarketNotFound = fmt.Errorf("market not found")

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "prediction-agent/1.0")

	c.logger.Debug("fetching", zap.String("url", requestURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrMarketNotFound
	}
	if resp.StatusCode != http.StatusOK {
		FetchErrorsTotal.Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	FetchesTotal.Inc()
	return body, nil
}

// parseMarket converts a Gamma payload to the internal snapshot model.
func parseMarket(raw *gammaMarket) (types.Market, error) {
	if raw.ID == "" {
		return types.Market{}, fmt.Errorf("missing market id")
	}

	m := types.Market{
		Platform:    Platform,
		MarketID:    raw.ID,
		Question:    raw.Question,
		Description: raw.Description,
		Category:    raw.Category,
		Resolved:    raw.Closed,
	}

	// Fall back to the first event's category when the market has none.
	if m.Category == "" && len(raw.Events) > 0 {
		m.Category = raw.Events[0].Category
	}

	if raw.OutcomePrices != "" {
		var prices []string
		if err := json.Unmarshal([]byte(raw.OutcomePrices), &prices); err != nil {
			return types.Market{}, fmt.Errorf("parse outcome prices: %w", err)
		}
		if len(prices) >= 2 {
			if yes, err := strconv.ParseFloat(prices[0], 64); err == nil {
				m.YesPrice = &yes
			}
			if no, err := strconv.ParseFloat(prices[1], 64); err == nil {
				m.NoPrice = &no
			}
		}
	}

	if raw.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, raw.EndDate); err == nil {
			m.EndDate = &t
		}
	}

	if raw.VolumeNum != nil {
		m.Volume = raw.VolumeNum
	} else if raw.Volume != "" {
		if v, err := strconv.ParseFloat(raw.Volume, 64); err == nil {
			m.Volume = &v
		}
	}
	if raw.LiquidityNum != nil {
		m.Liquidity = raw.LiquidityNum
	} else if raw.Liquidity != "" {
		if v, err := strconv.ParseFloat(raw.Liquidity, 64); err == nil {
			m.Liquidity = &v
		}
	}

	switch raw.Outcome {
	case "yes", "Yes", "YES":
		m.ResolutionOutcome = types.SideYes
	case "no", "No", "NO":
		m.ResolutionOutcome = types.SideNo
	}

	if raw.Closed && raw.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.UpdatedAt); err == nil {
			m.ResolutionDate = &t
		}
	}

	return m, nil
}
