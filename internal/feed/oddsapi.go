package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/models"
)

// OddsAPIConfig holds configuration for the HTTP odds provider
type OddsAPIConfig struct {
	BaseURL string
	APIKey  string
	Client  HTTPClientConfig
}

// OddsAPIFeed fetches quotes from a JSON odds aggregation API
type OddsAPIFeed struct {
	cfg    OddsAPIConfig
	client *RateLimitedHTTPClient
	logger *logrus.Logger
}

// NewOddsAPIFeed creates an HTTP-backed odds feed
func NewOddsAPIFeed(cfg OddsAPIConfig, logger *logrus.Logger) *OddsAPIFeed {
	if logger == nil {
		logger = logrus.New()
	}
	return &OddsAPIFeed{
		cfg:    cfg,
		client: NewRateLimitedHTTPClient(cfg.Client, nil),
		logger: logger,
	}
}

// apiBookmaker mirrors the provider's per-book payload. Prices arrive as
// strings; they are parsed through decimal to avoid locale surprises.
type apiBookmaker struct {
	Key        string      `json:"key"`
	LastUpdate time.Time   `json:"last_update"`
	Markets    []apiMarket `json:"markets"`
}

type apiMarket struct {
	Key      string       `json:"key"`
	Outcomes []apiOutcome `json:"outcomes"`
}

type apiOutcome struct {
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available *bool  `json:"available,omitempty"`
}

type apiGameOdds struct {
	GameID     string         `json:"game_id"`
	Bookmakers []apiBookmaker `json:"bookmakers"`
}

// GetQuotes fetches every book's quotes for the given game and markets
func (f *OddsAPIFeed) GetQuotes(ctx context.Context, gameID string, marketTypes []models.MarketType) ([]models.OddsQuote, error) {
	endpoint, err := f.buildURL(gameID, marketTypes)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Get(ctx, endpoint)
	if err != nil {
		return nil, NewUnavailableError(gameID, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewRateLimitedError(gameID, parseRetryAfter(resp))
	case resp.StatusCode != http.StatusOK:
		return nil, NewUnavailableError(gameID, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewUnavailableError(gameID, "reading response body", err)
	}

	var payload apiGameOdds
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewUnavailableError(gameID, "decoding response", err)
	}

	return f.toQuotes(gameID, payload), nil
}

func (f *OddsAPIFeed) buildURL(gameID string, marketTypes []models.MarketType) (string, error) {
	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/games/" + url.PathEscape(gameID) + "/odds"

	markets := make([]string, len(marketTypes))
	for i, m := range marketTypes {
		markets[i] = strings.ToLower(string(m))
	}
	q := u.Query()
	q.Set("apiKey", f.cfg.APIKey)
	q.Set("markets", strings.Join(markets, ","))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *OddsAPIFeed) toQuotes(gameID string, payload apiGameOdds) []models.OddsQuote {
	var quotes []models.OddsQuote
	for _, bookmaker := range payload.Bookmakers {
		for _, market := range bookmaker.Markets {
			marketType, ok := parseMarketKey(market.Key)
			if !ok {
				f.logger.WithField("market", market.Key).Debug("Skipping unrecognized market key")
				continue
			}
			for _, outcome := range market.Outcomes {
				price, ok := parsePrice(outcome.Price)
				if !ok {
					f.logger.WithFields(logrus.Fields{
						"book":    bookmaker.Key,
						"outcome": outcome.Name,
						"price":   outcome.Price,
					}).Warn("Dropping quote with unparseable price")
					continue
				}
				available := outcome.Available == nil || *outcome.Available
				quotes = append(quotes, models.OddsQuote{
					GameID:       gameID,
					MarketType:   marketType,
					Outcome:      outcome.Name,
					Book:         bookmaker.Key,
					AmericanOdds: price,
					Timestamp:    bookmaker.LastUpdate,
					Available:    available,
				})
			}
		}
	}
	return quotes
}

// parsePrice parses an American odds string exactly before converting to
// float. Zero odds are dropped here rather than poisoning detection.
func parsePrice(raw string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsZero() {
		return 0, false
	}
	price, _ := d.Float64()
	return price, true
}

func parseMarketKey(key string) (models.MarketType, bool) {
	switch strings.ToLower(key) {
	case "h2h", "moneyline":
		return models.MarketTypeHeadToHead, true
	case "spread", "spreads":
		return models.MarketTypeSpread, true
	case "total", "totals":
		return models.MarketTypeTotal, true
	case "three_way", "3way":
		return models.MarketTypeThreeWay, true
	default:
		return "", false
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 30 * time.Second
}
