package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// CrossValidatorClient consults an independent discrepancy service over
// HTTP. It implements CrossValidationSignal; an unreachable service is an
// error, which callers treat as "no contradiction" rather than a veto.
type CrossValidatorClient struct {
	baseURL string
	apiKey  string
	client  *RateLimitedHTTPClient
	logger  *logrus.Logger
}

// NewCrossValidatorClient creates an HTTP-backed cross validation signal
func NewCrossValidatorClient(baseURL, apiKey string, clientCfg HTTPClientConfig, logger *logrus.Logger) *CrossValidatorClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &CrossValidatorClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  NewRateLimitedHTTPClient(clientCfg, nil),
		logger:  logger,
	}
}

type crossValidationResponse struct {
	GameID     string `json:"game_id"`
	Correlated bool   `json:"correlated"`
}

// CorrelatedSignal asks the independent service whether it sees the same
// game as actionable
func (c *CrossValidatorClient) CorrelatedSignal(ctx context.Context, gameID string) (bool, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false, fmt.Errorf("invalid cross validation URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/signals/" + url.PathEscape(gameID)
	q := u.Query()
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	resp, err := c.client.Get(ctx, u.String())
	if err != nil {
		return false, fmt.Errorf("cross validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("cross validation status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("reading cross validation response: %w", err)
	}

	var payload crossValidationResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, fmt.Errorf("decoding cross validation response: %w", err)
	}
	return payload.Correlated, nil
}

// Close releases the underlying HTTP client
func (c *CrossValidatorClient) Close() error {
	return c.client.Close()
}
