package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/models"
)

// ReconnectConfig controls stream reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// streamUpdate is one provider push: a book refreshing prices for a market
type streamUpdate struct {
	Op        string    `json:"op"`
	GameID    string    `json:"game_id"`
	Market    string    `json:"market"`
	Book      string    `json:"book"`
	Timestamp time.Time `json:"ts"`
	Heartbeat bool      `json:"heartbeat,omitempty"`
	Outcomes  []struct {
		Name      string  `json:"name"`
		Price     float64 `json:"price"`
		Available bool    `json:"available"`
	} `json:"outcomes,omitempty"`
}

// subscribeMessage subscribes the stream to a set of games
type subscribeMessage struct {
	Op      string   `json:"op"`
	APIKey  string   `json:"apiKey"`
	GameIDs []string `json:"gameIds"`
	Markets []string `json:"markets,omitempty"`
}

// StreamFeed maintains a live quote book from a provider websocket and
// serves GetQuotes from that in-memory state. Quote timestamps only ever
// move forward: an update older than the held quote is dropped.
type StreamFeed struct {
	url             string
	apiKey          string
	reconnect       ReconnectConfig
	conn            *websocket.Conn
	mu              sync.RWMutex
	connected       bool
	quotes          map[string]models.OddsQuote // keyed by OddsQuote.Key()
	lastSub         *subscribeMessage
	lastMessageTime time.Time
	logger          *logrus.Logger
}

// NewStreamFeed creates a websocket-backed odds feed
func NewStreamFeed(url, apiKey string, logger *logrus.Logger) *StreamFeed {
	if logger == nil {
		logger = logrus.New()
	}
	return &StreamFeed{
		url:       url,
		apiKey:    apiKey,
		reconnect: DefaultReconnectConfig(),
		quotes:    make(map[string]models.OddsQuote),
		logger:    logger,
	}
}

// Connect establishes the websocket connection
func (s *StreamFeed) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial odds stream: %w", err)
	}

	s.conn = conn
	s.connected = true
	s.lastMessageTime = time.Now()
	return nil
}

// Subscribe registers interest in a set of games and markets
func (s *StreamFeed) Subscribe(gameIDs []string, marketTypes []models.MarketType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return fmt.Errorf("not connected")
	}

	markets := make([]string, len(marketTypes))
	for i, m := range marketTypes {
		markets[i] = string(m)
	}
	msg := subscribeMessage{
		Op:      "subscribe",
		APIKey:  s.apiKey,
		GameIDs: gameIDs,
		Markets: markets,
	}
	s.lastSub = &msg
	return s.conn.WriteJSON(msg)
}

// Listen reads stream messages until the context is cancelled, folding
// updates into the quote book and reconnecting with backoff on failure.
func (s *StreamFeed) Listen(ctx context.Context) error {
	backoff := s.reconnect.InitialBackoff
	retries := 0

	// A blocked ReadMessage only returns when the connection dies, so
	// cancellation tears the connection down from the side.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.close()
		case <-done:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.close()
			return ctx.Err()
		default:
		}

		messageType, data, err := s.readMessage()
		if err != nil {
			s.logger.WithError(err).Warn("Odds stream read failed")
			s.close()

			retries++
			if s.reconnect.MaxRetries > 0 && retries > s.reconnect.MaxRetries {
				return fmt.Errorf("odds stream reconnect retries exhausted: %w", err)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * s.reconnect.BackoffMultiplier)
			if backoff > s.reconnect.MaxBackoff {
				backoff = s.reconnect.MaxBackoff
			}

			if err := s.Connect(ctx); err != nil {
				continue
			}
			s.resubscribe()
			retries = 0
			backoff = s.reconnect.InitialBackoff
			continue
		}

		if messageType != websocket.TextMessage {
			continue
		}
		s.handleMessage(data)
	}
}

func (s *StreamFeed) readMessage() (int, []byte, error) {
	s.mu.RLock()
	conn := s.conn
	connected := s.connected
	s.mu.RUnlock()

	if !connected || conn == nil {
		return 0, nil, fmt.Errorf("not connected")
	}
	return conn.ReadMessage()
}

func (s *StreamFeed) handleMessage(data []byte) {
	var update streamUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		s.logger.WithError(err).Debug("Dropping malformed stream message")
		return
	}
	if update.Heartbeat || update.Op != "update" {
		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()
		return
	}

	marketType, ok := parseMarketKey(update.Market)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMessageTime = time.Now()

	for _, outcome := range update.Outcomes {
		if outcome.Price == 0 {
			continue
		}
		quote := models.OddsQuote{
			GameID:       update.GameID,
			MarketType:   marketType,
			Outcome:      outcome.Name,
			Book:         update.Book,
			AmericanOdds: outcome.Price,
			Timestamp:    update.Timestamp,
			Available:    outcome.Available,
		}
		key := quote.Key()
		if held, exists := s.quotes[key]; exists && held.Timestamp.After(quote.Timestamp) {
			continue
		}
		s.quotes[key] = quote
	}
}

// GetQuotes serves the held quotes for a game from the in-memory book
func (s *StreamFeed) GetQuotes(ctx context.Context, gameID string, marketTypes []models.MarketType) ([]models.OddsQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return nil, NewUnavailableError(gameID, "stream not connected", nil)
	}

	wanted := make(map[models.MarketType]bool, len(marketTypes))
	for _, m := range marketTypes {
		wanted[m] = true
	}

	var quotes []models.OddsQuote
	for _, quote := range s.quotes {
		if quote.GameID == gameID && wanted[quote.MarketType] {
			quotes = append(quotes, quote)
		}
	}
	return quotes, nil
}

// LastUpdateTime reports the freshest held quote for a book's market,
// which lets the stream act as the validator's latency oracle.
func (s *StreamFeed) LastUpdateTime(book, gameID string, marketType models.MarketType) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, quote := range s.quotes {
		if quote.Book != book || quote.GameID != gameID || quote.MarketType != marketType {
			continue
		}
		if quote.Timestamp.After(latest) {
			latest = quote.Timestamp
		}
		found = true
	}
	return latest, found
}

// LastMessageTime returns when the stream last heard from the provider
func (s *StreamFeed) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// resubscribe replays the last subscription after a reconnect
func (s *StreamFeed) resubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSub == nil || !s.connected {
		return
	}
	if err := s.conn.WriteJSON(*s.lastSub); err != nil {
		s.logger.WithError(err).Warn("Failed to resubscribe after reconnect")
	}
}

func (s *StreamFeed) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connected = false
}
