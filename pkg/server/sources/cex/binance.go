// Package cex provides price adapters backed by centralized exchange REST APIs.
package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
	"github.com/TejasMate/Quantra-sub003/pkg/server/sources"
	"github.com/TejasMate/Quantra-sub003/pkg/version"
)

const (
	// BinanceKind is the registry key for the Binance adapter.
	BinanceKind = "binance"

	binanceBaseURL  = "https://api.binance.com"
	binanceTimeout  = 10 * time.Second
	defaultDecimals = 8
	historySize     = 64
)

// BinancePriceTicker represents lightweight price data from /ticker/price endpoint
type BinancePriceTicker struct {
	Symbol string `json:"symbol"` // e.g., "ETHUSDT"
	Price  string `json:"price"`  // Current price
}

// BinanceSource reads the spot ticker price of one Binance symbol. Each
// successful read becomes a new round; recent rounds are kept for RoundAt.
type BinanceSource struct {
	name     string
	symbol   string
	apiURL   string
	decimals uint8
	client   *http.Client
	logger   *logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	history []sources.Round
	nextID  uint64
}

var _ sources.Adapter = (*BinanceSource)(nil)

// NewBinanceSource creates a Binance adapter. Required key: symbol.
// Optional: api_url, decimals, timeout.
func NewBinanceSource(name string, config map[string]interface{}) (sources.Adapter, error) {
	symbol := strings.ToUpper(sources.GetString(config, "symbol", ""))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", sources.ErrInvalidConfig)
	}
	decimals, err := sources.GetDecimals(config, "decimals", defaultDecimals)
	if err != nil {
		return nil, err
	}
	timeout, err := sources.GetDuration(config, "timeout", binanceTimeout)
	if err != nil {
		return nil, err
	}

	return &BinanceSource{
		name:     name,
		symbol:   symbol,
		apiURL:   strings.TrimRight(sources.GetString(config, "api_url", binanceBaseURL), "/"),
		decimals: decimals,
		client:   &http.Client{Timeout: timeout},
		logger:   sources.GetLoggerFromConfig(config),
		now:      time.Now,
		nextID:   1,
	}, nil
}

// LatestRound fetches the current ticker price.
func (s *BinanceSource) LatestRound(ctx context.Context) (sources.Round, error) {
	ticker, err := s.fetchTicker(ctx)
	if err != nil {
		return sources.Round{}, err
	}
	if !strings.EqualFold(ticker.Symbol, s.symbol) {
		return sources.Round{}, fmt.Errorf("%w: got symbol %q, want %q", sources.ErrInvalidResponse, ticker.Symbol, s.symbol)
	}

	answer, err := sources.ParseAnswer(ticker.Price, s.decimals)
	if err != nil {
		s.logger.Warn("Failed to parse price", "symbol", s.symbol, "price", ticker.Price, "error", err)
		return sources.Round{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := sources.Round{
		RoundID:   s.nextID,
		Answer:    answer,
		UpdatedAt: s.now(),
		Decimals:  s.decimals,
	}
	s.nextID++
	s.history = append(s.history, r)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	return r, nil
}

// RoundAt returns a previously fetched round. Binance has no round history of
// its own, so only rounds observed by this adapter are available.
func (s *BinanceSource) RoundAt(_ context.Context, roundID uint64) (sources.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.history {
		if r.RoundID == roundID {
			return r, nil
		}
	}
	return sources.Round{}, fmt.Errorf("%w: %s round %d", sources.ErrRoundNotFound, s.name, roundID)
}

// Description returns "BINANCE <symbol>".
func (s *BinanceSource) Description() string { return "BINANCE " + s.symbol }

// Decimals returns the decimals answers are scaled to.
func (s *BinanceSource) Decimals() uint8 { return s.decimals }

// Version returns the adapter version.
func (s *BinanceSource) Version() uint64 { return 1 }

func (s *BinanceSource) fetchTicker(ctx context.Context) (*BinancePriceTicker, error) {
	endpoint := s.apiURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(s.symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", sources.ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var ticker BinancePriceTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, fmt.Errorf("%w: %v", sources.ErrInvalidResponse, err)
	}
	return &ticker, nil
}

func init() {
	sources.Register(BinanceKind, NewBinanceSource)
}
