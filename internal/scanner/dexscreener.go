package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"alpha-sniper/internal/errors"
	"alpha-sniper/internal/models"
)

const (
	defaultDexScreenerURL = "https://api.dexscreener.com"
	solanaChainID         = "solana"
)

// DexScreenerConfig holds configuration for the DexScreener scanner.
type DexScreenerConfig struct {
	BaseURL string
	Query   string
	Timeout time.Duration
}

// DexScreenerScanner polls the DexScreener search API for Solana pairs.
type DexScreenerScanner struct {
	baseURL string
	query   string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewDexScreenerScanner creates a scanner against the DexScreener API.
func NewDexScreenerScanner(cfg DexScreenerConfig, logger zerolog.Logger) *DexScreenerScanner {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultDexScreenerURL
	}
	query := cfg.Query
	if query == "" {
		query = solanaChainID
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &DexScreenerScanner{
		baseURL: baseURL,
		query:   query,
		client:  &http.Client{Timeout: timeout},
		// Public API allows 300 req/min; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(3), 3),
		logger:  logger,
	}
}

// Name returns the source identifier stamped on emitted signals.
func (s *DexScreenerScanner) Name() string {
	return "dexscreener"
}

type dexScreenerPair struct {
	ChainID     string `json:"chainId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD    string  `json:"priceUsd"`
	MarketCap   float64 `json:"marketCap"`
	PriceChange struct {
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Labels []string `json:"labels"`
}

type dexScreenerSearchResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

// Scan fetches the current search page and converts Solana pairs into
// signals. Pairs that fail mint validation are skipped, not fatal.
func (s *DexScreenerScanner) Scan(ctx context.Context) ([]models.TokenSignal, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/latest/dex/search?q=%s", s.baseURL, s.query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewEndpointError(s.Name(), "search", false, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewEndpointError(s.Name(), "search", true, fmt.Errorf("http status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, errors.NewEndpointError(s.Name(), "search", false, fmt.Errorf("http status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed dexScreenerSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "decoding search response")
	}

	signals := make([]models.TokenSignal, 0, len(parsed.Pairs))
	for _, pair := range parsed.Pairs {
		if pair.ChainID != solanaChainID {
			continue
		}
		signal := s.convertPair(pair)
		if err := signal.Validate(); err != nil {
			s.logger.Debug().Err(err).Str("mint", pair.BaseToken.Address).Msg("Skipping invalid pair")
			continue
		}
		signals = append(signals, signal)
	}
	return signals, nil
}

func (s *DexScreenerScanner) convertPair(pair dexScreenerPair) models.TokenSignal {
	price, _ := strconv.ParseFloat(pair.PriceUSD, 64)
	signal := models.TokenSignal{
		Mint:           pair.BaseToken.Address,
		Symbol:         pair.BaseToken.Symbol,
		Price:          price,
		Volume24h:      pair.Volume.H24,
		MarketCap:      pair.MarketCap,
		Liquidity:      pair.Liquidity.USD,
		PriceChange1h:  pair.PriceChange.H1,
		PriceChange24h: pair.PriceChange.H24,
		Tags:           pair.Labels,
		Source:         s.Name(),
		Timestamp:      time.Now(),
	}
	return signal.Normalize()
}

var _ Scanner = (*DexScreenerScanner)(nil)
