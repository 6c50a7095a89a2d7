package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"alpha-sniper/internal/models"
)

const defaultPumpFunWSURL = "wss://pumpportal.fun/api/data"

// PumpFunConfig holds configuration for the pump.fun stream.
type PumpFunConfig struct {
	URL        string
	MaxRetries int
	BaseDelay  time.Duration
}

// PumpFunStream subscribes to new token launches over the pumpportal
// websocket feed and emits one signal per launch event.
type PumpFunStream struct {
	url    string
	conn   *websocket.Conn
	logger zerolog.Logger

	onSignal func(models.TokenSignal)
	onError  func(error)

	connected    bool
	reconnecting bool
	maxRetries   int
	baseDelay    time.Duration

	mu      sync.RWMutex
	writeMu sync.Mutex // protects websocket writes
}

// NewPumpFunStream creates a stream against the pumpportal feed.
func NewPumpFunStream(cfg PumpFunConfig, logger zerolog.Logger) *PumpFunStream {
	url := cfg.URL
	if url == "" {
		url = defaultPumpFunWSURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = time.Second
	}
	return &PumpFunStream{
		url:        url,
		logger:     logger,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Connect dials the feed, subscribes to new token events, and starts the
// read loop. The loop reconnects with exponential backoff on close.
func (p *PumpFunStream) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.connected {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", p.url, err)
	}

	p.mu.Lock()
	p.conn = conn
	p.connected = true
	p.reconnecting = false
	p.mu.Unlock()

	if err := p.subscribe(); err != nil {
		p.Disconnect()
		return err
	}

	go p.readLoop(ctx, conn)
	return nil
}

// Disconnect closes the websocket connection.
func (p *PumpFunStream) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.connected = false
	return nil
}

// OnSignal sets the signal handler.
func (p *PumpFunStream) OnSignal(handler func(models.TokenSignal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSignal = handler
}

// OnError sets the error handler.
func (p *PumpFunStream) OnError(handler func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = handler
}

// IsConnected returns whether the stream is connected.
func (p *PumpFunStream) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *PumpFunStream) subscribe() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	payload := map[string]string{"method": "subscribeNewToken"}
	if err := p.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("subscribing to new tokens: %w", err)
	}
	return nil
}

type pumpFunEvent struct {
	Mint            string  `json:"mint"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	SolInPool       float64 `json:"vSolInBondingCurve"`
	TokensInPool    float64 `json:"vTokensInBondingCurve"`
	MarketCapSOL    float64 `json:"marketCapSol"`
	InitialBuySOL   float64 `json:"solAmount"`
	TransactionType string  `json:"txType"`
}

func (p *PumpFunStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			p.Disconnect()
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			p.mu.Lock()
			wasConnected := p.connected
			p.connected = false
			p.mu.Unlock()

			if wasConnected && ctx.Err() == nil {
				p.emitError(fmt.Errorf("read failed: %w", err))
				go p.reconnect(ctx)
			}
			return
		}

		var event pumpFunEvent
		if err := json.Unmarshal(data, &event); err != nil || event.Mint == "" {
			continue // subscription acks and malformed frames
		}
		p.emit(event)
	}
}

func (p *PumpFunStream) emit(event pumpFunEvent) {
	signal := models.TokenSignal{
		Mint:      event.Mint,
		Symbol:    event.Symbol,
		Liquidity: event.SolInPool,
		MarketCap: event.MarketCapSOL,
		Tags:      []string{"new-launch"},
		Source:    "pumpfun",
		Timestamp: time.Now(),
	}
	if event.TokensInPool > 0 {
		signal.Price = event.SolInPool / event.TokensInPool
	}
	signal = signal.Normalize()

	if err := signal.Validate(); err != nil {
		p.logger.Debug().Err(err).Str("mint", event.Mint).Msg("Skipping invalid launch event")
		return
	}

	p.mu.RLock()
	handler := p.onSignal
	p.mu.RUnlock()
	if handler != nil {
		handler(signal)
	}
}

func (p *PumpFunStream) emitError(err error) {
	p.mu.RLock()
	handler := p.onError
	p.mu.RUnlock()
	if handler != nil {
		go handler(err)
	}
}

func (p *PumpFunStream) reconnect(ctx context.Context) {
	p.mu.Lock()
	if p.reconnecting {
		p.mu.Unlock()
		return
	}
	p.reconnecting = true
	p.mu.Unlock()

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delay := p.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		time.Sleep(delay)

		p.mu.RLock()
		connected := p.connected
		p.mu.RUnlock()
		if connected {
			return
		}

		if err := p.Connect(ctx); err == nil {
			p.logger.Info().Int("attempt", attempt+1).Msg("Stream reconnected")
			return
		}
	}

	p.mu.Lock()
	p.reconnecting = false
	p.mu.Unlock()
	p.emitError(fmt.Errorf("max reconnection attempts reached"))
}

var _ Stream = (*PumpFunStream)(nil)
