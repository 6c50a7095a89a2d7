package dex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"alpha-sniper/internal/errors"
)

// RaydiumConfig holds Raydium trade API client configuration.
type RaydiumConfig struct {
	BaseURL       string
	RPCURL        string
	UserPublicKey string
	Timeout       time.Duration
	RequestsPerS  float64
}

// RaydiumVenue is a swap venue backed by the Raydium trade API. It sits
// after Jupiter in the default failover order.
type RaydiumVenue struct {
	httpVenue
	cfg RaydiumConfig
}

// NewRaydiumVenue creates a Raydium venue client.
func NewRaydiumVenue(cfg RaydiumConfig) *RaydiumVenue {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://transaction-v1.raydium.io"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerS == 0 {
		cfg.RequestsPerS = 2
	}
	return &RaydiumVenue{
		httpVenue: newHTTPVenue("raydium", cfg.Timeout, cfg.RequestsPerS, 2),
		cfg:       cfg,
	}
}

// Name returns the venue name.
func (r *RaydiumVenue) Name() string { return r.name }

// Quote requests a priced route from the compute endpoint.
func (r *RaydiumVenue) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	lamports := int64(req.AmountSOL * lamportsPerSOL)
	q := url.Values{}
	q.Set("inputMint", SOLMint)
	q.Set("outputMint", req.Mint)
	q.Set("amount", strconv.FormatInt(lamports, 10))
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	q.Set("txVersion", "V0")

	httpReq, err := http.NewRequest(http.MethodGet, r.cfg.BaseURL+"/compute/swap-base-in?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.NewEndpointError(r.name, "quote", false, err)
	}

	resp, err := r.do(ctx, "quote", httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewEndpointError(r.name, "quote", false, err)
	}

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			OutputAmount string `json:"outputAmount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.NewEndpointError(r.name, "quote", false, err)
	}
	if !parsed.Success {
		return nil, errors.NewEndpointError(r.name, "quote", false, fmt.Errorf("compute rejected"))
	}

	outAmount, err := strconv.ParseFloat(parsed.Data.OutputAmount, 64)
	if err != nil || outAmount <= 0 {
		return nil, errors.NewEndpointError(r.name, "quote", false,
			fmt.Errorf("quote absent or empty out amount %q", parsed.Data.OutputAmount))
	}

	return &Quote{
		Venue:     r.name,
		Mint:      req.Mint,
		InAmount:  req.AmountSOL,
		OutAmount: outAmount,
		Price:     req.AmountSOL / outAmount,
		Route:     "raydium",
		Taken:     time.Now(),
		Raw:       raw,
	}, nil
}

// Swap requests a serialized swap transaction for a computed quote.
func (r *RaydiumVenue) Swap(ctx context.Context, quote *Quote) (*SwapTransaction, error) {
	body, err := json.Marshal(map[string]interface{}{
		"computeUnitPriceMicroLamports": "1000",
		"swapResponse":                  json.RawMessage(quote.Raw),
		"txVersion":                     "V0",
		"wallet":                        r.cfg.UserPublicKey,
		"wrapSol":                       true,
	})
	if err != nil {
		return nil, errors.NewEndpointError(r.name, "swap", false, err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, r.cfg.BaseURL+"/transaction/swap-base-in", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewEndpointError(r.name, "swap", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.do(ctx, "swap", httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Success bool `json:"success"`
		Data    []struct {
			Transaction string `json:"transaction"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.NewEndpointError(r.name, "swap", false, err)
	}
	if !parsed.Success || len(parsed.Data) == 0 || parsed.Data[0].Transaction == "" {
		return nil, errors.NewEndpointError(r.name, "swap", false, fmt.Errorf("empty swap transaction"))
	}

	return &SwapTransaction{
		Venue:   r.name,
		Mint:    quote.Mint,
		Payload: parsed.Data[0].Transaction,
		Quote:   quote,
	}, nil
}

// Submit broadcasts the signed transaction through the Solana RPC.
func (r *RaydiumVenue) Submit(ctx context.Context, tx *SwapTransaction) (*Submission, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendTransaction",
		"params":  []interface{}{tx.Signed, map[string]interface{}{"encoding": "base64"}},
	})

	httpReq, err := http.NewRequest(http.MethodPost, r.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewEndpointError(r.name, "submit", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.do(ctx, "submit", httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.NewEndpointError(r.name, "submit", false, err)
	}
	if parsed.Error != nil {
		return nil, errors.NewEndpointError(r.name, "submit", false, fmt.Errorf("rpc error: %s", parsed.Error.Message))
	}
	if parsed.Result == "" {
		return nil, errors.NewEndpointError(r.name, "submit", false, fmt.Errorf("empty signature"))
	}
	return &Submission{Signature: parsed.Result, SubmittedAt: time.Now()}, nil
}

// Confirm polls the RPC for the transaction's confirmation status.
func (r *RaydiumVenue) Confirm(ctx context.Context, signature string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "getSignatureStatuses",
		"params":  []interface{}{[]string{signature}},
	})

	httpReq, err := http.NewRequest(http.MethodPost, r.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return errors.NewEndpointError(r.name, "confirm", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.do(ctx, "confirm", httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed struct {
		Result struct {
			Value []*struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return errors.NewEndpointError(r.name, "confirm", false, err)
	}
	if len(parsed.Result.Value) == 0 || parsed.Result.Value[0] == nil {
		return errors.NewEndpointError(r.name, "confirm", false, fmt.Errorf("signature %s not found", signature))
	}
	if parsed.Result.Value[0].Err != nil {
		return errors.NewEndpointError(r.name, "confirm", false,
			fmt.Errorf("transaction failed: %v", parsed.Result.Value[0].Err))
	}
	return nil
}
