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

// SOLMint is the wrapped SOL mint address used as the input side of
// every buy quote.
const SOLMint = "So11111111111111111111111111111111111111112"

const lamportsPerSOL = 1_000_000_000

// JupiterConfig holds Jupiter aggregator client configuration.
type JupiterConfig struct {
	BaseURL       string
	RPCURL        string
	UserPublicKey string
	Timeout       time.Duration
	RequestsPerS  float64
}

// JupiterVenue is a swap venue backed by the Jupiter aggregator API.
type JupiterVenue struct {
	httpVenue
	cfg JupiterConfig
}

// NewJupiterVenue creates a Jupiter venue client.
func NewJupiterVenue(cfg JupiterConfig) *JupiterVenue {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://quote-api.jup.ag/v6"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerS == 0 {
		cfg.RequestsPerS = 2
	}
	return &JupiterVenue{
		httpVenue: newHTTPVenue("jupiter", cfg.Timeout, cfg.RequestsPerS, 2),
		cfg:       cfg,
	}
}

// Name returns the venue name.
func (j *JupiterVenue) Name() string { return j.name }

type jupiterQuoteResponse struct {
	OutAmount string `json:"outAmount"`
	InAmount  string `json:"inAmount"`
	RoutePlan []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// Quote requests a priced route for a SOL to token swap.
func (j *JupiterVenue) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	lamports := int64(req.AmountSOL * lamportsPerSOL)
	q := url.Values{}
	q.Set("inputMint", SOLMint)
	q.Set("outputMint", req.Mint)
	q.Set("amount", strconv.FormatInt(lamports, 10))
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	httpReq, err := http.NewRequest(http.MethodGet, j.cfg.BaseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.NewEndpointError(j.name, "quote", false, err)
	}

	resp, err := j.do(ctx, "quote", httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewEndpointError(j.name, "quote", false, err)
	}

	var parsed jupiterQuoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.NewEndpointError(j.name, "quote", false, err)
	}

	outAmount, err := strconv.ParseFloat(parsed.OutAmount, 64)
	if err != nil || outAmount <= 0 {
		return nil, errors.NewEndpointError(j.name, "quote", false,
			fmt.Errorf("quote absent or empty out amount %q", parsed.OutAmount))
	}

	route := ""
	if len(parsed.RoutePlan) > 0 {
		route = parsed.RoutePlan[0].SwapInfo.Label
	}

	return &Quote{
		Venue:     j.name,
		Mint:      req.Mint,
		InAmount:  req.AmountSOL,
		OutAmount: outAmount,
		Price:     req.AmountSOL / outAmount,
		Route:     route,
		Taken:     time.Now(),
		Raw:       raw,
	}, nil
}

// Swap requests a serialized swap transaction for a quote.
func (j *JupiterVenue) Swap(ctx context.Context, quote *Quote) (*SwapTransaction, error) {
	body, err := json.Marshal(map[string]interface{}{
		"quoteResponse": json.RawMessage(quote.Raw),
		"userPublicKey": j.cfg.UserPublicKey,
	})
	if err != nil {
		return nil, errors.NewEndpointError(j.name, "swap", false, err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, j.cfg.BaseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewEndpointError(j.name, "swap", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := j.do(ctx, "swap", httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.NewEndpointError(j.name, "swap", false, err)
	}
	if parsed.SwapTransaction == "" {
		return nil, errors.NewEndpointError(j.name, "swap", false, fmt.Errorf("empty swap transaction"))
	}

	return &SwapTransaction{
		Venue:   j.name,
		Mint:    quote.Mint,
		Payload: parsed.SwapTransaction,
		Quote:   quote,
	}, nil
}

// Submit broadcasts the signed transaction through the Solana RPC.
func (j *JupiterVenue) Submit(ctx context.Context, tx *SwapTransaction) (*Submission, error) {
	signature, err := j.sendTransaction(ctx, tx.Signed)
	if err != nil {
		return nil, err
	}
	return &Submission{Signature: signature, SubmittedAt: time.Now()}, nil
}

// Confirm polls the RPC for the transaction's confirmation status.
func (j *JupiterVenue) Confirm(ctx context.Context, signature string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "getSignatureStatuses",
		"params":  []interface{}{[]string{signature}},
	})

	httpReq, err := http.NewRequest(http.MethodPost, j.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return errors.NewEndpointError(j.name, "confirm", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := j.do(ctx, "confirm", httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed struct {
		Result struct {
			Value []*struct {
				ConfirmationStatus string `json:"confirmationStatus"`
				Err                interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return errors.NewEndpointError(j.name, "confirm", false, err)
	}
	if len(parsed.Result.Value) == 0 || parsed.Result.Value[0] == nil {
		return errors.NewEndpointError(j.name, "confirm", false, fmt.Errorf("signature %s not found", signature))
	}
	if parsed.Result.Value[0].Err != nil {
		return errors.NewEndpointError(j.name, "confirm", false,
			fmt.Errorf("transaction failed: %v", parsed.Result.Value[0].Err))
	}
	return nil
}

func (j *JupiterVenue) sendTransaction(ctx context.Context, signed string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendTransaction",
		"params":  []interface{}{signed, map[string]interface{}{"encoding": "base64"}},
	})

	httpReq, err := http.NewRequest(http.MethodPost, j.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewEndpointError(j.name, "submit", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := j.do(ctx, "submit", httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.NewEndpointError(j.name, "submit", false, err)
	}
	if parsed.Error != nil {
		return "", errors.NewEndpointError(j.name, "submit", false, fmt.Errorf("rpc error: %s", parsed.Error.Message))
	}
	if parsed.Result == "" {
		return "", errors.NewEndpointError(j.name, "submit", false, fmt.Errorf("empty signature"))
	}
	return parsed.Result, nil
}
