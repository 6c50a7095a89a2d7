package dex

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// PaperVenue simulates a swap venue for paper trading and tests.
// Fills are deterministic: the quote prices off the request's reference
// price with a fixed slippage haircut.
type PaperVenue struct {
	name        string
	slippage    float64 // fraction of reference price lost to slippage
	mark        float64 // pinned market price; 0 prices off the request
	quoteErr    error
	swapErr     error
	submitErr   error
	confirmErr  error
	mu          sync.Mutex
	counter     int
	submissions map[string]*SwapTransaction
}

// NewPaperVenue creates a paper venue with a 1% simulated slippage.
func NewPaperVenue(name string) *PaperVenue {
	if name == "" {
		name = "paper"
	}
	return &PaperVenue{
		name:        name,
		slippage:    0.01,
		submissions: make(map[string]*SwapTransaction),
	}
}

// FailWith injects errors per step; a nil error clears the injection.
// Steps: quote, swap, submit, confirm.
func (p *PaperVenue) FailWith(step string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch step {
	case "quote":
		p.quoteErr = err
	case "swap":
		p.swapErr = err
	case "submit":
		p.submitErr = err
	case "confirm":
		p.confirmErr = err
	}
}

// SetMark pins the simulated market price. Zero reverts to pricing off
// each request's reference price.
func (p *PaperVenue) SetMark(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mark = price
}

// Name returns the venue name.
func (p *PaperVenue) Name() string { return p.name }

// Quote simulates a fill at the reference price less slippage.
func (p *PaperVenue) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}

	price := p.mark
	if price <= 0 {
		price = req.ReferencePrice
	}
	if price <= 0 {
		return nil, fmt.Errorf("paper venue requires a reference price")
	}
	fill := price * (1 + p.slippage)
	return &Quote{
		Venue:     p.name,
		Mint:      req.Mint,
		InAmount:  req.AmountSOL,
		OutAmount: req.AmountSOL / fill,
		Price:     fill,
		Route:     "paper",
		Taken:     time.Now(),
	}, nil
}

// Swap builds a synthetic transaction payload.
func (p *PaperVenue) Swap(ctx context.Context, quote *Quote) (*SwapTransaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.swapErr != nil {
		return nil, p.swapErr
	}
	payload := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("paper:%s:%f", quote.Mint, quote.InAmount)))
	return &SwapTransaction{
		Venue:   p.name,
		Mint:    quote.Mint,
		Payload: payload,
		Quote:   quote,
	}, nil
}

// Submit records the transaction and returns a synthetic signature.
func (p *PaperVenue) Submit(ctx context.Context, tx *SwapTransaction) (*Submission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitErr != nil {
		return nil, p.submitErr
	}
	p.counter++
	signature := fmt.Sprintf("paper-%s-%d", tx.Mint, p.counter)
	p.submissions[signature] = tx
	return &Submission{Signature: signature, SubmittedAt: time.Now()}, nil
}

// Confirm succeeds for any signature this venue produced.
func (p *PaperVenue) Confirm(ctx context.Context, signature string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.confirmErr != nil {
		return p.confirmErr
	}
	if _, ok := p.submissions[signature]; !ok {
		return fmt.Errorf("unknown signature %s", signature)
	}
	return nil
}

// Submissions returns the number of submitted transactions.
func (p *PaperVenue) Submissions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.submissions)
}

// PaperSigner signs payloads for simulated venues.
type PaperSigner struct{}

// Sign returns the payload marked as signed.
func (PaperSigner) Sign(ctx context.Context, payload string) (string, error) {
	return "signed:" + payload, nil
}
