// Package dex provides swap venue interfaces and implementations.
package dex

import (
	"context"
	"time"
)

// QuoteRequest asks a venue to price a buy of the given mint.
type QuoteRequest struct {
	Mint        string
	AmountSOL   float64
	SlippageBps int
	// ReferencePrice is the price the decision was made at; venues that
	// simulate fills (paper) price off it, live venues ignore it.
	ReferencePrice float64
}

// Quote is a venue's priced offer for a swap.
type Quote struct {
	Venue     string
	Mint      string
	InAmount  float64 // SOL
	OutAmount float64 // tokens
	Price     float64 // SOL per token
	Route     string
	Taken     time.Time
	// Raw holds the venue's original quote payload; the venue's Swap
	// step round-trips it back to the endpoint unchanged.
	Raw []byte
}

// SwapTransaction is the venue-built transaction for a quote.
type SwapTransaction struct {
	Venue   string
	Mint    string
	Payload string // base64 unsigned transaction
	Signed  string // base64 signed transaction, set by the signer
	Quote   *Quote
}

// Submission is the result of broadcasting a signed transaction.
type Submission struct {
	Signature   string
	SubmittedAt time.Time
}

// Venue is one swap-quoting endpoint in the coordinator's failover list.
type Venue interface {
	Name() string
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
	Swap(ctx context.Context, quote *Quote) (*SwapTransaction, error)
	Submit(ctx context.Context, tx *SwapTransaction) (*Submission, error)
	Confirm(ctx context.Context, signature string) error
}

// Signer signs a swap payload locally before submission. Key management
// lives with an external collaborator; the pipeline only depends on
// this narrow surface.
type Signer interface {
	Sign(ctx context.Context, payload string) (string, error)
}
