// Package models defines the core data types shared across the pipeline.
package models

import (
	"time"

	"github.com/mr-tron/base58"

	"alpha-sniper/internal/errors"
)

// Conservative fallbacks applied to missing numeric fields so scoring
// never divides by zero.
const (
	FallbackPrice     = 0.000001
	FallbackMarketCap = 50000
	FallbackLiquidity = 1000
)

// TokenSignal is an immutable snapshot of a candidate token as reported
// by an upstream scanner. Produced once per scan tick, never mutated.
type TokenSignal struct {
	Mint           string
	Symbol         string
	Price          float64
	Volume24h      float64
	MarketCap      float64
	Liquidity      float64
	Holders        int
	PriceChange1h  float64
	PriceChange24h float64
	PriceChange7d  float64
	Tags           []string
	Source         string
	Timestamp      time.Time
}

// Normalize returns a copy of the signal with documented conservative
// fallbacks applied to missing or nonsensical numeric fields.
func (s TokenSignal) Normalize() TokenSignal {
	out := s
	if out.Price <= 0 {
		out.Price = FallbackPrice
	}
	if out.MarketCap <= 0 {
		out.MarketCap = FallbackMarketCap
	}
	if out.Liquidity <= 0 {
		out.Liquidity = FallbackLiquidity
	}
	if out.Volume24h < 0 {
		out.Volume24h = 0
	}
	if out.Holders < 0 {
		out.Holders = 0
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now()
	}
	return out
}

// Validate checks the fields an upstream scanner must supply.
func (s TokenSignal) Validate() error {
	if s.Mint == "" {
		return errors.NewValidationError("mint", s.Mint, "missing token address")
	}
	raw, err := base58.Decode(s.Mint)
	if err != nil {
		return errors.NewValidationError("mint", s.Mint, "not a valid base58 address")
	}
	if len(raw) != 32 {
		return errors.NewValidationError("mint", s.Mint, "decoded address is not 32 bytes")
	}
	if s.Symbol == "" {
		return errors.NewValidationError("symbol", s.Symbol, "missing symbol")
	}
	if s.Source == "" {
		return errors.NewValidationError("source", s.Source, "missing source provenance")
	}
	return nil
}

// HasTag reports whether the signal carries the given qualitative tag.
func (s TokenSignal) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
