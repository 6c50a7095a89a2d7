package dex

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// WalletSigner signs serialized Solana transactions with a local ed25519
// keypair. The fee payer is always the first required signature, so the
// signature lands in slot zero.
type WalletSigner struct {
	key ed25519.PrivateKey
}

// NewWalletSigner creates a signer from a base58-encoded private key.
// Accepts the 64-byte keypair form exported by most wallets, or a
// 32-byte seed.
func NewWalletSigner(encoded string) (*WalletSigner, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return &WalletSigner{key: ed25519.PrivateKey(raw)}, nil
	case ed25519.SeedSize:
		return &WalletSigner{key: ed25519.NewKeyFromSeed(raw)}, nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}
}

// PublicKey returns the base58 wallet address.
func (s *WalletSigner) PublicKey() string {
	return base58.Encode(s.key.Public().(ed25519.PublicKey))
}

// Sign takes a base64 serialized transaction, signs its message, and
// returns the transaction with the fee payer signature filled in. Works
// for both legacy and versioned transactions since the message bytes
// follow the signature block either way.
func (s *WalletSigner) Sign(ctx context.Context, payload string) (string, error) {
	tx, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decoding transaction: %w", err)
	}

	sigCount, offset, err := decodeCompactU16(tx)
	if err != nil {
		return "", fmt.Errorf("parsing signature count: %w", err)
	}
	if sigCount == 0 {
		return "", fmt.Errorf("transaction requires no signatures")
	}

	msgStart := offset + sigCount*ed25519.SignatureSize
	if msgStart >= len(tx) {
		return "", fmt.Errorf("transaction truncated: %d bytes, message at %d", len(tx), msgStart)
	}

	sig := ed25519.Sign(s.key, tx[msgStart:])
	copy(tx[offset:offset+ed25519.SignatureSize], sig)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// decodeCompactU16 reads a Solana compact-u16 length prefix.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("unexpected end of data")
		}
		b := int(data[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 overflow")
}

var _ Signer = (*WalletSigner)(nil)
