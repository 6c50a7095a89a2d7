package dex

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"
)

func newTestSigner(t *testing.T) (*WalletSigner, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := NewWalletSigner(base58.Encode(priv))
	if err != nil {
		t.Fatal(err)
	}
	return signer, pub
}

// buildUnsignedTx serializes a minimal transaction: a compact-u16
// signature count, zeroed signature slots, then the message bytes.
func buildUnsignedTx(sigCount int, message []byte) string {
	tx := append([]byte{byte(sigCount)}, make([]byte, sigCount*ed25519.SignatureSize)...)
	tx = append(tx, message...)
	return base64.StdEncoding.EncodeToString(tx)
}

func TestWalletSignerFillsFeePayerSignature(t *testing.T) {
	signer, pub := newTestSigner(t)
	message := []byte("transfer instruction bytes")

	signed, err := signer.Sign(context.Background(), buildUnsignedTx(1, message))
	if err != nil {
		t.Fatal(err)
	}

	raw, err := base64.StdEncoding.DecodeString(signed)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != 1 {
		t.Fatalf("signature count changed: %d", raw[0])
	}
	sig := raw[1 : 1+ed25519.SignatureSize]
	msg := raw[1+ed25519.SignatureSize:]
	if !bytes.Equal(msg, message) {
		t.Error("message bytes altered by signing")
	}
	if !ed25519.Verify(pub, msg, sig) {
		t.Error("fee payer signature does not verify")
	}
}

func TestWalletSignerMultipleSlots(t *testing.T) {
	signer, pub := newTestSigner(t)
	message := []byte("multisig message")

	signed, err := signer.Sign(context.Background(), buildUnsignedTx(2, message))
	if err != nil {
		t.Fatal(err)
	}

	raw, _ := base64.StdEncoding.DecodeString(signed)
	first := raw[1 : 1+ed25519.SignatureSize]
	second := raw[1+ed25519.SignatureSize : 1+2*ed25519.SignatureSize]

	if !ed25519.Verify(pub, raw[1+2*ed25519.SignatureSize:], first) {
		t.Error("first slot signature does not verify")
	}
	if !bytes.Equal(second, make([]byte, ed25519.SignatureSize)) {
		t.Error("second slot should remain zeroed")
	}
}

func TestWalletSignerRejectsGarbage(t *testing.T) {
	signer, _ := newTestSigner(t)

	if _, err := signer.Sign(context.Background(), "not-base64!!!"); err == nil {
		t.Error("garbage payload accepted")
	}
	if _, err := signer.Sign(context.Background(), buildUnsignedTx(0, nil)); err == nil {
		t.Error("zero-signature transaction accepted")
	}
}

func TestNewWalletSignerKeyForms(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewWalletSigner(base58.Encode(priv)); err != nil {
		t.Errorf("64-byte keypair rejected: %v", err)
	}
	if _, err := NewWalletSigner(base58.Encode(priv.Seed())); err != nil {
		t.Errorf("32-byte seed rejected: %v", err)
	}
	if _, err := NewWalletSigner(base58.Encode([]byte("short"))); err == nil {
		t.Error("short key accepted")
	}
}

func TestPublicKeyMatchesKeypair(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := NewWalletSigner(base58.Encode(priv))
	if err != nil {
		t.Fatal(err)
	}
	if signer.PublicKey() != base58.Encode(pub) {
		t.Error("derived public key does not match keypair")
	}
}
