// Package solana holds small helpers for Solana address handling shared by
// the discovery and sanitization stages.
package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// WSOLMint is the wrapped SOL mint address.
const WSOLMint = "So11111111111111111111111111111111111111112"

// AddressLen is the raw byte length of a Solana public key.
const AddressLen = 32

// DecodeAddress decodes a base58 address and checks it is exactly 32 bytes.
func DecodeAddress(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != AddressLen {
		return nil, fmt.Errorf("address %q: %d bytes, want %d", addr, len(raw), AddressLen)
	}
	return raw, nil
}

// ValidMint reports whether addr is a plausible mint address: base58 text
// decoding to exactly 32 bytes. Mints are PDAs on some launchpads, so no
// on-curve requirement applies.
func ValidMint(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

// ValidWallet reports whether addr is a well-formed wallet address: 32 bytes
// of base58 whose point lies on the ed25519 curve. Wallets are keypair
// addresses, so unlike mints they must be on-curve.
func ValidWallet(addr string) bool {
	raw, err := DecodeAddress(addr)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

// CanonicalAddress re-encodes addr through its byte form, normalizing any
// non-canonical base58 spelling. Errors mirror DecodeAddress.
func CanonicalAddress(addr string) (string, error) {
	raw, err := DecodeAddress(addr)
	if err != nil {
		return "", err
	}
	return base58.Encode(raw), nil
}
