// Package hashing links tally snapshots into a SHA-256 chain over the RFC 8785
// canonical form of their totals.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	"eleitoral/contexts/tabulation/tally-service/ports"

	"github.com/gowebpki/jcs"
)

type ChainHasher struct{}

// Canonical returns the JCS form of the totals. Map and field order in the Go
// value never reach the hash.
func (ChainHasher) Canonical(totals entities.Totals) ([]byte, error) {
	raw, err := json.Marshal(totals)
	if err != nil {
		return nil, fmt.Errorf("marshal totals: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize totals: %w", err)
	}
	return canonical, nil
}

// Chain computes hex(sha256(previousHash || JCS(totals))).
func (h ChainHasher) Chain(previousHash string, totals entities.Totals) (string, error) {
	canonical, err := h.Canonical(totals)
	if err != nil {
		return "", err
	}
	digest := sha256.New()
	digest.Write([]byte(previousHash))
	digest.Write(canonical)
	return hex.EncodeToString(digest.Sum(nil)), nil
}

var _ ports.Hasher = ChainHasher{}
