package merkle

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/holiman/uint256"
)

// Entitlement is one whitelist row: a recipient and the exact amount it may
// collect. The ordered entitlement list is fixed before tree construction.
type Entitlement struct {
	Recipient common.Address `json:"recipient"`
	Amount    *uint256.Int   `json:"amount"`
}

// ClaimArtifact is the per-entry builder output exchanged with claimants and
// relayers. It is the only interface surface downstream claim submission needs.
type ClaimArtifact struct {
	Recipient common.Address `json:"recipient"`
	Amount    *uint256.Int   `json:"amount"`
	Proof     []common.Hash  `json:"proof"`
	Root      common.Hash    `json:"root"`
	Leaf      common.Hash    `json:"leaf"`
}

// ParseAmount accepts a decimal string or a 0x-prefixed hex string.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		amt, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("bad hex amount %q: %w", s, err)
		}
		return amt, nil
	}
	amt, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("bad decimal amount %q: %w", s, err)
	}
	return amt, nil
}

type whitelistRow struct {
	Recipient common.Address `json:"recipient"`
	Amount    string         `json:"amount"`
}

// LoadWhitelist reads an ordered entitlement list from a JSON file of
// [{"recipient": "0x..", "amount": "25000000000000000000"}, ...].
func LoadWhitelist(path string) ([]Entitlement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading whitelist %s: %w", path, err)
	}
	var rows []whitelistRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing whitelist %s: %w", path, err)
	}
	entitlements := make([]Entitlement, 0, len(rows))
	for i, row := range rows {
		amt, err := ParseAmount(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("whitelist row %d: %w", i, err)
		}
		entitlements = append(entitlements, Entitlement{Recipient: row.Recipient, Amount: amt})
	}
	return entitlements, nil
}

// WriteArtifacts emits the builder output artifact file for out-of-band
// distribution to recipients and relayers.
func WriteArtifacts(path string, artifacts []ClaimArtifact) error {
	data, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadArtifacts reads a builder output artifact file.
func LoadArtifacts(path string) ([]ClaimArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifacts %s: %w", path, err)
	}
	var artifacts []ClaimArtifact
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return nil, fmt.Errorf("parsing artifacts %s: %w", path, err)
	}
	return artifacts, nil
}
