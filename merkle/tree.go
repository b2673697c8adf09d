package merkle

import (
	"bytes"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/droperrors"
	"github.com/colorfulnotion/merkledrop/log"
)

// DistributionTree is the off-chain Merkle tree over a fixed entitlement
// list. Internal nodes hash byte-lexicographically sorted sibling pairs, so
// proofs carry sibling values only, no left/right positions. An unpaired
// node at an odd-sized level is carried up unchanged.
type DistributionTree struct {
	entitlements []Entitlement
	levels       [][]common.Hash // levels[0] = leaves, last level = [root]
	index        map[common.Address]int
}

// NewDistributionTree builds the tree over the ordered entitlement list.
// Building twice from an identical ordered input yields an identical root
// and identical per-leaf proofs.
func NewDistributionTree(entitlements []Entitlement) (*DistributionTree, error) {
	if len(entitlements) == 0 {
		return nil, droperrors.ErrEmptyWhitelist
	}
	index := make(map[common.Address]int, len(entitlements))
	leaves := make([]common.Hash, len(entitlements))
	for i, e := range entitlements {
		if _, dup := index[e.Recipient]; dup {
			return nil, droperrors.ErrDuplicateRecipient
		}
		index[e.Recipient] = i
		leaves[i] = LeafHash(e.Recipient, e.Amount)
	}

	levels := [][]common.Hash{leaves}
	for current := leaves; len(current) > 1; {
		next := make([]common.Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, hashPair(current[i], current[i+1]))
			} else {
				// odd node: carried up unchanged, no duplication
				next = append(next, current[i])
			}
		}
		levels = append(levels, next)
		current = next
	}

	tree := &DistributionTree{
		entitlements: entitlements,
		levels:       levels,
		index:        index,
	}
	log.Debug(log.TreeMonitoring, "distribution tree built",
		"leaves", len(leaves), "depth", len(levels)-1, "root", tree.Root().String_short())
	return tree, nil
}

// hashPair hashes the sorted concatenation of two sibling nodes.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return common.Keccak256Concat(a.Bytes(), b.Bytes())
}

// Root returns the single top hash.
func (t *DistributionTree) Root() common.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Len returns the number of entitlements in the tree.
func (t *DistributionTree) Len() int {
	return len(t.entitlements)
}

// Leaf returns the leaf hash at index i.
func (t *DistributionTree) Leaf(i int) (common.Hash, error) {
	if i < 0 || i >= len(t.entitlements) {
		return common.Hash{}, droperrors.ErrLeafIndexOutOfRange
	}
	return t.levels[0][i], nil
}

// Proof returns the sibling-hash path from leaf i to the root. A carried-up
// node contributes no sibling at that level, so proof lengths may differ by
// one across leaves of the same tree.
func (t *DistributionTree) Proof(i int) ([]common.Hash, error) {
	if i < 0 || i >= len(t.entitlements) {
		return nil, droperrors.ErrLeafIndexOutOfRange
	}
	proof := make([]common.Hash, 0, len(t.levels)-1)
	for depth := 0; depth < len(t.levels)-1; depth++ {
		level := t.levels[depth]
		sibling := i ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		i /= 2
	}
	return proof, nil
}

// ProofFor returns the proof for the leaf belonging to recipient.
func (t *DistributionTree) ProofFor(recipient common.Address) ([]common.Hash, error) {
	i, ok := t.index[recipient]
	if !ok {
		return nil, droperrors.ErrRecipientNotInTree
	}
	return t.Proof(i)
}

// Artifact assembles the builder output record for entry i.
func (t *DistributionTree) Artifact(i int) (ClaimArtifact, error) {
	proof, err := t.Proof(i)
	if err != nil {
		return ClaimArtifact{}, err
	}
	e := t.entitlements[i]
	return ClaimArtifact{
		Recipient: e.Recipient,
		Amount:    e.Amount,
		Proof:     proof,
		Root:      t.Root(),
		Leaf:      t.levels[0][i],
	}, nil
}

// Artifacts assembles the builder output records for every entry.
func (t *DistributionTree) Artifacts() ([]ClaimArtifact, error) {
	artifacts := make([]ClaimArtifact, len(t.entitlements))
	for i := range t.entitlements {
		a, err := t.Artifact(i)
		if err != nil {
			return nil, err
		}
		artifacts[i] = a
	}
	return artifacts, nil
}
