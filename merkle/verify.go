package merkle

import (
	"github.com/colorfulnotion/merkledrop/common"
)

// VerifyProof recomputes a candidate root from leaf and the sibling path and
// compares it to root. Pure function; the caller maps a false result to an
// invalid-proof condition. The fold must mirror the builder exactly:
// sorted-pair keccak at every level.
func VerifyProof(proof []common.Hash, root, leaf common.Hash) bool {
	current := leaf
	for _, sibling := range proof {
		current = hashPair(current, sibling)
	}
	return current == root
}
