package merkle

import (
	"github.com/colorfulnotion/merkledrop/common"
	"github.com/holiman/uint256"
)

// EncodeLeaf produces the canonical 64-byte encoding of one entitlement:
// the recipient left-padded to 32 bytes followed by the big-endian 32-byte
// amount. This byte layout is a wire-format contract shared with the proof
// verifier; changing it invalidates every issued proof.
func EncodeLeaf(recipient common.Address, amount *uint256.Int) []byte {
	buf := make([]byte, 64)
	copy(buf[12:32], recipient.Bytes())
	amt := amount.Bytes32()
	copy(buf[32:], amt[:])
	return buf
}

// LeafHash is keccak256(keccak256(EncodeLeaf(recipient, amount))). The hash
// is applied twice so that a 64-byte internal node preimage can never equal
// a leaf preimage, which blocks second-preimage proof shortening.
func LeafHash(recipient common.Address, amount *uint256.Int) common.Hash {
	inner := common.Keccak256(EncodeLeaf(recipient, amount))
	return common.Keccak256(inner.Bytes())
}
