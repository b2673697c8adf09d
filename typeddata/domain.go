package typeddata

import (
	"github.com/colorfulnotion/merkledrop/common"
	"github.com/holiman/uint256"
)

var (
	domainTypeHash = common.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	claimTypeHash  = common.Keccak256([]byte("Claim(address recipient,uint256 amount)"))
)

// Domain binds signatures to a system name, a version, an execution chain
// and one deployed distributor instance. A signature produced against one
// domain is worthless against any other.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address

	separator common.Hash
}

// NewDomain computes the domain separator once; it is reused for every
// digest the domain produces.
func NewDomain(name, version string, chainID uint64, verifyingContract common.Address) *Domain {
	d := &Domain{
		Name:              name,
		Version:           version,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
	d.separator = common.Keccak256Concat(
		domainTypeHash.Bytes(),
		common.Keccak256([]byte(name)).Bytes(),
		common.Keccak256([]byte(version)).Bytes(),
		common.LeftPadBytes(common.Uint64ToBytes(chainID), 32),
		common.LeftPadBytes(verifyingContract.Bytes(), 32),
	)
	return d
}

// Separator returns the cached domain separator.
func (d *Domain) Separator() common.Hash {
	return d.separator
}

// ClaimDigest builds the two-stage typed-data digest for (recipient, amount):
// keccak256(0x19 ‖ 0x01 ‖ domainSeparator ‖ structHash). Off-chain signers
// reconstruct exactly these bytes, so the layout is a wire-format contract.
func (d *Domain) ClaimDigest(recipient common.Address, amount *uint256.Int) common.Hash {
	amt := amount.Bytes32()
	structHash := common.Keccak256Concat(
		claimTypeHash.Bytes(),
		common.LeftPadBytes(recipient.Bytes(), 32),
		amt[:],
	)
	return common.Keccak256Concat(
		[]byte{0x19, 0x01},
		d.separator.Bytes(),
		structHash.Bytes(),
	)
}
