package typeddata

import (
	"fmt"
	"math/big"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/droperrors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SignatureLength is the raw byte size of a recovery-augmented ECDSA
// signature: 32-byte r, 32-byte s, 1-byte v.
const SignatureLength = 65

// SplitSignature decomposes a raw 65-byte signature buffer into (v, r, s).
// The recovery id is normalized to the 27/28 convention.
func SplitSignature(sig []byte) (v byte, r common.Hash, s common.Hash, err error) {
	if len(sig) != SignatureLength {
		return 0, common.Hash{}, common.Hash{}, droperrors.ErrInvalidSignatureLength
	}
	r = common.BytesToHash(sig[:32])
	s = common.BytesToHash(sig[32:64])
	v = sig[64]
	if v < 27 {
		v += 27
	}
	return v, r, s, nil
}

// RecoverSigner recovers the signing address from (digest, v, r, s).
// Malformed encodings are rejected before recovery: v must be 27 or 28 and
// s must lie in the lower half of the curve order, so the malleable
// counterpart of a valid signature never recovers successfully.
func RecoverSigner(digest common.Hash, v byte, r common.Hash, s common.Hash) (common.Address, error) {
	if v != 27 && v != 28 {
		return common.Address{}, fmt.Errorf("recovery id %d out of range: %w", v, droperrors.ErrInvalidSignature)
	}
	rBig := new(big.Int).SetBytes(r.Bytes())
	sBig := new(big.Int).SetBytes(s.Bytes())
	if !crypto.ValidateSignatureValues(v-27, rBig, sBig, true) {
		return common.Address{}, fmt.Errorf("non-canonical signature values: %w", droperrors.ErrInvalidSignature)
	}
	sig := make([]byte, SignatureLength)
	copy(sig[:32], r.Bytes())
	copy(sig[32:64], s.Bytes())
	sig[64] = v - 27
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("pubkey recovery: %w", droperrors.ErrInvalidSignature)
	}
	return common.Address(crypto.PubkeyToAddress(*pub)), nil
}

// VerifySignature reports whether (digest, v, r, s) was signed by
// expectedSigner.
func VerifySignature(expectedSigner common.Address, digest common.Hash, v byte, r common.Hash, s common.Hash) bool {
	signer, err := RecoverSigner(digest, v, r, s)
	if err != nil {
		return false
	}
	return signer == expectedSigner
}

// SignClaim signs the claim digest for (recipient, amount) under the given
// domain using the provided private key in hex format. It returns the
// digest and the 65-byte signature with v in the 27/28 convention; this is
// the off-chain signer path a wallet would follow.
func SignClaim(privateKeyHex string, domain *Domain, recipient common.Address, amount *uint256.Int) (common.Hash, []byte, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("error converting private key: %v", err)
	}
	digest := domain.ClaimDigest(recipient, amount)
	signature, err := crypto.Sign(digest.Bytes(), privateKey)
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("error signing the digest: %v", err)
	}
	signature[64] += 27
	return digest, signature, nil
}

// SignerAddress derives the address controlled by a hex private key.
func SignerAddress(privateKeyHex string) (common.Address, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("error converting private key: %v", err)
	}
	return common.Address(crypto.PubkeyToAddress(privateKey.PublicKey)), nil
}
