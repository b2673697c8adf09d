package typeddata

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/droperrors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var amount25 = uint256.MustFromDecimal("25000000000000000000")

func testDomain() *Domain {
	return NewDomain("MerkleDrop", "1", 1, common.HexToAddress("0x0000000000000000000000000000000000000042"))
}

func newSigner(t *testing.T) (string, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return hex.EncodeToString(crypto.FromECDSA(key)), common.Address(crypto.PubkeyToAddress(key.PublicKey))
}

// Pinned vectors: the two-stage typed-data construction is a wire-format
// contract with wallet tooling.
func TestDomainSeparatorVector(t *testing.T) {
	d := testDomain()
	require.Equal(t, common.HexToHash("0xbc96a03b2a461c1c0c2d4a315f88208408e9f532e65b2de8b721b2468af918fa"), d.Separator())
}

func TestClaimDigestVector(t *testing.T) {
	d := testDomain()
	recipient := common.HexToAddress("0x1111111111111111111111111111111111111111")
	digest := d.ClaimDigest(recipient, amount25)
	require.Equal(t, common.HexToHash("0x1d02646ec5a427eca148b55d9d1fb5ffa4fd86662f4aab0578c43c55161864f1"), digest)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	keyHex, signer := newSigner(t)
	d := testDomain()

	digest, sig, err := SignClaim(keyHex, d, signer, amount25)
	require.NoError(t, err)
	require.Equal(t, d.ClaimDigest(signer, amount25), digest)

	v, r, s, err := SplitSignature(sig)
	require.NoError(t, err)
	require.True(t, v == 27 || v == 28)
	require.True(t, VerifySignature(signer, digest, v, r, s))

	recovered, err := RecoverSigner(digest, v, r, s)
	require.NoError(t, err)
	require.Equal(t, signer, recovered)
}

func TestWrongSignerRejected(t *testing.T) {
	keyHex, _ := newSigner(t)
	_, victim := newSigner(t)
	d := testDomain()

	// a stranger signs the victim's claim message
	digest, sig, err := SignClaim(keyHex, d, victim, amount25)
	require.NoError(t, err)
	v, r, s, err := SplitSignature(sig)
	require.NoError(t, err)
	require.False(t, VerifySignature(victim, digest, v, r, s))
}

func TestMalleableCounterpartRejected(t *testing.T) {
	keyHex, signer := newSigner(t)
	d := testDomain()

	digest, sig, err := SignClaim(keyHex, d, signer, amount25)
	require.NoError(t, err)
	v, r, s, err := SplitSignature(sig)
	require.NoError(t, err)
	require.True(t, VerifySignature(signer, digest, v, r, s))

	// flip the recovery id and complement s: the counterpart is a valid
	// curve signature for the same message but must not validate
	n := crypto.S256().Params().N
	sPrime := new(big.Int).Sub(n, new(big.Int).SetBytes(s.Bytes()))
	vPrime := byte(27)
	if v == 27 {
		vPrime = 28
	}
	var sPrimeHash common.Hash
	sPrime.FillBytes(sPrimeHash[:])
	require.False(t, VerifySignature(signer, digest, vPrime, r, sPrimeHash))
}

func TestRecoveryIdOutOfRange(t *testing.T) {
	keyHex, signer := newSigner(t)
	d := testDomain()

	digest, sig, err := SignClaim(keyHex, d, signer, amount25)
	require.NoError(t, err)
	_, r, s, err := SplitSignature(sig)
	require.NoError(t, err)
	for _, v := range []byte{0, 1, 26, 29, 255} {
		require.False(t, VerifySignature(signer, digest, v, r, s), "v=%d", v)
	}
}

func TestSplitSignatureLength(t *testing.T) {
	_, _, _, err := SplitSignature(make([]byte, 64))
	require.ErrorIs(t, err, droperrors.ErrInvalidSignatureLength)
	_, _, _, err = SplitSignature(make([]byte, 66))
	require.ErrorIs(t, err, droperrors.ErrInvalidSignatureLength)
	_, _, _, err = SplitSignature(nil)
	require.ErrorIs(t, err, droperrors.ErrInvalidSignatureLength)
}

func TestSignatureBoundToInstance(t *testing.T) {
	keyHex, signer := newSigner(t)
	d1 := testDomain()
	d2 := NewDomain("MerkleDrop", "1", 1, common.HexToAddress("0x0000000000000000000000000000000000000043"))
	require.NotEqual(t, d1.Separator(), d2.Separator())

	_, sig, err := SignClaim(keyHex, d1, signer, amount25)
	require.NoError(t, err)
	v, r, s, err := SplitSignature(sig)
	require.NoError(t, err)

	// replayed against another deployed instance the digest differs, so
	// recovery yields a different address
	require.False(t, VerifySignature(signer, d2.ClaimDigest(signer, amount25), v, r, s))
}
