package distributor

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/droperrors"
	"github.com/colorfulnotion/merkledrop/merkle"
	"github.com/colorfulnotion/merkledrop/token"
	"github.com/colorfulnotion/merkledrop/typeddata"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var amount25 = uint256.MustFromDecimal("25000000000000000000")

type fixture struct {
	keys         map[common.Address]string
	entitlements []merkle.Entitlement
	tree         *merkle.DistributionTree
	vault        *token.Vault
	domain       *typeddata.Domain
	dist         *Distributor
}

// newFixture builds the four-recipient whitelist of the reference scenario:
// each of A, B, C, D is entitled to 25e18.
func newFixture(t *testing.T, custody token.Custody) *fixture {
	t.Helper()

	keys := make(map[common.Address]string)
	entitlements := make([]merkle.Entitlement, 0, 4)
	for i := 0; i < 4; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		addr := common.Address(crypto.PubkeyToAddress(key.PublicKey))
		keys[addr] = hex.EncodeToString(crypto.FromECDSA(key))
		entitlements = append(entitlements, merkle.Entitlement{Recipient: addr, Amount: amount25})
	}

	tree, err := merkle.NewDistributionTree(entitlements)
	require.NoError(t, err)

	asset := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	vault := token.NewVault(asset, uint256.MustFromDecimal("100000000000000000000"))
	domain := typeddata.NewDomain("MerkleDrop", "1", 1, common.HexToAddress("0x0000000000000000000000000000000000000042"))

	if custody == nil {
		custody = vault
	}
	dist, err := New(Config{
		Root:    tree.Root(),
		Asset:   asset,
		Custody: custody,
		Domain:  domain,
	})
	require.NoError(t, err)
	t.Cleanup(func() { dist.Close() })

	return &fixture{
		keys:         keys,
		entitlements: entitlements,
		tree:         tree,
		vault:        vault,
		domain:       domain,
		dist:         dist,
	}
}

// signClaim produces the recipient's authorization; any sponsor may then
// submit it.
func (f *fixture) signClaim(t *testing.T, recipient common.Address, amount *uint256.Int) (byte, common.Hash, common.Hash) {
	t.Helper()
	_, sig, err := typeddata.SignClaim(f.keys[recipient], f.domain, recipient, amount)
	require.NoError(t, err)
	v, r, s, err := typeddata.SplitSignature(sig)
	require.NoError(t, err)
	return v, r, s
}

func TestSponsoredClaimEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	b := f.entitlements[1].Recipient
	proofB, err := f.tree.ProofFor(b)
	require.NoError(t, err)
	v, r, s := f.signClaim(t, b, amount25)

	// the submitter's identity never enters Claim; this call stands in for
	// an unrelated sponsor paying the execution cost
	require.NoError(t, f.dist.Claim(b, amount25, proofB, v, r, s))
	require.Equal(t, amount25, f.vault.BalanceOf(b))

	claimed, err := f.dist.HasClaimed(b)
	require.NoError(t, err)
	require.True(t, claimed)

	recipients, err := f.dist.Recipients()
	require.NoError(t, err)
	require.Equal(t, []common.Address{b}, recipients)

	events := f.dist.Events()
	require.Len(t, events, 1)
	require.Equal(t, b, events[0].Recipient)
	require.Equal(t, amount25, events[0].Amount)

	// identical resubmission fails terminally and moves no funds
	err = f.dist.Claim(b, amount25, proofB, v, r, s)
	require.ErrorIs(t, err, droperrors.ErrAlreadyClaimed)
	require.Equal(t, amount25, f.vault.BalanceOf(b))
	require.Len(t, f.dist.Events(), 1)
}

func TestAllRecipientsCanClaimOnce(t *testing.T) {
	f := newFixture(t, nil)
	for _, e := range f.entitlements {
		proof, err := f.tree.ProofFor(e.Recipient)
		require.NoError(t, err)
		v, r, s := f.signClaim(t, e.Recipient, e.Amount)
		require.NoError(t, f.dist.Claim(e.Recipient, e.Amount, proof, v, r, s))
		require.Equal(t, e.Amount, f.vault.BalanceOf(e.Recipient))
	}
	require.True(t, f.vault.PoolBalance().IsZero())

	recipients, err := f.dist.Recipients()
	require.NoError(t, err)
	require.Len(t, recipients, 4)
}

func TestClaimRejectsWrongSigner(t *testing.T) {
	f := newFixture(t, nil)
	b := f.entitlements[1].Recipient
	c := f.entitlements[2].Recipient
	proofB, err := f.tree.ProofFor(b)
	require.NoError(t, err)

	// C signs B's claim message; proof correctness is irrelevant
	_, sig, err := typeddata.SignClaim(f.keys[c], f.domain, b, amount25)
	require.NoError(t, err)
	v, r, s, err := typeddata.SplitSignature(sig)
	require.NoError(t, err)

	err = f.dist.Claim(b, amount25, proofB, v, r, s)
	require.ErrorIs(t, err, droperrors.ErrInvalidSignature)

	claimed, err := f.dist.HasClaimed(b)
	require.NoError(t, err)
	require.False(t, claimed)
	require.True(t, f.vault.BalanceOf(b).IsZero())
}

func TestClaimRejectsWrongProof(t *testing.T) {
	f := newFixture(t, nil)
	b := f.entitlements[1].Recipient

	// a signature over an inflated amount passes the signature gate but the
	// leaf is absent from the tree
	inflated := uint256.MustFromDecimal("50000000000000000000")
	v, r, s := f.signClaim(t, b, inflated)
	proofB, err := f.tree.ProofFor(b)
	require.NoError(t, err)

	err = f.dist.Claim(b, inflated, proofB, v, r, s)
	require.ErrorIs(t, err, droperrors.ErrInvalidProof)

	// swapped proofs fail the same way
	v, r, s = f.signClaim(t, b, amount25)
	proofA, err := f.tree.ProofFor(f.entitlements[0].Recipient)
	require.NoError(t, err)
	err = f.dist.Claim(b, amount25, proofA, v, r, s)
	require.ErrorIs(t, err, droperrors.ErrInvalidProof)

	claimed, err := f.dist.HasClaimed(b)
	require.NoError(t, err)
	require.False(t, claimed)
}

// rejectingCustody fails a configured number of transfers before delegating
// to the real vault.
type rejectingCustody struct {
	inner    token.Custody
	failures int
}

func (rc *rejectingCustody) Transfer(to common.Address, amount *uint256.Int) error {
	if rc.failures > 0 {
		rc.failures--
		return errors.New("transfer rejected")
	}
	return rc.inner.Transfer(to, amount)
}

func (rc *rejectingCustody) BalanceOf(addr common.Address) *uint256.Int {
	return rc.inner.BalanceOf(addr)
}

func TestTransferFailureRollsBackLedger(t *testing.T) {
	asset := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	vault := token.NewVault(asset, uint256.MustFromDecimal("100000000000000000000"))
	custody := &rejectingCustody{inner: vault, failures: 1}
	f := newFixture(t, custody)

	b := f.entitlements[1].Recipient
	proofB, err := f.tree.ProofFor(b)
	require.NoError(t, err)
	v, r, s := f.signClaim(t, b, amount25)

	err = f.dist.Claim(b, amount25, proofB, v, r, s)
	require.Error(t, err)

	// no state where the ledger says Claimed but funds never moved
	claimed, err := f.dist.HasClaimed(b)
	require.NoError(t, err)
	require.False(t, claimed)
	recipients, err := f.dist.Recipients()
	require.NoError(t, err)
	require.Empty(t, recipients)
	require.Empty(t, f.dist.Events())

	// the retry succeeds once custody cooperates
	require.NoError(t, f.dist.Claim(b, amount25, proofB, v, r, s))
	require.Equal(t, amount25, vault.BalanceOf(b))
}

func TestSignatureRejectedAcrossInstances(t *testing.T) {
	f := newFixture(t, nil)
	b := f.entitlements[1].Recipient
	proofB, err := f.tree.ProofFor(b)
	require.NoError(t, err)
	v, r, s := f.signClaim(t, b, amount25)

	// second instance: identical root and asset, different deployed address
	otherDomain := typeddata.NewDomain("MerkleDrop", "1", 1, common.HexToAddress("0x0000000000000000000000000000000000000043"))
	other, err := New(Config{
		Root:    f.tree.Root(),
		Asset:   f.dist.Asset(),
		Custody: f.vault,
		Domain:  otherDomain,
	})
	require.NoError(t, err)
	defer other.Close()

	err = other.Claim(b, amount25, proofB, v, r, s)
	require.ErrorIs(t, err, droperrors.ErrInvalidSignature)

	// the original instance still accepts it
	require.NoError(t, f.dist.Claim(b, amount25, proofB, v, r, s))
}

func TestReadOnlyAccessors(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, f.tree.Root(), f.dist.MerkleRoot())
	require.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000aa"), f.dist.Asset())
	require.GreaterOrEqual(t, f.dist.Elapsed().Nanoseconds(), int64(0))

	b := f.entitlements[1].Recipient
	require.Equal(t, f.domain.ClaimDigest(b, amount25), f.dist.MessageHash(b, amount25))
}

func TestConfigValidation(t *testing.T) {
	f := newFixture(t, nil)
	_, err := New(Config{Asset: f.dist.Asset(), Custody: f.vault, Domain: f.domain})
	require.Error(t, err)
	_, err = New(Config{Root: f.tree.Root(), Domain: f.domain})
	require.Error(t, err)
	_, err = New(Config{Root: f.tree.Root(), Custody: f.vault})
	require.Error(t, err)
}
