package distributor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/droperrors"
	"github.com/colorfulnotion/merkledrop/log"
	"github.com/colorfulnotion/merkledrop/merkle"
	"github.com/colorfulnotion/merkledrop/storage"
	"github.com/colorfulnotion/merkledrop/token"
	"github.com/colorfulnotion/merkledrop/typeddata"
	"github.com/holiman/uint256"
)

// Config fixes the distributor for its lifetime: the Merkle root, the asset
// identifier, the custody pool and the signing domain are all write-once.
type Config struct {
	Root    common.Hash
	Asset   common.Address
	Custody token.Custody
	Domain  *typeddata.Domain

	// StorePath locates the claim ledger database; empty means in-memory.
	StorePath string
}

// ClaimEvent is the notification emitted after a successful claim.
type ClaimEvent struct {
	Recipient common.Address `json:"recipient"`
	Amount    *uint256.Int   `json:"amount"`
	At        time.Time      `json:"at"`
}

// Distributor gates the one-time-claim invariant. Every state mutation is
// funneled through Claim, which runs as a single indivisible unit under one
// mutex: signature check, ledger check, proof check, ledger write, custody
// transfer, in that order.
type Distributor struct {
	mu sync.Mutex

	root      common.Hash
	asset     common.Address
	custody   token.Custody
	domain    *typeddata.Domain
	ledger    *storage.ClaimStore
	startTime time.Time
	events    []ClaimEvent
}

// New opens the claim ledger and fixes the distribution parameters.
func New(cfg Config) (*Distributor, error) {
	if common.IsNilHash(cfg.Root) {
		return nil, errors.New("distributor requires a merkle root")
	}
	if cfg.Custody == nil {
		return nil, errors.New("distributor requires a custody collaborator")
	}
	if cfg.Domain == nil {
		return nil, errors.New("distributor requires a signing domain")
	}
	ledger, err := storage.NewClaimStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	d := &Distributor{
		root:      cfg.Root,
		asset:     cfg.Asset,
		custody:   cfg.Custody,
		domain:    cfg.Domain,
		ledger:    ledger,
		startTime: time.Now(),
	}
	log.Info(log.ClaimMonitoring, "distributor initialized",
		"root", d.root.String_short(), "asset", d.asset.Hex(), "chainId", cfg.Domain.ChainID)
	return d, nil
}

// MessageHash exposes the exact digest a recipient must sign for
// (recipient, amount); wallets use it to reconstruct the signing bytes.
func (d *Distributor) MessageHash(recipient common.Address, amount *uint256.Int) common.Hash {
	return d.domain.ClaimDigest(recipient, amount)
}

// Claim executes the full claim operation for (recipient, amount). Any
// agent may submit it; only the signature determines the outcome. All
// failures abort with no partial effect.
func (d *Distributor) Claim(recipient common.Address, amount *uint256.Int, proof []common.Hash, v byte, r common.Hash, s common.Hash) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	digest := d.domain.ClaimDigest(recipient, amount)
	if !typeddata.VerifySignature(recipient, digest, v, r, s) {
		return d.reject(recipient, droperrors.ErrInvalidSignature)
	}

	claimed, err := d.ledger.HasClaimed(recipient)
	if err != nil {
		return err
	}
	if claimed {
		return d.reject(recipient, droperrors.ErrAlreadyClaimed)
	}

	leaf := merkle.LeafHash(recipient, amount)
	if !merkle.VerifyProof(proof, d.root, leaf) {
		return d.reject(recipient, droperrors.ErrInvalidProof)
	}

	// Ledger write happens-before the external transfer
	// (checks-effects-interactions).
	if err := d.ledger.MarkClaimed(recipient); err != nil {
		return err
	}
	if err := d.custody.Transfer(recipient, amount); err != nil {
		if revertErr := d.ledger.RevertClaim(recipient); revertErr != nil {
			// The ledger now disagrees with custody; surface both.
			return fmt.Errorf("transfer failed (%v) and ledger revert failed: %w", err, revertErr)
		}
		return fmt.Errorf("custody transfer: %w", err)
	}

	event := ClaimEvent{Recipient: recipient, Amount: amount, At: time.Now()}
	d.events = append(d.events, event)
	log.Info(log.ClaimMonitoring, "ClaimSucceeded",
		"recipient", recipient.Hex(), "amount", amount.Dec())
	return nil
}

// reject logs and returns a terminal claim error.
func (d *Distributor) reject(recipient common.Address, err error) error {
	log.Debug(log.ClaimMonitoring, "claim rejected",
		"recipient", recipient.Hex(), "reason", droperrors.GetErrorName(err))
	return err
}

// MerkleRoot returns the root fixed at initialization.
func (d *Distributor) MerkleRoot() common.Hash {
	return d.root
}

// Asset returns the custody/asset identifier fixed at initialization.
func (d *Distributor) Asset() common.Address {
	return d.asset
}

// HasClaimed reports the recipient's ledger flag.
func (d *Distributor) HasClaimed(addr common.Address) (bool, error) {
	return d.ledger.HasClaimed(addr)
}

// Recipients returns the append-only record of claimed addresses.
func (d *Distributor) Recipients() ([]common.Address, error) {
	return d.ledger.Recipients()
}

// Elapsed returns the time since initialization.
func (d *Distributor) Elapsed() time.Duration {
	return time.Since(d.startTime)
}

// Events returns a copy of the ClaimSucceeded notifications emitted so far.
func (d *Distributor) Events() []ClaimEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ClaimEvent, len(d.events))
	copy(out, d.events)
	return out
}

// Close releases the underlying claim ledger.
func (d *Distributor) Close() error {
	return d.ledger.Close()
}
