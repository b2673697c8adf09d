package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/log"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	claimedPrefix   = []byte("claimed:")
	recipientPrefix = []byte("recipient:")
)

// ClaimStore persists the per-recipient claimed flag and the append-only
// recipients record on LevelDB. Flags default to Unclaimed and transition
// to Claimed exactly once; RevertClaim exists only so a failed custody
// transfer can abort atomically.
type ClaimStore struct {
	db *leveldb.DB

	mu      sync.Mutex
	nextSeq uint64
}

// NewClaimStore opens or creates a LevelDB database at the given path.
// If path is empty, uses in-memory storage.
func NewClaimStore(path string) (*ClaimStore, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		memStorage := leveldbstorage.NewMemStorage()
		db, err = leveldb.Open(memStorage, nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open claim store at %s: %w", path, err)
	}

	cs := &ClaimStore{db: db}
	if err := cs.loadSequence(); err != nil {
		db.Close()
		return nil, err
	}
	return cs, nil
}

// NewMemoryClaimStore creates an in-memory ClaimStore for testing.
func NewMemoryClaimStore() (*ClaimStore, error) {
	return NewClaimStore("")
}

// loadSequence recovers the next recipients-record sequence number after a
// restart by scanning the existing index.
func (cs *ClaimStore) loadSequence() error {
	iter := cs.db.NewIterator(util.BytesPrefix(recipientPrefix), nil)
	defer iter.Release()
	var max uint64
	var any bool
	for iter.Next() {
		seq := binary.BigEndian.Uint64(iter.Key()[len(recipientPrefix):])
		if seq >= max {
			max = seq
			any = true
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scanning recipients record: %w", err)
	}
	if any {
		cs.nextSeq = max + 1
	}
	return nil
}

func claimedKey(addr common.Address) []byte {
	return append(append([]byte{}, claimedPrefix...), addr.Bytes()...)
}

func recipientKey(seq uint64) []byte {
	key := make([]byte, len(recipientPrefix)+8)
	copy(key, recipientPrefix)
	binary.BigEndian.PutUint64(key[len(recipientPrefix):], seq)
	return key
}

// HasClaimed reports whether the recipient's flag is already Claimed.
func (cs *ClaimStore) HasClaimed(addr common.Address) (bool, error) {
	_, err := cs.db.Get(claimedKey(addr), nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("HasClaimed %s: %w", addr.Hex(), err)
	}
	return true, nil
}

// MarkClaimed flips the recipient's flag to Claimed and appends the address
// to the recipients record, as one batch.
func (cs *ClaimStore) MarkClaimed(addr common.Address) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	batch := new(leveldb.Batch)
	batch.Put(claimedKey(addr), []byte{1})
	batch.Put(recipientKey(cs.nextSeq), addr.Bytes())
	if err := cs.db.Write(batch, nil); err != nil {
		return fmt.Errorf("MarkClaimed %s: %w", addr.Hex(), err)
	}
	cs.nextSeq++
	log.Trace(log.LedgerMonitoring, "ledger entry claimed", "recipient", addr.Hex(), "seq", cs.nextSeq-1)
	return nil
}

// RevertClaim undoes the most recent MarkClaimed for addr. Only the claim
// operation may call this, and only while unwinding a failed transfer.
func (cs *ClaimStore) RevertClaim(addr common.Address) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	batch := new(leveldb.Batch)
	batch.Delete(claimedKey(addr))
	if cs.nextSeq > 0 {
		batch.Delete(recipientKey(cs.nextSeq - 1))
	}
	if err := cs.db.Write(batch, nil); err != nil {
		return fmt.Errorf("RevertClaim %s: %w", addr.Hex(), err)
	}
	if cs.nextSeq > 0 {
		cs.nextSeq--
	}
	log.Trace(log.LedgerMonitoring, "ledger entry reverted", "recipient", addr.Hex())
	return nil
}

// Recipients returns the append-only record of addresses that successfully
// claimed, in claim order.
func (cs *ClaimStore) Recipients() ([]common.Address, error) {
	iter := cs.db.NewIterator(util.BytesPrefix(recipientPrefix), nil)
	defer iter.Release()

	var recipients []common.Address
	for iter.Next() {
		recipients = append(recipients, common.BytesToAddress(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("Recipients: %w", err)
	}
	return recipients, nil
}

// ClaimedCount returns the number of entries in the recipients record.
func (cs *ClaimStore) ClaimedCount() (int, error) {
	recipients, err := cs.Recipients()
	if err != nil {
		return 0, err
	}
	return len(recipients), nil
}

func (cs *ClaimStore) Close() error {
	return cs.db.Close()
}
