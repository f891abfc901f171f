package libkh

import (
	"bytes"
	"hash/maphash"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/pkg/errors"
)

// LinkSet reports whether a canonical link string has been seen before.
type LinkSet interface {

	// TryAdd adds link and reports whether it was not already present.
	TryAdd(link string) (bool, error)

	// Close drops every link added.  The set may be used again afterwards.
	Close()
}

// NewLinkSet returns a LinkSet keeping links as keys of an in-memory badger db, opened on first use.
func NewLinkSet() LinkSet {
	return &linkSet{}
}

type linkSet struct {
	mu sync.Mutex
	db *badger.DB
}

func (set *linkSet) TryAdd(link string) (bool, error) {
	set.mu.Lock()
	defer set.mu.Unlock()

	if set.db == nil {
		dbOpts := badger.DefaultOptions("").WithInMemory(true)
		dbOpts.Logger = nil
		dbOpts.MetricsEnabled = false

		db, err := badger.Open(dbOpts)
		if err != nil {
			return false, errors.Wrapf(khoca.ErrResourceLimitExceeded, "opening link set: %v", err)
		}
		set.db = db
	}

	key := []byte(link)
	added := false
	err := set.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err != badger.ErrKeyNotFound {
			return err
		}
		added = true
		return txn.Set(key, nil)
	})
	if err != nil {
		return false, errors.Wrapf(khoca.ErrInternalInconsistency, "link set: %v", err)
	}
	return added, nil
}

func (set *linkSet) Close() {
	set.mu.Lock()
	defer set.mu.Unlock()
	if set.db != nil {
		set.db.Close()
		set.db = nil
	}
}

// ResultCache holds computed results by key; khoca.Catalog is the persistent implementation.
type ResultCache interface {
	khoca.ResultAdder
	Lookup(key khoca.CatalogKey) (*khoca.VariantResult, bool)
}

// resultMemo is an in-process ResultCache: an open-addressed hash map whose keys are backed by a shared pool.
type resultMemo struct {
	mu        sync.Mutex
	hashMap   map[uint64]memoEntry
	seed      maphash.Seed
	bufPool   []byte
	bufPoolSz int
	poolSz    int
}

type memoEntry struct {
	key []byte
	vr  *khoca.VariantResult
}

const DefaultPoolSz = 32 * 1024

func NewResultMemo() ResultCache {
	return &resultMemo{
		hashMap: make(map[uint64]memoEntry),
		seed:    maphash.MakeSeed(),
		poolSz:  DefaultPoolSz,
	}
}

func memoKey(buf []byte, key khoca.CatalogKey) []byte {
	for _, field := range []string{key.Ring, key.Algebra, key.Root, key.Link} {
		buf = append(buf, field...)
		buf = append(buf, 0)
	}
	return append(buf, key.Variant.Code())
}

// find returns the slot holding key, or the free slot where it belongs.
func (memo *resultMemo) find(key []byte) (uint64, bool) {
	var hasher maphash.Hash
	hasher.SetSeed(memo.seed)
	hasher.Write(key)
	hash := hasher.Sum64()

	existing, found := memo.hashMap[hash]
	for found {
		if bytes.Equal(existing.key, key) {
			return hash, true
		}
		hash++
		existing, found = memo.hashMap[hash]
	}
	return hash, false
}

func (memo *resultMemo) Lookup(key khoca.CatalogKey) (*khoca.VariantResult, bool) {
	var keyBuf [256]byte
	k := memoKey(keyBuf[:0], key)

	memo.mu.Lock()
	defer memo.mu.Unlock()
	if hash, found := memo.find(k); found {
		return memo.hashMap[hash].vr, true
	}
	return nil, false
}

func (memo *resultMemo) TryAdd(key khoca.CatalogKey, vr *khoca.VariantResult) bool {
	var keyBuf [256]byte
	k := memoKey(keyBuf[:0], key)

	memo.mu.Lock()
	defer memo.mu.Unlock()

	hash, found := memo.find(k)
	if found {
		return false
	}

	// Place a copy of the key in the backing pool, starting a new pool when this one is full
	pos := memo.bufPoolSz
	itemLen := len(k)
	if pos+itemLen > cap(memo.bufPool) {
		allocSz := max(memo.poolSz, itemLen)
		memo.bufPool = make([]byte, allocSz)
		memo.bufPoolSz = 0
		pos = 0
	}
	memo.hashMap[hash] = memoEntry{
		key: append(memo.bufPool[pos:pos], k...),
		vr:  vr,
	}
	memo.bufPoolSz += itemLen
	return true
}
