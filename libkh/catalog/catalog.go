// Package catalog is a badger-backed store of computed homologies.
package catalog

import (
	"bytes"
	"runtime"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Catalog database format:

	gCatalogStateKey => CatalogState

	kEntryPrefix, Ring, NUL, Algebra, NUL, Root, NUL, Link, NUL, VariantCode  => EntryRecord

Since each setup field is NUL terminated, a selector naming a setup (or a leading part of one) is a key prefix,
so all results for a given ring / algebra / root are adjacent and in link order.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
)

const (
	kEntryPrefix byte = 0x01

	kMajorVers = 2024
	kMinorVers = 1
)

type catalog struct {
	ctx      khoca.CatalogContext
	readOnly bool

	// dbMu guards the lifetime of db: readers and writers of entries hold it shared, Close exclusively.
	dbMu sync.RWMutex
	db   *badger.DB

	mu         sync.Mutex // guards state
	stateDirty bool
	state      CatalogState
}

// OpenCatalog opens (or creates) a catalog and attaches it to ctx.
// An empty DbPathName opens an in-memory catalog.
func OpenCatalog(ctx khoca.CatalogContext, opts khoca.CatalogOpts) (khoca.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(khoca.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrapf(khoca.ErrBadCatalogParam, "opening catalog %q: %v", opts.DbPathName, err)
	}

	// Once the db is open, the catalog ctx is blocked until the catalog closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = true
		cat.state.MajorVers = kMajorVers
		cat.state.MinorVers = kMinorVers
	}
	if err == nil && (cat.state.MajorVers != kMajorVers || cat.state.MinorVers != kMinorVers) {
		err = errors.Wrapf(khoca.ErrBadCatalogParam, "catalog version %d.%d is incompatible", cat.state.MajorVers, cat.state.MinorVers)
	}
	if err != nil {
		cat.Close()
		return nil, err
	}

	klog.V(1).Infof("catalog: opened %q with %d entries", opts.DbPathName, cat.state.NumEntries)
	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := proto.Unmarshal(val, &cat.state); err != nil {
				return errors.Wrap(khoca.ErrUnmarshal, err.Error())
			}
			return nil
		})
	})
}

func (cat *catalog) flushState() error {
	if !cat.stateDirty || cat.readOnly {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		stateBuf, err := proto.Marshal(&cat.state)
		if err != nil {
			return err
		}
		return txn.Set(gCatalogStateKey, stateBuf)
	})
	if err == nil {
		cat.stateDirty = false
	}
	return err
}

func (cat *catalog) Close() error {
	cat.dbMu.Lock()
	defer cat.dbMu.Unlock()
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if cat.db == nil {
		return nil
	}
	err := cat.flushState()
	if closeErr := cat.db.Close(); err == nil {
		err = closeErr
	}
	cat.db = nil
	cat.ctx.DetachCatalog(cat)
	cat.ctx = nil
	return err
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumEntries() int64 {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	return int64(cat.state.NumEntries)
}

func appendSetup(key []byte, fields ...string) []byte {
	key = append(key, kEntryPrefix)
	for _, field := range fields {
		key = append(key, field...)
		key = append(key, 0)
	}
	return key
}

func formEntryKey(key []byte, k khoca.CatalogKey) []byte {
	key = appendSetup(key, k.Ring, k.Algebra, k.Root, k.Link)
	return append(key, k.Variant.Code())
}

// formSelectorPrefix returns the key prefix shared by all entries meeting sel.
func formSelectorPrefix(key []byte, sel khoca.CatalogSelector) []byte {
	var fields []string
	for _, field := range []string{sel.Ring, sel.Algebra, sel.Root} {
		if field == "" {
			break
		}
		fields = append(fields, field)
	}
	return appendSetup(key, fields...)
}

func parseEntryKey(key []byte) (khoca.CatalogKey, bool) {
	if len(key) < 2 || key[0] != kEntryPrefix {
		return khoca.CatalogKey{}, false
	}
	parts := bytes.SplitN(key[1:len(key)-1], []byte{0}, 5)
	if len(parts) != 5 || len(parts[4]) != 0 {
		return khoca.CatalogKey{}, false
	}
	return khoca.CatalogKey{
		Ring:    string(parts[0]),
		Algebra: string(parts[1]),
		Root:    string(parts[2]),
		Link:    string(parts[3]),
		Variant: khoca.VariantFromCode(key[len(key)-1]),
	}, true
}

func validKey(k khoca.CatalogKey) bool {
	for _, field := range []string{k.Ring, k.Algebra, k.Root, k.Link} {
		if len(field) == 0 || bytes.IndexByte([]byte(field), 0) >= 0 {
			return false
		}
	}
	return true
}

func (cat *catalog) Lookup(key khoca.CatalogKey) (*khoca.VariantResult, bool) {
	if !validKey(key) {
		return nil, false
	}

	var keyBuf [256]byte
	entryKey := formEntryKey(keyBuf[:0], key)

	cat.dbMu.RLock()
	defer cat.dbMu.RUnlock()
	if cat.db == nil {
		return nil, false
	}

	var vr *khoca.VariantResult
	err := cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var rec EntryRecord
			if err := proto.Unmarshal(val, &rec); err != nil {
				return errors.Wrap(khoca.ErrUnmarshal, err.Error())
			}
			vr = importResult(&rec, key.Variant)
			return nil
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			klog.Warningf("catalog: lookup %v: %v", key, err)
		}
		return nil, false
	}
	return vr, true
}

// TryAdd stores vr under key if key is not already present.
func (cat *catalog) TryAdd(key khoca.CatalogKey, vr *khoca.VariantResult) bool {
	if cat.readOnly || !validKey(key) {
		return false
	}

	val, err := proto.Marshal(exportResult(vr))
	if err != nil {
		klog.Warningf("catalog: encoding %v: %v", key, err)
		return false
	}
	entryKey := formEntryKey(nil, key)

	cat.dbMu.RLock()
	defer cat.dbMu.RUnlock()
	if cat.db == nil {
		return false
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()

	added := false
	err = cat.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		added = true
		return txn.Set(entryKey, val)
	})
	if err != nil {
		klog.Warningf("catalog: adding %v: %v", key, err)
		return false
	}
	if added {
		cat.state.NumEntries++
		cat.stateDirty = true
	}
	return added
}

// Select sends each entry meeting sel to onHit, in key order.
// Close waits for a Select in progress.
func (cat *catalog) Select(sel khoca.CatalogSelector, onHit khoca.OnEntryHit) {
	prefix := formSelectorPrefix(nil, sel)

	cat.dbMu.RLock()
	defer cat.dbMu.RUnlock()
	if cat.db == nil {
		return
	}

	txn := cat.db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   100,
		Prefix:         prefix,
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key, ok := parseEntryKey(item.KeyCopy(nil))
		if !ok {
			klog.Warningf("catalog: skipping malformed key %q", item.Key())
			continue
		}
		var rec EntryRecord
		err := item.Value(func(val []byte) error {
			return proto.Unmarshal(val, &rec)
		})
		if err != nil {
			klog.Warningf("catalog: decoding %v: %v", key, err)
			continue
		}
		onHit <- khoca.CatalogEntry{
			Key:    key,
			Result: importResult(&rec, key.Variant),
		}
	}
}
