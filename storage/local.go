package storage

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	lverrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/ktlog/auditor/tree/transparency"
)

// headKey is the single logical row a LocalStore ever writes: the whole
// point of the envelope is that there is exactly one current snapshot, so
// there is nothing to key by. Mirrors the one-key-per-concern convention
// db.ldbTransparencyStore uses for its own "root" row.
var headKey = []byte("head")

// LocalStore is an Adaptor backed by an on-disk LevelDB database holding
// one MAC-protected envelope under headKey, rewritten atomically on every
// Commit.
type LocalStore struct {
	db     *leveldb.DB
	macKey []byte
}

// OpenLocalStore opens (creating if necessary) a LevelDB database at path,
// recovering from a detected corruption the way db.NewLDBTransparencyStore
// does.
func OpenLocalStore(path string, macKey []byte) (*LocalStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if lverrors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &LocalStore{db: db, macKey: macKey}, nil
}

// Close releases the underlying LevelDB handle.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Load implements Adaptor.
func (s *LocalStore) Load() (*transparency.Snapshot, error) {
	raw, err := s.db.Get(headKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	payload, err := openEnvelope(raw, s.macKey)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(payload)
}

// Commit implements Adaptor. A single-key put is already atomic from
// LevelDB's perspective; the batch exists only to match the write path the
// rest of the pack uses for multi-key commits, should headKey ever need
// company.
func (s *LocalStore) Commit(snap *transparency.Snapshot) error {
	envelope := sealEnvelope(encodeSnapshot(snap), s.macKey)

	batch := new(leveldb.Batch)
	batch.Put(headKey, envelope)
	return s.db.Write(batch, nil)
}
