// Package levelstore is an embedded ledger store on top of goleveldb.
//
// Keys:
//
//	s                         -> last assigned sequence (8 bytes, big endian)
//	t/<address>\x00<seq>      -> CBOR encoded transaction
//	k/<address>               -> public key
package levelstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/codec"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/filex"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var seqKey = []byte("s")

type storedTx struct {
	ID        string `cbor:"id"`
	Payload   []byte `cbor:"payload"`
	CreatedAt int64  `cbor:"created_at"`
}

type Store struct {
	db *leveldb.DB
	// mu serializes appends so sequence assignment and the write are atomic.
	mu  sync.Mutex
	seq uint64
}

// Open opens (or creates) the database directory at path.
func Open(path string) (*Store, error) {
	dir, err := filex.EnsureDir(path)
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", dir, err)
	}
	return newStore(db)
}

// OpenMemory returns a store backed by goleveldb's in-memory storage.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

func newStore(db *leveldb.DB) (*Store, error) {
	s := &Store{db: db}
	v, err := db.Get(seqKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("read sequence: %w", err)
	default:
		s.seq = binary.BigEndian.Uint64(v)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func txPrefix(address string) []byte {
	return append([]byte("t/"+address), 0)
}

func txKey(address string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(txPrefix(address), seq)
}

func keyKey(address string) []byte {
	return []byte("k/" + address)
}

func (s *Store) Transactions(ctx context.Context, address string) ([]ledger.RawTransaction, error) {
	iter := s.db.NewIterator(util.BytesPrefix(txPrefix(address)), nil)
	defer iter.Release()

	prefixLen := len(txPrefix(address))
	var result []ledger.RawTransaction
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := iter.Key()
		if len(key) != prefixLen+8 {
			continue
		}
		var st storedTx
		if err := codec.Unmarshal(iter.Value(), &st); err != nil {
			return nil, fmt.Errorf("corrupt transaction %x: %w", key, err)
		}
		result = append(result, ledger.RawTransaction{
			ID:        st.ID,
			Sequence:  binary.BigEndian.Uint64(key[prefixLen:]),
			Address:   address,
			Payload:   st.Payload,
			CreatedAt: time.Unix(0, st.CreatedAt).UTC(),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}

func (s *Store) Broadcast(ctx context.Context, address string, payload []byte) (ledger.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := storedTx{ID: uuid.NewString(), Payload: payload, CreatedAt: time.Now().UnixNano()}
	value, err := codec.Marshal(st)
	if err != nil {
		return ledger.Receipt{}, err
	}

	seq := s.seq + 1
	batch := new(leveldb.Batch)
	batch.Put(txKey(address, seq), value)
	batch.Put(seqKey, binary.BigEndian.AppendUint64(nil, seq))
	if err := s.db.Write(batch, nil); err != nil {
		return ledger.Receipt{}, fmt.Errorf("write transaction: %w", err)
	}
	s.seq = seq

	return ledger.Receipt{ID: st.ID, Sequence: seq, Broadcasted: true}, nil
}

func (s *Store) PublicKey(ctx context.Context, address string) (string, error) {
	v, err := s.db.Get(keyKey(address), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", common.ErrorNotFound
		}
		return "", err
	}
	return string(v), nil
}

func (s *Store) RegisterKey(ctx context.Context, address, publicKey string) error {
	return s.db.Put(keyKey(address), []byte(publicKey), nil)
}
