// Package memory is a process-local ledger used by tests and the "memory"
// node driver.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/google/uuid"
)

type Ledger struct {
	mu   sync.RWMutex
	seq  uint64
	txs  map[string][]ledger.RawTransaction
	keys map[string]string

	// FailBroadcast makes Broadcast return an error; used to simulate an
	// unreachable network.
	FailBroadcast error
	// FailList makes Transactions return an error.
	FailList error
}

func New() *Ledger {
	return &Ledger{
		txs:  make(map[string][]ledger.RawTransaction),
		keys: make(map[string]string),
	}
}

func (l *Ledger) Transactions(ctx context.Context, address string) ([]ledger.RawTransaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.FailList != nil {
		return nil, l.FailList
	}

	src := l.txs[address]
	out := make([]ledger.RawTransaction, len(src))
	copy(out, src)
	return out, nil
}

func (l *Ledger) Broadcast(ctx context.Context, address string, payload []byte) (ledger.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailBroadcast != nil {
		return ledger.Receipt{}, l.FailBroadcast
	}

	l.seq++
	tx := ledger.RawTransaction{
		ID:        uuid.NewString(),
		Sequence:  l.seq,
		Address:   address,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}
	l.txs[address] = append(l.txs[address], tx)

	return ledger.Receipt{ID: tx.ID, Sequence: tx.Sequence, Broadcasted: true}, nil
}

func (l *Ledger) PublicKey(ctx context.Context, address string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key, ok := l.keys[address]
	if !ok {
		return "", common.ErrorNotFound
	}
	return key, nil
}

func (l *Ledger) RegisterKey(ctx context.Context, address, publicKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.keys[address] = publicKey
	return nil
}

// Len returns the number of transactions recorded for address.
func (l *Ledger) Len(address string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs[address])
}
