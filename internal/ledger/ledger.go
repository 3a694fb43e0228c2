// Package ledger describes the append-only transaction store that serves as
// the system of record. The account core only ever lists, appends and
// resolves public keys; consensus and broadcast confirmation belong to the
// store implementation.
package ledger

import (
	"context"
	"sort"
	"time"
)

// RawTransaction is one immutable ledger entry.
type RawTransaction struct {
	ID        string
	Sequence  uint64
	Address   string
	Payload   []byte
	CreatedAt time.Time
}

// Receipt reports the outcome of a broadcast.
type Receipt struct {
	ID          string
	Sequence    uint64
	Broadcasted bool
}

// Ledger is the raw network surface used by capability handles.
type Ledger interface {
	// Transactions returns every transaction recorded for address, oldest
	// first.
	Transactions(ctx context.Context, address string) ([]RawTransaction, error)

	// Broadcast appends payload for address.
	Broadcast(ctx context.Context, address string, payload []byte) (Receipt, error)

	// PublicKey returns the public key registered for address, or
	// common.ErrorNotFound.
	PublicKey(ctx context.Context, address string) (string, error)

	// RegisterKey records the public key of address.
	RegisterKey(ctx context.Context, address, publicKey string) error
}

// SortBySequence orders transactions by ledger-assigned sequence. Stores
// that already return ledger order are left unchanged.
func SortBySequence(txs []RawTransaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Sequence < txs[j].Sequence })
}
