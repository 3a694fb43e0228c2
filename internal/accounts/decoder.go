package accounts

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
	"golang.org/x/sync/errgroup"
)

// Decrypter opens ledger payloads. *capability.Client implements it.
type Decrypter interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Decoded is the result for one transaction: either a patch or an error
// marker. A marker only removes its own transaction from the merge.
type Decoded struct {
	TxID     string
	Sequence uint64
	Patch    models.Patch
	Err      error
}

// Decode turns one raw transaction into a patch or an error marker.
func Decode(d Decrypter, tx ledger.RawTransaction) Decoded {
	out := Decoded{TxID: tx.ID, Sequence: tx.Sequence}

	plaintext, err := d.Decrypt(tx.Payload)
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", common.ErrDecode, err)
		return out
	}

	p, err := decodeRecord(plaintext)
	if err != nil {
		out.Err = err
		return out
	}
	p.Sequence = tx.Sequence
	out.Patch = p
	return out
}

// DecodeAll decodes txs with at most workers goroutines and returns the
// results in ledger order. Only cancellation of ctx is returned as an error.
func DecodeAll(ctx context.Context, d Decrypter, txs []ledger.RawTransaction, workers int) ([]Decoded, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Decoded, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range txs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Decode(d, txs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// resequence before merge
	sort.SliceStable(results, func(i, j int) bool { return results[i].Sequence < results[j].Sequence })
	return results, nil
}
