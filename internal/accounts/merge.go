package accounts

import (
	"sort"

	"github.com/dmitrijs2005/chainkeeper/internal/models"
)

// State is the result of folding the ledger.
type State struct {
	// Accounts holds the non-deleted accounts by accountId.
	Accounts map[string]*models.Account
	// Order lists the keys of Accounts by first appearance on the ledger.
	Order []string
	// Tombstoned holds every accountId that has been deleted.
	Tombstoned map[string]struct{}
}

// Apply merges p into acc and returns the result; acc is not modified.
// Fields present in p win, absent fields are kept, and a deleted account
// stays deleted.
func Apply(acc *models.Account, p models.Patch) *models.Account {
	var next *models.Account
	if acc == nil {
		next = &models.Account{AccountID: p.AccountID}
	} else {
		next = acc.Clone()
	}

	if p.UserKey != nil {
		next.UserKey = *p.UserKey
	}
	if p.MetaData != nil {
		next.MetaData = p.MetaData
	}
	if p.SensitiveData != nil {
		next.SensitiveData = p.SensitiveData
	}
	if p.EncryptedPassKey != nil {
		next.EncryptedPassKey = p.EncryptedPassKey
	}
	if p.Kind == models.PatchTombstone || (p.Deleted != nil && *p.Deleted) {
		next.IsDeleted = true
	}
	return next.Clone()
}

// Merge folds patches in ledger order into the current state.
func Merge(patches []models.Patch) State {
	ordered := make([]models.Patch, len(patches))
	copy(ordered, patches)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	acc := make(map[string]*models.Account)
	var order []string
	tombstoned := make(map[string]struct{})

	for _, p := range ordered {
		if _, dead := tombstoned[p.AccountID]; dead {
			continue
		}
		prev, seen := acc[p.AccountID]
		if !seen {
			order = append(order, p.AccountID)
		}
		next := Apply(prev, p)
		if next.IsDeleted {
			tombstoned[p.AccountID] = struct{}{}
		}
		acc[p.AccountID] = next
	}

	state := State{
		Accounts:   make(map[string]*models.Account, len(acc)),
		Tombstoned: tombstoned,
	}
	for _, id := range order {
		if _, dead := tombstoned[id]; dead {
			continue
		}
		state.Accounts[id] = acc[id]
		state.Order = append(state.Order, id)
	}
	return state
}

// Fold merges the patches of decoded results, skipping error markers.
func Fold(decoded []Decoded) State {
	patches := make([]models.Patch, 0, len(decoded))
	for _, d := range decoded {
		if d.Err == nil {
			patches = append(patches, d.Patch)
		}
	}
	return Merge(patches)
}
