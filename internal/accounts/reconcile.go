package accounts

import (
	"sort"

	"github.com/dmitrijs2005/chainkeeper/internal/models"
)

// Reconcile overlays session snapshots (keyed by userKey) on the merged
// state and returns the directory in ledger order.
//
// A snapshot replaces the ledger view of the same accountId. A snapshot
// whose userKey is missing from the state is appended, unless its
// accountId is known to the ledger: a tombstoned or renamed account is
// never brought back from a cache.
func Reconcile(state State, snapshots map[string]*models.Account) []*models.Account {
	dir := make([]*models.Account, 0, len(state.Order)+len(snapshots))
	present := make(map[string]struct{}, len(state.Order))

	for _, id := range state.Order {
		acct := state.Accounts[id]
		present[acct.UserKey] = struct{}{}
		if snap, ok := snapshots[acct.UserKey]; ok && snap != nil && snap.AccountID == acct.AccountID && !snap.IsDeleted {
			dir = append(dir, snap.Clone())
			continue
		}
		dir = append(dir, acct.Clone())
	}

	var extra []*models.Account
	for userKey, snap := range snapshots {
		if snap == nil || snap.IsDeleted || snap.AccountID == "" {
			continue
		}
		if _, ok := present[userKey]; ok {
			continue
		}
		if _, ok := state.Accounts[snap.AccountID]; ok {
			continue
		}
		if _, dead := state.Tombstoned[snap.AccountID]; dead {
			continue
		}
		extra = append(extra, snap.Clone())
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].UserKey < extra[j].UserKey })

	return append(dir, extra...)
}

// find returns the most recently created entry for userKey.
func find(dir []*models.Account, userKey string) *models.Account {
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i].UserKey == userKey {
			return dir[i]
		}
	}
	return nil
}
