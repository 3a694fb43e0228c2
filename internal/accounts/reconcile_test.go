package accounts

import (
	"testing"

	"github.com/dmitrijs2005/chainkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateOf(patches ...models.Patch) State {
	for i := range patches {
		patches[i].Sequence = uint64(i + 1)
	}
	return Merge(patches)
}

func TestReconcile_SubstitutesMatchingSnapshot(t *testing.T) {
	st := stateOf(models.NewCreate("a", "alice", models.Data{"v": "ledger"}, []byte("s"), nil))
	snaps := map[string]*models.Account{
		"alice": {AccountID: "a", UserKey: "alice", MetaData: models.Data{"v": "cache"}, Secrets: models.Data{"pin": "1"}},
	}

	dir := Reconcile(st, snaps)
	require.Len(t, dir, 1)
	assert.Equal(t, "cache", dir[0].MetaData["v"])
	assert.Equal(t, "1", dir[0].Secrets["pin"])
}

func TestReconcile_IgnoresSnapshotOfOtherAccountID(t *testing.T) {
	st := stateOf(models.NewCreate("new", "alice", models.Data{"v": "ledger"}, nil, nil))
	snaps := map[string]*models.Account{
		"alice": {AccountID: "old", UserKey: "alice", MetaData: models.Data{"v": "stale"}},
	}

	dir := Reconcile(st, snaps)
	require.Len(t, dir, 1)
	assert.Equal(t, "ledger", dir[0].MetaData["v"])
}

func TestReconcile_AppendsInFlightSnapshots(t *testing.T) {
	st := stateOf(models.NewCreate("a", "alice", nil, nil, nil))
	snaps := map[string]*models.Account{
		"zed": {AccountID: "z", UserKey: "zed"},
		"bob": {AccountID: "b", UserKey: "bob"},
	}

	dir := Reconcile(st, snaps)
	require.Len(t, dir, 3)
	assert.Equal(t, "alice", dir[0].UserKey)
	assert.Equal(t, "bob", dir[1].UserKey)
	assert.Equal(t, "zed", dir[2].UserKey)
}

func TestReconcile_NeverResurrectsKnownAccounts(t *testing.T) {
	st := stateOf(
		models.NewCreate("a", "alice", nil, nil, nil),
		models.NewTombstone("a"),
		models.NewCreate("b", "bob", nil, nil, nil),
	)
	snaps := map[string]*models.Account{
		"alice": {AccountID: "a", UserKey: "alice"},
		// renamed on the ledger, still cached under the old name
		"robert": {AccountID: "b", UserKey: "robert"},
		"gone":   {AccountID: "g", UserKey: "gone", IsDeleted: true},
		"nil":    nil,
	}

	dir := Reconcile(st, snaps)
	require.Len(t, dir, 1)
	assert.Equal(t, "bob", dir[0].UserKey)
}

func TestReconcile_ReturnsCopies(t *testing.T) {
	st := stateOf(models.NewCreate("a", "alice", models.Data{"v": "1"}, nil, nil))
	dir := Reconcile(st, nil)
	dir[0].MetaData["v"] = "mutated"
	assert.Equal(t, "1", st.Accounts["a"].MetaData["v"])
}

func TestFind_PrefersLatest(t *testing.T) {
	dir := []*models.Account{
		{AccountID: "1", UserKey: "alice"},
		{AccountID: "2", UserKey: "bob"},
		{AccountID: "3", UserKey: "alice"},
	}
	assert.Equal(t, "3", find(dir, "alice").AccountID)
	assert.Nil(t, find(dir, "carol"))
}
