package accounts

import (
	"math/rand"
	"testing"

	"github.com/dmitrijs2005/chainkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func seq(n uint64, p models.Patch) models.Patch {
	p.Sequence = n
	return p
}

func TestMerge_LastWriteWinsPerField(t *testing.T) {
	patches := []models.Patch{
		seq(1, models.NewCreate("a", "alice", models.Data{"v": "1"}, []byte("s1"), []byte("k1"))),
		seq(2, models.Patch{Kind: models.PatchAmend, AccountID: "a", MetaData: models.Data{"v": "2"}}),
		seq(3, models.Patch{Kind: models.PatchAmend, AccountID: "a", UserKey: strp("alicia")}),
	}

	st := Merge(patches)
	require.Len(t, st.Accounts, 1)
	a := st.Accounts["a"]
	assert.Equal(t, "alicia", a.UserKey)
	assert.Equal(t, models.Data{"v": "2"}, a.MetaData)
	assert.Equal(t, []byte("s1"), a.SensitiveData, "a metadata patch must not erase sensitive data")
	assert.Equal(t, []byte("k1"), a.EncryptedPassKey)
	assert.False(t, a.IsDeleted)
}

func TestMerge_UsesLedgerOrder(t *testing.T) {
	patches := []models.Patch{
		seq(5, models.Patch{Kind: models.PatchAmend, AccountID: "a", MetaData: models.Data{"v": "late"}}),
		seq(1, models.NewCreate("a", "alice", models.Data{"v": "early"}, nil, nil)),
	}
	st := Merge(patches)
	assert.Equal(t, "late", st.Accounts["a"].MetaData["v"])
}

func TestMerge_TombstoneIsSticky(t *testing.T) {
	patches := []models.Patch{
		seq(1, models.NewCreate("a", "alice", nil, nil, nil)),
		seq(2, models.NewTombstone("a")),
		seq(3, models.Patch{Kind: models.PatchAmend, AccountID: "a", Deleted: boolp(false), UserKey: strp("zombie")}),
		seq(4, models.NewCreate("a", "alice", nil, nil, nil)),
		seq(5, models.NewCreate("b", "alice", nil, nil, nil)),
	}

	st := Merge(patches)
	assert.NotContains(t, st.Accounts, "a")
	assert.Contains(t, st.Tombstoned, "a")
	require.Contains(t, st.Accounts, "b")
	assert.Equal(t, []string{"b"}, st.Order)
}

func TestMerge_TombstoneKindWithoutFlag(t *testing.T) {
	st := Merge([]models.Patch{
		seq(1, models.NewCreate("a", "alice", nil, nil, nil)),
		seq(2, models.Patch{Kind: models.PatchTombstone, AccountID: "a"}),
	})
	assert.Empty(t, st.Accounts)
}

func TestMerge_OrderByFirstAppearance(t *testing.T) {
	st := Merge([]models.Patch{
		seq(1, models.NewCreate("b", "bob", nil, nil, nil)),
		seq(2, models.NewCreate("a", "alice", nil, nil, nil)),
		seq(3, models.Patch{Kind: models.PatchAmend, AccountID: "b", MetaData: models.Data{}}),
	})
	assert.Equal(t, []string{"b", "a"}, st.Order)
}

func TestApply_DoesNotMutateInputs(t *testing.T) {
	prev := &models.Account{AccountID: "a", UserKey: "alice", MetaData: models.Data{"k": "v"}}
	meta := models.Data{"k": "new"}
	next := Apply(prev, models.Patch{Kind: models.PatchAmend, AccountID: "a", MetaData: meta})

	assert.Equal(t, "v", prev.MetaData["k"])
	next.MetaData["k"] = "changed"
	assert.Equal(t, "new", meta["k"])
}

// For random histories of one account the fold equals a field-wise replay
// that stops at the first tombstone.
func TestMerge_MatchesReferenceFold(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"alice", "bob", "carol"}

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(8)
		var patches []models.Patch
		var (
			wantUser    string
			wantMeta    models.Data
			wantDeleted bool
		)
		for i := 0; i < n; i++ {
			p := models.Patch{Kind: models.PatchAmend, AccountID: "a", Sequence: uint64(i + 1)}
			if rng.Intn(2) == 0 {
				p.UserKey = strp(names[rng.Intn(len(names))])
			}
			if rng.Intn(2) == 0 {
				p.MetaData = models.Data{"i": names[rng.Intn(len(names))]}
			}
			if rng.Intn(6) == 0 {
				p.Deleted = boolp(true)
			}
			patches = append(patches, p)

			if wantDeleted {
				continue
			}
			if p.UserKey != nil {
				wantUser = *p.UserKey
			}
			if p.MetaData != nil {
				wantMeta = p.MetaData
			}
			if p.Deleted != nil && *p.Deleted {
				wantDeleted = true
			}
		}

		rng.Shuffle(len(patches), func(i, j int) { patches[i], patches[j] = patches[j], patches[i] })
		st := Merge(patches)

		if wantDeleted {
			assert.Empty(t, st.Accounts, "round %d", round)
			continue
		}
		require.Contains(t, st.Accounts, "a", "round %d", round)
		assert.Equal(t, wantUser, st.Accounts["a"].UserKey, "round %d", round)
		assert.Equal(t, wantMeta, st.Accounts["a"].MetaData, "round %d", round)
	}
}

func TestFold_SkipsErrorMarkers(t *testing.T) {
	st := Fold([]Decoded{
		{Sequence: 1, Patch: seq(1, models.NewCreate("a", "alice", nil, nil, nil))},
		{Sequence: 2, Err: assert.AnError},
	})
	assert.Len(t, st.Accounts, 1)
}
