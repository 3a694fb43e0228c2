package models

// PatchKind tags what a ledger record does to its account.
type PatchKind string

const (
	PatchCreate    PatchKind = "create"
	PatchAmend     PatchKind = "amend"
	PatchTombstone PatchKind = "tombstone"
)

// Valid reports whether k is one of the known kinds.
func (k PatchKind) Valid() bool {
	switch k {
	case PatchCreate, PatchAmend, PatchTombstone:
		return true
	}
	return false
}

// Patch is the partial account carried by one ledger record. Nil fields are
// absent from the record and leave the accumulated value untouched.
type Patch struct {
	Kind      PatchKind
	AccountID string
	Sequence  uint64

	UserKey          *string
	MetaData         Data
	SensitiveData    []byte
	EncryptedPassKey []byte
	Deleted          *bool
}

// NewCreate builds the patch that starts a logical account.
func NewCreate(accountID, userKey string, meta Data, sealed, passKey []byte) Patch {
	deleted := false
	return Patch{
		Kind:             PatchCreate,
		AccountID:        accountID,
		UserKey:          &userKey,
		MetaData:         meta,
		SensitiveData:    sealed,
		EncryptedPassKey: passKey,
		Deleted:          &deleted,
	}
}

// NewTombstone builds the patch that deletes a logical account.
func NewTombstone(accountID string) Patch {
	deleted := true
	return Patch{Kind: PatchTombstone, AccountID: accountID, Deleted: &deleted}
}
