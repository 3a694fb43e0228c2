// Package models defines the account state derived from the ledger and the
// typed patches it is folded from.
package models

import "maps"

// Data is arbitrary structured account data.
type Data map[string]any

// Account is the merged current state of one logical account.
type Account struct {
	// AccountID is assigned at creation and shared by every record of the
	// same logical account.
	AccountID string

	// UserKey is the human-chosen identity (e.g. email).
	UserKey string

	// MetaData is readable without the owner's password.
	MetaData Data

	// SensitiveData is the sealed payload as stored on the ledger.
	SensitiveData []byte

	// Secrets holds the decrypted SensitiveData. It is only populated by
	// password-gated reads and never written back to the ledger.
	Secrets Data

	// EncryptedPassKey is the one-way verifier of userKey+password.
	EncryptedPassKey []byte

	IsDeleted bool
}

// Clone returns a copy that shares no mutable state with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.MetaData = maps.Clone(a.MetaData)
	c.Secrets = maps.Clone(a.Secrets)
	c.SensitiveData = cloneBytes(a.SensitiveData)
	c.EncryptedPassKey = cloneBytes(a.EncryptedPassKey)
	return &c
}

// Public returns a copy with the sensitive payload removed, suitable for
// metadata-only reads.
func (a *Account) Public() *Account {
	c := a.Clone()
	if c == nil {
		return nil
	}
	c.SensitiveData = nil
	c.Secrets = nil
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
