package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_CloneIsDeep(t *testing.T) {
	a := &Account{
		AccountID:        "id",
		UserKey:          "u",
		MetaData:         Data{"k": "v"},
		SensitiveData:    []byte{1, 2},
		Secrets:          Data{"s": "x"},
		EncryptedPassKey: []byte{3},
	}
	c := a.Clone()
	require.Equal(t, a, c)

	c.MetaData["k"] = "changed"
	c.SensitiveData[0] = 9
	c.Secrets["s"] = "y"
	c.EncryptedPassKey[0] = 9

	assert.Equal(t, "v", a.MetaData["k"])
	assert.Equal(t, byte(1), a.SensitiveData[0])
	assert.Equal(t, "x", a.Secrets["s"])
	assert.Equal(t, byte(3), a.EncryptedPassKey[0])
}

func TestAccount_PublicDropsSensitive(t *testing.T) {
	a := &Account{UserKey: "u", MetaData: Data{"k": "v"}, SensitiveData: []byte{1}, Secrets: Data{"s": 1}}
	p := a.Public()

	assert.Nil(t, p.SensitiveData)
	assert.Nil(t, p.Secrets)
	assert.Equal(t, Data{"k": "v"}, p.MetaData)
	assert.NotNil(t, a.SensitiveData)

	var nilAccount *Account
	assert.Nil(t, nilAccount.Public())
}

func TestPatchConstructors(t *testing.T) {
	c := NewCreate("id", "u", Data{"a": "b"}, []byte{1}, []byte{2})
	assert.Equal(t, PatchCreate, c.Kind)
	require.NotNil(t, c.UserKey)
	assert.Equal(t, "u", *c.UserKey)
	require.NotNil(t, c.Deleted)
	assert.False(t, *c.Deleted)

	ts := NewTombstone("id")
	assert.Equal(t, PatchTombstone, ts.Kind)
	require.NotNil(t, ts.Deleted)
	assert.True(t, *ts.Deleted)
	assert.Nil(t, ts.UserKey)

	assert.True(t, PatchAmend.Valid())
	assert.False(t, PatchKind("merge").Valid())
}
