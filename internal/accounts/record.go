package accounts

import (
	"fmt"

	"github.com/dmitrijs2005/chainkeeper/internal/codec"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
)

// record is the plaintext of one ledger transaction. Nil fields are absent
// from the patch.
type record struct {
	Schema        string      `cbor:"schema"`
	Kind          string      `cbor:"kind"`
	AccountID     string      `cbor:"account_id"`
	UserKey       *string     `cbor:"user_key,omitempty"`
	MetaData      models.Data `cbor:"meta_data,omitempty"`
	SensitiveData []byte      `cbor:"sensitive_data,omitempty"`
	PassKey       []byte      `cbor:"pass_key,omitempty"`
	Deleted       *bool       `cbor:"deleted,omitempty"`
}

func encodeRecord(p models.Patch) ([]byte, error) {
	return codec.Marshal(record{
		Schema:        common.RecordSchema,
		Kind:          string(p.Kind),
		AccountID:     p.AccountID,
		UserKey:       p.UserKey,
		MetaData:      p.MetaData,
		SensitiveData: p.SensitiveData,
		PassKey:       p.EncryptedPassKey,
		Deleted:       p.Deleted,
	})
}

// decodeRecord parses plaintext into a patch. The schema marker is checked
// and dropped.
func decodeRecord(plaintext []byte) (models.Patch, error) {
	var r record
	if err := codec.Unmarshal(plaintext, &r); err != nil {
		return models.Patch{}, fmt.Errorf("%w: %v", common.ErrForeignRecord, err)
	}
	if r.Schema != common.RecordSchema {
		return models.Patch{}, common.ErrForeignRecord
	}

	kind := models.PatchKind(r.Kind)
	if !kind.Valid() {
		return models.Patch{}, fmt.Errorf("%w: unknown kind %q", common.ErrDecode, r.Kind)
	}
	if r.AccountID == "" {
		return models.Patch{}, fmt.Errorf("%w: missing account id", common.ErrDecode)
	}

	return models.Patch{
		Kind:             kind,
		AccountID:        r.AccountID,
		UserKey:          r.UserKey,
		MetaData:         r.MetaData,
		SensitiveData:    r.SensitiveData,
		EncryptedPassKey: r.PassKey,
		Deleted:          r.Deleted,
	}, nil
}
