// Package accounts reconstructs account state from the ledger and runs the
// account lifecycle on top of it.
//
// State is never stored whole: every read lists the master identity's
// transactions, decodes them, folds the patches in ledger order and overlays
// live session snapshots. Every write appends a record. Changes are a
// tombstone of the old accountId followed by a create under a fresh one.
package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/dmitrijs2005/chainkeeper/internal/capability"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
	"github.com/dmitrijs2005/chainkeeper/internal/session"
	"github.com/google/uuid"
)

// DefaultDecodeWorkers bounds parallel record decoding.
const DefaultDecodeWorkers = 8

// NewAccount describes an account to create.
type NewAccount struct {
	UserKey string
	// PassKey is the password, or the stored verifier when PreCrypted.
	PassKey  []byte
	MetaData models.Data
	// SensitiveData is sealed under the user key. Ignored when PreCrypted.
	SensitiveData models.Data
	// SealedSensitiveData is stored as is when PreCrypted.
	SealedSensitiveData []byte
	PreCrypted          bool
}

type Manager struct {
	sessions *session.Registry
	workers  int
	logger   logging.Logger
	// writers holds one lock per userKey across check-then-append sequences.
	writers keyLocks
}

func NewManager(sessions *session.Registry, workers int, l logging.Logger) *Manager {
	if workers < 1 {
		workers = DefaultDecodeWorkers
	}
	return &Manager{
		sessions: sessions,
		workers:  workers,
		logger:   l.With("module", "accounts"),
	}
}

func validUserKey(userKey string) bool {
	return strings.TrimSpace(userKey) != ""
}

func validPassKey(passKey []byte) bool {
	return len(passKey) > 0
}

func (m *Manager) configured() error {
	if !m.sessions.Configured() {
		return common.ErrConfiguration
	}
	return nil
}

// directory lists, decodes, folds and reconciles the ledger.
func (m *Manager) directory(ctx context.Context, h *capability.Client) ([]*models.Account, error) {
	// Snapshots are taken before the ledger read: a snapshot written after
	// this point belongs to a record the read below will already see.
	snapshots := m.sessions.Snapshots()

	txs, err := h.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeAll(ctx, h, txs, m.workers)
	if err != nil {
		return nil, err
	}
	for _, d := range decoded {
		if d.Err != nil {
			m.logger.Warn(ctx, "ledger record dropped", "seq", d.Sequence, "tx_id", d.TxID, "error", d.Err)
		}
	}

	return Reconcile(Fold(decoded), snapshots), nil
}

// current returns the account of userKey with SensitiveData still sealed.
func (m *Manager) current(ctx context.Context, userKey string) (*models.Account, error) {
	h, err := m.sessions.Handle(ctx, userKey, nil)
	if err != nil {
		return nil, err
	}
	dir, err := m.directory(ctx, h)
	if err != nil {
		m.logger.Error(ctx, "ledger read failed", "error", err)
		return nil, err
	}
	acct := find(dir, userKey)
	if acct == nil {
		return nil, common.ErrorNotFound
	}
	return acct, nil
}

// available reports whether userKey is free. Ledger failures are returned
// as errors rather than read as "taken".
func (m *Manager) available(ctx context.Context, userKey string) (bool, error) {
	_, err := m.current(ctx, userKey)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, common.ErrorNotFound):
		return true, nil
	default:
		return false, err
	}
}

// Directory returns every non-deleted account with its sensitive data
// sealed.
func (m *Manager) Directory(ctx context.Context) ([]*models.Account, error) {
	if err := m.configured(); err != nil {
		return nil, err
	}
	h, err := m.sessions.Handle(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	dir, err := m.directory(ctx, h)
	if err != nil {
		return nil, err
	}
	for _, a := range dir {
		a.Secrets = nil
	}
	return dir, nil
}

// Availability reports whether userKey can be registered.
func (m *Manager) Availability(ctx context.Context, userKey string) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	if !validUserKey(userKey) {
		return false, nil
	}
	ok, err := m.available(ctx, userKey)
	if errors.Is(err, common.ErrConfiguration) {
		return false, err
	}
	return ok, nil
}

// Create registers a new account if userKey is free.
func (m *Manager) Create(ctx context.Context, a NewAccount) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	if !validUserKey(a.UserKey) || !validPassKey(a.PassKey) {
		return false, nil
	}
	defer m.writers.Lock(a.UserKey)()

	free, err := m.available(ctx, a.UserKey)
	if err != nil {
		m.logger.Error(ctx, "create aborted, user key check failed", "user_key", a.UserKey, "error", err)
		return false, nil
	}
	if !free {
		m.logger.Info(ctx, "create rejected, user key taken", "user_key", a.UserKey)
		return false, nil
	}
	return m.create(ctx, a), nil
}

func (m *Manager) create(ctx context.Context, a NewAccount) bool {
	var (
		h        *capability.Client
		err      error
		verifier []byte
		sealed   []byte
		secrets  models.Data
	)

	if a.PreCrypted {
		h, err = m.sessions.Handle(ctx, a.UserKey, nil)
		if err != nil {
			return false
		}
		verifier = a.PassKey
		sealed = a.SealedSensitiveData
	} else {
		h, err = m.sessions.Handle(ctx, a.UserKey, a.PassKey)
		if err != nil {
			return false
		}
		secrets = a.SensitiveData
		if secrets == nil {
			secrets = models.Data{}
		}
		verifier = h.Verifier()
		sealed, err = h.SealSensitive(secrets)
		if err != nil {
			m.logger.Error(ctx, "sealing sensitive data failed", "user_key", a.UserKey, "error", err)
			return false
		}
	}

	id := uuid.NewString()
	patch := models.NewCreate(id, a.UserKey, a.MetaData, sealed, verifier)
	if !m.append(ctx, h, patch) {
		return false
	}

	if !a.PreCrypted {
		m.sessions.Bind(a.UserKey, a.PassKey, h)
	}
	m.sessions.Remember(a.UserKey, &models.Account{
		AccountID:        id,
		UserKey:          a.UserKey,
		MetaData:         a.MetaData,
		SensitiveData:    sealed,
		Secrets:          secrets,
		EncryptedPassKey: verifier,
	})
	m.logger.Info(ctx, "account created", "user_key", a.UserKey, "account_id", id, "pre_crypted", a.PreCrypted)
	return true
}

func (m *Manager) append(ctx context.Context, h *capability.Client, p models.Patch) bool {
	payload, err := encodeRecord(p)
	if err != nil {
		m.logger.Error(ctx, "record encoding failed", "account_id", p.AccountID, "error", err)
		return false
	}
	r, err := h.Append(ctx, payload)
	if err != nil {
		m.logger.Error(ctx, "ledger append failed", "kind", p.Kind, "account_id", p.AccountID, "error", err)
		return false
	}
	if !r.Broadcasted {
		m.logger.Error(ctx, "ledger did not broadcast record", "kind", p.Kind, "account_id", p.AccountID, "tx_id", r.ID)
		return false
	}
	return true
}

func (m *Manager) tombstone(ctx context.Context, acct *models.Account) bool {
	h, err := m.sessions.Handle(ctx, acct.UserKey, nil)
	if err != nil {
		return false
	}
	if !m.append(ctx, h, models.NewTombstone(acct.AccountID)) {
		return false
	}
	m.sessions.Forget(acct.UserKey)
	m.logger.Info(ctx, "account tombstoned", "user_key", acct.UserKey, "account_id", acct.AccountID)
	return true
}

// Retrieve returns the account of userKey. A nil passKey gives a
// metadata-only read. Unknown users and wrong passwords both yield
// common.ErrorNotFound.
func (m *Manager) Retrieve(ctx context.Context, userKey string, passKey []byte) (*models.Account, error) {
	if err := m.configured(); err != nil {
		return nil, err
	}
	if !validUserKey(userKey) || (passKey != nil && !validPassKey(passKey)) {
		return nil, common.ErrorNotFound
	}

	h, err := m.sessions.Handle(ctx, userKey, passKey)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	dir, err := m.directory(ctx, h)
	if err != nil {
		m.logger.Error(ctx, "ledger read failed", "error", err)
		return nil, common.ErrorNotFound
	}
	acct := find(dir, userKey)
	if acct == nil {
		return nil, common.ErrorNotFound
	}

	if passKey == nil {
		return acct.Public(), nil
	}

	if subtle.ConstantTimeCompare(h.Verifier(), acct.EncryptedPassKey) != 1 {
		return nil, common.ErrorNotFound
	}
	m.sessions.Bind(userKey, passKey, h)

	if acct.Secrets == nil {
		if len(acct.SensitiveData) == 0 {
			acct.Secrets = models.Data{}
		} else {
			secrets, err := h.OpenSensitive(acct.SensitiveData)
			if err != nil {
				m.logger.Warn(ctx, "sensitive data unreadable", "user_key", userKey, "account_id", acct.AccountID, "error", err)
				return nil, common.ErrorNotFound
			}
			acct.Secrets = secrets
		}
	}

	m.sessions.Remember(userKey, acct)
	return acct, nil
}

// Lookup is a metadata-only Retrieve.
func (m *Manager) Lookup(ctx context.Context, userKey string) (*models.Account, error) {
	return m.Retrieve(ctx, userKey, nil)
}

// VerifyIdentity reports whether passKey is the password of userKey.
func (m *Manager) VerifyIdentity(ctx context.Context, userKey string, passKey []byte) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	if !validUserKey(userKey) || !validPassKey(passKey) {
		return false, nil
	}

	public, err := m.Retrieve(ctx, userKey, nil)
	if err != nil {
		return false, nil
	}
	full, err := m.Retrieve(ctx, userKey, passKey)
	if err != nil {
		m.logger.Debug(ctx, "identity check failed", "user_key", userKey)
		return false, nil
	}
	if public.AccountID != full.AccountID {
		return false, nil
	}

	h, err := m.sessions.Handle(ctx, userKey, passKey)
	if err != nil {
		return false, nil
	}
	return subtle.ConstantTimeCompare(h.Verifier(), full.EncryptedPassKey) == 1, nil
}

// verified returns the decrypted account when passKey is correct.
func (m *Manager) verified(ctx context.Context, userKey string, passKey []byte) (*models.Account, bool, error) {
	ok, err := m.VerifyIdentity(ctx, userKey, passKey)
	if err != nil || !ok {
		return nil, false, err
	}
	acct, err := m.Retrieve(ctx, userKey, passKey)
	if err != nil {
		return nil, false, nil
	}
	return acct, true, nil
}

// replace tombstones current and creates next in its place.
func (m *Manager) replace(ctx context.Context, current *models.Account, next NewAccount) bool {
	if !m.tombstone(ctx, current) {
		return false
	}
	if !m.create(ctx, next) {
		m.logger.Error(ctx, "account tombstoned but recreate failed",
			"user_key", current.UserKey, "account_id", current.AccountID)
		return false
	}
	return true
}

// ChangePassword re-seals the account under newPassKey.
func (m *Manager) ChangePassword(ctx context.Context, userKey string, passKey, newPassKey []byte) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	if !validPassKey(newPassKey) {
		return false, nil
	}
	defer m.writers.Lock(userKey)()

	acct, ok, err := m.verified(ctx, userKey, passKey)
	if err != nil || !ok {
		return false, err
	}
	return m.replace(ctx, acct, NewAccount{
		UserKey:       userKey,
		PassKey:       newPassKey,
		MetaData:      acct.MetaData,
		SensitiveData: acct.Secrets,
	}), nil
}

// ChangeUsername moves the account to newUserKey, which must be free.
func (m *Manager) ChangeUsername(ctx context.Context, userKey string, passKey []byte, newUserKey string) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	if !validUserKey(newUserKey) || newUserKey == userKey {
		return false, nil
	}
	defer m.writers.Lock(userKey, newUserKey)()

	acct, ok, err := m.verified(ctx, userKey, passKey)
	if err != nil || !ok {
		return false, err
	}
	free, err := m.available(ctx, newUserKey)
	if err != nil {
		m.logger.Error(ctx, "rename aborted, user key check failed", "new_user_key", newUserKey, "error", err)
		return false, nil
	}
	if !free {
		m.logger.Info(ctx, "rename rejected, user key taken", "user_key", userKey, "new_user_key", newUserKey)
		return false, nil
	}

	done := m.replace(ctx, acct, NewAccount{
		UserKey:       newUserKey,
		PassKey:       passKey,
		MetaData:      acct.MetaData,
		SensitiveData: acct.Secrets,
	})
	if done {
		m.sessions.Evict(userKey)
	}
	return done, nil
}

// ChangeData replaces both data sets. A nil argument keeps the current
// value.
func (m *Manager) ChangeData(ctx context.Context, userKey string, passKey []byte, metaData, sensitiveData models.Data) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	defer m.writers.Lock(userKey)()
	acct, ok, err := m.verified(ctx, userKey, passKey)
	if err != nil || !ok {
		return false, err
	}
	if metaData == nil {
		metaData = acct.MetaData
	}
	if sensitiveData == nil {
		sensitiveData = acct.Secrets
	}
	return m.replace(ctx, acct, NewAccount{
		UserKey:       userKey,
		PassKey:       passKey,
		MetaData:      metaData,
		SensitiveData: sensitiveData,
	}), nil
}

// ChangeSensitiveData replaces the password-protected data.
func (m *Manager) ChangeSensitiveData(ctx context.Context, userKey string, passKey []byte, sensitiveData models.Data) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	defer m.writers.Lock(userKey)()
	acct, ok, err := m.verified(ctx, userKey, passKey)
	if err != nil || !ok {
		return false, err
	}
	if sensitiveData == nil {
		sensitiveData = models.Data{}
	}
	return m.replace(ctx, acct, NewAccount{
		UserKey:       userKey,
		PassKey:       passKey,
		MetaData:      acct.MetaData,
		SensitiveData: sensitiveData,
	}), nil
}

// ChangeMetaData replaces the metadata without a password. The sealed
// sensitive payload and the verifier are carried over byte for byte.
func (m *Manager) ChangeMetaData(ctx context.Context, userKey string, metaData models.Data) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	if !validUserKey(userKey) {
		return false, nil
	}
	defer m.writers.Lock(userKey)()

	acct, err := m.current(ctx, userKey)
	if err != nil {
		return false, nil
	}
	return m.replace(ctx, acct, NewAccount{
		UserKey:             userKey,
		PassKey:             acct.EncryptedPassKey,
		MetaData:            metaData,
		SealedSensitiveData: acct.SensitiveData,
		PreCrypted:          true,
	}), nil
}

// Remove tombstones the account of userKey. Without force the password
// must verify.
func (m *Manager) Remove(ctx context.Context, userKey string, passKey []byte, force bool) (bool, error) {
	if err := m.configured(); err != nil {
		return false, err
	}
	if !validUserKey(userKey) {
		return false, nil
	}
	defer m.writers.Lock(userKey)()

	if !force {
		ok, err := m.VerifyIdentity(ctx, userKey, passKey)
		if err != nil || !ok {
			return false, err
		}
	}
	acct, err := m.current(ctx, userKey)
	if err != nil {
		return false, nil
	}
	if !m.tombstone(ctx, acct) {
		return false, nil
	}
	m.sessions.Evict(userKey)
	return true, nil
}

// DeleteAll tombstones every account in the directory.
func (m *Manager) DeleteAll(ctx context.Context) (bool, error) {
	dir, err := m.Directory(ctx)
	if err != nil {
		if errors.Is(err, common.ErrConfiguration) {
			return false, err
		}
		m.logger.Error(ctx, "ledger read failed", "error", err)
		return false, nil
	}

	removed := 0
	for _, acct := range dir {
		unlock := m.writers.Lock(acct.UserKey)
		ok := m.tombstone(ctx, acct)
		unlock()
		if !ok {
			m.logger.Error(ctx, "delete all stopped", "removed", removed, "total", len(dir))
			return false, nil
		}
		m.sessions.Evict(acct.UserKey)
		removed++
	}
	m.logger.Info(ctx, "all accounts deleted", "removed", removed)
	return true, nil
}

