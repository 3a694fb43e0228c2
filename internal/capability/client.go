// Package capability implements the per-identity ledger handle: it lists the
// master identity's transactions, decrypts and appends age-encrypted records
// and, when built with a password, seals and opens the user's sensitive data.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/cryptox"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
)

var (
	ErrDecrypt      = errors.New("decrypt failed")
	ErrNoPublicKey  = errors.New("master public key is not resolved")
	ErrNoUserSecret = errors.New("handle carries no user secret")
)

// Master is the ledger identity that owns every account record.
type Master struct {
	Address   string
	SecretKey string
	// PublicKey may be empty until resolved from the ledger.
	PublicKey string
}

// Configured reports whether the identity can be used at all.
func (m Master) Configured() bool {
	return m.Address != "" && m.SecretKey != ""
}

type Client struct {
	ledger  ledger.Ledger
	master  Master
	userKey string
	key     []byte
}

// New builds a handle. A nil passKey gives a public handle without a user
// secret; otherwise the user key is derived from userKey and passKey.
func New(l ledger.Ledger, m Master, userKey string, passKey []byte) *Client {
	c := &Client{ledger: l, master: m, userKey: userKey}
	if passKey != nil {
		c.key = cryptox.DeriveKey(userKey, passKey)
	}
	return c
}

// WithPublicKey returns a copy of c that appends to publicKey.
func (c *Client) WithPublicKey(publicKey string) *Client {
	cp := *c
	cp.master.PublicKey = publicKey
	return &cp
}

func (c *Client) Address() string   { return c.master.Address }
func (c *Client) PublicKey() string { return c.master.PublicKey }
func (c *Client) UserKey() string   { return c.userKey }
func (c *Client) HasSecret() bool   { return c.key != nil }

// ListTransactions returns the master identity's transactions in ledger
// order.
func (c *Client) ListTransactions(ctx context.Context) ([]ledger.RawTransaction, error) {
	txs, err := c.ledger.Transactions(ctx, c.master.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %w", common.ErrLedger, err)
	}
	ledger.SortBySequence(txs)
	return txs, nil
}

// Decrypt opens a record payload with the master secret.
func (c *Client) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext, err := cryptox.OpenWith(ciphertext, c.master.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

// Append encrypts plaintext to the master public key and broadcasts it.
func (c *Client) Append(ctx context.Context, plaintext []byte) (ledger.Receipt, error) {
	if c.master.PublicKey == "" {
		return ledger.Receipt{}, ErrNoPublicKey
	}

	ciphertext, err := cryptox.SealTo(plaintext, c.master.PublicKey)
	if err != nil {
		return ledger.Receipt{}, err
	}

	r, err := c.ledger.Broadcast(ctx, c.master.Address, ciphertext)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%w: broadcast: %w", common.ErrLedger, err)
	}
	return r, nil
}

// ResolvePublicKey fetches the master public key from the ledger.
func (c *Client) ResolvePublicKey(ctx context.Context) (string, error) {
	key, err := c.ledger.PublicKey(ctx, c.master.Address)
	if err != nil {
		return "", fmt.Errorf("resolve public key: %w", err)
	}
	return key, nil
}

// SealSensitive encrypts data under the user key.
func (c *Client) SealSensitive(data models.Data) ([]byte, error) {
	if c.key == nil {
		return nil, ErrNoUserSecret
	}
	if data == nil {
		data = models.Data{}
	}
	return cryptox.Seal(data, c.key)
}

// OpenSensitive decrypts a blob produced by SealSensitive.
func (c *Client) OpenSensitive(blob []byte) (models.Data, error) {
	if c.key == nil {
		return nil, ErrNoUserSecret
	}
	var data models.Data
	if err := cryptox.Open(blob, c.key, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return data, nil
}

// Verifier returns the one-way hash stored as encryptedPassKey, or nil for
// public handles.
func (c *Client) Verifier() []byte {
	if c.key == nil {
		return nil
	}
	return cryptox.MakeVerifier(c.key)
}
