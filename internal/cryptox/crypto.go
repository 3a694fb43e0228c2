// Package cryptox holds the key derivation and sealing primitives used for
// account records: argon2id for user keys, AES-GCM for sensitive payloads
// and age X25519 for ledger-wide record encryption.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/argon2"
)

// ErrShortCiphertext is returned by Open when the blob cannot hold a nonce.
var ErrShortCiphertext = errors.New("ciphertext too short")

const nonceSize = 12

// Salt derives the per-user argon2 salt from the user key, so the same
// userKey and password always produce the same key and verifier.
func Salt(userKey string) []byte {
	sum := blake3.Sum256([]byte("chainkeeper salt\x00" + userKey))
	return sum[:]
}

// DeriveKey derives the 32-byte user key from userKey and password.
func DeriveKey(userKey string, password []byte) []byte {
	return argon2.IDKey(password, Salt(userKey), 1, 64*1024, 4, 32)
}

// MakeVerifier hashes a derived key into the value stored as the account's
// encryptedPassKey. The key cannot be recovered from it.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// Seal serializes v to JSON and encrypts it with AES-GCM under key.
// The result is nonce||ciphertext.
func Seal(v any, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plaintext)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(nonceSize)
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal and unmarshals the JSON into v.
func Open(blob []byte, key []byte, v any) error {
	if len(blob) < nonceSize {
		return ErrShortCiphertext
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)

	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
