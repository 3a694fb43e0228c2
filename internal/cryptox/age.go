package cryptox

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// GenerateIdentity creates a new age X25519 keypair and returns the secret
// key (AGE-SECRET-KEY-1...) and the public key (age1...).
func GenerateIdentity() (secret string, public string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generating age keypair: %w", err)
	}
	return identity.String(), identity.Recipient().String(), nil
}

// PublicKeyOf returns the public key for an age secret key.
func PublicKeyOf(secret string) (string, error) {
	identity, err := age.ParseX25519Identity(secret)
	if err != nil {
		return "", fmt.Errorf("parsing secret key: %w", err)
	}
	return identity.Recipient().String(), nil
}

// SealTo encrypts plaintext to the given age public key.
func SealTo(plaintext []byte, publicKey string) ([]byte, error) {
	recipient, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient key: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// OpenWith decrypts an age ciphertext with the given secret key.
func OpenWith(ciphertext []byte, secret string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(secret)
	if err != nil {
		return nil, fmt.Errorf("parsing secret key: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return io.ReadAll(r)
}
