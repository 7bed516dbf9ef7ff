package sigs

import (
	"bytes"
	"crypto/rand"
	"io"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"golang.org/x/crypto/ed25519"
)

// PrivateKey is an ed25519 signing key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// GenPrivateKey returns a new random key.
func GenPrivateKey() (*PrivateKey, error) {
	return genPrivateKey(rand.Reader)
}

// PrivateKeyFromSeed deterministically derives a key from a 32 byte seed.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Wrapf(errors.ErrInput, "seed must be %d bytes", ed25519.SeedSize)
	}
	return genPrivateKey(bytes.NewReader(seed))
}

func genPrivateKey(r io.Reader) (*PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return &PrivateKey{key: priv}, nil
}

// Sign returns the signature of message.
func (k *PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

// PublicKey returns the public part of the key.
func (k *PrivateKey) PublicKey() PublicKey {
	return PublicKey(k.key.Public().(ed25519.PublicKey))
}

// PublicKey is an ed25519 verification key.
type PublicKey []byte

// Verify returns true if sig is a valid signature of message.
func (p PublicKey) Verify(message, sig []byte) bool {
	if len(p) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p), message, sig)
}

// Condition returns the condition fulfilled by a signature of this key.
func (p PublicKey) Condition() ferry.Condition {
	return ferry.NewCondition("sigs", "ed25519", p)
}

// Address returns the account controlled by this key.
func (p PublicKey) Address() ferry.Address {
	return p.Condition().Address()
}
