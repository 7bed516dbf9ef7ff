package sigs

import (
	"encoding/binary"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"golang.org/x/crypto/blake2b"
)

// signDomain prefixes every signed payload, so that a signature made for a
// transaction cannot be replayed in another context.
var signDomain = []byte("ferry/tx/v1")

// SignedTx is a transaction carrying the signatures of its authors.
type SignedTx interface {
	// GetSignBytes returns the transaction serialized without its
	// signatures.
	GetSignBytes() ([]byte, error)
	GetSignatures() []Signature
}

// Signature authorizes a transaction for the owner of Pubkey. Nonce must be
// the next nonce of the signer.
type Signature struct {
	Pubkey PublicKey
	Bytes  []byte
	Nonce  uint64
}

// Validate checks that no part of the signature is missing.
func (s *Signature) Validate() error {
	var errs error
	if len(s.Pubkey) == 0 {
		errs = errors.AppendField(errs, "Pubkey", errors.ErrEmpty)
	}
	if len(s.Bytes) == 0 {
		errs = errors.AppendField(errs, "Bytes", errors.ErrEmpty)
	}
	return errors.Wrap(errs, "signature")
}

// Digest returns the 32 byte value that is signed for a transaction.
//
//	blake2b-256(domain | len(chainID) | chainID | nonce | signBytes)
//
// The chain id is at most 255 bytes and the nonce is big endian.
func Digest(signBytes []byte, chainID string, nonce uint64) ([]byte, error) {
	if !ferry.IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id %q", chainID)
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrHuman, err.Error())
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(signDomain)
	h.Write([]byte{byte(len(chainID))})
	h.Write([]byte(chainID))
	h.Write(n[:])
	h.Write(signBytes)
	return h.Sum(nil), nil
}

// Sign returns the signature of tx for the given chain and nonce.
func Sign(key *PrivateKey, tx SignedTx, chainID string, nonce uint64) (*Signature, error) {
	raw, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}
	digest, err := Digest(raw, chainID, nonce)
	if err != nil {
		return nil, err
	}
	return &Signature{Pubkey: key.PublicKey(), Bytes: key.Sign(digest), Nonce: nonce}, nil
}

// Verify checks every signature of tx and consumes the nonce of each signer.
// It returns the conditions of the signers in the order they signed.
func Verify(db ferry.KVStore, tx SignedTx, chainID string) ([]ferry.Condition, error) {
	raw, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}
	signers := NewSignerBucket()
	var conds []ferry.Condition
	for i, sig := range tx.GetSignatures() {
		if err := sig.Validate(); err != nil {
			return nil, errors.Wrapf(err, "signature %d", i)
		}
		signer, err := signers.Load(db, sig.Pubkey)
		if err != nil {
			return nil, err
		}
		if sig.Nonce != signer.Nonce {
			return nil, errors.Wrapf(errors.ErrSignature, "nonce %d, want %d", sig.Nonce, signer.Nonce)
		}
		digest, err := Digest(raw, chainID, sig.Nonce)
		if err != nil {
			return nil, err
		}
		if !sig.Pubkey.Verify(digest, sig.Bytes) {
			return nil, errors.Wrapf(errors.ErrUnauthorized, "signature %d does not match", i)
		}
		signer.Nonce++
		if err := signers.Save(db, signer); err != nil {
			return nil, err
		}
		conds = append(conds, sig.Pubkey.Condition())
	}
	return conds, nil
}
