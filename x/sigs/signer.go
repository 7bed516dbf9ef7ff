package sigs

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

// Signer is a key that signed at least one transaction.
type Signer struct {
	Pubkey PublicKey
	// Nonce is the nonce of the next transaction of this key.
	Nonce uint64
}

var _ orm.Model = (*Signer)(nil)

func (s *Signer) Marshal() ([]byte, error)   { return codec.Marshal(s) }
func (s *Signer) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, s) }

func (s *Signer) Validate() error {
	if len(s.Pubkey) == 0 {
		return errors.Field("Pubkey", errors.ErrEmpty, "")
	}
	return nil
}

// SignerBucket keeps the signers by address.
type SignerBucket struct {
	orm.ModelBucket
}

// NewSignerBucket returns the bucket of all signers.
func NewSignerBucket() SignerBucket {
	return SignerBucket{ModelBucket: orm.NewModelBucket("sigs")}
}

// Load returns the signer of pubkey. A key that never signed starts with
// nonce 0.
func (b SignerBucket) Load(db ferry.ReadOnlyKVStore, pubkey PublicKey) (*Signer, error) {
	var s Signer
	err := b.One(db, pubkey.Address(), &s)
	if errors.ErrNotFound.Is(err) {
		return &Signer{Pubkey: pubkey}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save stores the signer.
func (b SignerBucket) Save(db ferry.KVStore, s *Signer) error {
	return b.Put(db, s.Pubkey.Address(), s)
}

// NextNonce returns the nonce the next transaction of addr must be signed
// with.
func NextNonce(db ferry.ReadOnlyKVStore, addr ferry.Address) (uint64, error) {
	var s Signer
	switch err := NewSignerBucket().One(db, addr, &s); {
	case errors.ErrNotFound.Is(err):
		return 0, nil
	case err != nil:
		return 0, errors.Wrap(err, "signer")
	}
	return s.Nonce, nil
}
