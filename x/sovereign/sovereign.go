/*
Package sovereign translates the accounts that represent a parachain on the
origin chain into the accounts representing the same parachain on the
destination chain.

A parachain sovereign account on the origin chain is the "para" prefix, the
para id as little endian u16 and zero padding. Its counterpart on the
destination chain uses the "sibl" prefix and the same layout. Derived
accounts are computed from a sovereign account and an index, so they are
translated by translating the parent and deriving again.

Well known accounts are kept in precomputed tables, which are consulted
before the algorithmic translation.
*/
package sovereign

import (
	"bytes"
	"encoding/binary"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"golang.org/x/crypto/blake2b"
)

// ParaID identifies a parachain.
type ParaID uint32

var (
	paraPrefix = []byte("para")
	siblPrefix = []byte("sibl")

	derivationPrefix = []byte("modlpy/utilisuba")
)

const (
	prefixLen = 4
	idLen     = 2
)

// ParaAccount returns the sovereign account of a parachain on the origin
// chain.
func ParaAccount(id uint16) ferry.Address {
	return sovereignAccount(paraPrefix, id)
}

// SiblingAccount returns the sovereign account of a parachain on the
// destination chain.
func SiblingAccount(id uint16) ferry.Address {
	return sovereignAccount(siblPrefix, id)
}

func sovereignAccount(prefix []byte, id uint16) ferry.Address {
	acc := make(ferry.Address, ferry.AddressLength)
	copy(acc, prefix)
	binary.LittleEndian.PutUint16(acc[prefixLen:], id)
	return acc
}

// TryTranslateSovereign translates a parachain sovereign account of the
// origin chain into its destination chain counterpart. ErrTranslation is
// returned for any account that does not follow the canonical layout.
func TryTranslateSovereign(acc ferry.Address) (ferry.Address, ParaID, error) {
	if len(acc) != ferry.AddressLength {
		return nil, 0, errors.Wrapf(errors.ErrTranslation, "invalid length %d", len(acc))
	}
	if !bytes.HasPrefix(acc, paraPrefix) {
		return nil, 0, errors.Wrap(errors.ErrTranslation, "not a para account")
	}
	for _, b := range acc[prefixLen+idLen:] {
		if b != 0 {
			return nil, 0, errors.Wrap(errors.ErrTranslation, "invalid padding")
		}
	}
	id := binary.LittleEndian.Uint16(acc[prefixLen:])
	return SiblingAccount(id), ParaID(id), nil
}

// DeriveAccount returns the account derived from who with the given index.
func DeriveAccount(who ferry.Address, index uint16) ferry.Address {
	buf := make([]byte, 0, len(derivationPrefix)+len(who)+idLen)
	buf = append(buf, derivationPrefix...)
	buf = append(buf, who...)
	var idx [idLen]byte
	binary.LittleEndian.PutUint16(idx[:], index)
	buf = append(buf, idx[:]...)
	h := blake2b.Sum256(buf)
	return h[:]
}

// DeriveAccountPath applies DeriveAccount for every index of the path, in
// order.
func DeriveAccountPath(who ferry.Address, path ...uint16) ferry.Address {
	acc := who
	for _, index := range path {
		acc = DeriveAccount(acc, index)
	}
	return acc
}

// TryTranslateDerived translates an account derived from a parachain
// sovereign account. The caller provides the sovereign parent and the
// derivation index, which are verified to produce from.
func TryTranslateDerived(from, parent ferry.Address, index uint16) (ferry.Address, ParaID, error) {
	return TryTranslateDerivedPath(from, parent, index)
}

// TryTranslateDerivedPath is like TryTranslateDerived, for accounts derived
// over more than one level.
func TryTranslateDerivedPath(from, parent ferry.Address, path ...uint16) (ferry.Address, ParaID, error) {
	if len(path) == 0 {
		return nil, 0, errors.Wrap(errors.ErrTranslation, "empty derivation path")
	}
	if !DeriveAccountPath(parent, path...).Equals(from) {
		return nil, 0, errors.Wrap(errors.ErrTranslation, "account is not derived from parent")
	}
	sibl, id, err := TryTranslateSovereign(parent)
	if err != nil {
		return nil, 0, errors.Wrap(err, "parent")
	}
	return DeriveAccountPath(sibl, path...), id, nil
}
