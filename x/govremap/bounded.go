package govremap

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x/preimage"
)

// Bounded is a call that is either stored inline or referenced by the hash
// and length of its preimage.
type Bounded struct {
	Inline []byte `json:"inline,omitempty"`
	Hash   []byte `json:"hash,omitempty"`
	Len    uint32 `json:"len,omitempty"`
}

// Inline returns a call stored inline.
func Inline(call []byte) Bounded {
	return Bounded{Inline: call}
}

// Lookup returns a call referenced by its preimage.
func Lookup(hash []byte, length uint32) Bounded {
	return Bounded{Hash: hash, Len: length}
}

// IsLookup returns true if the call is stored as a preimage.
func (b Bounded) IsLookup() bool {
	return len(b.Hash) != 0
}

func (b Bounded) Validate() error {
	switch {
	case b.IsLookup() && len(b.Inline) != 0:
		return errors.Wrap(errors.ErrInput, "both inline and lookup")
	case b.IsLookup() && len(b.Hash) != preimage.HashLength:
		return errors.Wrap(errors.ErrInput, "hash length")
	case !b.IsLookup() && len(b.Inline) == 0:
		return errors.Wrap(errors.ErrEmpty, "call")
	case len(b.Inline) > MaxInline:
		return errors.Wrap(errors.ErrInput, "inline call too long")
	}
	return nil
}

// MapBounded translates a bounded call. A referenced call is read from the
// preimage store and its request is released. The result is inlined when it
// is short enough, otherwise it is noted as a new preimage.
func (m *Mapper) MapBounded(db ferry.KVStore, store preimage.Store, b Bounded) (Bounded, error) {
	if err := b.Validate(); err != nil {
		return Bounded{}, err
	}
	encoded := b.Inline
	if b.IsLookup() {
		var err error
		if encoded, err = store.Fetch(db, b.Hash, b.Len); err != nil {
			return Bounded{}, err
		}
	}
	call, err := m.MapCall(encoded)
	if err != nil {
		return Bounded{}, err
	}
	if b.IsLookup() {
		if p, err := store.Get(db, b.Hash); err != nil {
			return Bounded{}, err
		} else if p.Requests > 0 {
			if err := store.Unrequest(db, b.Hash); err != nil {
				return Bounded{}, err
			}
		}
	}
	if len(call) <= MaxInline {
		return Inline(call), nil
	}
	hash, err := store.Note(db, call)
	if err != nil {
		return Bounded{}, err
	}
	return Lookup(hash, uint32(len(call))), nil
}
