/*
Package preimage stores call preimages by their blake2b-256 hash and
migrates them in chunks.

Preimages can be larger than a single batch, so the origin chain cuts them
into chunks of at most ChunkSize bytes. The destination chain collects the
chunks of a preimage in order and stores it once the last chunk arrived and
the hash of the assembled bytes matches.
*/
package preimage

import (
	"bytes"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
	"golang.org/x/crypto/blake2b"
)

// HashLength is the length of a preimage hash.
const HashLength = blake2b.Size256

// Hash returns the key a preimage is stored under.
func Hash(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// Preimage is a noted blob together with the deposit paid for it.
type Preimage struct {
	Data      []byte        `json:"data"`
	Depositor ferry.Address `json:"depositor,omitempty"`
	Deposit   uint64        `json:"deposit"`
	// Requests counts the users of this preimage. A requested preimage is
	// kept even without a deposit.
	Requests uint32 `json:"requests"`
}

var _ orm.Model = (*Preimage)(nil)

func (p *Preimage) Marshal() ([]byte, error) {
	return codec.Marshal(p)
}

func (p *Preimage) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, p)
}

func (p *Preimage) Validate() error {
	var errs error
	if len(p.Data) == 0 {
		errs = errors.AppendField(errs, "Data", errors.ErrEmpty)
	}
	if len(p.Depositor) != 0 {
		errs = errors.AppendField(errs, "Depositor", p.Depositor.Validate())
	} else if p.Deposit != 0 {
		errs = errors.AppendField(errs, "Deposit", errors.Wrap(errors.ErrInput, "deposit without depositor"))
	}
	return errs
}

// Chunk is a part of a preimage sent to the destination chain. Only the
// first chunk carries the deposit information.
type Chunk struct {
	Hash      []byte
	Len       uint32
	Offset    uint32
	Bytes     []byte
	Depositor ferry.Address
	Deposit   uint64
	Requests  uint32
}

func (c *Chunk) Marshal() ([]byte, error) {
	return codec.Marshal(c)
}

func (c *Chunk) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, c)
}

func (c *Chunk) Validate() error {
	switch {
	case len(c.Hash) != HashLength:
		return errors.Wrap(errors.ErrInput, "hash")
	case len(c.Bytes) == 0:
		return errors.Wrap(errors.ErrEmpty, "chunk bytes")
	case uint64(c.Offset)+uint64(len(c.Bytes)) > uint64(c.Len):
		return errors.Wrap(errors.ErrInput, "chunk exceeds preimage length")
	}
	return nil
}

// Last returns true if this chunk completes the preimage.
func (c *Chunk) Last() bool {
	return c.Offset+uint32(len(c.Bytes)) == c.Len
}

// partial is a preimage being assembled on the destination chain.
type partial struct {
	Len       uint32
	Data      []byte
	Depositor ferry.Address
	Deposit   uint64
	Requests  uint32
}

func (p *partial) Marshal() ([]byte, error) {
	return codec.Marshal(p)
}

func (p *partial) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, p)
}

func (p *partial) Validate() error {
	if uint64(len(p.Data)) > uint64(p.Len) {
		return errors.Wrap(errors.ErrState, "partial preimage too long")
	}
	return nil
}

// Store gives access to the preimages of a chain.
type Store struct {
	preimages orm.ModelBucket
	partials  orm.ModelBucket
}

// NewStore returns the preimage storage.
func NewStore() Store {
	return Store{
		preimages: orm.NewModelBucket("preimage"),
		partials:  orm.NewModelBucket("preimg_part"),
	}
}

// Get returns the preimage stored under given hash or nil.
func (s Store) Get(db ferry.ReadOnlyKVStore, hash []byte) (*Preimage, error) {
	var p Preimage
	switch err := s.preimages.One(db, hash, &p); {
	case err == nil:
		return &p, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, err
	}
}

// Fetch returns the bytes of the preimage with given hash. The length is
// verified when it is not zero.
func (s Store) Fetch(db ferry.ReadOnlyKVStore, hash []byte, length uint32) ([]byte, error) {
	p, err := s.Get(db, hash)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "preimage %X", hash)
	}
	if length != 0 && uint32(len(p.Data)) != length {
		return nil, errors.Wrapf(errors.ErrState, "preimage %X is %d bytes, want %d", hash, len(p.Data), length)
	}
	return p.Data, nil
}

// Note stores data as a requested preimage and returns its hash. Noting
// data that is already stored adds a request.
func (s Store) Note(db ferry.KVStore, data []byte) ([]byte, error) {
	hash := Hash(data)
	p, err := s.Get(db, hash)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &Preimage{Data: data}
	}
	p.Requests++
	if err := s.preimages.Put(db, hash, p); err != nil {
		return nil, err
	}
	return hash, nil
}

// Unrequest removes a request of the preimage. A preimage that is neither
// requested nor paid for is removed.
func (s Store) Unrequest(db ferry.KVStore, hash []byte) error {
	p, err := s.Get(db, hash)
	if err != nil {
		return err
	}
	if p == nil || p.Requests == 0 {
		return errors.Wrapf(errors.ErrState, "preimage %X not requested", hash)
	}
	p.Requests--
	if p.Requests == 0 && len(p.Depositor) == 0 {
		return s.preimages.Delete(db, hash)
	}
	return s.preimages.Put(db, hash, p)
}

// Put stores a preimage under the hash of its data.
func (s Store) Put(db ferry.KVStore, p *Preimage) ([]byte, error) {
	hash := Hash(p.Data)
	return hash, s.preimages.Put(db, hash, p)
}

// addChunk appends the chunk to the preimage being assembled. Chunks that
// were already added are ignored. The preimage is returned once it is
// complete.
func (s Store) addChunk(db ferry.KVStore, c *Chunk) (*Preimage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if p, err := s.Get(db, c.Hash); err != nil {
		return nil, err
	} else if p != nil && uint32(len(p.Data)) == c.Len {
		return nil, nil
	}

	var part partial
	switch err := s.partials.One(db, c.Hash, &part); {
	case errors.ErrNotFound.Is(err):
		if c.Offset != 0 {
			return nil, errors.Wrapf(errors.ErrState, "chunk at %d before the first one", c.Offset)
		}
		part = partial{Len: c.Len, Depositor: c.Depositor, Deposit: c.Deposit, Requests: c.Requests}
	case err != nil:
		return nil, err
	}

	have := uint32(len(part.Data))
	switch {
	case part.Len != c.Len:
		return nil, errors.Wrapf(errors.ErrState, "length changed from %d to %d", part.Len, c.Len)
	case c.Offset+uint32(len(c.Bytes)) <= have:
		if !bytes.Equal(part.Data[c.Offset:c.Offset+uint32(len(c.Bytes))], c.Bytes) {
			return nil, errors.Wrapf(errors.ErrState, "chunk at %d differs", c.Offset)
		}
		return nil, nil
	case c.Offset != have:
		return nil, errors.Wrapf(errors.ErrState, "chunk at %d, want %d", c.Offset, have)
	}
	part.Data = append(part.Data, c.Bytes...)

	if !c.Last() {
		return nil, s.partials.Put(db, c.Hash, &part)
	}
	if !bytes.Equal(Hash(part.Data), c.Hash) {
		return nil, errors.Wrapf(errors.ErrState, "preimage %X hash mismatch", c.Hash)
	}
	if err := s.partials.Delete(db, c.Hash); err != nil && !errors.ErrNotFound.Is(err) {
		return nil, err
	}
	return &Preimage{
		Data:      part.Data,
		Depositor: part.Depositor,
		Deposit:   part.Deposit,
		Requests:  part.Requests,
	}, nil
}
