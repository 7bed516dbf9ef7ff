package preimage

import (
	"bytes"
	"encoding/binary"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

// DomainName identifies preimage chunks in batches and checks.
const DomainName = "preimage"

// ChunkWeight returns the cost of migrating a chunk of n bytes.
func ChunkWeight(n int) weight.Weight {
	return weight.New(20000+uint64(n), 200+uint64(n)).Add(xcm.ItemWeight)
}

// Domain migrates preimages.
type Domain struct {
	store      Store
	translator accounts.Translator
}

var _ x.Domain = (*Domain)(nil)

// NewDomain returns the preimage domain.
func NewDomain(translator accounts.Translator) *Domain {
	return &Domain{store: NewStore(), translator: translator}
}

func (*Domain) Name() string {
	return DomainName
}

// The cursor is the hash of the preimage in progress followed by the offset
// of its next chunk.
func encodeCursor(hash []byte, offset uint32) []byte {
	c := make([]byte, len(hash)+4)
	copy(c, hash)
	binary.BigEndian.PutUint32(c[len(hash):], offset)
	return c
}

func decodeCursor(c []byte) ([]byte, uint32, error) {
	if len(c) == 0 {
		return nil, 0, nil
	}
	if len(c) != HashLength+4 {
		return nil, 0, errors.Wrapf(errors.ErrInput, "cursor of %d bytes", len(c))
	}
	return c[:HashLength], binary.BigEndian.Uint32(c[HashLength:]), nil
}

// Migrate cuts preimages into chunks. A preimage is removed from the origin
// chain once its last chunk was produced.
func (d *Domain) Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out x.Sender) ([]byte, bool, error) {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, false, err
	}
	from, offset, err := decodeCursor(cursor)
	if err != nil {
		return nil, false, err
	}
	log := ferry.GetLogger(ctx).With("module", DomainName)

	var items [][]byte
	flush := func(next []byte, done bool) ([]byte, bool, error) {
		if len(items) > 0 {
			if err := out.SendChunked(ctx, db, DomainName, items); err != nil {
				return nil, false, err
			}
		}
		return next, done, nil
	}

	b := d.store.preimages.Bucket()
	it, err := b.Range(db, from)
	if err != nil {
		return nil, false, err
	}
	defer it.Release()

	for {
		k, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return flush(nil, true)
		}
		if err != nil {
			return nil, false, err
		}
		hash := b.Unprefix(k)
		var p Preimage
		if err := d.store.preimages.One(db, hash, &p); err != nil {
			return nil, false, err
		}
		if !bytes.Equal(hash, from) {
			offset = 0
		}

		size := uint32(len(p.Data))
		for offset < size {
			end := offset + conf.ChunkSize
			if end > size || end < offset {
				end = size
			}
			if uint32(len(items)) >= conf.MaxChunksPerBlock || meter.TryConsume(ChunkWeight(int(end-offset))) != nil {
				return flush(encodeCursor(hash, offset), false)
			}
			c := Chunk{Hash: hash, Len: size, Offset: offset, Bytes: p.Data[offset:end]}
			if offset == 0 {
				c.Depositor = p.Depositor
				c.Deposit = p.Deposit
				c.Requests = p.Requests
			}
			raw, err := c.Marshal()
			if err != nil {
				return nil, false, err
			}
			items = append(items, raw)
			offset = end
		}
		log.Debug("preimage exported", "hash", hash, "len", size)
		if err := d.store.preimages.Delete(db, hash); err != nil {
			return nil, false, err
		}
	}
}

// Integrate adds the chunks of a batch. Any broken chunk fails the whole
// batch.
func (d *Domain) Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error {
	log := ferry.GetLogger(ctx).With("module", DomainName)
	for i, raw := range items {
		var c Chunk
		if err := c.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		p, err := d.store.addChunk(db, &c)
		if err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		if p == nil {
			continue
		}
		if len(p.Depositor) != 0 {
			p.Depositor = d.translator.Translate(p.Depositor)
		}
		if existing, err := d.store.Get(db, c.Hash); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		} else if existing != nil {
			p.Requests += existing.Requests
		}
		if _, err := d.store.Put(db, p); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		log.Debug("preimage integrated", "hash", c.Hash, "len", c.Len)
	}
	return nil
}

type snapshot struct {
	hashes [][]byte
}

// PreCheck records the hashes of all preimages of the origin chain.
func (d *Domain) PreCheck(oc, dc ferry.ReadOnlyKVStore) (checks.Payload, error) {
	b := d.store.preimages.Bucket()
	it, err := b.Range(oc, nil)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var s snapshot
	for {
		k, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return &s, nil
		}
		if err != nil {
			return nil, err
		}
		s.hashes = append(s.hashes, append([]byte(nil), b.Unprefix(k)...))
	}
}

// PostCheck verifies that all preimages moved intact and none is left half
// assembled.
func (d *Domain) PostCheck(oc, dc ferry.ReadOnlyKVStore, p checks.Payload) error {
	s, ok := p.(*snapshot)
	if !ok {
		return errors.Wrapf(errors.ErrType, "payload %T", p)
	}
	var errs error
	if !isEmpty(oc, d.store.preimages.Bucket().Range) {
		errs = errors.Append(errs, errors.Wrap(errors.ErrState, "preimages left on origin"))
	}
	if !isEmpty(dc, d.store.partials.Bucket().Range) {
		errs = errors.Append(errs, errors.Wrap(errors.ErrState, "incomplete preimages on destination"))
	}
	for _, h := range s.hashes {
		got, err := d.store.Get(dc, h)
		if err != nil {
			return err
		}
		if got == nil {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "preimage %X missing", h))
			continue
		}
		if !bytes.Equal(Hash(got.Data), h) {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "preimage %X corrupted", h))
		}
	}
	return errs
}

func isEmpty(db ferry.ReadOnlyKVStore, rangeFn func(ferry.ReadOnlyKVStore, []byte) (ferry.Iterator, error)) bool {
	it, err := rangeFn(db, nil)
	if err != nil {
		return false
	}
	defer it.Release()
	_, _, err = it.Next()
	return errors.ErrIteratorDone.Is(err)
}
