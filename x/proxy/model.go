/*
Package proxy migrates proxy definitions and proxy announcements.

A delegator allows delegates to act on its behalf, restricted by a proxy
kind and optionally delayed by a number of blocks. The delegator reserves a
deposit for the whole set. Kinds are mapped to the kinds known on the
destination chain and unknown kinds are dropped. Announcements are not
carried over: their deposits are returned on the destination chain.
*/
package proxy

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

// Definition grants a single delegate the right to act for the delegator.
type Definition struct {
	Delegate ferry.Address `json:"delegate"`
	Kind     string        `json:"kind"`
	// Delay in blocks of the chain the definition is stored on.
	Delay uint32 `json:"delay"`
}

// ProxySet is the list of proxies of one delegator.
type ProxySet struct {
	Delegator ferry.Address `json:"delegator"`
	Proxies   []Definition  `json:"proxies"`
	Deposit   uint64        `json:"deposit"`
}

var _ orm.Model = (*ProxySet)(nil)

func (p *ProxySet) Marshal() ([]byte, error) {
	return codec.Marshal(p)
}

func (p *ProxySet) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, p)
}

func (p *ProxySet) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Delegator", p.Delegator.Validate())
	if len(p.Proxies) == 0 {
		errs = errors.AppendField(errs, "Proxies", errors.ErrEmpty)
	}
	for i, d := range p.Proxies {
		if err := d.Delegate.Validate(); err != nil {
			errs = errors.AppendField(errs, "Proxies", errors.Wrapf(err, "proxy %d", i))
		}
		if d.Kind == "" {
			errs = errors.AppendField(errs, "Proxies", errors.Wrapf(errors.ErrEmpty, "proxy %d kind", i))
		}
	}
	return errs
}

// Has returns true if the set contains the given delegate with given kind.
func (p *ProxySet) Has(delegate ferry.Address, kind string) bool {
	for _, d := range p.Proxies {
		if d.Kind == kind && d.Delegate.Equals(delegate) {
			return true
		}
	}
	return false
}

// Announcement is the deposit reserved for announced proxy calls.
type Announcement struct {
	Depositor  ferry.Address `json:"depositor"`
	CallHashes [][]byte      `json:"call_hashes"`
	Deposit    uint64        `json:"deposit"`
}

var _ orm.Model = (*Announcement)(nil)

func (a *Announcement) Marshal() ([]byte, error) {
	return codec.Marshal(a)
}

func (a *Announcement) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, a)
}

func (a *Announcement) Validate() error {
	return errors.Field("Depositor", a.Depositor.Validate(), "invalid depositor")
}

// AnnouncementRecord is what the destination chain needs to know about an
// announcement.
type AnnouncementRecord struct {
	Depositor ferry.Address
	Deposit   uint64
}

func (r *AnnouncementRecord) Marshal() ([]byte, error) {
	return codec.Marshal(r)
}

func (r *AnnouncementRecord) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, r)
}

// Buckets groups the storage of this package.
type Buckets struct {
	Proxies       orm.ModelBucket
	Announcements orm.ModelBucket
	// Pure holds accounts created as pure proxies. Such accounts have no
	// key, so they keep their free proxies on the origin chain.
	Pure orm.Bucket
}

// NewBuckets returns the storage of this package.
func NewBuckets() Buckets {
	return Buckets{
		Proxies:       orm.NewModelBucket("proxy"),
		Announcements: orm.NewModelBucket("proxy_ann"),
		Pure:          orm.NewBucket("proxy_pure"),
	}
}

// GetProxies returns the proxy set of the delegator or nil.
func (b Buckets) GetProxies(db ferry.ReadOnlyKVStore, delegator ferry.Address) (*ProxySet, error) {
	var p ProxySet
	switch err := b.Proxies.One(db, delegator, &p); {
	case err == nil:
		return &p, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, err
	}
}

// MarkPure records that the account is a pure proxy.
func (b Buckets) MarkPure(db ferry.KVStore, who ferry.Address) error {
	return b.Pure.Set(db, who, []byte{1})
}

// IsPure returns true if the account is a pure proxy.
func (b Buckets) IsPure(db ferry.ReadOnlyKVStore, who ferry.Address) (bool, error) {
	return b.Pure.Has(db, who)
}
