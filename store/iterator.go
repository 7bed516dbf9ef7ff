package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/ferry/errors"
)

// snapshot copies all entries of the given range. Iterators work on the
// copy, so writes to the cache wrap during iteration are safe.
func snapshot(tree *btree.BTree, start, end []byte, reverse bool) []entry {
	var res []entry
	collect := func(item btree.Item) bool {
		res = append(res, item.(entry))
		return true
	}

	switch {
	case start == nil && end == nil:
		tree.Ascend(collect)
	case start == nil:
		tree.AscendLessThan(entry{key: end}, collect)
	case end == nil:
		tree.AscendGreaterOrEqual(entry{key: start}, collect)
	default:
		tree.AscendRange(entry{key: start}, entry{key: end}, collect)
	}

	if reverse {
		for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
			res[i], res[j] = res[j], res[i]
		}
	}
	return res
}

// cacheIterator merges cached entries with the iterator of the parent
// store. A cached entry shadows the parent value of the same key.
type cacheIterator struct {
	own     []entry
	reverse bool

	parent Iterator
	// next entry of the parent, read ahead
	next     entry
	hasNext  bool
	finished bool
}

var _ Iterator = (*cacheIterator)(nil)

func newCacheIterator(own []entry, parent Iterator, reverse bool) *cacheIterator {
	return &cacheIterator{
		own:     own,
		parent:  parent,
		reverse: reverse,
	}
}

// Next returns the next key in iteration order, or ErrIteratorDone.
func (c *cacheIterator) Next() (key, value []byte, err error) {
	for {
		if err := c.readAhead(); err != nil {
			return nil, nil, err
		}
		if len(c.own) == 0 {
			if !c.hasNext {
				return nil, nil, errors.ErrIteratorDone
			}
			c.hasNext = false
			return c.next.key, c.next.value, nil
		}

		e := c.own[0]
		if c.hasNext {
			cmp := bytes.Compare(e.key, c.next.key)
			if c.reverse {
				cmp = -cmp
			}
			if cmp > 0 {
				c.hasNext = false
				return c.next.key, c.next.value, nil
			}
			if cmp == 0 {
				c.hasNext = false
			}
		}
		c.own = c.own[1:]
		if !e.deleted {
			return e.key, e.value, nil
		}
	}
}

func (c *cacheIterator) readAhead() error {
	if c.hasNext || c.finished {
		return nil
	}
	k, v, err := c.parent.Next()
	switch {
	case errors.ErrIteratorDone.Is(err):
		c.finished = true
		return nil
	case err != nil:
		return err
	}
	c.next, c.hasNext = entry{key: k, value: v}, true
	return nil
}

// Release releases the parent iterator.
func (c *cacheIterator) Release() {
	c.parent.Release()
	c.own = nil
}
