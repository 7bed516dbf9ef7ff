package store

// Op is a single write of a batch.
type Op struct {
	Key   []byte
	Value []byte
	// Delete removes Key. Value is unused then.
	Delete bool
}

// Apply performs the write on out.
func (o Op) Apply(out SetDeleter) error {
	if o.Delete {
		return out.Delete(o.Key)
	}
	return out.Set(o.Key, o.Value)
}

// OpBatch records writes and replays them in order on Write. The writes are
// not atomic, so use it only for stores that cannot fail halfway, like the
// in memory ones.
type OpBatch struct {
	out SetDeleter
	ops []Op
}

var _ Batch = (*OpBatch)(nil)

// NewOpBatch returns an empty batch writing to out.
func NewOpBatch(out SetDeleter) *OpBatch {
	return &OpBatch{out: out}
}

func (b *OpBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, Op{Key: key, Value: value})
	return nil
}

func (b *OpBatch) Delete(key []byte) error {
	b.ops = append(b.ops, Op{Key: key, Delete: true})
	return nil
}

// Write replays the recorded writes and empties the batch.
func (b *OpBatch) Write() error {
	for i, op := range b.ops {
		if err := op.Apply(b.out); err != nil {
			b.ops = b.ops[i:]
			return err
		}
	}
	b.ops = nil
	return nil
}

// Ops returns the writes waiting in the batch.
func (b *OpBatch) Ops() []Op {
	return b.ops
}
