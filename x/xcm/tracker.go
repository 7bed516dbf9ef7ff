package xcm

import (
	"encoding/binary"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
	"github.com/iov-one/ferry/queue"
	"github.com/iov-one/ferry/x/weight"
)

// ItemWeight is the cost of sending a single record.
var ItemWeight = weight.New(1000, 128)

var (
	// Outbox holds the deliveries waiting for the relay.
	Outbox = queue.New("xcm_out")
	// Inbox holds the deliveries received from the other chain.
	Inbox = queue.New("xcm_in")
)

// Tracker sends envelopes and keeps every batch until the receiver reports
// that it was integrated.
//
// Every send is assigned a new query id. The pending query bucket maps a
// query id to the hash of the sent message, the pending message bucket maps
// that hash to the message itself. Several query ids may point to the same
// message once it was resent.
type Tracker struct {
	queries  orm.Bucket
	messages orm.Bucket
	ids      orm.Sequence
	outbox   queue.Queue
}

// NewTracker returns a tracker sending through the Outbox.
func NewTracker() *Tracker {
	queries := orm.NewBucket("xcm_query")
	return &Tracker{
		queries:  queries,
		messages: orm.NewBucket("xcm_message"),
		ids:      queries.Sequence("id"),
		outbox:   Outbox,
	}
}

// SendChunked splits items into batches limited by the configuration and
// sends each of them as a tracked envelope of the given domain.
func (t *Tracker) SendChunked(ctx ferry.Context, db ferry.KVStore, domain string, items [][]byte) error {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return errors.Wrap(err, "configuration")
	}
	for _, batch := range chunk(items, int(conf.MaxBatchItems), int(conf.MaxBatchBytes)) {
		env := Envelope{
			Version: Version,
			Kind:    KindBatch,
			Domain:  domain,
			Items:   batch,
		}
		if _, err := t.sendTracked(ctx, db, &env); err != nil {
			return err
		}
	}
	return nil
}

// chunk groups items in order. A group has at most maxItems items and at
// most maxBytes bytes, unless it holds a single bigger item.
func chunk(items [][]byte, maxItems, maxBytes int) [][][]byte {
	var (
		chunks [][][]byte
		cur    [][]byte
		size   int
	)
	for _, it := range items {
		if len(cur) > 0 && (len(cur) == maxItems || size+len(it) > maxBytes) {
			chunks = append(chunks, cur)
			cur, size = nil, 0
		}
		cur = append(cur, it)
		size += len(it)
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

func (t *Tracker) sendTracked(ctx ferry.Context, db ferry.KVStore, env *Envelope) (uint64, error) {
	id, err := t.nextID(db)
	if err != nil {
		return 0, err
	}
	env.QueryID = id
	payload, err := env.Marshal()
	if err != nil {
		return 0, errors.Wrap(err, "envelope")
	}
	if err := t.push(db, true, id, payload); err != nil {
		return 0, err
	}
	hash := Hash(payload)
	if err := t.queries.Set(db, encodeID(id), hash); err != nil {
		return 0, errors.Wrap(err, "pending query")
	}
	switch ok, err := t.messages.Has(db, hash); {
	case err != nil:
		return 0, errors.Wrap(err, "pending message")
	case !ok:
		if err := t.messages.Set(db, hash, payload); err != nil {
			return 0, errors.Wrap(err, "pending message")
		}
	}
	ferry.GetLogger(ctx).Debug("batch sent",
		"query_id", id, "domain", env.Domain, "items", len(env.Items))
	return id, nil
}

// SendSignal sends an untracked envelope of the given kind. Only start,
// start_ack and finish are signals.
func (t *Tracker) SendSignal(ctx ferry.Context, db ferry.KVStore, kind Kind) error {
	switch kind {
	case KindStart, KindStartAck, KindFinish:
	default:
		return errors.Wrapf(errors.ErrInput, "%s is not a signal", kind)
	}
	env := Envelope{Version: Version, Kind: kind}
	if err := env.Validate(); err != nil {
		return err
	}
	payload, err := env.Marshal()
	if err != nil {
		return errors.Wrap(err, "envelope")
	}
	ferry.GetLogger(ctx).Info("signal sent", "kind", kind)
	return t.push(db, false, 0, payload)
}

// Respond sends the outcome of the batch received under queryID. A nil
// result reports a success.
func Respond(db ferry.KVStore, queryID uint64, result error) error {
	env := Envelope{
		Version: Version,
		Kind:    KindResponse,
		QueryID: queryID,
		Success: result == nil,
	}
	if result != nil {
		env.Error = result.Error()
	}
	payload, err := env.Marshal()
	if err != nil {
		return errors.Wrap(err, "envelope")
	}
	return push(Outbox, db, false, queryID, payload)
}

func (t *Tracker) push(db ferry.KVStore, tracked bool, id uint64, payload []byte) error {
	return push(t.outbox, db, tracked, id, payload)
}

func push(q queue.Queue, db ferry.KVStore, tracked bool, id uint64, payload []byte) error {
	d := Delivery{Tracked: tracked, QueryID: id, Payload: payload}
	raw, err := d.Marshal()
	if err != nil {
		return errors.Wrap(err, "delivery")
	}
	if err := q.Push(db, raw); err != nil {
		return errors.Wrap(err, "outbox")
	}
	return nil
}

// OnResponse processes the outcome of a tracked send. On success the query
// and the message are removed. On failure both are kept, so that the
// message can be resent.
func (t *Tracker) OnResponse(ctx ferry.Context, db ferry.KVStore, id uint64, success bool) error {
	hash, err := t.queries.Get(db, encodeID(id))
	if err != nil {
		return errors.Wrap(err, "pending query")
	}
	if hash == nil {
		return errors.Wrapf(errors.ErrQueryNotFound, "query %d", id)
	}
	if !success {
		ferry.GetLogger(ctx).Error("batch failed", "query_id", id)
		return nil
	}
	if err := t.queries.Delete(db, encodeID(id)); err != nil {
		return errors.Wrap(err, "pending query")
	}
	if err := t.messages.Delete(db, hash); err != nil {
		return errors.Wrap(err, "pending message")
	}
	return nil
}

// Resend sends again the message of the given query under a new query id,
// which is returned. The old query stays in place.
func (t *Tracker) Resend(ctx ferry.Context, db ferry.KVStore, id uint64) (uint64, error) {
	payload, err := t.Message(db, id)
	if err != nil {
		return 0, err
	}
	newID, err := t.nextID(db)
	if err != nil {
		return 0, err
	}
	if err := t.push(db, true, newID, payload); err != nil {
		return 0, err
	}
	if err := t.queries.Set(db, encodeID(newID), Hash(payload)); err != nil {
		return 0, errors.Wrap(err, "pending query")
	}
	ferry.GetLogger(ctx).Info("batch resent", "query_id", id, "new_query_id", newID)
	return newID, nil
}

// Message returns the bytes of the message sent under the given query id.
// ErrQueryNotFound is returned when the query is unknown or its message was
// already acknowledged.
func (t *Tracker) Message(db ferry.ReadOnlyKVStore, id uint64) ([]byte, error) {
	hash, err := t.queries.Get(db, encodeID(id))
	if err != nil {
		return nil, errors.Wrap(err, "pending query")
	}
	if hash == nil {
		return nil, errors.Wrapf(errors.ErrQueryNotFound, "query %d", id)
	}
	payload, err := t.messages.Get(db, hash)
	if err != nil {
		return nil, errors.Wrap(err, "pending message")
	}
	if payload == nil {
		return nil, errors.Wrapf(errors.ErrQueryNotFound, "message of query %d", id)
	}
	return payload, nil
}

// MessageByHash returns a pending message by its hash, or nil.
func (t *Tracker) MessageByHash(db ferry.ReadOnlyKVStore, hash []byte) ([]byte, error) {
	return t.messages.Get(db, hash)
}

// PendingCount returns the number of messages awaiting a successful
// response.
func (t *Tracker) PendingCount(db ferry.ReadOnlyKVStore) (int, error) {
	return count(db, t.messages)
}

// PendingQueries returns the ids of all queries still in place, in
// ascending order.
func (t *Tracker) PendingQueries(db ferry.ReadOnlyKVStore) ([]uint64, error) {
	it, err := t.queries.Range(db, nil)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var ids []uint64
	for {
		switch k, _, err := it.Next(); {
		case err == nil:
			ids = append(ids, binary.BigEndian.Uint64(t.queries.Unprefix(k)))
		case errors.ErrIteratorDone.Is(err):
			return ids, nil
		default:
			return nil, err
		}
	}
}

// NextQueryID returns the id the next send will use.
func (t *Tracker) NextQueryID(db ferry.ReadOnlyKVStore) (uint64, error) {
	return t.ids.Peek(db)
}

func (t *Tracker) nextID(db ferry.KVStore) (uint64, error) {
	id, err := t.ids.Next(db)
	return id, errors.Wrap(err, "query id")
}

func count(db ferry.ReadOnlyKVStore, b orm.Bucket) (int, error) {
	it, err := b.Range(db, nil)
	if err != nil {
		return 0, err
	}
	defer it.Release()

	var n int
	for {
		switch _, _, err := it.Next(); {
		case err == nil:
			n++
		case errors.ErrIteratorDone.Is(err):
			return n, nil
		default:
			return 0, err
		}
	}
}

func encodeID(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}
