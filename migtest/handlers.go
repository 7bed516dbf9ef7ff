package migtest

import (
	"github.com/iov-one/ferry"
)

// Handler is a ferry.Handler mock counting its calls.
type Handler struct {
	checkCall   int
	CheckResult ferry.CheckResult
	CheckErr    error

	deliverCall   int
	DeliverResult ferry.DeliverResult
	DeliverErr    error
}

var _ ferry.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.CheckResult, error) {
	h.checkCall++
	if h.CheckErr != nil {
		return nil, h.CheckErr
	}
	res := h.CheckResult
	return &res, nil
}

func (h *Handler) Deliver(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.DeliverResult, error) {
	h.deliverCall++
	if h.DeliverErr != nil {
		return nil, h.DeliverErr
	}
	res := h.DeliverResult
	return &res, nil
}

func (h *Handler) CheckCallCount() int {
	return h.checkCall
}

func (h *Handler) DeliverCallCount() int {
	return h.deliverCall
}

func (h *Handler) CallCount() int {
	return h.checkCall + h.deliverCall
}

// Tx represents a transaction carrying a single message.
type Tx struct {
	// Msg is the message that is to be processed by this transaction.
	Msg ferry.Msg
	// Err if set is returned by any method call.
	Err error
}

var _ ferry.Tx = (*Tx)(nil)

func (tx *Tx) GetMsg() (ferry.Msg, error) {
	return tx.Msg, tx.Err
}

func (tx *Tx) Unmarshal([]byte) error {
	panic("not implemented")
}

func (tx *Tx) Marshal() ([]byte, error) {
	panic("not implemented")
}

// Msg is a message mock routed by its RoutePath.
type Msg struct {
	// Path returned by the path method, consumed by the router.
	RoutePath string
	// Serialized represents the serialized form of this message.
	Serialized []byte
	// Err if set is returned by any method call.
	Err error
}

var _ ferry.Msg = (*Msg)(nil)

func (m *Msg) Path() string {
	return m.RoutePath
}

func (m *Msg) Validate() error {
	return m.Err
}

func (m *Msg) Unmarshal(b []byte) error {
	m.Serialized = b
	return m.Err
}

func (m *Msg) Marshal() ([]byte, error) {
	return m.Serialized, m.Err
}
