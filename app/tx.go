package app

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x/sigs"
)

// StdTx is the transaction accepted by both chains: a single message and
// the signatures authorizing it.
type StdTx struct {
	Msg        ferry.Msg
	Signatures []sigs.Signature
}

var _ ferry.Tx = (*StdTx)(nil)
var _ sigs.SignedTx = (*StdTx)(nil)

// NewTx wraps a message into an unsigned transaction.
func NewTx(msg ferry.Msg) *StdTx {
	return &StdTx{Msg: msg}
}

// GetMsg implements ferry.Tx.
func (tx *StdTx) GetMsg() (ferry.Msg, error) {
	if tx.Msg == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "transaction message")
	}
	return tx.Msg, nil
}

// GetSignatures implements sigs.SignedTx.
func (tx *StdTx) GetSignatures() []sigs.Signature {
	return tx.Signatures
}

// GetSignBytes returns the transaction serialized without signatures.
func (tx *StdTx) GetSignBytes() ([]byte, error) {
	unsigned := StdTx{Msg: tx.Msg}
	return codec.Marshal(&unsigned)
}

// Sign appends a signature of given key made with the signer's next nonce.
func (tx *StdTx) Sign(key *sigs.PrivateKey, chainID string, nonce uint64) error {
	sig, err := sigs.Sign(key, tx, chainID, nonce)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, *sig)
	return nil
}

func (tx *StdTx) Marshal() ([]byte, error) {
	return codec.Marshal(tx)
}

func (tx *StdTx) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, tx)
}

// DecodeTx is the ferry.TxDecoder of StdTx.
func DecodeTx(raw []byte) (ferry.Tx, error) {
	var tx StdTx
	if err := tx.Unmarshal(raw); err != nil {
		return nil, err
	}
	return &tx, nil
}
