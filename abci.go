package ferry

import (
	"github.com/iov-one/ferry/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/common"
)

// KVPair is an event tag.
type KVPair = common.KVPair

// Tag builds an event tag.
func Tag(key, value string) KVPair {
	return KVPair{Key: []byte(key), Value: []byte(value)}
}

// DeliverResult is the outcome of a delivered transaction. Failures are
// returned as errors, never as a result.
type DeliverResult struct {
	// Data is returned to the client, for example the id of a created
	// record.
	Data []byte
	Log  string
	Tags []KVPair
}

func (r DeliverResult) ToABCI() abci.ResponseDeliverTx {
	return abci.ResponseDeliverTx{Data: r.Data, Log: r.Log, Tags: r.Tags}
}

// CheckResult is the outcome of a checked transaction.
type CheckResult struct {
	Data []byte
	Log  string
}

func (r CheckResult) ToABCI() abci.ResponseCheckTx {
	return abci.ResponseCheckTx{Data: r.Data, Log: r.Log}
}

// TickResult is returned by a Ticker. The chain returns the tags of all
// tickers from BeginBlock.
type TickResult struct {
	Tags []KVPair
}

// DeliverOrError returns the response of err or, without an error, of res.
func DeliverOrError(res *DeliverResult, err error, debug bool) abci.ResponseDeliverTx {
	if err != nil {
		return DeliverTxError(err, debug)
	}
	return res.ToABCI()
}

// CheckOrError returns the response of err or, without an error, of res.
func CheckOrError(res *CheckResult, err error, debug bool) abci.ResponseCheckTx {
	if err != nil {
		return CheckTxError(err, debug)
	}
	return res.ToABCI()
}

// DeliverTxError returns the response of a failed delivery. Internal errors
// are redacted unless debug is set.
func DeliverTxError(err error, debug bool) abci.ResponseDeliverTx {
	code, log := txErrorInfo("deliver", err, debug)
	return abci.ResponseDeliverTx{Code: code, Log: log}
}

// CheckTxError returns the response of a failed check. Internal errors are
// redacted unless debug is set.
func CheckTxError(err error, debug bool) abci.ResponseCheckTx {
	code, log := txErrorInfo("check", err, debug)
	return abci.ResponseCheckTx{Code: code, Log: log}
}

func txErrorInfo(op string, err error, debug bool) (uint32, string) {
	code, log := errors.ABCIInfo(err, debug)
	if code == errors.SuccessABCICode {
		return code, log
	}
	return code, "cannot " + op + " tx: " + log
}

// ParseDeliverOrError reverts DeliverOrError. A failed response becomes an
// error carrying the code and the log.
func ParseDeliverOrError(res abci.ResponseDeliverTx) (*DeliverResult, error) {
	if res.Code != errors.SuccessABCICode {
		return nil, errors.Wrapf(errors.ErrState, "code %d: %s", res.Code, res.Log)
	}
	return &DeliverResult{Data: res.Data, Log: res.Log, Tags: res.Tags}, nil
}
