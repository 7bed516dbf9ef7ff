package accounts

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x/weight"
)

// AccountWeight is the cost of withdrawing or integrating a single account.
var AccountWeight = weight.New(25000, 1500)

// Translator maps an origin chain account to its destination chain
// counterpart.
type Translator interface {
	Translate(ferry.Address) ferry.Address
}

// Transform moves single accounts between the chains.
type Transform struct {
	bucket     Bucket
	translator Translator
}

// NewTransform returns a transform using the given account translator on
// integration.
func NewTransform(translator Translator) *Transform {
	return &Transform{bucket: NewBucket(), translator: translator}
}

// Withdraw removes an account from the origin chain and returns everything
// that must be recreated on the destination chain.
//
// The weight of the operation and extra are consumed first. If the meter
// cannot afford them, ErrOutOfWeight is returned and nothing is changed.
// A nil record and no error are returned for accounts that stay on the
// origin chain.
func (t *Transform) Withdraw(ctx ferry.Context, db ferry.KVStore, who ferry.Address, meter *weight.Meter, extra weight.Weight) (*WithdrawnAccount, error) {
	if err := meter.TryConsume(AccountWeight.Add(extra)); err != nil {
		return nil, err
	}
	log := ferry.GetLogger(ctx).With("module", packageName, "account", who)

	acc, err := t.bucket.Get(db, who)
	if err != nil || acc == nil {
		return nil, err
	}
	if ok, err := t.bucket.IsPreserved(db, who); err != nil || ok {
		return nil, err
	}
	if acc.IsZero() && !acc.HasReferences() {
		return nil, nil
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	if stay, reason := staysOnOrigin(acc, &conf); stay {
		log.Debug("account stays on origin", "reason", reason)
		return nil, nil
	}

	rec := &WithdrawnAccount{
		Who:            who.Clone(),
		Free:           acc.Free,
		UnnamedReserve: acc.UnnamedReserve(),
		Holds:          acc.Holds,
		Freezes:        acc.Freezes,
		Locks:          acc.Locks,
		Consumers:      acc.Consumers,
		Providers:      acc.Providers,
	}
	total, err := rec.Total()
	if err != nil {
		return nil, errors.Wrap(errors.ErrWithdrawal, err.Error())
	}
	if total != acc.Total() {
		return nil, errors.Wrapf(errors.ErrWithdrawal, "inconsistent balance %d != %d", total, acc.Total())
	}
	if err := t.bucket.remove(db, who); err != nil {
		return nil, err
	}
	if err := t.bucket.subTotal(db, issuanceKey, total); err != nil {
		return nil, errors.Wrap(errors.ErrWithdrawal, err.Error())
	}
	return rec, nil
}

// staysOnOrigin decides if an account with a balance is left on the origin
// chain.
func staysOnOrigin(acc *Account, conf *Configuration) (bool, string) {
	for _, h := range acc.Holds {
		if h.Amount != 0 && conf.IsOriginExclusive(h.Reason) {
			return true, "hold " + h.Reason
		}
	}
	// Free balance below the destination minimum would be dusted on
	// arrival, while the reserve keeps the account alive here.
	if acc.Free != 0 && acc.Free < conf.DestinationDeposit && acc.UnnamedReserve() != 0 {
		return true, "free balance below destination minimum"
	}
	return false, ""
}

// Integrate recreates a withdrawn account on the destination chain.
//
// The account is translated first. Balances, holds, freezes, locks and
// references are added to whatever the destination account already has.
// Free balance left below the destination minimum is removed and added to
// the dust total. An account that does not reach the destination minimum on
// its own and keeps anything after dusting gets a provider reference. An
// account left with nothing is not stored.
func (t *Transform) Integrate(ctx ferry.Context, db ferry.KVStore, rec *WithdrawnAccount) error {
	if err := rec.Validate(); err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return err
	}
	who := t.translator.Translate(rec.Who)
	log := ferry.GetLogger(ctx).With("module", packageName, "account", who)

	acc, err := t.bucket.Get(db, who)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &Account{}
	}
	hasDeposit := acc.Providers != 0 || hasMinimum(acc.Free, rec.Free, conf.DestinationDeposit)
	total, err := rec.Total()
	if err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}

	if acc.Free, err = add(acc.Free, rec.Free); err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}
	if acc.Reserved, err = add(acc.Reserved, total-rec.Free); err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}
	for _, h := range rec.Holds {
		acc.Holds = addHold(acc.Holds, conf.HoldReason(h.Reason), h.Amount)
	}
	for _, f := range rec.Freezes {
		acc.Freezes = setFreeze(acc.Freezes, conf.FreezeReason(f.Reason), f.Amount)
	}
	for _, l := range rec.Locks {
		acc.Locks = setLock(acc.Locks, l)
	}
	acc.Consumers += rec.Consumers
	acc.Providers += rec.Providers

	if err := t.bucket.addTotal(db, issuanceKey, total); err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}

	if acc.Free != 0 && acc.Free < conf.DestinationDeposit {
		dust := acc.Free
		acc.Free = 0
		if err := t.bucket.subTotal(db, issuanceKey, dust); err != nil {
			return errors.Wrap(errors.ErrIntegration, err.Error())
		}
		if err := t.bucket.addTotal(db, dustKey, dust); err != nil {
			return errors.Wrap(errors.ErrIntegration, err.Error())
		}
		log.Info("account_dusted", "amount", dust)
	}
	if !hasDeposit && !acc.IsEmpty() {
		acc.Providers++
		log.Debug("migration provider added")
	}

	if err := acc.Validate(); err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}
	return t.bucket.Save(db, who, acc)
}

// hasMinimum returns true if a+b reaches min, without overflowing.
func hasMinimum(a, b, min uint64) bool {
	return a >= min || b >= min-a
}

func addHold(holds []Hold, reason string, amount uint64) []Hold {
	for i, h := range holds {
		if h.Reason == reason {
			holds[i].Amount += amount
			return holds
		}
	}
	return append(holds, Hold{Reason: reason, Amount: amount})
}

func setFreeze(freezes []Freeze, reason string, amount uint64) []Freeze {
	for i, f := range freezes {
		if f.Reason == reason {
			if amount > f.Amount {
				freezes[i].Amount = amount
			}
			return freezes
		}
	}
	return append(freezes, Freeze{Reason: reason, Amount: amount})
}

func setLock(locks []Lock, l Lock) []Lock {
	for i, cur := range locks {
		if cur.ID == l.ID {
			if l.Amount > cur.Amount {
				locks[i].Amount = l.Amount
			}
			locks[i].Reasons |= l.Reasons
			return locks
		}
	}
	return append(locks, l)
}
