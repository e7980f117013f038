package state

import (
	"fmt"

	"github.com/calehh/society/types"
)

// Ledger is what the treasury needs from the account model.
type Ledger interface {
	FreeBalance() (uint64, error)
	LockedBalance() (uint64, error)
	StorageRent() (uint64, error)
	Transfer(to string, amount uint64) error
}

// accountLedger serves the treasury from the treasury account of the same
// state, so it shares the caller's atomicity.
type accountLedger struct {
	s *State
}

func (l accountLedger) FreeBalance() (uint64, error) {
	a, err := l.s.GetAccount(TreasuryAccount)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (l accountLedger) LockedBalance() (uint64, error) {
	a, err := l.s.GetAccount(TreasuryAccount)
	if err != nil {
		return 0, err
	}
	return a.Locked, nil
}

func (l accountLedger) StorageRent() (uint64, error) {
	return l.s.header.StorageUsage * l.s.params.StorageByteCost, nil
}

func (l accountLedger) Transfer(to string, amount uint64) error {
	if err := l.s.debit(TreasuryAccount, amount, types.ErrInsufficientFunds); err != nil {
		return err
	}
	return l.s.credit(to, amount)
}

func (s *State) Ledger() Ledger {
	return accountLedger{s: s}
}

func (s *State) ReservedFund() uint64 {
	return s.header.ReservedFund
}

// Balance is the spendable treasury amount: free balance less the locked
// part, storage rent, the safety reserve and the fund held by open
// FundRequest proposals. It never goes below zero.
func (s *State) Balance() (uint64, error) {
	l := s.Ledger()
	free, err := l.FreeBalance()
	if err != nil {
		return 0, err
	}
	locked, err := l.LockedBalance()
	if err != nil {
		return 0, err
	}
	rent, err := l.StorageRent()
	if err != nil {
		return 0, err
	}
	spendable := saturatingSub(free, locked)
	spendable = saturatingSub(spendable, rent)
	spendable = saturatingSub(spendable, s.params.SafetyReserve)
	spendable = saturatingSub(spendable, s.header.ReservedFund)
	return spendable, nil
}

func (s *State) reserveFund(amount uint64) {
	if s.header.ReservedFund+amount < s.header.ReservedFund {
		panic(fmt.Sprintf("reserved fund overflow: %d + %d", s.header.ReservedFund, amount))
	}
	s.header.ReservedFund += amount
}

// releaseFund gives back a reservation. Releasing more than is reserved means
// the bookkeeping is broken, so it panics.
func (s *State) releaseFund(amount uint64) {
	if amount > s.header.ReservedFund {
		panic(fmt.Sprintf("release %d exceeds reserved fund %d", amount, s.header.ReservedFund))
	}
	s.header.ReservedFund -= amount
}
