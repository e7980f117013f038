package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/society/types"
)

// TreasuryAccount is the account holding the society's funds.
const TreasuryAccount = "treasury"

var ErrBalanceOverflow = types.NewError(types.KindInternal, "balance overflow")

// GetAccount returns the account of addr. Unknown addresses have an empty
// account.
func (s *State) GetAccount(addr string) (acnt *types.Account, err error) {
	val, err := s.get(fmt.Sprintf(KeyAccount, addr))
	if err != nil {
		return nil, err
	}
	acnt = &types.Account{Address: addr}
	if val == nil {
		return
	}
	err = json.Unmarshal(val, acnt)
	if err != nil {
		return nil, err
	}
	return
}

func (s *State) putAccount(acnt *types.Account) error {
	val, err := json.Marshal(acnt)
	if err != nil {
		return err
	}
	return s.set(fmt.Sprintf(KeyAccount, acnt.Address), val)
}

func (s *State) credit(addr string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if a.Balance+amount < a.Balance {
		return ErrBalanceOverflow
	}
	a.Balance += amount
	return s.putAccount(a)
}

// debit takes amount from the unlocked part of addr's balance.
func (s *State) debit(addr string, amount uint64, notEnough error) error {
	if amount == 0 {
		return nil
	}
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if a.Balance < a.Locked || a.Balance-a.Locked < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", notEnough, addr, saturatingSub(a.Balance, a.Locked), amount)
	}
	a.Balance -= amount
	return s.putAccount(a)
}

// CheckNonce verifies the next nonce of addr. A gap is tolerated for
// mempool checks where earlier transactions are still pending.
func (s *State) CheckNonce(addr string, nonce uint64, allowGap bool) error {
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if a.Nonce == nonce || (allowGap && a.Nonce < nonce) {
		return nil
	}
	return fmt.Errorf("%w: expected %d, got %d", types.ErrNonceInvalid, a.Nonce, nonce)
}

func (s *State) IncNonce(addr string) error {
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	a.Nonce += 1
	return s.putAccount(a)
}

// CoverStorage charges payer for the storage the current call added since
// usageBefore. Only the required part of the deposit is taken, and it goes
// to the treasury which carries the rent. When the treasury itself pays, no
// deposit is needed: the growth is held as rent out of its own balance.
func (s *State) CoverStorage(payer string, deposit uint64, usageBefore uint64) (charged uint64, err error) {
	usage := s.header.StorageUsage
	if usage <= usageBefore {
		return 0, nil
	}
	required := (usage - usageBefore) * s.params.StorageByteCost
	if payer == TreasuryAccount {
		t, err := s.GetAccount(TreasuryAccount)
		if err != nil {
			return 0, err
		}
		rent := usage * s.params.StorageByteCost
		if free := saturatingSub(t.Balance, t.Locked); free < rent {
			return 0, fmt.Errorf("%w: rent %d exceeds free balance %d", types.ErrInsufficientFunds, rent, free)
		}
		return required, nil
	}
	if required > deposit {
		return 0, fmt.Errorf("%w: requires %d, attached %d", types.ErrInsufficientDeposit, required, deposit)
	}
	if err = s.debit(payer, required, types.ErrInsufficientBalance); err != nil {
		return 0, err
	}
	if err = s.credit(TreasuryAccount, required); err != nil {
		return 0, err
	}
	return required, nil
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
