package state

import (
	"fmt"

	"github.com/calehh/society/types"
	"github.com/ethereum/go-ethereum/rlp"
)

func (s *State) IsMember(id string) (bool, error) {
	val, err := s.get(fmt.Sprintf(KeyMemberIndex, id))
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

func (s *State) MemberCount() (uint64, error) {
	return s.getCounter(KeyMemberCount)
}

// Member returns the identity admitted at position idx.
func (s *State) Member(idx uint64) (string, error) {
	val, err := s.get(fmt.Sprintf(KeyMember, idx))
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", fmt.Errorf("%w: member %d", types.ErrOutOfRange, idx)
	}
	return string(val), nil
}

// admit appends id to the registry and returns its position.
func (s *State) admit(id string) (idx uint64, err error) {
	ok, err := s.IsMember(id)
	if err != nil {
		return
	}
	if ok {
		return 0, fmt.Errorf("%w: %s", types.ErrAlreadyMember, id)
	}
	if id == "" {
		return 0, fmt.Errorf("%w: empty identity", types.ErrInvalidArgument)
	}
	idx, err = s.MemberCount()
	if err != nil {
		return
	}
	val, err := rlp.EncodeToBytes(idx)
	if err != nil {
		return
	}
	if err = s.set(fmt.Sprintf(KeyMemberIndex, id), val); err != nil {
		return
	}
	if err = s.set(fmt.Sprintf(KeyMember, idx), []byte(id)); err != nil {
		return
	}
	err = s.setCounter(KeyMemberCount, idx+1)
	return
}

// MemberList enumerates members in admission order.
func (s *State) MemberList(page types.Page) ([]string, error) {
	limit := page.Size()
	if limit == 0 {
		return nil, fmt.Errorf("%w: limit is 0", types.ErrInvalidArgument)
	}
	total, err := s.MemberCount()
	if err != nil {
		return nil, err
	}
	if page.Offset >= total {
		return nil, fmt.Errorf("%w: offset %d, members %d", types.ErrOutOfRange, page.Offset, total)
	}
	end := total
	if total-page.Offset > limit {
		end = page.Offset + limit
	}
	members := make([]string, 0, end-page.Offset)
	for i := page.Offset; i < end; i++ {
		m, err := s.Member(i)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (s *State) Initialized() bool {
	return s.header.Initialized
}

// Initialize seeds the registry with the founding members. It can run once.
func (s *State) Initialize(members []string) error {
	if s.header.Initialized {
		return types.ErrAlreadyInitialized
	}
	if len(members) == 0 {
		return types.ErrMissingMembers
	}
	for _, m := range members {
		idx, err := s.admit(m)
		if err != nil {
			return err
		}
		s.emit(types.EncodeEventMember(&types.EventMember{
			Address: m,
			Index:   idx,
			Genesis: true,
		}))
	}
	s.header.Initialized = true
	s.logger.Info("society initialized", "members", len(members))
	return nil
}

// InitGenesis applies the genesis app state: members, treasury and accounts.
func (s *State) InitGenesis(app *types.AppState) error {
	if err := app.ValidateBasic(); err != nil {
		return err
	}
	if err := s.Initialize(app.Members); err != nil {
		return err
	}
	if app.Treasury > 0 {
		err := s.putAccount(&types.Account{
			Address: TreasuryAccount,
			Balance: app.Treasury,
			Locked:  app.Locked,
		})
		if err != nil {
			return err
		}
	}
	for _, a := range app.Accounts {
		if a.Address == TreasuryAccount {
			return fmt.Errorf("%w: %s is reserved", types.ErrInvalidArgument, TreasuryAccount)
		}
		if err := s.credit(a.Address, a.Balance); err != nil {
			return err
		}
	}
	return nil
}
