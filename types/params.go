package types

import "time"

const DefaultPageLimit = 100

// Params are the chain-wide governance parameters, fixed at node start.
type Params struct {
	// ProposalLock is how long an author's open proposal blocks a resubmission.
	ProposalLock       time.Duration
	SafetyReserve      uint64
	StorageByteCost    uint64
	MinProposalDeposit uint64
}

func DefaultParams() Params {
	return Params{
		ProposalLock:       10 * time.Minute,
		SafetyReserve:      1000,
		StorageByteCost:    1,
		MinProposalDeposit: 0,
	}
}

// Page selects a window of an ordered list. A nil Limit means DefaultPageLimit.
type Page struct {
	Offset uint64  `json:"offset"`
	Limit  *uint64 `json:"limit,omitempty"`
}

func NewPage(offset, limit uint64) Page {
	return Page{Offset: offset, Limit: &limit}
}

func (p Page) Size() uint64 {
	if p.Limit == nil {
		return DefaultPageLimit
	}
	return *p.Limit
}

type Account struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Locked  uint64 `json:"locked"`
	Nonce   uint64 `json:"nonce"`
}
