package types

import (
	"fmt"

	"github.com/calehh/society/quorum"
)

const (
	MaxTitleLength       = 170
	MaxDescriptionLength = 1000
)

type ProposalKind uint64

const (
	ProposalKindMemberRequest ProposalKind = 1
	ProposalKindFundRequest   ProposalKind = 2
)

func (k ProposalKind) String() string {
	switch k {
	case ProposalKindMemberRequest:
		return "MemberRequest"
	case ProposalKindFundRequest:
		return "FundRequest"
	default:
		return fmt.Sprintf("ProposalKind(%d)", uint64(k))
	}
}

type ProposalStatus uint64

const (
	ProposalStatusDraft    ProposalStatus = 1
	ProposalStatusVote     ProposalStatus = 2
	ProposalStatusAccepted ProposalStatus = 3
	ProposalStatusRejected ProposalStatus = 4
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusDraft:
		return "Draft"
	case ProposalStatusVote:
		return "Vote"
	case ProposalStatusAccepted:
		return "Accepted"
	case ProposalStatusRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("ProposalStatus(%d)", uint64(s))
	}
}

// Open reports whether the status still belongs to the author's active proposal.
func (s ProposalStatus) Open() bool {
	return s == ProposalStatusDraft || s == ProposalStatusVote
}

type FundPayload struct {
	Amount uint64 `json:"amount"`
}

type Proposal struct {
	Id          uint64         `json:"id"`
	CreatedAt   uint64         `json:"created_at"`
	UpdatedAt   uint64         `json:"updated_at"`
	Kind        ProposalKind   `json:"kind"`
	Status      ProposalStatus `json:"status"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Author      string         `json:"author"`
	Payload     *FundPayload   `json:"payload,omitempty"`
	Tally       quorum.Tally   `json:"tally"`
	// Epoch numbers the voting rounds; it grows on every draft reset.
	Epoch uint64 `json:"epoch"`
}

// RequestedFund is the amount a FundRequest asks for, 0 for other kinds.
func (p *Proposal) RequestedFund() uint64 {
	if p.Kind != ProposalKindFundRequest || p.Payload == nil {
		return 0
	}
	return p.Payload.Amount
}
