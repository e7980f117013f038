package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventProposalType = "proposal"
	EventVoteType     = "vote"
	EventMemberType   = "member"
	EventTransferType = "transfer"
)

type EventProposal struct {
	Proposal    uint64         `json:"proposal"`
	Author      string         `json:"author"`
	Kind        ProposalKind   `json:"kind"`
	Status      ProposalStatus `json:"status"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Amount      uint64         `json:"amount"`
	CreatedAt   uint64         `json:"createdAt"`
	UpdatedAt   uint64         `json:"updatedAt"`
	Resubmitted bool           `json:"resubmitted"`
}

func NewEventProposal(p *Proposal, resubmitted bool) *EventProposal {
	return &EventProposal{
		Proposal:    p.Id,
		Author:      p.Author,
		Kind:        p.Kind,
		Status:      p.Status,
		Title:       p.Title,
		Description: p.Description,
		Amount:      p.RequestedFund(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Resubmitted: resubmitted,
	}
}

func EncodeEventProposal(event *EventProposal) abci.Event {
	return abci.Event{
		Type: EventProposalType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "author", Value: event.Author, Index: true},
			{Key: "kind", Value: fmt.Sprintf("%v", uint64(event.Kind)), Index: false},
			{Key: "status", Value: fmt.Sprintf("%v", uint64(event.Status)), Index: false},
			{Key: "title", Value: event.Title, Index: false},
			{Key: "description", Value: event.Description, Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "createdAt", Value: fmt.Sprintf("%v", event.CreatedAt), Index: false},
			{Key: "updatedAt", Value: fmt.Sprintf("%v", event.UpdatedAt), Index: false},
			{Key: "resubmitted", Value: fmt.Sprintf("%v", event.Resubmitted), Index: false},
		},
	}
}

func DecodeEventProposal(originEvent abci.Event) *EventProposal {
	event := &EventProposal{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "author":
			event.Author = v.Value
		case "kind":
			kind, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Kind = ProposalKind(kind)
		case "status":
			status, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Status = ProposalStatus(status)
		case "title":
			event.Title = v.Value
		case "description":
			event.Description = v.Value
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		case "createdAt":
			createdAt, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.CreatedAt = createdAt
		case "updatedAt":
			updatedAt, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.UpdatedAt = updatedAt
		case "resubmitted":
			resubmitted, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Resubmitted = resubmitted
		}
	}
	return event
}

type EventVote struct {
	Proposal uint64         `json:"proposal"`
	Voter    string         `json:"voter"`
	Approve  bool           `json:"approve"`
	Decision string         `json:"decision"`
	Status   ProposalStatus `json:"status"`
	Approves uint64         `json:"approves"`
	Rejects  uint64         `json:"rejects"`
	Epoch    uint64         `json:"epoch"`
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "voter", Value: event.Voter, Index: true},
			{Key: "approve", Value: fmt.Sprintf("%v", event.Approve), Index: false},
			{Key: "decision", Value: event.Decision, Index: false},
			{Key: "status", Value: fmt.Sprintf("%v", uint64(event.Status)), Index: false},
			{Key: "approves", Value: fmt.Sprintf("%v", event.Approves), Index: false},
			{Key: "rejects", Value: fmt.Sprintf("%v", event.Rejects), Index: false},
			{Key: "epoch", Value: fmt.Sprintf("%v", event.Epoch), Index: false},
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "voter":
			event.Voter = v.Value
		case "approve":
			approve, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Approve = approve
		case "decision":
			event.Decision = v.Value
		case "status":
			status, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Status = ProposalStatus(status)
		case "approves":
			approves, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Approves = approves
		case "rejects":
			rejects, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Rejects = rejects
		case "epoch":
			epoch, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Epoch = epoch
		}
	}
	return event
}

type EventMember struct {
	Address  string `json:"address"`
	Index    uint64 `json:"index"`
	Proposal uint64 `json:"proposal"`
	Genesis  bool   `json:"genesis"`
}

func EncodeEventMember(event *EventMember) abci.Event {
	return abci.Event{
		Type: EventMemberType,
		Attributes: []abci.EventAttribute{
			{Key: "addr", Value: event.Address, Index: true},
			{Key: "index", Value: fmt.Sprintf("%v", event.Index), Index: false},
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: false},
			{Key: "genesis", Value: fmt.Sprintf("%v", event.Genesis), Index: false},
		},
	}
}

func DecodeEventMember(originEvent abci.Event) *EventMember {
	event := &EventMember{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "addr":
			event.Address = v.Value
		case "index":
			index, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Index = index
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "genesis":
			genesis, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Genesis = genesis
		}
	}
	return event
}

type EventTransfer struct {
	Proposal uint64 `json:"proposal"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
}

func EncodeEventTransfer(event *EventTransfer) abci.Event {
	return abci.Event{
		Type: EventTransferType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "to", Value: event.To, Index: true},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
		},
	}
}

func DecodeEventTransfer(originEvent abci.Event) *EventTransfer {
	event := &EventTransfer{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "to":
			event.To = v.Value
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		}
	}
	return event
}
