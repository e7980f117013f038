package state

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/calehh/society/quorum"
	"github.com/calehh/society/types"
)

func (s *State) requireInitialized() error {
	if !s.header.Initialized {
		return types.ErrNotInitialized
	}
	return nil
}

// AddMemberProposal asks the members to admit author.
func (s *State) AddMemberProposal(author string, title, description *string) (id uint64, err error) {
	if err = s.requireInitialized(); err != nil {
		return
	}
	member, err := s.IsMember(author)
	if err != nil {
		return
	}
	if member {
		return 0, fmt.Errorf("%w: %s", types.ErrAlreadyMember, author)
	}
	p := &types.Proposal{
		Kind:   types.ProposalKindMemberRequest,
		Author: author,
	}
	if title != nil {
		p.Title = *title
	}
	if description != nil {
		p.Description = *description
	}
	return s.submitProposal(p)
}

// AddFundProposal asks the members to pay amount from the treasury to author.
func (s *State) AddFundProposal(author, title, description string, amount uint64) (id uint64, err error) {
	if err = s.requireInitialized(); err != nil {
		return
	}
	member, err := s.IsMember(author)
	if err != nil {
		return
	}
	if !member {
		return 0, fmt.Errorf("%w: %s", types.ErrNotAMember, author)
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: fund amount is 0", types.ErrInvalidArgument)
	}
	p := &types.Proposal{
		Kind:        types.ProposalKindFundRequest,
		Title:       title,
		Description: description,
		Author:      author,
		Payload:     &types.FundPayload{Amount: amount},
	}
	return s.submitProposal(p)
}

// submitProposal opens p for voting, either as a new proposal or in place of
// the author's draft once its lock has passed.
func (s *State) submitProposal(p *types.Proposal) (id uint64, err error) {
	if n := utf8.RuneCountInString(p.Title); n > types.MaxTitleLength {
		return 0, fmt.Errorf("%w: title has %d chars, max %d", types.ErrFieldTooLong, n, types.MaxTitleLength)
	}
	if n := utf8.RuneCountInString(p.Description); n > types.MaxDescriptionLength {
		return 0, fmt.Errorf("%w: description has %d chars, max %d", types.ErrFieldTooLong, n, types.MaxDescriptionLength)
	}
	now := s.Now()
	prev, err := s.ActiveProposal(p.Author)
	if err != nil {
		return
	}
	if prev != nil {
		lock := uint64(s.params.ProposalLock / time.Second)
		if age := saturatingSub(now, prev.UpdatedAt); age < lock {
			return 0, fmt.Errorf("%w: proposal %d updated %ds ago, lock is %ds", types.ErrProposalLocked, prev.Id, age, lock)
		}
		if prev.Status != types.ProposalStatusDraft {
			return 0, fmt.Errorf("%w: proposal %d is %v", types.ErrNotInDraft, prev.Id, prev.Status)
		}
	}
	if amount := p.RequestedFund(); amount > 0 {
		spendable, err := s.Balance()
		if err != nil {
			return 0, err
		}
		if amount >= spendable {
			return 0, fmt.Errorf("%w: requested %d, spendable %d", types.ErrInsufficientFunds, amount, spendable)
		}
		s.reserveFund(amount)
	}

	p.Status = types.ProposalStatusVote
	p.Tally = quorum.Tally{}
	p.UpdatedAt = now
	if prev != nil {
		p.Id = prev.Id
		p.CreatedAt = prev.CreatedAt
		p.Epoch = prev.Epoch
		err = s.putProposal(p)
	} else {
		p.CreatedAt = now
		if err = s.appendProposal(p); err != nil {
			return
		}
		err = s.setActiveProposal(p.Author, p.Id)
	}
	if err != nil {
		return
	}
	s.logger.Debug("proposal submitted", "id", p.Id, "kind", p.Kind, "author", p.Author, "resubmitted", prev != nil)
	s.emit(types.EncodeEventProposal(types.NewEventProposal(p, prev != nil)))
	return p.Id, nil
}

// Vote counts one vote of voter on proposal id and applies the decision it
// leads to.
func (s *State) Vote(id uint64, voter string, approve bool) (decision quorum.Decision, err error) {
	if err = s.requireInitialized(); err != nil {
		return
	}
	member, err := s.IsMember(voter)
	if err != nil {
		return
	}
	if !member {
		return decision, fmt.Errorf("%w: %s", types.ErrNotAMember, voter)
	}
	p, err := s.Proposal(id)
	if err != nil {
		return
	}
	if p.Status != types.ProposalStatusVote {
		return decision, fmt.Errorf("%w: proposal %d is %v", types.ErrProposalNotInVote, id, p.Status)
	}
	voted, err := s.hasVoted(id, p.Epoch, voter)
	if err != nil {
		return
	}
	if voted {
		return decision, fmt.Errorf("%w: %s on proposal %d", types.ErrAlreadyVoted, voter, id)
	}

	if approve {
		p.Tally.Approve += 1
	} else {
		p.Tally.Reject += 1
	}
	eligible, err := s.MemberCount()
	if err != nil {
		return
	}
	decision = quorum.Decide(p.Tally, eligible)
	tally := p.Tally
	epoch := p.Epoch

	switch decision {
	case quorum.DraftReset:
		err = s.resetToDraft(p)
	case quorum.Accepted:
		if err = s.recordVote(id, epoch, voter, approve); err != nil {
			return
		}
		err = s.accept(p)
	case quorum.Rejected:
		if err = s.recordVote(id, epoch, voter, approve); err != nil {
			return
		}
		err = s.reject(p)
	default:
		err = s.recordVote(id, epoch, voter, approve)
	}
	if err != nil {
		return
	}
	if err = s.putProposal(p); err != nil {
		return
	}
	s.logger.Debug("vote counted", "id", id, "voter", voter, "approve", approve, "decision", decision)
	s.emit(types.EncodeEventVote(&types.EventVote{
		Proposal: id,
		Voter:    voter,
		Approve:  approve,
		Decision: decision.String(),
		Status:   p.Status,
		Approves: tally.Approve,
		Rejects:  tally.Reject,
		Epoch:    epoch,
	}))
	return
}

// resetToDraft starts a new voting epoch after a full tie.
func (s *State) resetToDraft(p *types.Proposal) error {
	if err := s.clearVotes(p.Id, p.Epoch); err != nil {
		return err
	}
	p.Epoch += 1
	p.Tally = quorum.Tally{}
	p.Status = types.ProposalStatusDraft
	p.UpdatedAt = s.Now()
	s.releaseFund(p.RequestedFund())
	return nil
}

func (s *State) accept(p *types.Proposal) error {
	p.Status = types.ProposalStatusAccepted
	p.UpdatedAt = s.Now()
	if err := s.clearActiveProposal(p.Author); err != nil {
		return err
	}
	switch p.Kind {
	case types.ProposalKindMemberRequest:
		idx, err := s.admit(p.Author)
		if err != nil {
			return err
		}
		s.emit(types.EncodeEventMember(&types.EventMember{
			Address:  p.Author,
			Index:    idx,
			Proposal: p.Id,
		}))
	case types.ProposalKindFundRequest:
		amount := p.RequestedFund()
		s.releaseFund(amount)
		if err := s.Ledger().Transfer(p.Author, amount); err != nil {
			return err
		}
		s.emit(types.EncodeEventTransfer(&types.EventTransfer{
			Proposal: p.Id,
			To:       p.Author,
			Amount:   amount,
		}))
	}
	s.logger.Info("proposal accepted", "id", p.Id, "kind", p.Kind, "author", p.Author)
	return nil
}

func (s *State) reject(p *types.Proposal) error {
	p.Status = types.ProposalStatusRejected
	p.UpdatedAt = s.Now()
	if err := s.clearActiveProposal(p.Author); err != nil {
		return err
	}
	s.releaseFund(p.RequestedFund())
	s.logger.Info("proposal rejected", "id", p.Id, "kind", p.Kind, "author", p.Author)
	return nil
}
