package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/society/types"
	"github.com/ethereum/go-ethereum/rlp"
)

func (s *State) ProposalCount() (uint64, error) {
	return s.getCounter(KeyProposalCount)
}

func (s *State) Proposal(id uint64) (*types.Proposal, error) {
	val, err := s.get(fmt.Sprintf(KeyProposal, id))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, fmt.Errorf("%w: %d", types.ErrProposalNotFound, id)
	}
	p := new(types.Proposal)
	if err = json.Unmarshal(val, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *State) putProposal(p *types.Proposal) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.set(fmt.Sprintf(KeyProposal, p.Id), val)
}

// appendProposal stores p under the next free id.
func (s *State) appendProposal(p *types.Proposal) error {
	n, err := s.ProposalCount()
	if err != nil {
		return err
	}
	p.Id = n
	if err = s.putProposal(p); err != nil {
		return err
	}
	return s.setCounter(KeyProposalCount, n+1)
}

// ActiveProposal returns the open proposal of author, if any.
func (s *State) ActiveProposal(author string) (p *types.Proposal, err error) {
	val, err := s.get(fmt.Sprintf(KeyActiveProposal, author))
	if err != nil || val == nil {
		return nil, err
	}
	var id uint64
	if err = rlp.DecodeBytes(val, &id); err != nil {
		return nil, err
	}
	return s.Proposal(id)
}

func (s *State) setActiveProposal(author string, id uint64) error {
	val, err := rlp.EncodeToBytes(id)
	if err != nil {
		return err
	}
	return s.set(fmt.Sprintf(KeyActiveProposal, author), val)
}

func (s *State) clearActiveProposal(author string) error {
	return s.remove(fmt.Sprintf(KeyActiveProposal, author))
}

// ProposalList enumerates proposals by id, terminal ones included.
func (s *State) ProposalList(page types.Page) ([]*types.Proposal, error) {
	limit := page.Size()
	if limit == 0 {
		return nil, fmt.Errorf("%w: limit is 0", types.ErrInvalidArgument)
	}
	total, err := s.ProposalCount()
	if err != nil {
		return nil, err
	}
	if page.Offset >= total && !(total == 0 && page.Offset == 0) {
		return nil, fmt.Errorf("%w: offset %d, proposals %d", types.ErrOutOfRange, page.Offset, total)
	}
	end := total
	if total-page.Offset > limit {
		end = page.Offset + limit
	}
	proposals := make([]*types.Proposal, 0, end-page.Offset)
	for id := page.Offset; id < end; id++ {
		p, err := s.Proposal(id)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}
