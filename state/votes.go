package state

import (
	"fmt"
)

func voteKey(id, epoch uint64, voter string) string {
	return fmt.Sprintf(KeyVote, id, epoch, voter)
}

func (s *State) hasVoted(id, epoch uint64, voter string) (bool, error) {
	val, err := s.get(voteKey(id, epoch, voter))
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

func (s *State) recordVote(id, epoch uint64, voter string, approve bool) error {
	val := []byte{0}
	if approve {
		val[0] = 1
	}
	return s.set(voteKey(id, epoch, voter), val)
}

// clearVotes drops the vote set of one epoch. Only members can vote and
// members are never removed, so walking the registry finds every entry.
func (s *State) clearVotes(id, epoch uint64) error {
	n, err := s.MemberCount()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		m, err := s.Member(i)
		if err != nil {
			return err
		}
		if err = s.remove(voteKey(id, epoch, m)); err != nil {
			return err
		}
	}
	return nil
}

// CanVote reports whether identity has not voted yet in the proposal's
// current epoch.
func (s *State) CanVote(id uint64, identity string) (bool, error) {
	p, err := s.Proposal(id)
	if err != nil {
		return false, err
	}
	voted, err := s.hasVoted(id, p.Epoch, identity)
	if err != nil {
		return false, err
	}
	return !voted, nil
}

// Voters lists the members who voted in the proposal's current epoch, in
// admission order.
func (s *State) Voters(id uint64) ([]string, error) {
	p, err := s.Proposal(id)
	if err != nil {
		return nil, err
	}
	n, err := s.MemberCount()
	if err != nil {
		return nil, err
	}
	var voters []string
	for i := uint64(0); i < n; i++ {
		m, err := s.Member(i)
		if err != nil {
			return nil, err
		}
		voted, err := s.hasVoted(id, p.Epoch, m)
		if err != nil {
			return nil, err
		}
		if voted {
			voters = append(voters, m)
		}
	}
	return voters, nil
}
