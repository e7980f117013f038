package state_test

import (
	"strings"
	"testing"

	"github.com/calehh/society/quorum"
	"github.com/calehh/society/state"
	"github.com/calehh/society/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

const (
	startTime = int64(1_700_000_000)
	alice     = "A11CE"
	bob       = "B0B"
	carol     = "CA501"
	dave      = "DA5E"
	erin      = "E5115"
)

func testParams() types.Params {
	p := types.DefaultParams()
	p.StorageByteCost = 0
	return p
}

func newTestDB(t *testing.T, params types.Params) *state.StateDB {
	t.Helper()
	db, err := state.NewStateDB(t.TempDir(), params, log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func commit(t *testing.T, db *state.StateDB, st *state.State) {
	t.Helper()
	_, err := st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
}

// newSociety commits a genesis with the given members and treasury and
// returns the state of the first block.
func newSociety(t *testing.T, params types.Params, treasury uint64, members ...string) (*state.StateDB, *state.State) {
	t.Helper()
	db := newTestDB(t, params)
	st := db.NewState()
	st.SetChainId("society-test")
	st.SetBlock(0, startTime)
	require.NoError(t, st.InitGenesis(&types.AppState{Members: members, Treasury: treasury}))
	commit(t, db, st)
	st = db.NewState()
	st.SetBlock(1, startTime)
	return db, st
}

func strPtr(s string) *string {
	return &s
}

func TestInitialize(t *testing.T) {
	db := newTestDB(t, testParams())
	st := db.NewState()

	_, err := st.AddMemberProposal(alice, nil, nil)
	require.ErrorIs(t, err, types.ErrNotInitialized)

	require.ErrorIs(t, st.Initialize(nil), types.ErrMissingMembers)
	require.Equal(t, uint32(types.KindValidation), types.CodeOf(st.Initialize(nil)))

	require.NoError(t, st.Initialize([]string{alice, bob}))
	require.ErrorIs(t, st.Initialize([]string{carol}), types.ErrAlreadyInitialized)

	ok, err := st.IsMember(bob)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = st.IsMember(carol)
	require.NoError(t, err)
	require.False(t, ok)

	dup := db.NewState()
	require.ErrorIs(t, dup.Initialize([]string{alice, alice}), types.ErrAlreadyMember)
}

func TestMemberListPagination(t *testing.T) {
	members := []string{alice, bob, carol, dave, erin}
	_, st := newSociety(t, testParams(), 0, members...)

	all, err := st.MemberList(types.Page{})
	require.NoError(t, err)
	require.Equal(t, members, all)

	got, err := st.MemberList(types.NewPage(1, 2))
	require.NoError(t, err)
	require.Equal(t, []string{bob, carol}, got)

	got, err = st.MemberList(types.NewPage(3, 10))
	require.NoError(t, err)
	require.Equal(t, []string{dave, erin}, got)

	_, err = st.MemberList(types.NewPage(5, 1))
	require.ErrorIs(t, err, types.ErrOutOfRange)

	_, err = st.MemberList(types.NewPage(0, 0))
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestMemberRequestRoundTrip(t *testing.T) {
	db, st := newSociety(t, testParams(), 0, alice)

	id, err := st.AddMemberProposal(bob, strPtr("bob"), nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, id)

	decision, err := st.Vote(id, alice, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Accepted, decision)

	p, err := st.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusAccepted, p.Status)
	n, err := st.MemberCount()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	commit(t, db, st)

	st = db.NewState()
	st.SetBlock(2, startTime+5)
	id, err = st.AddMemberProposal(carol, nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	decision, err = st.Vote(id, alice, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Unchanged, decision)
	decision, err = st.Vote(id, bob, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Accepted, decision)

	ok, err := st.IsMember(carol)
	require.NoError(t, err)
	require.True(t, ok)
	members, err := st.MemberList(types.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{alice, bob, carol}, members)

	_, err = st.AddMemberProposal(carol, nil, nil)
	require.ErrorIs(t, err, types.ErrAlreadyMember)
}

func TestVoteErrors(t *testing.T) {
	_, st := newSociety(t, testParams(), 0, alice, bob, carol)
	id, err := st.AddMemberProposal(dave, nil, nil)
	require.NoError(t, err)

	_, err = st.Vote(id, erin, true)
	require.ErrorIs(t, err, types.ErrNotAMember)
	require.Equal(t, uint32(types.KindAuthorization), types.CodeOf(err))

	_, err = st.Vote(id+1, alice, true)
	require.ErrorIs(t, err, types.ErrProposalNotFound)

	_, err = st.Vote(id, alice, false)
	require.NoError(t, err)
	_, err = st.Vote(id, alice, true)
	require.ErrorIs(t, err, types.ErrAlreadyVoted)

	p, err := st.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, quorum.Tally{Approve: 0, Reject: 1}, p.Tally)

	can, err := st.CanVote(id, alice)
	require.NoError(t, err)
	require.False(t, can)
	can, err = st.CanVote(id, bob)
	require.NoError(t, err)
	require.True(t, can)
	_, err = st.CanVote(id+7, bob)
	require.ErrorIs(t, err, types.ErrProposalNotFound)
}

func TestTerminalProposalTakesNoVotes(t *testing.T) {
	_, st := newSociety(t, testParams(), 0, alice, bob, carol)
	id, err := st.AddMemberProposal(dave, nil, nil)
	require.NoError(t, err)

	_, err = st.Vote(id, alice, false)
	require.NoError(t, err)
	decision, err := st.Vote(id, bob, false)
	require.NoError(t, err)
	require.Equal(t, quorum.Rejected, decision)

	_, err = st.Vote(id, carol, true)
	require.ErrorIs(t, err, types.ErrProposalNotInVote)
	p, err := st.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusRejected, p.Status)
	require.Equal(t, quorum.Tally{Reject: 2}, p.Tally)

	// a rejected author is free to ask again
	id2, err := st.AddMemberProposal(dave, nil, nil)
	require.NoError(t, err)
	require.Equal(t, id+1, id2)
}

func TestProposalValidation(t *testing.T) {
	_, st := newSociety(t, testParams(), 100_000, alice)

	_, err := st.AddMemberProposal(bob, strPtr(strings.Repeat("t", types.MaxTitleLength+1)), nil)
	require.ErrorIs(t, err, types.ErrFieldTooLong)
	_, err = st.AddFundProposal(alice, "t", strings.Repeat("d", types.MaxDescriptionLength+1), 10)
	require.ErrorIs(t, err, types.ErrFieldTooLong)

	// bounds count characters, not bytes
	_, err = st.AddMemberProposal(bob, strPtr(strings.Repeat("é", types.MaxTitleLength)), nil)
	require.NoError(t, err)

	_, err = st.AddFundProposal(carol, "t", "d", 10)
	require.ErrorIs(t, err, types.ErrNotAMember)
	_, err = st.AddFundProposal(alice, "t", "d", 0)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestResubmissionLock(t *testing.T) {
	db, st := newSociety(t, testParams(), 100_000, alice, bob)

	id, err := st.AddFundProposal(alice, "laptop", "for work", 500)
	require.NoError(t, err)
	require.EqualValues(t, 500, st.ReservedFund())

	// still in Vote and inside the lock
	_, err = st.AddFundProposal(alice, "laptop", "for work", 600)
	require.ErrorIs(t, err, types.ErrProposalLocked)
	commit(t, db, st)

	// lock passed but the proposal is live
	st = db.NewState()
	st.SetBlock(2, startTime+601)
	_, err = st.AddFundProposal(alice, "laptop", "for work", 600)
	require.ErrorIs(t, err, types.ErrNotInDraft)

	_, err = st.Vote(id, alice, true)
	require.NoError(t, err)
	decision, err := st.Vote(id, bob, false)
	require.NoError(t, err)
	require.Equal(t, quorum.DraftReset, decision)
	commit(t, db, st)

	st = db.NewState()
	st.SetBlock(3, startTime+700)
	_, err = st.AddFundProposal(alice, "laptop", "second try", 600)
	require.ErrorIs(t, err, types.ErrProposalLocked)

	st.SetBlock(3, startTime+601+600)
	again, err := st.AddFundProposal(alice, "laptop", "second try", 600)
	require.NoError(t, err)
	require.Equal(t, id, again)
	require.EqualValues(t, 600, st.ReservedFund())

	p, err := st.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusVote, p.Status)
	require.Equal(t, "second try", p.Description)
	require.EqualValues(t, startTime, p.CreatedAt)
	require.EqualValues(t, startTime+1201, p.UpdatedAt)
	require.EqualValues(t, 1, p.Epoch)
	require.Equal(t, quorum.Tally{}, p.Tally)

	n, err := st.ProposalCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestDraftResetReleasesFund(t *testing.T) {
	_, st := newSociety(t, testParams(), 100_000, alice, bob)
	before, err := st.Balance()
	require.NoError(t, err)
	require.EqualValues(t, 99_000, before)

	id, err := st.AddFundProposal(alice, "t", "d", 2_000)
	require.NoError(t, err)
	reserved, err := st.Balance()
	require.NoError(t, err)
	require.EqualValues(t, before-2_000, reserved)

	_, err = st.Vote(id, alice, true)
	require.NoError(t, err)
	decision, err := st.Vote(id, bob, false)
	require.NoError(t, err)
	require.Equal(t, quorum.DraftReset, decision)

	p, err := st.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusDraft, p.Status)
	require.Equal(t, quorum.Tally{}, p.Tally)
	require.EqualValues(t, 0, st.ReservedFund())
	after, err := st.Balance()
	require.NoError(t, err)
	require.Equal(t, before, after)

	for _, m := range []string{alice, bob} {
		can, err := st.CanVote(id, m)
		require.NoError(t, err)
		require.True(t, can)
	}
	_, err = st.Vote(id, alice, true)
	require.ErrorIs(t, err, types.ErrProposalNotInVote)
}

func TestFundRequestAccepted(t *testing.T) {
	_, st := newSociety(t, testParams(), 10_000, alice)

	id, err := st.AddFundProposal(alice, "t", "d", 3_000)
	require.NoError(t, err)
	decision, err := st.Vote(id, alice, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Accepted, decision)

	require.EqualValues(t, 0, st.ReservedFund())
	a, err := st.GetAccount(alice)
	require.NoError(t, err)
	require.EqualValues(t, 3_000, a.Balance)
	treasury, err := st.GetAccount(state.TreasuryAccount)
	require.NoError(t, err)
	require.EqualValues(t, 7_000, treasury.Balance)
	spendable, err := st.Balance()
	require.NoError(t, err)
	require.EqualValues(t, 6_000, spendable)

	var transfers int
	for _, ev := range st.Events() {
		if ev.Type == types.EventTransferType {
			transfers++
			tr := types.DecodeEventTransfer(ev)
			require.Equal(t, alice, tr.To)
			require.EqualValues(t, 3_000, tr.Amount)
		}
	}
	require.Equal(t, 1, transfers)
}

func TestThresholdFollowsMemberCount(t *testing.T) {
	_, st := newSociety(t, testParams(), 10_000, alice, bob, carol)

	fund, err := st.AddFundProposal(alice, "t", "d", 1_000)
	require.NoError(t, err)
	decision, err := st.Vote(fund, bob, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Unchanged, decision)

	join, err := st.AddMemberProposal(dave, nil, nil)
	require.NoError(t, err)
	_, err = st.Vote(join, alice, true)
	require.NoError(t, err)
	decision, err = st.Vote(join, bob, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Accepted, decision)
	n, err := st.MemberCount()
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	// two approves settle a society of three but not one of four
	require.Equal(t, quorum.Accepted, quorum.Decide(quorum.Tally{Approve: 2}, 3))
	decision, err = st.Vote(fund, carol, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Unchanged, decision)
	p, err := st.Proposal(fund)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusVote, p.Status)
	require.EqualValues(t, 1_000, st.ReservedFund())

	decision, err = st.Vote(fund, dave, true)
	require.NoError(t, err)
	require.Equal(t, quorum.Accepted, decision)
}

func TestInsufficientFunds(t *testing.T) {
	_, st := newSociety(t, testParams(), 5_000, alice, bob)

	// spendable is 4000 and the check is strict
	_, err := st.AddFundProposal(alice, "t", "d", 4_000)
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	require.Equal(t, uint32(types.KindResource), types.CodeOf(err))
	require.EqualValues(t, 0, st.ReservedFund())

	_, err = st.AddFundProposal(alice, "t", "d", 3_000)
	require.NoError(t, err)
	_, err = st.AddFundProposal(bob, "t", "d", 1_000)
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	_, err = st.AddFundProposal(bob, "t", "d", 999)
	require.NoError(t, err)
	require.EqualValues(t, 3_999, st.ReservedFund())
}

func TestReservationMatchesOpenFundRequests(t *testing.T) {
	members := []string{alice, bob, carol, dave}
	db, st := newSociety(t, testParams(), 1_000_000, members...)

	check := func(st *state.State) {
		t.Helper()
		ps, err := st.ProposalList(types.Page{})
		require.NoError(t, err)
		var open uint64
		for _, p := range ps {
			if p.Kind == types.ProposalKindFundRequest && p.Status == types.ProposalStatusVote {
				open += p.RequestedFund()
			}
			voters, err := st.Voters(p.Id)
			require.NoError(t, err)
			if p.Status.Open() {
				require.EqualValues(t, p.Tally.Total(), len(voters), "proposal %d", p.Id)
			}
		}
		require.Equal(t, open, st.ReservedFund())
	}

	amounts := map[string]uint64{alice: 100, bob: 200, carol: 300, dave: 400}
	ids := map[string]uint64{}
	for _, m := range members {
		id, err := st.AddFundProposal(m, "t", "d", amounts[m])
		require.NoError(t, err)
		ids[m] = id
		check(st)
	}

	// alice: accepted, bob: rejected, carol: still open, dave: open with votes
	for _, v := range []struct {
		voter   string
		author  string
		approve bool
	}{
		{alice, alice, true}, {bob, alice, true}, {carol, alice, true},
		{alice, bob, false}, {bob, bob, false}, {carol, bob, false},
		{dave, carol, true},
		{alice, dave, true}, {bob, dave, false},
	} {
		_, err := st.Vote(ids[v.author], v.voter, v.approve)
		require.NoError(t, err)
		check(st)
	}
	commit(t, db, st)
	st = db.NewState()
	check(st)

	p, err := st.Proposal(ids[alice])
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusAccepted, p.Status)
	p, err = st.Proposal(ids[bob])
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusRejected, p.Status)
	require.EqualValues(t, 700, st.ReservedFund())
}

func TestProposalListPagination(t *testing.T) {
	_, st := newSociety(t, testParams(), 0, alice)

	ps, err := st.ProposalList(types.Page{})
	require.NoError(t, err)
	require.Empty(t, ps)

	for _, c := range []string{bob, carol, dave} {
		_, err := st.AddMemberProposal(c, strPtr(c), nil)
		require.NoError(t, err)
	}
	ps, err = st.ProposalList(types.NewPage(1, 5))
	require.NoError(t, err)
	require.Len(t, ps, 2)
	require.EqualValues(t, 1, ps[0].Id)
	require.Equal(t, carol, ps[0].Title)

	_, err = st.ProposalList(types.NewPage(3, 1))
	require.ErrorIs(t, err, types.ErrOutOfRange)
	_, err = st.ProposalList(types.NewPage(0, 0))
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := state.NewStateDB(dir, testParams(), log.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	st.SetChainId("society-test")
	st.SetBlock(0, startTime)
	require.NoError(t, st.InitGenesis(&types.AppState{Members: []string{alice, bob}, Treasury: 50_000}))
	_, err = st.AddFundProposal(alice, "t", "d", 100)
	require.NoError(t, err)
	_, err = st.Update()
	require.NoError(t, err)
	hash, err := db.SetState(st)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = state.NewStateDB(dir, testParams(), log.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()
	st = db.State()
	require.Equal(t, hash, st.Hash())
	require.Equal(t, "society-test", st.Header().ChainId)
	require.True(t, st.Initialized())
	require.EqualValues(t, 100, st.ReservedFund())
	members, err := st.MemberList(types.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{alice, bob}, members)
	p, err := st.ActiveProposal(alice)
	require.NoError(t, err)
	require.EqualValues(t, 100, p.RequestedFund())
}
