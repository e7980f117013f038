package types_test

import (
	"fmt"
	"testing"

	"github.com/calehh/society/types"
	"github.com/stretchr/testify/require"
)

func TestEventProposalRoundTrip(t *testing.T) {
	ev := &types.EventProposal{
		Proposal:    7,
		Author:      "A1B2",
		Kind:        types.ProposalKindFundRequest,
		Status:      types.ProposalStatusVote,
		Title:       "roof repair",
		Description: "fix the leaking roof",
		Amount:      500,
		CreatedAt:   100,
		UpdatedAt:   160,
		Resubmitted: true,
	}
	require.Equal(t, ev, types.DecodeEventProposal(types.EncodeEventProposal(ev)))
}

func TestEventVoteRoundTrip(t *testing.T) {
	ev := &types.EventVote{
		Proposal: 3,
		Voter:    "C3D4",
		Approve:  false,
		Decision: "draft_reset",
		Status:   types.ProposalStatusDraft,
		Epoch:    1,
	}
	require.Equal(t, ev, types.DecodeEventVote(types.EncodeEventVote(ev)))
}

func TestDecodeRejectsMalformedAttributes(t *testing.T) {
	event := types.EncodeEventMember(&types.EventMember{Address: "AA", Index: 2})
	event.Attributes[1].Value = "two"
	require.Nil(t, types.DecodeEventMember(event))
}

func TestCodeOf(t *testing.T) {
	require.Zero(t, types.CodeOf(nil))
	require.Equal(t, uint32(types.KindValidation), types.CodeOf(types.ErrFieldTooLong))
	wrapped := fmt.Errorf("%w: proposal 4", types.ErrProposalNotFound)
	require.Equal(t, uint32(types.KindStateConflict), types.CodeOf(wrapped))
	require.Equal(t, uint32(types.KindAuthorization), types.CodeOf(types.ErrNotAMember))
	require.Equal(t, uint32(types.KindResource), types.CodeOf(types.ErrInsufficientFunds))
	require.Equal(t, uint32(types.KindInternal), types.CodeOf(fmt.Errorf("disk on fire")))
}

func TestPageSize(t *testing.T) {
	require.EqualValues(t, types.DefaultPageLimit, types.Page{}.Size())
	require.EqualValues(t, 5, types.NewPage(0, 5).Size())
}

func TestAppStateValidateBasic(t *testing.T) {
	st := &types.AppState{}
	require.ErrorIs(t, st.ValidateBasic(), types.ErrMissingMembers)

	st.Members = []string{"AA"}
	st.Treasury = 10
	st.Locked = 11
	require.ErrorIs(t, st.ValidateBasic(), types.ErrInvalidArgument)

	st.Locked = 1
	st.Accounts = []types.GenesisAccount{{Address: "BB", Balance: 1}, {Address: "BB", Balance: 2}}
	require.ErrorIs(t, st.ValidateBasic(), types.ErrInvalidArgument)

	st.Accounts = st.Accounts[:1]
	require.NoError(t, st.ValidateBasic())
}
