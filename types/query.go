package types

// ABCI query paths served by the application.
const (
	QueryMember    = "/member/"
	QueryMembers   = "/members/"
	QueryProposal  = "/proposal/"
	QueryProposals = "/proposals/"
	QueryCanVote   = "/can_vote/"
	QueryBalance   = "/balance/"
	QueryAccount   = "/account/"
)

type MemberResponse struct {
	Identity string `json:"identity"`
	Member   bool   `json:"member"`
}

type CanVoteRequest struct {
	Proposal uint64 `json:"proposal"`
	Identity string `json:"identity"`
}

type CanVoteResponse struct {
	Proposal uint64 `json:"proposal"`
	Identity string `json:"identity"`
	CanVote  bool   `json:"canVote"`
}

type BalanceResponse struct {
	Spendable uint64 `json:"spendable"`
	Reserved  uint64 `json:"reserved"`
}
