package tx

import (
	"github.com/calehh/society/types"
)

type TxType uint8

const (
	TxTypeUnknown        TxType = 0
	TxTypeMemberProposal TxType = 1
	TxTypeFundProposal   TxType = 2
	TxTypeVoteApprove    TxType = 3
	TxTypeVoteReject     TxType = 4
)

func (t TxType) String() string {
	switch t {
	case TxTypeMemberProposal:
		return "member_proposal"
	case TxTypeFundProposal:
		return "fund_proposal"
	case TxTypeVoteApprove:
		return "vote_approve"
	case TxTypeVoteReject:
		return "vote_reject"
	default:
		return "unknown"
	}
}

const (
	TxVersion0 uint8 = 0
	TxVersion1 uint8 = 1
)

var (
	ErrInvalidTx            = types.NewError(types.KindValidation, "invalid tx")
	ErrUnsupportedTxType    = types.NewError(types.KindValidation, "unsupported tx type")
	ErrUnsupportedTxVersion = types.NewError(types.KindValidation, "unsupported tx version")
)
