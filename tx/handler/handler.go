package handler

import (
	"context"

	"github.com/calehh/society/state"
	"github.com/calehh/society/tx"
	"github.com/calehh/society/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TxHandler applies one transaction type to a state. Process mutates st and
// must be run on a clone the caller can drop on error.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ExecTxResult, err error)
}

type handleFunc func(ctx context.Context, st *state.State, btx *tx.SocietyTx) (*abcitypes.ExecTxResult, error)

// check dry-runs handle against a throwaway copy of st.
func check(ctx context.Context, logger cmtlog.Logger, st *state.State, btx *tx.SocietyTx, handle handleFunc) *abcitypes.ResponseCheckTx {
	res := &abcitypes.ResponseCheckTx{Code: 0}
	_, err := handle(ctx, st.Clone(), btx)
	if err != nil {
		logger.Info("CheckTx fail", "type", btx.Type, "sender", btx.SenderAddress(), "err", err)
		res.Code = types.CodeOf(err)
		res.Log = err.Error()
	}
	return res
}

// Handlers returns the handler of every transaction type.
func Handlers(logger cmtlog.Logger) map[tx.TxType]TxHandler {
	return map[tx.TxType]TxHandler{
		tx.TxTypeMemberProposal: NewMemberProposalTxHandler(logger),
		tx.TxTypeFundProposal:   NewFundProposalTxHandler(logger),
		tx.TxTypeVoteApprove:    NewVoteTxHandler(logger, true),
		tx.TxTypeVoteReject:     NewVoteTxHandler(logger, false),
	}
}
