package handler

import (
	"context"

	"github.com/calehh/society/quorum"
	"github.com/calehh/society/state"
	"github.com/calehh/society/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type VoteTxHandler struct {
	logger  cmtlog.Logger
	approve bool
}

func NewVoteTxHandler(logger cmtlog.Logger, approve bool) (h *VoteTxHandler) {
	logger = logger.With("module", "voteTx", "approve", approve)
	h = &VoteTxHandler{
		logger:  logger,
		approve: approve,
	}
	return
}

func (h *VoteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h.logger, st, btx, h.handle), nil
}

func (h *VoteTxHandler) handle(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ExecTxResult, err error) {
	vtx := btx.Tx.(*tx.VoteTx)
	decision, err := st.Vote(vtx.Proposal, btx.SenderAddress(), h.approve)
	if err != nil {
		return nil, err
	}
	if decision != quorum.Unchanged {
		h.logger.Info("proposal decided", "proposal", vtx.Proposal, "decision", decision)
	}
	return &abcitypes.ExecTxResult{Data: []byte(decision.String())}, nil
}

func (h *VoteTxHandler) Process(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
