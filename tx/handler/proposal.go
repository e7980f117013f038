package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/calehh/society/state"
	"github.com/calehh/society/tx"
	"github.com/calehh/society/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

func checkProposalDeposit(st *state.State, btx *tx.SocietyTx) error {
	required := st.Params().MinProposalDeposit
	if btx.Deposit < required {
		return fmt.Errorf("%w: proposal needs %d, attached %d", types.ErrInsufficientDeposit, required, btx.Deposit)
	}
	return nil
}

func proposalResult(id uint64) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{Data: []byte(strconv.FormatUint(id, 10))}
}

type MemberProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewMemberProposalTxHandler(logger cmtlog.Logger) (h *MemberProposalTxHandler) {
	logger = logger.With("module", "memberProposalTx")
	h = &MemberProposalTxHandler{
		logger: logger,
	}
	return
}

func (h *MemberProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h.logger, st, btx, h.handle), nil
}

func (h *MemberProposalTxHandler) handle(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ExecTxResult, err error) {
	if err = checkProposalDeposit(st, btx); err != nil {
		return
	}
	ptx := btx.Tx.(*tx.MemberProposalTx)
	id, err := st.AddMemberProposal(btx.SenderAddress(), ptx.Title, ptx.Description)
	if err != nil {
		return nil, err
	}
	return proposalResult(id), nil
}

func (h *MemberProposalTxHandler) Process(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

type FundProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewFundProposalTxHandler(logger cmtlog.Logger) (h *FundProposalTxHandler) {
	logger = logger.With("module", "fundProposalTx")
	h = &FundProposalTxHandler{
		logger: logger,
	}
	return
}

func (h *FundProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h.logger, st, btx, h.handle), nil
}

func (h *FundProposalTxHandler) handle(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ExecTxResult, err error) {
	if err = checkProposalDeposit(st, btx); err != nil {
		return
	}
	ftx := btx.Tx.(*tx.FundProposalTx)
	id, err := st.AddFundProposal(btx.SenderAddress(), ftx.Title, ftx.Description, ftx.Amount)
	if err != nil {
		return nil, err
	}
	return proposalResult(id), nil
}

func (h *FundProposalTxHandler) Process(ctx context.Context, st *state.State, btx *tx.SocietyTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
