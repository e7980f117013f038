package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/calehh/society/state"
	"github.com/calehh/society/tx"
	"github.com/calehh/society/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrNoPendingState      = errors.New("no finalized state to commit")
)

// parseTx decodes a transaction and checks its signature and nonce against st.
func (app *SocietyApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.SocietyTx, err error) {
	btx, err = tx.UnmarshalSocietyTx(txDat)
	if err != nil {
		return
	}
	if !btx.VerifySig(st.Header().ChainId) {
		return nil, types.ErrSigInvalid
	}
	err = st.CheckNonce(btx.SenderAddress(), btx.Nonce, allowNonceGap)
	return
}

func failedResult(err error) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{
		Code: types.CodeOf(err),
		Log:  err.Error(),
	}
}

// execTx runs one transaction on a copy of st. The copy is returned only if
// every step succeeded, otherwise st is returned untouched. Metrics are only
// recorded for finalized blocks.
func (app *SocietyApp) execTx(ctx context.Context, st *state.State, txDat []byte, finalized bool) (*abcitypes.ExecTxResult, *state.State) {
	btx, err := app.parseTx(st, txDat, false)
	if err != nil {
		return failedResult(err), st
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return failedResult(tx.ErrUnsupportedTxType), st
	}
	sender := btx.SenderAddress()
	payer := sender
	if btx.Type == tx.TxTypeMemberProposal {
		// applicants usually hold nothing yet
		payer = state.TreasuryAccount
	}
	cst := st.Clone()
	usage := cst.StorageUsage()
	// the nonce write may create the sender's account, which is charged too
	err = cst.IncNonce(sender)
	var res *abcitypes.ExecTxResult
	if err == nil {
		res, err = h.Process(ctx, cst, btx)
	}
	if err == nil && res == nil {
		err = fmt.Errorf("%w: %v returned no result", ErrUnexpectedTxProcess, btx.Type)
	}
	if err == nil {
		var charged uint64
		charged, err = cst.CoverStorage(payer, btx.Deposit, usage)
		if err == nil && charged > 0 {
			app.logger.Debug("storage covered", "sender", sender, "payer", payer, "charged", charged, "deposit", btx.Deposit)
		}
	}
	if err != nil {
		if finalized {
			app.logger.Info("tx failed", "type", btx.Type, "sender", sender, "err", err)
			app.metrics.TxFailures.WithLabelValues(btx.Type.String(), types.KindOf(err).String()).Inc()
		}
		return failedResult(err), st
	}
	res.Events = cst.Events()
	if finalized {
		app.metrics.observeEvents(res.Events)
	}
	return res, cst
}

func (app *SocietyApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	st := app.db.State()
	btx, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Debug("parse tx fail", "err", err)
		return &abcitypes.ResponseCheckTx{Code: types.CodeOf(err), Log: err.Error()}, nil
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		return &abcitypes.ResponseCheckTx{Code: types.CodeOf(tx.ErrUnsupportedTxType), Log: tx.ErrUnsupportedTxType.Error()}, nil
	}
	res, err = h.Check(ctx, st, btx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: types.CodeOf(err), Log: err.Error()}
		err = nil
	}
	return
}

// blockState starts the state of a block at the given height and time.
func (app *SocietyApp) blockState(height int64, unixTime int64) *state.State {
	st := app.db.NewState()
	st.SetBlock(height, unixTime)
	return st
}

func (app *SocietyApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	st := app.blockState(proposal.Height, proposal.Time.Unix())
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		result, next := app.execTx(ctx, st, stx, false)
		if result.Code != 0 {
			app.logger.Info("drop tx from proposal", "code", result.Code, "log", result.Log)
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(txs), "dropped", len(proposal.Txs)-len(txs))
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *SocietyApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.blockState(proposal.Height, proposal.Time.Unix())
	for i, stx := range proposal.Txs {
		var result *abcitypes.ExecTxResult
		result, st = app.execTx(ctx, st, stx, false)
		if result.Code != 0 {
			app.logger.Error("proposal carries a failing tx", "height", proposal.Height, "index", i, "log", result.Log)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *SocietyApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	st := app.blockState(req.Height, req.Time.Unix())
	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		results[i], st = app.execTx(ctx, st, stx, true)
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs), "hash", h)
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: results,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *SocietyApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.metrics.observeState(app.st)
	app.st = nil
	return &abcitypes.ResponseCommit{}, nil
}
