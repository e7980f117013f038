package app

import (
	"context"

	"github.com/calehh/society/config"
	"github.com/calehh/society/state"
	"github.com/calehh/society/tx"
	"github.com/calehh/society/tx/handler"
	"github.com/calehh/society/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"
)

var _ abcitypes.Application = &SocietyApp{}

type SocietyApp struct {
	cfg    *config.SocietyAppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	txHdlrs  map[tx.TxType]handler.TxHandler
	queriers map[string]Querier
	metrics  *Metrics

	st *state.State
}

// NewSocietyApp opens the state under the home data dir. Metrics are
// registered on reg.
func NewSocietyApp(cfg *config.SocietyAppConfig, logger cmtlog.Logger, reg prometheus.Registerer) (app *SocietyApp, err error) {
	logger = logger.With("module", "app")

	db, err := state.NewStateDB(cfg.DataDir(), cfg.Params(), logger)
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		db.Close()
		return nil, err
	}

	app = &SocietyApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		txHdlrs:  handler.Handlers(logger),
		queriers: make(map[string]Querier),
		metrics:  metrics,
	}
	app.registerQuerier()
	app.metrics.observeState(db.State())
	return
}

func (app *SocietyApp) Metrics() *Metrics {
	return app.metrics
}

func (app *SocietyApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("society app stopped")
}

func (app *SocietyApp) registerQuerier() {
	app.queriers[types.QueryMember] = NewMemberQuerier(app.db, app.logger)
	app.queriers[types.QueryMembers] = NewMemberListQuerier(app.db, app.logger)
	app.queriers[types.QueryProposal] = NewProposalQuerier(app.db, app.logger)
	app.queriers[types.QueryProposals] = NewProposalListQuerier(app.db, app.logger)
	app.queriers[types.QueryCanVote] = NewCanVoteQuerier(app.db, app.logger)
	app.queriers[types.QueryBalance] = NewBalanceQuerier(app.db, app.logger)
	app.queriers[types.QueryAccount] = NewAccountQuerier(app.db, app.logger)
}

func (app *SocietyApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	if cur := app.db.State(); cur.Initialized() {
		// replayed handshake after a crash between InitChain and the first block
		app.logger.Info("InitChain on initialized state", "chainId", cur.Header().ChainId)
		return &abcitypes.ResponseInitChain{AppHash: cur.Hash().Bytes()}, nil
	}
	appState, err := types.ParseAppState(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app state fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetBlock(0, chain.Time.Unix())
	if err = st.InitGenesis(appState); err != nil {
		app.logger.Error("InitChain genesis fail", "err", err)
		return nil, err
	}
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err := app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	app.metrics.observeState(st)
	app.logger.Info("InitChain", "chainId", chain.ChainId, "members", len(appState.Members), "treasury", appState.Treasury)
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *SocietyApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		Data:             types.SocietyModuleName,
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *SocietyApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *SocietyApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *SocietyApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *SocietyApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *SocietyApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *SocietyApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
