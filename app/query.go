package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/calehh/society/state"
	"github.com/calehh/society/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

const CodeUnknownPath = 404

func (app *SocietyApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeUnknownPath
		res.Log = fmt.Sprintf("unknown query path %s", req.Path)
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// stateQuerier answers one query path from the committed state.
type stateQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	answer func(st *state.State, data []byte) (any, error)
}

func (q *stateQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st := q.db.State()
	res.Height = int64(st.Header().Height)
	v, err := q.answer(st, req.Data)
	if err == nil {
		res.Value, err = json.Marshal(v)
	}
	if err != nil {
		q.logger.Debug("query fail", "path", req.Path, "err", err)
		res.Code = types.CodeOf(err)
		res.Log = err.Error()
		err = nil
	}
	return
}

func newStateQuerier(db *state.StateDB, logger cmtlog.Logger, answer func(st *state.State, data []byte) (any, error)) *stateQuerier {
	return &stateQuerier{db: db, logger: logger, answer: answer}
}

// parsePage reads a JSON page; empty data is the first default page.
func parsePage(data []byte) (page types.Page, err error) {
	if len(data) == 0 {
		return
	}
	if err = json.Unmarshal(data, &page); err != nil {
		err = fmt.Errorf("%w: page: %v", types.ErrInvalidArgument, err)
	}
	return
}

func NewMemberQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newStateQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		id := string(data)
		ok, err := st.IsMember(id)
		if err != nil {
			return nil, err
		}
		return &types.MemberResponse{Identity: id, Member: ok}, nil
	})
}

func NewMemberListQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newStateQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		page, err := parsePage(data)
		if err != nil {
			return nil, err
		}
		return st.MemberList(page)
	})
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newStateQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		id, err := strconv.ParseUint(string(data), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: proposal id %q", types.ErrInvalidArgument, data)
		}
		return st.Proposal(id)
	})
}

func NewProposalListQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newStateQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		page, err := parsePage(data)
		if err != nil {
			return nil, err
		}
		return st.ProposalList(page)
	})
}

func NewCanVoteQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newStateQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		var req types.CanVoteRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		ok, err := st.CanVote(req.Proposal, req.Identity)
		if err != nil {
			return nil, err
		}
		return &types.CanVoteResponse{Proposal: req.Proposal, Identity: req.Identity, CanVote: ok}, nil
	})
}

func NewBalanceQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newStateQuerier(db, logger, func(st *state.State, data []byte) (any, error) {
		spendable, err := st.Balance()
		if err != nil {
			return nil, err
		}
		return &types.BalanceResponse{Spendable: spendable, Reserved: st.ReservedFund()}, nil
	})
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return &AccountQuerier{db: db, logger: logger}
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) == 0 {
		err = fmt.Errorf("%w: empty address", types.ErrInvalidArgument)
		res.Code = types.CodeOf(err)
		res.Log = err.Error()
		return res, nil
	}
	acnt, height, err := q.db.GetAccount(string(req.Data))
	if err != nil {
		q.logger.Error("get account fail", "address", string(req.Data), "err", err)
		res.Code = types.CodeOf(err)
		res.Log = err.Error()
		return res, nil
	}
	res.Height = int64(height)
	res.Value, err = json.Marshal(acnt)
	return
}
