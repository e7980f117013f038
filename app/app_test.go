package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/calehh/society/app"
	"github.com/calehh/society/config"
	"github.com/calehh/society/quorum"
	"github.com/calehh/society/tx"
	"github.com/calehh/society/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const chainId = "society-test"

var genesisTime = time.Unix(1_700_000_000, 0)

type member struct {
	key   ed25519.PrivKey
	nonce uint64
}

func newMember() *member {
	return &member{key: ed25519.GenPrivKey()}
}

func (m *member) addr() string {
	return m.key.PubKey().Address().String()
}

// tx signs a transaction with the member's next nonce.
func (m *member) tx(t *testing.T, tp tx.TxType, body any, deposit uint64) []byte {
	t.Helper()
	btx := &tx.SocietyTx{
		Version: tx.TxVersion1,
		Type:    tp,
		Nonce:   m.nonce,
		Deposit: deposit,
		Tx:      body,
	}
	require.NoError(t, btx.Sign(m.key, chainId))
	dat, err := tx.MarshalSocietyTx(btx)
	require.NoError(t, err)
	m.nonce++
	return dat
}

type testChain struct {
	t      *testing.T
	home   string
	app    *app.SocietyApp
	reg    *prometheus.Registry
	height int64
}

func newTestChain(t *testing.T, appState *types.AppState) *testChain {
	c := &testChain{t: t, home: t.TempDir()}
	c.open()
	dat, err := json.Marshal(appState)
	require.NoError(t, err)
	res, err := c.app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       chainId,
		Time:          genesisTime,
		AppStateBytes: dat,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AppHash)
	return c
}

func (c *testChain) open() {
	cfg := config.DefaultSocietyAppConfig(c.home)
	c.reg = prometheus.NewRegistry()
	a, err := app.NewSocietyApp(cfg, log.NewNopLogger(), c.reg)
	require.NoError(c.t, err)
	c.app = a
	c.t.Cleanup(func() {
		if c.app == a {
			a.Stop()
		}
	})
}

func (c *testChain) restart() {
	c.app.Stop()
	c.app = nil
	c.open()
}

func (c *testChain) blockTime() time.Time {
	return genesisTime.Add(time.Duration(c.height) * 5 * time.Second)
}

// block finalizes and commits the next block.
func (c *testChain) block(txs ...[]byte) []*abcitypes.ExecTxResult {
	c.t.Helper()
	c.height++
	res, err := c.app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Txs:    txs,
		Height: c.height,
		Time:   c.blockTime(),
	})
	require.NoError(c.t, err)
	require.Len(c.t, res.TxResults, len(txs))
	_, err = c.app.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	return res.TxResults
}

func (c *testChain) query(path string, data []byte, v any) *abcitypes.ResponseQuery {
	c.t.Helper()
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(c.t, err)
	if v != nil && res.Code == 0 {
		require.NoError(c.t, json.Unmarshal(res.Value, v))
	}
	return res
}

// metric reads a gathered gauge or counter whose labels include labels.
func (c *testChain) metric(name string, labels map[string]string) float64 {
	c.t.Helper()
	mfs, err := c.reg.Gather()
	require.NoError(c.t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			return m.GetCounter().GetValue()
		}
	}
	c.t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func eventTypes(events []abcitypes.Event) []string {
	var tps []string
	for _, ev := range events {
		tps = append(tps, ev.Type)
	}
	return tps
}

func TestMemberAdmissionThroughBlocks(t *testing.T) {
	alice, bob, carol := newMember(), newMember(), newMember()
	c := newTestChain(t, &types.AppState{
		Members:  []string{alice.addr(), bob.addr()},
		Treasury: 100_000,
		Accounts: []types.GenesisAccount{
			{Address: alice.addr(), Balance: 10_000},
			{Address: bob.addr(), Balance: 10_000},
			{Address: carol.addr(), Balance: 5_000},
		},
	})

	title := "carol wants in"
	res := c.block(carol.tx(t, tx.TxTypeMemberProposal, &tx.MemberProposalTx{Title: &title}, 1_000))
	require.EqualValues(t, 0, res[0].Code, res[0].Log)
	require.Equal(t, "0", string(res[0].Data))
	require.Equal(t, []string{types.EventProposalType}, eventTypes(res[0].Events))

	res = c.block(
		alice.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000),
		bob.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000),
	)
	require.EqualValues(t, 0, res[0].Code, res[0].Log)
	require.Equal(t, quorum.Unchanged.String(), string(res[0].Data))
	require.EqualValues(t, 0, res[1].Code, res[1].Log)
	require.Equal(t, quorum.Accepted.String(), string(res[1].Data))
	require.Contains(t, eventTypes(res[1].Events), types.EventMemberType)

	var m types.MemberResponse
	c.query(types.QueryMember, []byte(carol.addr()), &m)
	require.True(t, m.Member)

	var members []string
	c.query(types.QueryMembers, nil, &members)
	require.Equal(t, []string{alice.addr(), bob.addr(), carol.addr()}, members)

	var proposals []*types.Proposal
	c.query(types.QueryProposals, []byte(`{"offset":0,"limit":10}`), &proposals)
	require.Len(t, proposals, 1)
	require.Equal(t, types.ProposalStatusAccepted, proposals[0].Status)
	require.Equal(t, title, proposals[0].Title)
	require.Equal(t, quorum.Tally{Approve: 2}, proposals[0].Tally)

	// the treasury carried the request, the votes were paid by the voters
	var acnt types.Account
	c.query(types.QueryAccount, []byte(carol.addr()), &acnt)
	require.EqualValues(t, 1, acnt.Nonce)
	require.EqualValues(t, 5_000, acnt.Balance)
	c.query(types.QueryAccount, []byte(alice.addr()), &acnt)
	require.Less(t, acnt.Balance, uint64(10_000))

	require.Equal(t, float64(3), c.metric("society_governance_members", nil))
	require.Equal(t, float64(1), c.metric("society_governance_decisions_total", map[string]string{"decision": "accepted"}))
	require.Equal(t, float64(2), c.metric("society_governance_votes_total", map[string]string{"approve": "true"}))
}

func TestApplicantWithoutAccountIsAdmitted(t *testing.T) {
	alice, bob, dave := newMember(), newMember(), newMember()
	c := newTestChain(t, &types.AppState{
		Members:  []string{alice.addr(), bob.addr()},
		Treasury: 100_000,
		Accounts: []types.GenesisAccount{
			{Address: alice.addr(), Balance: 10_000},
			{Address: bob.addr(), Balance: 10_000},
		},
	})
	var before types.BalanceResponse
	c.query(types.QueryBalance, nil, &before)

	res := c.block(dave.tx(t, tx.TxTypeMemberProposal, &tx.MemberProposalTx{}, 0))
	require.EqualValues(t, 0, res[0].Code, res[0].Log)

	var after types.BalanceResponse
	c.query(types.QueryBalance, nil, &after)
	require.Less(t, after.Spendable, before.Spendable)

	res = c.block(
		alice.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000),
		bob.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000),
	)
	require.EqualValues(t, 0, res[1].Code, res[1].Log)
	require.Equal(t, quorum.Accepted.String(), string(res[1].Data))

	var m types.MemberResponse
	c.query(types.QueryMember, []byte(dave.addr()), &m)
	require.True(t, m.Member)
	var acnt types.Account
	qres := c.query(types.QueryAccount, []byte(dave.addr()), &acnt)
	require.EqualValues(t, 2, qres.Height)
	require.EqualValues(t, 1, acnt.Nonce)
	require.Zero(t, acnt.Balance)
}

func TestFirstTxPaysForSenderAccount(t *testing.T) {
	alice, dave := newMember(), newMember()
	c := newTestChain(t, &types.AppState{
		Members:  []string{alice.addr(), dave.addr()},
		Treasury: 10_000,
		Accounts: []types.GenesisAccount{{Address: alice.addr(), Balance: 10_000}},
	})
	res := c.block(alice.tx(t, tx.TxTypeFundProposal, &tx.FundProposalTx{Title: "t", Amount: 10}, 1_000))
	require.EqualValues(t, 0, res[0].Code, res[0].Log)
	res = c.block(alice.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000))
	require.EqualValues(t, 0, res[0].Code, res[0].Log)

	// the tie clears one vote marker, less than the account dave's nonce creates
	res = c.block(dave.tx(t, tx.TxTypeVoteReject, &tx.VoteTx{Proposal: 0}, 1_000))
	require.Equal(t, uint32(types.KindResource), res[0].Code)
	require.Contains(t, res[0].Log, types.ErrInsufficientBalance.Error())

	var p types.Proposal
	c.query(types.QueryProposal, []byte("0"), &p)
	require.Equal(t, types.ProposalStatusVote, p.Status)
	var acnt types.Account
	c.query(types.QueryAccount, []byte(dave.addr()), &acnt)
	require.Zero(t, acnt.Nonce)
}

func TestFailedTxLeavesNoTrace(t *testing.T) {
	alice, bob, outsider := newMember(), newMember(), newMember()
	c := newTestChain(t, &types.AppState{
		Members:  []string{alice.addr(), bob.addr()},
		Treasury: 10_000,
		Accounts: []types.GenesisAccount{
			{Address: alice.addr(), Balance: 10_000},
			{Address: bob.addr(), Balance: 10},
		},
	})

	fund := &tx.FundProposalTx{Title: "t", Description: "d", Amount: 100}
	res := c.block(
		// spendable is 10000 - 1000 - rent, far below the request
		alice.tx(t, tx.TxTypeFundProposal, &tx.FundProposalTx{Title: "t", Amount: 9_500}, 1_000),
		outsider.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000),
		bob.tx(t, tx.TxTypeFundProposal, fund, 1_000),
	)
	require.Equal(t, uint32(types.KindResource), res[0].Code)
	require.Equal(t, uint32(types.KindAuthorization), res[1].Code)
	// bob cannot pay for the storage of his proposal
	require.Equal(t, uint32(types.KindResource), res[2].Code)
	require.Contains(t, res[2].Log, types.ErrInsufficientBalance.Error())

	var proposals []*types.Proposal
	c.query(types.QueryProposals, nil, &proposals)
	require.Empty(t, proposals)
	var bal types.BalanceResponse
	c.query(types.QueryBalance, nil, &bal)
	require.EqualValues(t, 0, bal.Reserved)

	// failed txs do not consume the nonce
	var acnt types.Account
	c.query(types.QueryAccount, []byte(alice.addr()), &acnt)
	require.EqualValues(t, 0, acnt.Nonce)
	alice.nonce = 0

	res = c.block(alice.tx(t, tx.TxTypeFundProposal, fund, 10))
	require.Equal(t, uint32(types.KindResource), res[0].Code)
	require.Contains(t, res[0].Log, types.ErrInsufficientDeposit.Error())
	alice.nonce = 0

	res = c.block(alice.tx(t, tx.TxTypeFundProposal, fund, 1_000))
	require.EqualValues(t, 0, res[0].Code, res[0].Log)
	c.query(types.QueryBalance, nil, &bal)
	require.EqualValues(t, 100, bal.Reserved)

	// replayed nonce
	alice.nonce = 0
	res = c.block(alice.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000))
	require.Equal(t, uint32(types.KindValidation), res[0].Code)
	require.Contains(t, res[0].Log, types.ErrNonceInvalid.Error())

	// signed for another chain
	btx := &tx.SocietyTx{Type: tx.TxTypeVoteApprove, Nonce: 1, Tx: &tx.VoteTx{Proposal: 0}}
	require.NoError(t, btx.Sign(alice.key, "other-chain"))
	dat, err := tx.MarshalSocietyTx(btx)
	require.NoError(t, err)
	res = c.block(dat)
	require.Equal(t, uint32(types.KindAuthorization), res[0].Code)

	var can types.CanVoteResponse
	req, _ := json.Marshal(&types.CanVoteRequest{Proposal: 0, Identity: alice.addr()})
	c.query(types.QueryCanVote, req, &can)
	require.True(t, can.CanVote)
}

func TestCheckAndPrepareFilterTxs(t *testing.T) {
	alice, outsider := newMember(), newMember()
	c := newTestChain(t, &types.AppState{
		Members:  []string{alice.addr()},
		Treasury: 10_000,
		Accounts: []types.GenesisAccount{{Address: alice.addr(), Balance: 10_000}},
	})
	ctx := context.Background()

	good := alice.tx(t, tx.TxTypeFundProposal, &tx.FundProposalTx{Title: "t", Amount: 10}, 1_000)
	bad := outsider.tx(t, tx.TxTypeFundProposal, &tx.FundProposalTx{Title: "t", Amount: 10}, 1_000)

	check, err := c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: good})
	require.NoError(t, err)
	require.EqualValues(t, 0, check.Code, check.Log)
	check, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: bad})
	require.NoError(t, err)
	require.Equal(t, uint32(types.KindAuthorization), check.Code)
	check, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: []byte("garbage")})
	require.NoError(t, err)
	require.NotZero(t, check.Code)

	prep, err := c.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{
		Txs:        [][]byte{bad, good},
		MaxTxBytes: 1 << 20,
		Height:     1,
		Time:       c.blockTime(),
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{good}, prep.Txs)

	proc, err := c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Txs: prep.Txs, Height: 1, Time: c.blockTime()})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)
	proc, err = c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Txs: [][]byte{bad, good}, Height: 1, Time: c.blockTime()})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	// dry runs leave the committed state alone
	var proposals []*types.Proposal
	c.query(types.QueryProposals, nil, &proposals)
	require.Empty(t, proposals)
}

func TestRestartKeepsState(t *testing.T) {
	alice := newMember()
	c := newTestChain(t, &types.AppState{
		Members:  []string{alice.addr()},
		Treasury: 10_000,
		Accounts: []types.GenesisAccount{{Address: alice.addr(), Balance: 10_000}},
	})
	res := c.block(alice.tx(t, tx.TxTypeFundProposal, &tx.FundProposalTx{Title: "t", Amount: 500}, 1_000))
	require.EqualValues(t, 0, res[0].Code, res[0].Log)
	res = c.block(alice.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000))
	require.EqualValues(t, 0, res[0].Code, res[0].Log)
	require.Contains(t, eventTypes(res[0].Events), types.EventTransferType)

	info, err := c.app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	c.restart()
	after, err := c.app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	require.Equal(t, info.LastBlockHeight, after.LastBlockHeight)
	require.Equal(t, info.LastBlockAppHash, after.LastBlockAppHash)
	require.EqualValues(t, 2, after.LastBlockHeight)

	var acnt types.Account
	c.query(types.QueryAccount, []byte(alice.addr()), &acnt)
	require.EqualValues(t, 2, acnt.Nonce)

	var p types.Proposal
	c.query(types.QueryProposal, []byte("0"), &p)
	require.Equal(t, types.ProposalStatusAccepted, p.Status)

	res = c.block(alice.tx(t, tx.TxTypeVoteApprove, &tx.VoteTx{Proposal: 0}, 1_000))
	require.Equal(t, uint32(types.KindStateConflict), res[0].Code)
}

func TestQueryErrors(t *testing.T) {
	alice := newMember()
	c := newTestChain(t, &types.AppState{Members: []string{alice.addr()}})

	res := c.query("/nope/", nil, nil)
	require.EqualValues(t, app.CodeUnknownPath, res.Code)
	res = c.query(types.QueryMembers, []byte(`{"offset":1}`), nil)
	require.Equal(t, uint32(types.KindValidation), res.Code)
	res = c.query(types.QueryMembers, []byte(`{"offset":0,"limit":0}`), nil)
	require.Equal(t, uint32(types.KindValidation), res.Code)
	res = c.query(types.QueryProposal, []byte("7"), nil)
	require.Equal(t, uint32(types.KindStateConflict), res.Code)
	res = c.query(types.QueryProposal, []byte("x"), nil)
	require.Equal(t, uint32(types.KindValidation), res.Code)
	res = c.query(types.QueryAccount, nil, nil)
	require.Equal(t, uint32(types.KindValidation), res.Code)
}

func TestInitChainRejectsEmptyMembers(t *testing.T) {
	cfg := config.DefaultSocietyAppConfig(t.TempDir())
	a, err := app.NewSocietyApp(cfg, log.NewNopLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Stop()
	_, err = a.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       chainId,
		Time:          genesisTime,
		AppStateBytes: []byte(`{"members":[]}`),
	})
	require.ErrorIs(t, err, types.ErrMissingMembers)
}
