package app

import (
	"strconv"

	"github.com/calehh/society/state"
	"github.com/calehh/society/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "governance"

type Metrics struct {
	Proposals    *prometheus.CounterVec
	Votes        *prometheus.CounterVec
	Decisions    *prometheus.CounterVec
	Transfers    prometheus.Counter
	TxFailures   *prometheus.CounterVec
	Members      prometheus.Gauge
	ReservedFund prometheus.Gauge
	StorageUsage prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	ns := types.SocietyModuleName
	m := &Metrics{
		Proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "proposals_total",
			Help:      "Proposals submitted, by kind and whether they replaced a draft.",
		}, []string{"kind", "resubmitted"}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "votes_total",
			Help:      "Votes counted, by direction.",
		}, []string{"approve"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "decisions_total",
			Help:      "Proposal decisions reached by votes.",
		}, []string{"decision"}),
		Transfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "transferred_total",
			Help:      "Amount paid out of the treasury by accepted fund requests.",
		}),
		TxFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "tx_failures_total",
			Help:      "Finalized transactions that failed, by type and error kind.",
		}, []string{"type", "kind"}),
		Members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "members",
			Help:      "Number of members.",
		}),
		ReservedFund: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "reserved_fund",
			Help:      "Treasury amount held by fund requests in vote.",
		}),
		StorageUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: metricsSubsystem,
			Name:      "storage_usage_bytes",
			Help:      "Bytes of state the treasury pays rent for.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.Proposals, m.Votes, m.Decisions, m.Transfers, m.TxFailures,
		m.Members, m.ReservedFund, m.StorageUsage,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeEvents(events []abcitypes.Event) {
	for _, ev := range events {
		switch ev.Type {
		case types.EventProposalType:
			if p := types.DecodeEventProposal(ev); p != nil {
				m.Proposals.WithLabelValues(p.Kind.String(), strconv.FormatBool(p.Resubmitted)).Inc()
			}
		case types.EventVoteType:
			if v := types.DecodeEventVote(ev); v != nil {
				m.Votes.WithLabelValues(strconv.FormatBool(v.Approve)).Inc()
				m.Decisions.WithLabelValues(v.Decision).Inc()
			}
		case types.EventTransferType:
			if t := types.DecodeEventTransfer(ev); t != nil {
				m.Transfers.Add(float64(t.Amount))
			}
		}
	}
}

func (m *Metrics) observeState(st *state.State) {
	if n, err := st.MemberCount(); err == nil {
		m.Members.Set(float64(n))
	}
	m.ReservedFund.Set(float64(st.ReservedFund()))
	m.StorageUsage.Set(float64(st.StorageUsage()))
}
