package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/calehh/society/types"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url    string
	Offset uint64
	Limit  uint64
}

var queryArgs queryArguments

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read the committed governance state",
}

// runQuery sends one ABCI query and prints the JSON answer.
func runQuery(cmd *cobra.Command, path string, data []byte, v any) error {
	cli, err := http.New(queryArgs.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	if err = abciQuery(cmd.Context(), cli, path, data, v); err != nil {
		return err
	}
	return printJSON(v)
}

func pageData() []byte {
	dat, _ := json.Marshal(types.NewPage(queryArgs.Offset, queryArgs.Limit))
	return dat
}

func parseProposalId(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", s)
	}
	return id, nil
}

var queryMemberCmd = &cobra.Command{
	Use:   "member <address>",
	Short: "Tell whether an identity is a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, types.QueryMember, []byte(args[0]), &types.MemberResponse{})
	},
}

var queryMembersCmd = &cobra.Command{
	Use:   "members",
	Short: "List members in admission order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var members []string
		return runQuery(cmd, types.QueryMembers, pageData(), &members)
	},
}

var queryProposalCmd = &cobra.Command{
	Use:   "proposal <id>",
	Short: "Show a proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := parseProposalId(args[0]); err != nil {
			return err
		}
		return runQuery(cmd, types.QueryProposal, []byte(args[0]), &types.Proposal{})
	},
}

var queryProposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List proposals by id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var proposals []*types.Proposal
		return runQuery(cmd, types.QueryProposals, pageData(), &proposals)
	},
}

var queryCanVoteCmd = &cobra.Command{
	Use:   "can-vote <proposal> <address>",
	Short: "Tell whether an identity may vote on a proposal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseProposalId(args[0])
		if err != nil {
			return err
		}
		dat, _ := json.Marshal(&types.CanVoteRequest{Proposal: id, Identity: args[1]})
		return runQuery(cmd, types.QueryCanVote, dat, &types.CanVoteResponse{})
	},
}

var queryBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the spendable treasury balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, types.QueryBalance, nil, &types.BalanceResponse{})
	},
}

func init() {
	queryCmd.PersistentFlags().StringVarP(&queryArgs.Url, "url", "u", "http://127.0.0.1:26657", "society node rpc url")
	for _, cmd := range []*cobra.Command{queryMembersCmd, queryProposalsCmd} {
		cmd.Flags().Uint64Var(&queryArgs.Offset, "offset", 0, "first item")
		cmd.Flags().Uint64Var(&queryArgs.Limit, "limit", types.DefaultPageLimit, "max items")
	}
	queryCmd.AddCommand(
		queryMemberCmd,
		queryMembersCmd,
		queryProposalCmd,
		queryProposalsCmd,
		queryCanVoteCmd,
		queryBalanceCmd,
	)
}
