package main

import (
	"github.com/calehh/society/tx"
	"github.com/spf13/cobra"
)

type proposalArguments struct {
	txArguments
	Title       string
	Description string
	Amount      uint64
}

var proposalArgs proposalArguments

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Submit or resubmit the sender's proposal",
}

var memberProposalCmd = &cobra.Command{
	Use:   "member",
	Short: "Ask to be admitted as a member",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body := &tx.MemberProposalTx{}
		if cmd.Flags().Changed("title") {
			body.Title = &proposalArgs.Title
		}
		if cmd.Flags().Changed("description") {
			body.Description = &proposalArgs.Description
		}
		return sendTx(cmd.Context(), &proposalArgs.txArguments, tx.TxTypeMemberProposal, body)
	},
}

var fundProposalCmd = &cobra.Command{
	Use:   "fund",
	Short: "Request a payout from the treasury",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body := &tx.FundProposalTx{
			Title:       proposalArgs.Title,
			Description: proposalArgs.Description,
			Amount:      proposalArgs.Amount,
		}
		return sendTx(cmd.Context(), &proposalArgs.txArguments, tx.TxTypeFundProposal, body)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{memberProposalCmd, fundProposalCmd} {
		txFlags(cmd, &proposalArgs.txArguments)
		cmd.Flags().StringVarP(&proposalArgs.Title, "title", "t", "", "proposal title")
		cmd.Flags().StringVarP(&proposalArgs.Description, "description", "d", "", "proposal description")
	}
	fundProposalCmd.Flags().Uint64VarP(&proposalArgs.Amount, "amount", "a", 0, "requested amount")
	fundProposalCmd.MarkFlagRequired("amount")
	proposalCmd.AddCommand(memberProposalCmd, fundProposalCmd)
}
