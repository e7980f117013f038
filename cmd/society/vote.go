package main

import (
	"fmt"
	"strconv"

	"github.com/calehh/society/tx"
	"github.com/spf13/cobra"
)

var voteArgs txArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote on a proposal",
}

func newVoteCmd(use string, tp tx.TxType) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <proposal>",
		Short: fmt.Sprintf("Cast a %s vote", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid proposal id %q", args[0])
			}
			return sendTx(cmd.Context(), &voteArgs, tp, &tx.VoteTx{Proposal: id})
		},
	}
	txFlags(cmd, &voteArgs)
	return cmd
}

func init() {
	voteCmd.AddCommand(
		newVoteCmd("approve", tx.TxTypeVoteApprove),
		newVoteCmd("reject", tx.TxTypeVoteReject),
	)
}
