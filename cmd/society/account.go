package main

import (
	"errors"
	"fmt"

	"github.com/calehh/society/crypto"
	"github.com/calehh/society/types"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type accountArguments struct {
	Url     string
	Address string
	Skey    string
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the balance and nonce of an account",
	Args:  cobra.NoArgs,
	RunE:  accountRun,
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	accountCmd.Flags().StringVarP(&accountArgs.Address, "address", "a", "", "account address, defaults to the key file's")
	accountCmd.Flags().StringVarP(&accountArgs.Skey, "skeyPath", "s", "", "private key path")
}

func accountRun(cmd *cobra.Command, args []string) error {
	addr := accountArgs.Address
	if addr == "" {
		if accountArgs.Skey == "" {
			return errors.New("either --address or --skeyPath is required")
		}
		pv, err := crypto.LoadFilePV(accountArgs.Skey)
		if err != nil {
			return err
		}
		addr = pv.Address()
	}
	cli, err := http.New(accountArgs.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	var act types.Account
	if err = abciQuery(cmd.Context(), cli, types.QueryAccount, []byte(addr), &act); err != nil {
		return err
	}
	return printJSON(&act)
}
