package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/calehh/society/crypto"
	"github.com/calehh/society/tx"
	"github.com/calehh/society/types"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url     string
	Skey    string
	Nonce   uint64
	Deposit uint64
	NoSend  bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	skeyFlag(cmd, &args.Skey)
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried from the node when 0")
	cmd.Flags().Uint64Var(&args.Deposit, "deposit", 1000, "deposit paying for the storage the tx adds")
	cmd.Flags().BoolVar(&args.NoSend, "nosend", false, "print the signed transaction instead of sending it")
}

func abciQuery(ctx context.Context, cli *http.HTTP, path string, data []byte, v any) error {
	res, err := cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return err
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %s fail code:%d log:%s", path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, v)
}

func printJSON(v any) error {
	dat, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(dat))
	return nil
}

// sendTx signs body with the key file and broadcasts it.
func sendTx(ctx context.Context, a *txArguments, tp tx.TxType, body any) error {
	cli, err := http.New(a.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	pv, err := crypto.LoadFilePV(a.Skey)
	if err != nil {
		return err
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID
	nonce := a.Nonce
	if nonce == 0 {
		var act types.Account
		if err = abciQuery(ctx, cli, types.QueryAccount, []byte(pv.Address()), &act); err != nil {
			return err
		}
		nonce = act.Nonce
	}
	btx := &tx.SocietyTx{
		Version: tx.TxVersion1,
		Type:    tp,
		Nonce:   nonce,
		Deposit: a.Deposit,
		Tx:      body,
	}
	if err = pv.SignTx(btx, chainId); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalSocietyTx(btx)
	if err != nil {
		return err
	}
	if a.NoSend {
		fmt.Println(hex.EncodeToString(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	if res.Code != 0 {
		return fmt.Errorf("tx rejected code:%d log:%s", res.Code, res.Log)
	}
	fmt.Printf("sender:%s nonce:%d type:%v\n", pv.Address(), nonce, tp)
	return printJSON(res)
}
