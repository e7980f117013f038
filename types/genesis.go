package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	if len(ag.AppState) != 0 {
		st, err := ParseAppState(ag.AppState)
		if err != nil {
			return err
		}
		if err = st.ValidateBasic(); err != nil {
			return err
		}
	}
	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

type GenesisAccount struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// AppState is the society section of the genesis file.
type AppState struct {
	Members  []string         `json:"members"`
	Treasury uint64           `json:"treasury"`
	Locked   uint64           `json:"locked"`
	Accounts []GenesisAccount `json:"accounts"`
}

func ParseAppState(dat []byte) (*AppState, error) {
	var st AppState
	if err := json.Unmarshal(dat, &st); err != nil {
		return nil, fmt.Errorf("invalid app_state: %w", err)
	}
	return &st, nil
}

func (st *AppState) ValidateBasic() error {
	if len(st.Members) == 0 {
		return ErrMissingMembers
	}
	if st.Locked > st.Treasury {
		return fmt.Errorf("%w: locked %d exceeds treasury %d", ErrInvalidArgument, st.Locked, st.Treasury)
	}
	seen := make(map[string]bool, len(st.Accounts))
	for _, a := range st.Accounts {
		if a.Address == "" {
			return fmt.Errorf("%w: genesis account without address", ErrInvalidArgument)
		}
		if seen[a.Address] {
			return fmt.Errorf("%w: duplicated genesis account %s", ErrInvalidArgument, a.Address)
		}
		seen[a.Address] = true
	}
	return nil
}

const SocietyModuleName = "society"
const DefaultPower = 1000

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
	FlagMembers   = "members"
	FlagTreasury  = "treasury"
	FlagBalance   = "balance"
)
