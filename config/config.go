package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/society/types"
	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

// SocietyAppConfig is the [app] section of config.toml.
type SocietyAppConfig struct {
	Home string `mapstructure:"-"`

	ProposalLock       time.Duration `mapstructure:"proposal_lock"`
	SafetyReserve      uint64        `mapstructure:"safety_reserve"`
	StorageByteCost    uint64        `mapstructure:"storage_byte_cost"`
	MinProposalDeposit uint64        `mapstructure:"min_proposal_deposit"`

	// IndexerListen enables the indexer HTTP API when set, e.g. ":8080".
	IndexerListen string `mapstructure:"indexer_listen"`
	IndexerDB     string `mapstructure:"indexer_db"`
}

func DefaultSocietyAppConfig(home string) *SocietyAppConfig {
	p := types.DefaultParams()
	return &SocietyAppConfig{
		Home:               home,
		ProposalLock:       p.ProposalLock,
		SafetyReserve:      p.SafetyReserve,
		StorageByteCost:    p.StorageByteCost,
		MinProposalDeposit: p.MinProposalDeposit,
		IndexerDB:          "indexer.db",
	}
}

func (c *SocietyAppConfig) Params() types.Params {
	return types.Params{
		ProposalLock:       c.ProposalLock,
		SafetyReserve:      c.SafetyReserve,
		StorageByteCost:    c.StorageByteCost,
		MinProposalDeposit: c.MinProposalDeposit,
	}
}

func (c *SocietyAppConfig) DataDir() string {
	return filepath.Join(c.Home, "data")
}

// IndexerDBPath resolves the sqlite file of the indexer against the home dir.
func (c *SocietyAppConfig) IndexerDBPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.Home, c.IndexerDB)
}

func (c *SocietyAppConfig) ValidateBasic() error {
	if c.ProposalLock < 0 {
		return errors.New("proposal_lock can't be negative")
	}
	if c.ProposalLock%time.Second != 0 {
		return fmt.Errorf("proposal_lock %v must be whole seconds", c.ProposalLock)
	}
	if c.IndexerListen != "" && c.IndexerDB == "" {
		return errors.New("indexer_db is required when indexer_listen is set")
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *SocietyAppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.society")
	}
	cfg := &Config{
		DefaultCometConfig(),
		DefaultSocietyAppConfig(home),
	}
	cfg.SetRoot(home)
	_ = os.MkdirAll(filepath.Join(home, "config"), DefaultDirPerm)
	return cfg
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	if c.App == nil {
		return errors.New("missing [app] section")
	}
	if err := c.App.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [app] section: %w", err)
	}
	return nil
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pk, err = filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}
	return nodeID, pk, nil
}

func DefaultCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	cometConfig.Instrumentation.Namespace = types.SocietyModuleName
	return cometConfig
}
