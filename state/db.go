package state

import (
	"sync"

	"github.com/calehh/society/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

// StateDB holds the last committed State over an iavl tree backed by
// goleveldb.
type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	ldb    dbm.DB
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, params types.Params, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "societydb")
	ldb, err := dbm.NewDB("society", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ldb.Close()
		}
	}()
	tdb := iavl.NewMutableTree(ldb, 128, true, NewTreeLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, params, logger)
	st.dbVer = version
	err = st.load()
	if err != nil {
		logger.Error("from societydb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		ldb:    ldb,
		db:     tdb,
		state:  st,
	}
	if err = db.pin(st); err != nil {
		return nil, err
	}
	return
}

// pin makes st read the saved version it was committed at, so block
// writes flushed into the working tree stay invisible until Commit.
func (db *StateDB) pin(st *State) error {
	if st.dbVer == 0 {
		return nil
	}
	it, err := db.db.GetImmutable(st.dbVer)
	if err != nil {
		return err
	}
	st.rd = it
	return nil
}

// Close releases the tree and the leveldb under it; the tree leaves its
// backend open.
func (db *StateDB) Close() (err error) {
	if err = db.db.Close(); err != nil {
		return
	}
	err = db.ldb.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

// NewState starts the state of the next block from the committed one.
func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// SetState commits st, which must already have been flushed by Update.
func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	if err = db.pin(st); err != nil {
		return
	}
	db.state = st
	return
}

// GetAccount reads addr from the committed state together with its height.
func (db *StateDB) GetAccount(addr string) (acnt *types.Account, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	acnt, err = db.state.GetAccount(addr)
	height = db.state.header.Height
	return
}
