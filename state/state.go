package state

import (
	"errors"
	"sort"

	"github.com/calehh/society/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	KeyState          = "s"
	KeyProposalCount  = "pc"
	KeyMemberCount    = "mc"
	KeyMember         = "m/%020d"
	KeyMemberIndex    = "mi/%s"
	KeyProposal       = "p/%020d"
	KeyActiveProposal = "ap/%s"
	KeyVote           = "v/%020d/%020d/%s"
	KeyAccount        = "a/%s"
)

type treeReader interface {
	Get(key []byte) ([]byte, error)
}

type entry struct {
	val     []byte
	deleted bool
}

// State is one view of the society store. Writes are staged in memory until
// Update flushes them into the tree, so a Clone can be dropped to abort.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	rd     treeReader
	dbVer  int64
	params types.Params

	header *StateHeader
	writes map[string]entry
	events []abci.Event
}

func newState(db *iavl.MutableTree, params types.Params, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		rd:     db,
		params: params,
		header: new(StateHeader),
		writes: make(map[string]entry),
	}
}

func (s *State) nextState() *State {
	n := s.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

// Clone returns an independent copy of the staged state. Events are not
// carried over.
func (s *State) Clone() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		rd:     s.rd,
		dbVer:  s.dbVer,
		params: s.params,
		header: s.header.Clone(),
		writes: make(map[string]entry, len(s.writes)),
	}
	for k, v := range s.writes {
		n.writes[k] = v
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil
		}
		return err
	}
	if val == nil {
		return nil
	}
	s.header, err = decodeHeader(val)
	if err != nil {
		return
	}
	if h := s.db.Hash(); h != nil {
		s.calcHash(h, true)
	}
	return
}

func (s *State) get(key string) ([]byte, error) {
	if e, ok := s.writes[key]; ok {
		if e.deleted {
			return nil, nil
		}
		return e.val, nil
	}
	val, err := s.rd.Get([]byte(key))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (s *State) set(key string, val []byte) error {
	old, err := s.get(key)
	if err != nil {
		return err
	}
	if old == nil {
		s.header.StorageUsage += uint64(len(key) + len(val))
	} else {
		s.header.StorageUsage -= uint64(len(old))
		s.header.StorageUsage += uint64(len(val))
	}
	s.writes[key] = entry{val: val}
	return nil
}

func (s *State) remove(key string) error {
	old, err := s.get(key)
	if err != nil {
		return err
	}
	if old == nil {
		return nil
	}
	s.header.StorageUsage -= uint64(len(key) + len(old))
	s.writes[key] = entry{deleted: true}
	return nil
}

func (s *State) getCounter(key string) (uint64, error) {
	val, err := s.get(key)
	if err != nil || val == nil {
		return 0, err
	}
	var v wrapperspb.UInt64Value
	if err := proto.Unmarshal(val, &v); err != nil {
		return 0, err
	}
	return v.GetValue(), nil
}

func (s *State) setCounter(key string, n uint64) error {
	val, err := proto.Marshal(wrapperspb.UInt64(n))
	if err != nil {
		return err
	}
	return s.set(key, val)
}

func (s *State) emit(ev abci.Event) {
	s.events = append(s.events, ev)
}

// Events returns the events emitted since the state was cloned.
func (s *State) Events() []abci.Event {
	return s.events
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

// Update flushes staged writes and the header into the working tree and
// returns the resulting state hash. The tree is rolled back on failure.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	keys := make([]string, 0, len(s.writes))
	for k := range s.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := s.writes[k]
		if e.deleted {
			_, _, err = s.db.Remove([]byte(k))
		} else {
			_, err = s.db.Set([]byte(k), e.val)
		}
		if err != nil {
			return
		}
	}
	val, err := s.header.encode()
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.writes = make(map[string]entry)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Params() types.Params {
	return s.params
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

// SetBlock moves the state to a new block. Block time is kept
// non-decreasing.
func (s *State) SetBlock(height int64, unixTime int64) {
	s.header.Height = uint64(height)
	if unixTime > 0 && uint64(unixTime) > s.header.Time {
		s.header.Time = uint64(unixTime)
	}
}

// Now is the logical clock in unix seconds.
func (s *State) Now() uint64 {
	return s.header.Time
}

func (s *State) StorageUsage() uint64 {
	return s.header.StorageUsage
}
