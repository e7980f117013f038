package state

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
)

// StateHeader is the chain-wide bookkeeping record stored under KeyState.
type StateHeader struct {
	ChainId     string
	Height      uint64
	Time        uint64
	Initialized bool
	// ReservedFund is the sum requested by FundRequest proposals in Vote.
	ReservedFund uint64
	// StorageUsage counts key and value bytes of every entry but the header.
	StorageUsage uint64
	RootHash     []byte
	Hash         []byte
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = bytes.Clone(h.RootHash)
	n.Hash = bytes.Clone(h.Hash)
	return &n
}

func (h *StateHeader) encode() ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

func decodeHeader(dat []byte) (*StateHeader, error) {
	h := new(StateHeader)
	if err := rlp.DecodeBytes(dat, h); err != nil {
		return nil, err
	}
	return h, nil
}
