package tx

import (
	"encoding/json"
	"fmt"

	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
)

// SocietyTx is the signed envelope of every state-changing call. Sender is
// the ed25519 public key of the caller; the caller's identity is its address.
type SocietyTx struct {
	Version uint8    `json:"version"`
	Type    TxType   `json:"type"`
	Nonce   uint64   `json:"nonce"`
	Sender  []byte   `json:"sender"`
	Deposit uint64   `json:"deposit"`
	Tx      any      `json:"tx"`
	Sig     [][]byte `json:"sig"`
}

type MemberProposalTx struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type FundProposalTx struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
}

type VoteTx struct {
	Proposal uint64 `json:"proposal"`
}

type societyTxTmpl[Tx any] struct {
	Version uint8    `json:"version"`
	Type    TxType   `json:"type"`
	Nonce   uint64   `json:"nonce"`
	Sender  []byte   `json:"sender"`
	Deposit uint64   `json:"deposit"`
	Tx      Tx       `json:"tx"`
	Sig     [][]byte `json:"sig"`
}

func (tx *SocietyTx) SigData(chainId []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{chainId}
	dat, err = json.Marshal(ntx)
	return
}

func (tx *SocietyTx) Sign(key crypto.PrivKey, chainId string) (err error) {
	tx.Sender = key.PubKey().Bytes()
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	sig, err := key.Sign(dat)
	if err != nil {
		return
	}
	tx.Sig = [][]byte{sig}
	return
}

// SenderAddress is the identity of the caller.
func (tx *SocietyTx) SenderAddress() string {
	return ed25519.PubKey(tx.Sender).Address().String()
}

func (tx *SocietyTx) VerifySig(chainId string) bool {
	if len(tx.Sender) != ed25519.PubKeySize || len(tx.Sig) != 1 {
		return false
	}
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return false
	}
	return ed25519.PubKey(tx.Sender).VerifySignature(dat, tx.Sig[0])
}

func parseTxType(dat []byte) TxType {
	var tx struct {
		Type TxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return TxTypeUnknown
	}
	return tx.Type
}

func unmarshalSocietyTx[Tx any](dat []byte) (btx *SocietyTx, err error) {
	var txt societyTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	if txt.Version > TxVersion1 {
		return nil, ErrUnsupportedTxVersion
	}
	btx = new(SocietyTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Deposit = txt.Deposit
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalSocietyTx(dat []byte) (btx *SocietyTx, err error) {
	tp := parseTxType(dat)
	switch tp {
	case TxTypeMemberProposal:
		return unmarshalSocietyTx[MemberProposalTx](dat)
	case TxTypeFundProposal:
		return unmarshalSocietyTx[FundProposalTx](dat)
	case TxTypeVoteApprove, TxTypeVoteReject:
		return unmarshalSocietyTx[VoteTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalSocietyTx(btx *SocietyTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
