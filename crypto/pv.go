package crypto

import (
	"fmt"
	"os"

	"github.com/calehh/society/tx"
	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
)

// PV is a signing key read from a CometBFT priv_validator_key.json. Members
// sign their transactions with it.
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

func LoadFilePV(keyFilePath string) (*PV, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	err = cmtjson.Unmarshal(keyJSONBytes, &pvKey)
	if err != nil {
		return nil, fmt.Errorf("error reading key from %v: %w", keyFilePath, err)
	}
	return &PV{
		privateKey: pvKey.PrivKey,
		publicKey:  pvKey.PubKey,
	}, nil
}

func NewPV(key crypto.PrivKey) *PV {
	return &PV{privateKey: key, publicKey: key.PubKey()}
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

// Address is the member identity of the key.
func (k *PV) Address() string {
	return k.publicKey.Address().String()
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}

func (k *PV) SignTx(btx *tx.SocietyTx, chainId string) error {
	return btx.Sign(k.privateKey, chainId)
}
