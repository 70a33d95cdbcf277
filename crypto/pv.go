package crypto

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/calehh/impact-app/config"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PV holds the administrative key that signs ledger transactions.
type PV struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func NewPV(key *ecdsa.PrivateKey) *PV {
	return &PV{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

func LoadPV(cfg *config.LedgerConfig, home string) (*PV, error) {
	key, err := cfg.LoadAdminKey(home)
	if err != nil {
		return nil, err
	}
	return NewPV(key), nil
}

func (k *PV) PublicKey() []byte {
	return crypto.FromECDSAPub(&k.privateKey.PublicKey)
}

func (k *PV) Address() common.Address {
	return k.address
}

// Sign signs the keccak-256 digest of data.
func (k *PV) Sign(data []byte) ([]byte, error) {
	return crypto.Sign(crypto.Keccak256(data), k.privateKey)
}

func (k *PV) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(k.privateKey, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
