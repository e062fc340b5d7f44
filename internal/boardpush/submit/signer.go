package submit

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer abstracts transaction signing for the submitter.
// The chain id is supplied per call because each endpoint reports its own.
type Signer interface {
	From() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// LocalECDSASigner signs transactions with a local secp256k1 private key.
type LocalECDSASigner struct {
	key  *ecdsa.PrivateKey
	from common.Address
}

// NewLocalECDSASigner parses a hex private key (with or without 0x prefix).
func NewLocalECDSASigner(privateKeyHex string) (*LocalECDSASigner, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if keyHex == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &LocalECDSASigner{
		key:  key,
		from: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *LocalECDSASigner) From() common.Address { return s.from }

func (s *LocalECDSASigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if chainID == nil {
		return nil, fmt.Errorf("chain id is nil")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
