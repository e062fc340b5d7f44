// Package contract 持有看板存储合约的 ABI 绑定。
// Holds the ABI binding for the on-chain board storage contract.
package contract

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/board_storage.json
var boardStorageABIJSON string

// DefaultStorageKey is the bytes32 slot every board writes its HTML under.
const DefaultStorageKey = "0xfc77a78c81db9794340a10dbcb0632f44d2d889f2cac2911b039a50f90ead7d0"

// StoreMethod is the contract function name used for every publish.
const StoreMethod = "storeString"

// BoardStorageBinding encodes storeString(tokenId, key, data) calls.
type BoardStorageBinding struct {
	address common.Address
	abi     abi.ABI
}

func NewBoardStorageBinding(contractAddr string) (*BoardStorageBinding, error) {
	if strings.TrimSpace(contractAddr) == "" {
		return nil, fmt.Errorf("contract address is empty")
	}
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("contract address %q is not a hex address", contractAddr)
	}
	a, err := abi.JSON(strings.NewReader(boardStorageABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}
	return &BoardStorageBinding{address: common.HexToAddress(contractAddr), abi: a}, nil
}

func (b *BoardStorageBinding) Address() common.Address { return b.address }

func (b *BoardStorageBinding) ABI() abi.ABI { return b.abi }

// BuildStoreCalldata packs a storeString call for one board update.
func (b *BoardStorageBinding) BuildStoreCalldata(tokenID *big.Int, key common.Hash, data string) ([]byte, error) {
	if tokenID == nil {
		return nil, fmt.Errorf("token id is nil")
	}
	calldata, err := b.abi.Pack(StoreMethod, tokenID, key, data)
	if err != nil {
		return nil, fmt.Errorf("abi pack %s: %w", StoreMethod, err)
	}
	return calldata, nil
}

// ParseStorageKey validates a 0x-prefixed 32-byte hex key.
func ParseStorageKey(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return common.Hash{}, fmt.Errorf("storage key %q is not a 0x-prefixed 32-byte hex string", s)
	}
	if _, err := hex.DecodeString(s[2:]); err != nil {
		return common.Hash{}, fmt.Errorf("storage key %q: %w", s, err)
	}
	return common.HexToHash(s), nil
}
