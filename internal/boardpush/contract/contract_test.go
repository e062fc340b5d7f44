package contract

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const testAddr = "0x1111111111111111111111111111111111111111"

func TestNewBoardStorageBinding(t *testing.T) {
	b, err := NewBoardStorageBinding(testAddr)
	if err != nil {
		t.Fatalf("new binding: %v", err)
	}
	if b.Address() != common.HexToAddress(testAddr) {
		t.Fatalf("address=%s", b.Address())
	}
	if _, ok := b.ABI().Methods[StoreMethod]; !ok {
		t.Fatalf("ABI has no %s method", StoreMethod)
	}
}

func TestNewBoardStorageBindingRejectsBadAddress(t *testing.T) {
	for _, addr := range []string{"", "   ", "not-hex", "0x1234"} {
		if _, err := NewBoardStorageBinding(addr); err == nil {
			t.Fatalf("address %q: want error", addr)
		}
	}
}

func TestBuildStoreCalldata(t *testing.T) {
	b, err := NewBoardStorageBinding(testAddr)
	if err != nil {
		t.Fatal(err)
	}

	key := common.HexToHash(DefaultStorageKey)
	calldata, err := b.BuildStoreCalldata(big.NewInt(7), key, "<html>board</html>")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	wantSelector := b.ABI().Methods[StoreMethod].ID
	if len(calldata) < 4 || string(calldata[:4]) != string(wantSelector) {
		t.Fatalf("calldata selector=%x want %x", calldata[:4], wantSelector)
	}

	// Round-trip through the ABI to make sure every argument survived.
	args, err := b.ABI().Methods[StoreMethod].Inputs.Unpack(calldata[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got := args[0].(*big.Int); got.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("tokenId=%s", got)
	}
	if got := args[1].([32]byte); common.Hash(got) != key {
		t.Fatalf("key=%x", got)
	}
	if got := args[2].(string); got != "<html>board</html>" {
		t.Fatalf("data=%q", got)
	}
}

func TestBuildStoreCalldataNilToken(t *testing.T) {
	b, _ := NewBoardStorageBinding(testAddr)
	if _, err := b.BuildStoreCalldata(nil, common.Hash{}, "x"); err == nil {
		t.Fatal("want error for nil token id")
	}
}

func TestParseStorageKey(t *testing.T) {
	key, err := ParseStorageKey(DefaultStorageKey)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if key != common.HexToHash(DefaultStorageKey) {
		t.Fatalf("key=%s", key)
	}

	for _, bad := range []string{"", "fc77", "0x1234", "0x" + strings.Repeat("zz", 32)} {
		if _, err := ParseStorageKey(bad); err == nil {
			t.Fatalf("key %q: want error", bad)
		}
	}
}
