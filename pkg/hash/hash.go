// Package hash 构造规范字节序列并做 sha256，用作跨系统幂等键。
// Canonical byte-sequence hashing for idempotency/dedup keys that must
// agree across Kafka consumers and the fee archive.
//
// Encoding rules:
//   - Fixed-width integers: big-endian
//   - Bytes/string: u32(len) big-endian + bytes
//   - Hex strings (addresses/tx hashes): normalize (trim 0x, lowercase),
//     decode to bytes, then length-prefix
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

type Hash32 [32]byte

// Hex 返回带 0x 前缀的小写 hex
func (h Hash32) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash32) IsZero() bool {
	var z Hash32
	return h == z
}

type Builder struct {
	b []byte
}

func NewBuilder() *Builder { return &Builder{b: make([]byte, 0, 128)} }

func (d *Builder) Reset() { d.b = d.b[:0] }

func (d *Builder) PutU64(v uint64) *Builder {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	d.b = append(d.b, buf[:]...)
	return d
}

func (d *Builder) PutI64(v int64) *Builder { return d.PutU64(uint64(v)) }

// PutBytes appends: u32(len) + bytes
func (d *Builder) PutBytes(p []byte) *Builder {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(len(p)))
	d.b = append(d.b, buf[:]...)
	d.b = append(d.b, p...)
	return d
}

func (d *Builder) PutString(s string) *Builder { return d.PutBytes([]byte(s)) }

// PutHexBytes normalizes a "0x..." hex string to raw bytes, length-prefixed.
func (d *Builder) PutHexBytes(hexStr string) (*Builder, error) {
	s := strings.TrimSpace(hexStr)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	s = strings.ToLower(s)
	if s == "" {
		// empty allowed; still deterministic
		return d.PutBytes(nil), nil
	}
	if len(s)%2 != 0 {
		// canonical: left-pad one nibble
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("hash: decode hex: %w", err)
	}
	d.PutBytes(b)
	return d, nil
}

func (d *Builder) Sum32() Hash32 {
	return sha256.Sum256(d.b)
}
