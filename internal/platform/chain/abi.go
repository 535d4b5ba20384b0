package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/arenabets/arenasync/internal/domain"
)

// Function selectors for the market, registry, and ERC-20 contracts
// (keccak256 of the canonical signature, first 4 bytes).
var (
	selPhase       = selector("phase()")
	selPoolA       = selector("totalPoolA()")
	selPoolB       = selector("totalPoolB()")
	selWinner      = selector("winner()")
	selLockTime    = selector("lockTime()")
	selResolveTime = selector("resolveTime()")
	selClaimsOf    = selector("claimsOf(address)")
	selBalanceOf   = selector("balanceOf(address)")
	selAddressOf   = selector("addressOf(string)")
)

func selector(sig string) []byte {
	return ethcrypto.Keccak256([]byte(sig))[:4]
}

// encodeAddressArg appends a left-padded address argument to the selector.
func encodeAddressArg(sel []byte, addr common.Address) []byte {
	data := make([]byte, 4+32)
	copy(data, sel)
	copy(data[4+12:], addr.Bytes())
	return data
}

// encodeStringArg appends a dynamically encoded string argument (offset word,
// length word, right-padded payload) to the selector.
func encodeStringArg(sel []byte, s string) []byte {
	padded := (len(s) + 31) / 32 * 32
	data := make([]byte, 4+32+32+padded)
	copy(data, sel)
	data[4+31] = 0x20 // offset of the string payload
	new(big.Int).SetInt64(int64(len(s))).FillBytes(data[4+32 : 4+64])
	copy(data[4+64:], s)
	return data
}

// decodeUint256 reads a single uint256 return word. Empty or short data is a
// transient outcome: the call went through but returned garbage.
func decodeUint256(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("chain: %w: want 32 return bytes, got %d", domain.ErrTransientChain, len(data))
	}
	return new(big.Int).SetBytes(data[:32]), nil
}

// decodeUint8 reads a uint8 out of a single return word.
func decodeUint8(data []byte) (uint8, error) {
	n, err := decodeUint256(data)
	if err != nil {
		return 0, err
	}
	return uint8(n.Uint64() & 0xff), nil
}

// decodeBool reads a bool out of a single return word.
func decodeBool(data []byte) (bool, error) {
	n, err := decodeUint256(data)
	if err != nil {
		return false, err
	}
	return n.Sign() != 0, nil
}

// decodeAddress reads an address out of a single return word.
func decodeAddress(data []byte) (common.Address, error) {
	if len(data) < 32 {
		return common.Address{}, fmt.Errorf("chain: %w: want 32 return bytes, got %d", domain.ErrTransientChain, len(data))
	}
	return common.BytesToAddress(data[12:32]), nil
}

// wordAt returns the i-th 32-byte return word.
func wordAt(data []byte, i int) ([]byte, error) {
	if len(data) < (i+1)*32 {
		return nil, fmt.Errorf("chain: %w: want %d return bytes, got %d", domain.ErrTransientChain, (i+1)*32, len(data))
	}
	return data[i*32 : (i+1)*32], nil
}
