package chain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabets/arenasync/internal/domain"
)

func TestSelectorMatchesKnownERC20(t *testing.T) {
	// balanceOf(address) is the canonical ERC-20 selector 0x70a08231.
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, selBalanceOf)
}

func TestEncodeAddressArg(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aB")
	data := encodeAddressArg(selBalanceOf, addr)

	require.Len(t, data, 36)
	assert.Equal(t, selBalanceOf, data[:4])
	assert.Equal(t, addr.Bytes(), data[16:36])
	for _, b := range data[4:16] {
		assert.Zero(t, b)
	}
}

func TestEncodeStringArg(t *testing.T) {
	data := encodeStringArg(selAddressOf, "stakeToken")

	require.Len(t, data, 4+32+32+32)
	assert.Equal(t, selAddressOf, data[:4])
	// Offset word points at the length word.
	assert.Equal(t, byte(0x20), data[4+31])
	// Length word holds 10.
	assert.Equal(t, int64(10), new(big.Int).SetBytes(data[36:68]).Int64())
	// Payload is right-padded.
	assert.Equal(t, "stakeToken", string(data[68:78]))
	for _, b := range data[78:] {
		assert.Zero(t, b)
	}
}

func TestDecodeUint256(t *testing.T) {
	word := make([]byte, 32)
	word[31] = 0x2a
	n, err := decodeUint256(word)
	require.NoError(t, err)
	assert.Equal(t, "42", n.String())
}

func TestDecodeUint256ShortDataIsTransient(t *testing.T) {
	_, err := decodeUint256([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransientChain))
}

func TestDecodeBool(t *testing.T) {
	word := make([]byte, 32)
	v, err := decodeBool(word)
	require.NoError(t, err)
	assert.False(t, v)

	word[31] = 1
	v, err = decodeBool(word)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestDecodeAddress(t *testing.T) {
	addr := common.HexToAddress("0xdeadbeef00000000000000000000000000000001")
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())

	got, err := decodeAddress(word)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestWordAt(t *testing.T) {
	data := make([]byte, 96)
	data[63] = 7

	word, err := wordAt(data, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(7), word[31])

	_, err = wordAt(data, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransientChain))
}

func TestPhaseFromCode(t *testing.T) {
	assert.Equal(t, domain.PhaseTrading, phaseFromCode(0))
	assert.Equal(t, domain.PhaseLocked, phaseFromCode(1))
	assert.Equal(t, domain.PhaseResolved, phaseFromCode(2))
	assert.Equal(t, domain.PhaseCancelled, phaseFromCode(3))
	assert.Equal(t, domain.PhaseUnknown, phaseFromCode(9))
}
