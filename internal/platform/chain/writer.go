package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/arenabets/arenasync/internal/domain"
)

var selClose = selector("close()")

// closeGasLimit is the fallback when gas estimation fails; close() touches a
// handful of storage slots.
const closeGasLimit = 200_000

// Writer submits operator-signed ledger mutations. The sync core never calls
// it directly; the market service invokes it and then synchronously refreshes
// the touched entities.
type Writer struct {
	eth      *ethclient.Client
	key      *ecdsa.PrivateKey
	operator common.Address
	chainID  *big.Int
	logger   *slog.Logger
}

// NewWriter creates a Writer signing with the given hex-encoded operator key.
func NewWriter(c *Client, operatorKeyHex string, logger *slog.Logger) (*Writer, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(operatorKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse operator key: %w", err)
	}
	return &Writer{
		eth:      c.Underlying(),
		key:      key,
		operator: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(c.ChainID()),
		logger:   logger.With(slog.String("component", "chain_writer")),
	}, nil
}

// CloseMarket sends a close() transaction to the market contract and waits
// for it to be mined so the caller's follow-up refresh observes the
// post-mutation state.
func (w *Writer) CloseMarket(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("chain: invalid market address %q", address)
	}
	to := common.HexToAddress(address)

	nonce, err := w.eth.PendingNonceAt(ctx, w.operator)
	if err != nil {
		return "", fmt.Errorf("chain: close %s: nonce: %w", address, err)
	}
	tip, err := w.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: close %s: gas tip: %w", address, err)
	}
	head, err := w.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("chain: close %s: head: %w", address, err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gas, err := w.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: w.operator,
		To:   &to,
		Data: selClose,
	})
	if err != nil {
		w.logger.WarnContext(ctx, "gas estimation failed, using fallback limit",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
		gas = closeGasLimit
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   w.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      selClose,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return "", fmt.Errorf("chain: close %s: sign: %w", address, err)
	}
	if err := w.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: close %s: send: %w", address, err)
	}

	hash := signed.Hash()
	if _, err := waitMined(ctx, w.eth, hash); err != nil {
		return hash.Hex(), fmt.Errorf("chain: close %s: wait mined: %w", address, err)
	}

	w.logger.InfoContext(ctx, "market closed on ledger",
		slog.String("market", address),
		slog.String("tx", hash.Hex()),
	)
	return hash.Hex(), nil
}

// waitMined polls for the transaction receipt until it appears or ctx ends.
func waitMined(ctx context.Context, eth *ethclient.Client, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		receipt, err := eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Compile-time interface check.
var _ domain.MarketMutator = (*Writer)(nil)
