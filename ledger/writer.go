package ledger

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/calehh/impact-app/config"
	"github.com/calehh/impact-app/crypto"
	"github.com/calehh/impact-app/tx"
	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of an EVM client the writer needs. *ethclient.Client
// and the simulated backend client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ethereum.TransactionReader
	ChainID(ctx context.Context) (*big.Int, error)
}

type Writer struct {
	logger         cmtlog.Logger
	backend        Backend
	contract       *bind.BoundContract
	registry       common.Address
	pv             *crypto.PV
	chainID        *big.Int
	gasLimit       uint64
	confirmTimeout time.Duration
	closer         func()
}

// New dials cfg.RpcUrl and returns a writer signing with the configured
// admin key.
func New(ctx context.Context, cfg *config.Config, logger cmtlog.Logger) (*Writer, error) {
	if err := cfg.Ledger.Validate(); err != nil {
		return nil, err
	}
	pv, err := crypto.LoadPV(&cfg.Ledger, cfg.Home)
	if err != nil {
		return nil, err
	}
	cli, err := ethclient.DialContext(ctx, cfg.Ledger.RpcUrl)
	if err != nil {
		return nil, types.NewError(types.CodeNetwork, err, "dialing %s", cfg.Ledger.RpcUrl)
	}
	w, err := NewWithBackend(ctx, cli, &cfg.Ledger, pv, logger)
	if err != nil {
		cli.Close()
		return nil, err
	}
	w.closer = cli.Close
	return w, nil
}

func NewWithBackend(ctx context.Context, backend Backend, cfg *config.LedgerConfig, pv *crypto.PV, logger cmtlog.Logger) (*Writer, error) {
	if !common.IsHexAddress(cfg.RegistryAddress) {
		return nil, types.Configf("ledger.registry_address %q is not a hex address", cfg.RegistryAddress)
	}
	if pv == nil {
		return nil, types.Configf("no admin key configured")
	}
	chainID := big.NewInt(cfg.ChainId)
	if cfg.ChainId == 0 {
		id, err := backend.ChainID(ctx)
		if err != nil {
			return nil, types.NewError(types.CodeNetwork, err, "querying chain id")
		}
		chainID = id
	}
	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	registry := common.HexToAddress(cfg.RegistryAddress)
	w := &Writer{
		logger:         logger.With("module", "ledger"),
		backend:        backend,
		contract:       bind.NewBoundContract(registry, tx.ParsedABI(), backend, backend, backend),
		registry:       registry,
		pv:             pv,
		chainID:        chainID,
		gasLimit:       cfg.GasLimit,
		confirmTimeout: timeout,
	}
	w.logger.Info("ledger writer ready", "registry", registry.Hex(), "chain", chainID, "signer", pv.Address().Hex())
	return w, nil
}

func (w *Writer) Close() {
	if w.closer != nil {
		w.closer()
	}
}

func (w *Writer) Registry() common.Address {
	return w.registry
}

func (w *Writer) ChainID() *big.Int {
	return new(big.Int).Set(w.chainID)
}

// RecordImpact sends recordImpact and blocks until the transaction is mined
// or the confirmation timeout elapses. Nothing is retried.
func (w *Writer) RecordImpact(ctx context.Context, user string, action string, points int64, hash common.Hash, location string) (common.Hash, error) {
	if !common.IsHexAddress(user) {
		return common.Hash{}, types.Validationf("user address %q is not a hex address", user)
	}
	if points <= 0 {
		return common.Hash{}, types.Validationf("points must be greater than 0")
	}
	call := &tx.RecordImpactCall{
		User:         common.HexToAddress(user),
		ActionType:   tx.ActionToCode(action),
		Points:       big.NewInt(points),
		ProofHash:    hash,
		LocationCell: location,
	}
	opts, err := w.pv.TransactOpts(ctx, w.chainID)
	if err != nil {
		return common.Hash{}, types.NewError(types.CodeConfig, err, "building transactor")
	}
	opts.GasLimit = w.gasLimit

	start := time.Now()
	signed, err := w.contract.Transact(opts, tx.MethodRecordImpact, call.Args()...)
	if err != nil {
		w.logger.Error("send recordImpact fail", "user", user, "err", err)
		return common.Hash{}, classifySendError(err)
	}
	w.logger.Info("recordImpact sent", "tx", signed.Hash().Hex(), "user", user, "action", call.ActionType, "points", points)

	wctx, cancel := context.WithTimeout(ctx, w.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(wctx, w.backend, signed)
	if err != nil {
		w.logger.Error("wait recordImpact fail", "tx", signed.Hash().Hex(), "err", err)
		return common.Hash{}, types.NewError(types.CodeChainRejected, err, "transaction %s not confirmed", signed.Hash().Hex())
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		w.logger.Error("recordImpact reverted", "tx", signed.Hash().Hex(), "block", receipt.BlockNumber)
		return common.Hash{}, types.NewError(types.CodeChainRejected, nil, "transaction %s reverted", signed.Hash().Hex())
	}
	w.logger.Info("recordImpact confirmed", "tx", signed.Hash().Hex(), "block", receipt.BlockNumber, "gas", receipt.GasUsed, "elapsed", time.Since(start))
	return signed.Hash(), nil
}

func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "revert"),
		strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "no contract code"):
		return types.NewError(types.CodeChainRejected, err, "recordImpact rejected")
	default:
		return types.NewError(types.CodeNetwork, err, "sending recordImpact")
	}
}
