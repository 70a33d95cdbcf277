package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/calehh/impact-app/config"
	"github.com/calehh/impact-app/crypto"
	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/tx"
	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	okRegistry     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	revertRegistry = common.HexToAddress("0x1000000000000000000000000000000000000002")
	testUser       = "0x00000000000000000000000000000000000000AA"
)

type testChain struct {
	backend *simulated.Backend
	pv      *crypto.PV
}

func newTestChain(t *testing.T) *testChain {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	pv := crypto.NewPV(key)
	funds := new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
	backend := simulated.NewBackend(ethtypes.GenesisAlloc{
		pv.Address(): {Balance: funds},
		// STOP
		okRegistry: {Code: []byte{0x00}, Balance: big.NewInt(0)},
		// PUSH1 0 DUP1 REVERT
		revertRegistry: {Code: []byte{0x60, 0x00, 0x80, 0xfd}, Balance: big.NewInt(0)},
	})
	t.Cleanup(func() { backend.Close() })
	return &testChain{backend: backend, pv: pv}
}

// mine commits blocks until the test finishes.
func (c *testChain) mine(t *testing.T) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.backend.Commit()
			}
		}
	}()
	t.Cleanup(func() { close(done) })
}

func (c *testChain) writer(t *testing.T, registry common.Address, gasLimit uint64, timeout time.Duration) *Writer {
	t.Helper()
	cfg := &config.LedgerConfig{
		RegistryAddress: registry.Hex(),
		GasLimit:        gasLimit,
		ConfirmTimeout:  timeout,
	}
	w, err := NewWithBackend(context.Background(), c.backend.Client(), cfg, c.pv, cmtlog.NewNopLogger())
	require.NoError(t, err)
	return w
}

func TestRecordImpactConfirmed(t *testing.T) {
	chain := newTestChain(t)
	chain.mine(t)
	w := chain.writer(t, okRegistry, 0, 30*time.Second)
	assert.Equal(t, int64(1337), w.ChainID().Int64())

	hash := ethcrypto.Keccak256Hash([]byte("payload"))
	txHash, err := w.RecordImpact(context.Background(), testUser, "TREE", 10, hash, "8928308280fffff")
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, txHash)

	signed, pending, err := chain.backend.Client().TransactionByHash(context.Background(), txHash)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, okRegistry, *signed.To())

	call, err := tx.UnpackRecordImpact(signed.Data())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testUser), call.User)
	assert.Equal(t, tx.ActionCodeTree, call.ActionType)
	assert.Equal(t, int64(10), call.Points.Int64())
	assert.Equal(t, hash, call.ProofHash)
	assert.Equal(t, "8928308280fffff", call.LocationCell)

	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(w.ChainID()), signed)
	require.NoError(t, err)
	assert.Equal(t, chain.pv.Address(), from)
}

func TestRecordImpactActionCodes(t *testing.T) {
	chain := newTestChain(t)
	chain.mine(t)
	w := chain.writer(t, okRegistry, 200000, 30*time.Second)

	for action, code := range map[string]tx.ActionCode{"RECYCLE": 1, "CLEANUP": 2, "OTHER": 2} {
		txHash, err := w.RecordImpact(context.Background(), testUser, action, 3, common.Hash{}, "")
		require.NoError(t, err)
		signed, _, err := chain.backend.Client().TransactionByHash(context.Background(), txHash)
		require.NoError(t, err)
		call, err := tx.UnpackRecordImpact(signed.Data())
		require.NoError(t, err)
		assert.Equal(t, code, call.ActionType, action)
	}
}

func TestRecordImpactReverted(t *testing.T) {
	chain := newTestChain(t)
	chain.mine(t)
	w := chain.writer(t, revertRegistry, 200000, 30*time.Second)

	_, err := w.RecordImpact(context.Background(), testUser, "TREE", 10, common.Hash{}, "")
	assert.ErrorIs(t, err, types.ErrChainRejected)
}

func TestRecordImpactNotConfirmed(t *testing.T) {
	chain := newTestChain(t)
	w := chain.writer(t, okRegistry, 200000, 1500*time.Millisecond)

	_, err := w.RecordImpact(context.Background(), testUser, "TREE", 10, common.Hash{}, "")
	assert.ErrorIs(t, err, types.ErrChainRejected)
}

func TestRecordImpactValidation(t *testing.T) {
	chain := newTestChain(t)
	w := chain.writer(t, okRegistry, 200000, time.Second)

	_, err := w.RecordImpact(context.Background(), "alice", "TREE", 10, common.Hash{}, "")
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = w.RecordImpact(context.Background(), testUser, "TREE", 0, common.Hash{}, "")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestNewConfigErrors(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())
	_, err := New(context.Background(), cfg, cmtlog.NewNopLogger())
	assert.ErrorIs(t, err, types.ErrConfig)

	cfg.Ledger.RpcUrl = "http://127.0.0.1:1"
	cfg.Ledger.RegistryAddress = okRegistry.Hex()
	_, err = New(context.Background(), cfg, cmtlog.NewNopLogger())
	// admin_key_file does not exist yet
	assert.ErrorIs(t, err, types.ErrConfig)
}

func TestNewUnreachableEndpoint(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	cfg := config.DefaultConfig(t.TempDir())
	cfg.Ledger.RpcUrl = "http://127.0.0.1:1"
	cfg.Ledger.RegistryAddress = okRegistry.Hex()
	cfg.Ledger.AdminKey = common.Bytes2Hex(ethcrypto.FromECDSA(key))

	_, err = New(context.Background(), cfg, cmtlog.NewNopLogger())
	assert.ErrorIs(t, err, types.ErrNetwork)
}

func TestVerify(t *testing.T) {
	chain := newTestChain(t)
	chain.mine(t)
	w := chain.writer(t, okRegistry, 0, 30*time.Second)

	desc := "planted an oak"
	loc := "8928308280fffff"
	sub := &state.Submission{
		Id:           "abc",
		UserAddress:  testUser,
		ActionType:   "TREE",
		Description:  &desc,
		ProofUrl:     "https://example.org/proofs/img.jpg",
		LocationCell: &loc,
		Status:       types.StatusPending,
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	_, err := w.Verify(context.Background(), sub)
	assert.ErrorIs(t, err, types.ErrConflict)

	txHash, err := w.RecordImpact(context.Background(), sub.UserAddress, sub.ActionType, 10, crypto.ComputeHash(sub), loc)
	require.NoError(t, err)
	points := int64(10)
	ref := txHash.Hex()
	sub.Status = types.StatusApproved
	sub.Points = &points
	sub.TxHash = &ref

	v, err := w.Verify(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, v.Valid, "%v", v.Mismatches)
	assert.Equal(t, crypto.ComputeHash(sub).Hex(), v.AttestationHash)

	tampered := *sub
	other := "planted two oaks"
	tampered.Description = &other
	v, err = w.Verify(context.Background(), &tampered)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"proof hash"}, v.Mismatches)

	missing := "0x" + common.Bytes2Hex(make([]byte, 32))
	tampered.TxHash = &missing
	_, err = w.Verify(context.Background(), &tampered)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDisabled(t *testing.T) {
	d := Disabled{Err: types.Configf("ledger.rpc_url is required")}
	_, err := d.RecordImpact(context.Background(), testUser, "TREE", 1, common.Hash{}, "")
	assert.ErrorIs(t, err, types.ErrConfig)
	_, err = d.Verify(context.Background(), &state.Submission{})
	assert.ErrorIs(t, err, types.ErrConfig)
}
