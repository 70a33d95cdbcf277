package ledger

import (
	"context"
	"math/big"
	"strings"

	"github.com/calehh/impact-app/crypto"
	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/tx"
	"github.com/calehh/impact-app/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// Verification compares an approved submission with the recordImpact call
// that attested it.
type Verification struct {
	SubmissionId    string               `json:"submissionId"`
	TxHash          string               `json:"txHash"`
	BlockNumber     uint64               `json:"blockNumber"`
	AttestationHash string               `json:"attestationHash"`
	OnChain         *tx.RecordImpactCall `json:"onChain"`
	Mismatches      []string             `json:"mismatches"`
	Valid           bool                 `json:"valid"`
}

// Verify recomputes the attestation of an approved submission and checks it
// against its ledger transaction. It never mutates state.
func (w *Writer) Verify(ctx context.Context, sub *state.Submission) (*Verification, error) {
	if sub.Status != types.StatusApproved || sub.TxHash == nil || sub.Points == nil {
		return nil, types.Conflictf("submission %s is not approved", sub.Id)
	}
	txHash := common.HexToHash(*sub.TxHash)
	signed, pending, err := w.backend.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, types.NotFoundf("transaction %s", txHash.Hex())
		}
		return nil, types.NewError(types.CodeNetwork, err, "fetching transaction %s", txHash.Hex())
	}
	if pending {
		return nil, types.Conflictf("transaction %s is still pending", txHash.Hex())
	}
	receipt, err := w.backend.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, types.NewError(types.CodeNetwork, err, "fetching receipt %s", txHash.Hex())
	}

	hash := crypto.ComputeHash(sub)
	v := &Verification{
		SubmissionId:    sub.Id,
		TxHash:          txHash.Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		AttestationHash: hash.Hex(),
		Mismatches:      make([]string, 0),
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		v.Mismatches = append(v.Mismatches, "receipt status")
	}
	if signed.To() == nil || *signed.To() != w.registry {
		v.Mismatches = append(v.Mismatches, "registry address")
	}
	call, err := tx.UnpackRecordImpact(signed.Data())
	if err != nil {
		v.Mismatches = append(v.Mismatches, "call data")
		return v, nil
	}
	v.OnChain = call
	location := ""
	if sub.LocationCell != nil {
		location = *sub.LocationCell
	}
	if !strings.EqualFold(call.User.Hex(), sub.UserAddress) {
		v.Mismatches = append(v.Mismatches, "user")
	}
	if call.ActionType != tx.ActionToCode(sub.ActionType) {
		v.Mismatches = append(v.Mismatches, "action type")
	}
	if call.Points.Cmp(big.NewInt(*sub.Points)) != 0 {
		v.Mismatches = append(v.Mismatches, "points")
	}
	if call.ProofHash != hash {
		v.Mismatches = append(v.Mismatches, "proof hash")
	}
	if call.LocationCell != location {
		v.Mismatches = append(v.Mismatches, "location")
	}
	v.Valid = len(v.Mismatches) == 0
	return v, nil
}
