package tx

import (
	"errors"
	"math/big"

	"github.com/calehh/impact-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// ActionCode is the uint8 action enum of the registry contract.
type ActionCode uint8

// The order must match the enum declared by the deployed contract.
const (
	ActionCodeTree    ActionCode = 0
	ActionCodeRecycle ActionCode = 1
	ActionCodeCleanup ActionCode = 2
)

// ActionToCode maps an action type onto the contract enum. Unrecognized
// types fall into the CLEANUP/other bucket.
func ActionToCode(action string) ActionCode {
	switch types.ActionType(action) {
	case types.ActionTree:
		return ActionCodeTree
	case types.ActionRecycle:
		return ActionCodeRecycle
	default:
		return ActionCodeCleanup
	}
}

const MethodRecordImpact = "recordImpact"

var (
	ErrUnknownMethod   = errors.New("unknown method")
	ErrShortInput      = errors.New("input shorter than method id")
	ErrUnexpectedInput = errors.New("unexpected input arguments")
)

// RecordImpactCall is the argument list of recordImpact.
type RecordImpactCall struct {
	User         common.Address `json:"user"`
	ActionType   ActionCode     `json:"actionType"`
	Points       *big.Int       `json:"points"`
	ProofHash    common.Hash    `json:"proofHash"`
	LocationCell string         `json:"locationCell"`
}
