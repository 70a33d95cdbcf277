package tx

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// RegistryABI declares the single contract operation the node calls.
const RegistryABI = `[
	{
		"type": "function",
		"name": "recordImpact",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "user", "type": "address"},
			{"name": "actionType", "type": "uint8"},
			{"name": "points", "type": "uint256"},
			{"name": "proofHash", "type": "bytes32"},
			{"name": "locationCell", "type": "string"}
		],
		"outputs": []
	}
]`

var registryABI abi.ABI

func init() {
	var err error
	if registryABI, err = abi.JSON(strings.NewReader(RegistryABI)); err != nil {
		panic(err)
	}
}

func ParsedABI() abi.ABI {
	return registryABI
}

// Args returns the call arguments in ABI order.
func (c *RecordImpactCall) Args() []interface{} {
	return []interface{}{
		c.User,
		uint8(c.ActionType),
		c.Points,
		[32]byte(c.ProofHash),
		c.LocationCell,
	}
}

func PackRecordImpact(c *RecordImpactCall) ([]byte, error) {
	return registryABI.Pack(MethodRecordImpact, c.Args()...)
}

// UnpackRecordImpact decodes transaction input produced by PackRecordImpact.
func UnpackRecordImpact(data []byte) (*RecordImpactCall, error) {
	if len(data) < 4 {
		return nil, ErrShortInput
	}
	method := registryABI.Methods[MethodRecordImpact]
	if !bytes.Equal(data[:4], method.ID) {
		return nil, ErrUnknownMethod
	}
	vals, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	if len(vals) != 5 {
		return nil, ErrUnexpectedInput
	}
	user, ok1 := vals[0].(common.Address)
	code, ok2 := vals[1].(uint8)
	points, ok3 := vals[2].(*big.Int)
	proof, ok4 := vals[3].([32]byte)
	loc, ok5 := vals[4].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("%w: %T %T %T %T %T", ErrUnexpectedInput, vals[0], vals[1], vals[2], vals[3], vals[4])
	}
	return &RecordImpactCall{
		User:         user,
		ActionType:   ActionCode(code),
		Points:       points,
		ProofHash:    common.Hash(proof),
		LocationCell: loc,
	}, nil
}
