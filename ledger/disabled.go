package ledger

import (
	"context"

	"github.com/calehh/impact-app/state"
	"github.com/ethereum/go-ethereum/common"
)

// Disabled stands in for a writer whose configuration is incomplete. Every
// call fails with the configuration error.
type Disabled struct {
	Err error
}

func (d Disabled) RecordImpact(ctx context.Context, user string, action string, points int64, hash common.Hash, location string) (common.Hash, error) {
	return common.Hash{}, d.Err
}

func (d Disabled) Verify(ctx context.Context, sub *state.Submission) (*Verification, error) {
	return nil, d.Err
}
