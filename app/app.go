package app

import (
	"context"
	"sync"
	"time"

	"github.com/calehh/impact-app/blob"
	"github.com/calehh/impact-app/config"
	"github.com/calehh/impact-app/crypto"
	"github.com/calehh/impact-app/ledger"
	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Ledger records approved submissions on-chain.
type Ledger interface {
	RecordImpact(ctx context.Context, user string, action string, points int64, hash common.Hash, location string) (common.Hash, error)
	Verify(ctx context.Context, sub *state.Submission) (*ledger.Verification, error)
}

var (
	_ Ledger = &ledger.Writer{}
	_ Ledger = ledger.Disabled{}
)

type Approval struct {
	SubmissionId    string            `json:"submissionId"`
	Points          int64             `json:"points"`
	TxHash          string            `json:"txHash"`
	AttestationHash string            `json:"proofHash"`
	Submission      *state.Submission `json:"submission,omitempty"`
}

type App struct {
	cfg     *config.Config
	logger  cmtlog.Logger
	db      *state.SubmissionDB
	blobs   blob.Store
	ledger  Ledger
	metrics *Metrics

	mtx      sync.Mutex
	stopping bool
	inflight map[string]struct{}
	// running tasks stay pinned here until they finish, then move to tasks
	running map[string]*Task
	tasks   *lru.Cache[string, *Task]
	wg      sync.WaitGroup
}

func NewApp(cfg *config.Config, logger cmtlog.Logger, db *state.SubmissionDB, blobs blob.Store, ledger Ledger, reg prometheus.Registerer) (*App, error) {
	tasks, err := lru.New[string, *Task](cfg.Server.TaskCapacity)
	if err != nil {
		return nil, types.NewError(types.CodeConfig, err, "creating task cache")
	}
	return &App{
		cfg:      cfg,
		logger:   logger.With("module", "app"),
		db:       db,
		blobs:    blobs,
		ledger:   ledger,
		metrics:  NewMetrics(reg),
		inflight: make(map[string]struct{}),
		running:  make(map[string]*Task),
		tasks:    tasks,
	}, nil
}

// Stop refuses new approvals, waits for in-flight ones and closes the stores.
func (app *App) Stop() {
	app.mtx.Lock()
	app.stopping = true
	app.mtx.Unlock()
	app.wg.Wait()
	if err := app.blobs.Close(); err != nil {
		app.logger.Error("close blob store fail", "err", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("impact app stopped")
}

// Approve runs the approval pipeline to completion: validate, hash, write the
// ledger record and mark the submission approved.
func (app *App) Approve(ctx context.Context, id string, points int64) (*Approval, error) {
	sub, err := app.begin(ctx, id, points)
	if err != nil {
		return nil, err
	}
	defer app.release(id)
	// A sent transaction cannot be withdrawn, so the caller going away
	// must not abort the confirmation wait.
	return app.approve(context.WithoutCancel(ctx), sub, points)
}

// begin validates an approval request and claims the submission for it.
// The claim must precede the pending check. A successful begin is paired
// with release.
func (app *App) begin(ctx context.Context, id string, points int64) (*state.Submission, error) {
	if points <= 0 {
		app.metrics.approval("invalid")
		return nil, types.Validationf("points must be greater than 0")
	}
	if id == "" {
		app.metrics.approval("invalid")
		return nil, types.Validationf("missing submissionId")
	}
	if err := app.claim(id); err != nil {
		return nil, err
	}
	sub, err := app.db.Get(ctx, id)
	if err != nil {
		app.release(id)
		return nil, err
	}
	if !sub.Pending() {
		app.release(id)
		app.metrics.approval("conflict")
		return nil, types.Conflictf("submission %s not pending", id)
	}
	return sub, nil
}

func (app *App) claim(id string) error {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	if app.stopping {
		return types.NewError(types.CodeStorage, nil, "shutting down")
	}
	if _, ok := app.inflight[id]; ok {
		app.metrics.approval("conflict")
		return types.Conflictf("submission %s approval already in progress", id)
	}
	app.inflight[id] = struct{}{}
	app.metrics.inflight.Inc()
	app.wg.Add(1)
	return nil
}

func (app *App) release(id string) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	delete(app.inflight, id)
	app.metrics.inflight.Dec()
	app.wg.Done()
}

func (app *App) approve(ctx context.Context, sub *state.Submission, points int64) (*Approval, error) {
	hash := crypto.ComputeHash(sub)
	location := ""
	if sub.LocationCell != nil {
		location = *sub.LocationCell
	}
	app.logger.Info("approving submission", "id", sub.Id, "points", points, "hash", hash.Hex())

	start := time.Now()
	txHash, err := app.ledger.RecordImpact(ctx, sub.UserAddress, sub.ActionType, points, hash, location)
	app.metrics.ledgerSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		app.logger.Error("ledger write fail", "id", sub.Id, "err", err)
		app.metrics.approval("failed")
		return nil, errors.Wrapf(err, "approve %s", sub.Id)
	}

	res := &Approval{
		SubmissionId:    sub.Id,
		Points:          points,
		TxHash:          txHash.Hex(),
		AttestationHash: hash.Hex(),
	}
	updated, err := app.db.MarkApproved(ctx, sub.Id, points, txHash.Hex())
	if err != nil {
		app.logger.Error("ledger record confirmed but submission not updated", "id", sub.Id, "tx", txHash.Hex(), "err", err)
		app.metrics.approval("unreconciled")
		return res, types.NewError(types.CodeUnreconciled, err, "submission %s recorded in %s but still pending", sub.Id, txHash.Hex())
	}
	res.Submission = updated
	app.metrics.approval("approved")
	app.logger.Info("submission approved", "id", sub.Id, "tx", res.TxHash)
	return res, nil
}
