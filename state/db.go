package state

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/pkg/errors"
)

// SubmissionDB is the single writer of submission status.
type SubmissionDB struct {
	mtx sync.RWMutex

	path   string
	logger cmtlog.Logger
	db     *gorm.DB
}

func NewSubmissionDB(path string, logger cmtlog.Logger) (sdb *SubmissionDB, err error) {
	logger = logger.With("module", "submissiondb")
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, types.NewError(types.CodeStorage, err, "creating database dir")
	}
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, types.NewError(types.CodeStorage, err, "opening %s", path)
	}
	db.SetLogger(GormLogger(logger))
	db.LogMode(false)
	if err = db.AutoMigrate(&Submission{}).Error; err != nil {
		db.Close()
		return nil, types.NewError(types.CodeStorage, err, "migrating submissions")
	}
	logger.Info("load db success", "path", path)
	sdb = &SubmissionDB{
		path:   path,
		logger: logger,
		db:     db,
	}
	return
}

// SetDebug toggles SQL statement logging.
func (s *SubmissionDB) SetDebug(on bool) {
	s.db.LogMode(on)
}

func (s *SubmissionDB) Close() error {
	return s.db.Close()
}

func (s *SubmissionDB) Create(ctx context.Context, in NewSubmission) (*Submission, error) {
	sub, err := newSubmission(in)
	if err != nil {
		return nil, err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if err := s.db.Create(sub).Error; err != nil {
		s.logger.Error("create submission fail", "err", err)
		return nil, types.NewError(types.CodeStorage, err, "creating submission")
	}
	s.logger.Info("submission created", "id", sub.Id, "user", sub.UserAddress, "action", sub.ActionType)
	return sub, nil
}

func newSubmission(in NewSubmission) (*Submission, error) {
	user := strings.TrimSpace(in.UserAddress)
	action := strings.TrimSpace(in.ActionType)
	proof := strings.TrimSpace(in.ProofUrl)
	if user == "" {
		return nil, types.Validationf("missing user_address")
	}
	if action == "" {
		return nil, types.Validationf("missing action_type")
	}
	if proof == "" {
		return nil, types.Validationf("missing proof_url")
	}
	if !common.IsHexAddress(user) {
		return nil, types.Validationf("user_address %q is not a hex address", user)
	}
	at, err := types.ParseActionType(action)
	if err != nil {
		return nil, err
	}
	return &Submission{
		Id:           uuid.NewString(),
		UserAddress:  user,
		ActionType:   at.String(),
		Description:  optional(strings.TrimSpace(in.Description)),
		ProofUrl:     proof,
		LocationCell: optional(strings.TrimSpace(in.LocationCell)),
		Status:       types.StatusPending,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}, nil
}

func (s *SubmissionDB) Get(ctx context.Context, id string) (*Submission, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.get(id)
}

func (s *SubmissionDB) get(id string) (*Submission, error) {
	var sub Submission
	err := s.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, types.NotFoundf("submission %s", id)
		}
		return nil, types.NewError(types.CodeStorage, err, "loading submission %s", id)
	}
	return &sub, nil
}

// List returns submissions newest first together with the total matching count.
func (s *SubmissionDB) List(ctx context.Context, opts ListOptions) ([]Submission, uint64, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, 0, types.Validationf("unknown status %q", opts.Status)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := opts.Page
	if page < 0 {
		page = 0
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()
	q := s.db.Model(&Submission{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	subs := make([]Submission, 0)
	err := q.Order("created_at desc").Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&subs).Error
	if err != nil {
		return nil, 0, types.NewError(types.CodeStorage, err, "listing submissions")
	}
	var total uint64
	if err = q.Count(&total).Error; err != nil {
		return nil, 0, types.NewError(types.CodeStorage, err, "counting submissions")
	}
	return subs, total, nil
}

// MarkApproved moves a pending submission to approved. The update is
// conditional on the pending status, so only one caller can win.
func (s *SubmissionDB) MarkApproved(ctx context.Context, id string, points int64, txRef string) (*Submission, error) {
	if points <= 0 {
		return nil, types.Validationf("points must be greater than 0")
	}
	if strings.TrimSpace(txRef) == "" {
		return nil, types.Validationf("missing tx hash")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	res := s.db.Model(&Submission{}).
		Where("id = ? AND status = ?", id, types.StatusPending).
		Updates(map[string]interface{}{
			"status":  types.StatusApproved,
			"points":  points,
			"tx_hash": txRef,
		})
	if res.Error != nil {
		s.logger.Error("mark approved fail", "id", id, "err", res.Error)
		return nil, types.NewError(types.CodeStorage, res.Error, "updating submission %s", id)
	}
	if res.RowsAffected == 0 {
		sub, err := s.get(id)
		if err != nil {
			return nil, err
		}
		return nil, types.Conflictf("submission %s is %s", id, sub.Status)
	}
	sub, err := s.get(id)
	if err != nil {
		return nil, errors.Wrap(err, "reloading approved submission")
	}
	s.logger.Info("submission approved", "id", id, "points", points, "tx", txRef)
	return sub, nil
}
