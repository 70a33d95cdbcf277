package blob

import (
	"context"
	"fmt"

	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	keyData = "d/%s"
	keyType = "t/%s"
)

// LevelDBStore keeps proofs in a local goleveldb database. The HTTP service
// serves them below PublicBaseUrl.
type LevelDBStore struct {
	logger   cmtlog.Logger
	db       *leveldb.DB
	baseURL  string
	maxBytes int64
}

func NewLevelDBStore(dir string, baseURL string, maxBytes int64, logger cmtlog.Logger) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, types.NewError(types.CodeStorage, err, "opening blob dir %s", dir)
	}
	return &LevelDBStore{
		logger:   logger.With("module", "blob"),
		db:       db,
		baseURL:  baseURL,
		maxBytes: maxBytes,
	}, nil
}

func (s *LevelDBStore) Put(ctx context.Context, data []byte, originalName string) (string, error) {
	ct, err := Validate(data, s.maxBytes)
	if err != nil {
		return "", err
	}
	key := NewKey(ct)
	batch := new(leveldb.Batch)
	batch.Put(dbKey(keyData, key), data)
	batch.Put(dbKey(keyType, key), []byte(ct))
	if err := s.db.Write(batch, nil); err != nil {
		s.logger.Error("write blob fail", "key", key, "err", err)
		return "", types.NewError(types.CodeStorage, err, "writing %s", key)
	}
	s.logger.Info("proof stored", "key", key, "name", originalName, "type", ct, "size", len(data))
	return publicURL(s.baseURL, key), nil
}

func (s *LevelDBStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	data, err := s.db.Get(dbKey(keyData, key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, "", types.NotFoundf("proof %s", key)
		}
		return nil, "", types.NewError(types.CodeStorage, err, "reading %s", key)
	}
	ct, err := s.db.Get(dbKey(keyType, key), nil)
	if err != nil {
		ct = []byte(DetectMimeType(data))
	}
	return data, string(ct), nil
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func dbKey(format string, key string) []byte {
	return []byte(fmt.Sprintf(format, key))
}
