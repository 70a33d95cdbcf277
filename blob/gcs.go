package blob

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const gcsPublicBase = "https://storage.googleapis.com/"

// GCSStore keeps proofs in a Google Cloud Storage bucket. Objects are
// expected to be publicly readable through bucket level IAM.
type GCSStore struct {
	logger          cmtlog.Logger
	client          *storage.Client
	bucket          *storage.BucketHandle
	bucketName      string
	credentialsFile string
	maxBytes        int64
}

type GCSOptionFunc func(*GCSStore)

func WithBucket(bucket string) GCSOptionFunc {
	return func(s *GCSStore) {
		s.bucketName = bucket
	}
}

func WithCredentialsFile(path string) GCSOptionFunc {
	return func(s *GCSStore) {
		s.credentialsFile = path
	}
}

func WithLogger(logger cmtlog.Logger) GCSOptionFunc {
	return func(s *GCSStore) {
		s.logger = logger.With("module", "blob")
	}
}

func WithMaxBytes(n int64) GCSOptionFunc {
	return func(s *GCSStore) {
		s.maxBytes = n
	}
}

func NewGCSStore(opts ...GCSOptionFunc) *GCSStore {
	s := &GCSStore{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = cmtlog.NewNopLogger()
	}
	return s
}

// Start creates the storage client. ctx must outlive the store; the client
// uses it for credential refreshes.
func (s *GCSStore) Start(ctx context.Context) error {
	if s.bucketName == "" {
		return types.Configf("gcs blob: bucket not set")
	}
	var clientOpts []option.ClientOption
	if s.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(s.credentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return types.NewError(types.CodeStorage, err, "gcs blob: creating storage client")
	}
	s.client = client
	s.bucket = client.Bucket(s.bucketName)
	s.logger.Info("gcs blob store ready", "bucket", s.bucketName)
	return nil
}

func (s *GCSStore) Put(ctx context.Context, data []byte, originalName string) (string, error) {
	ct, err := Validate(data, s.maxBytes)
	if err != nil {
		return "", err
	}
	if s.bucket == nil {
		return "", types.NewError(types.CodeStorage, nil, "gcs blob: store not started")
	}
	key := NewKey(ct)
	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = ct
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		s.logger.Error("write blob fail", "key", key, "err", err)
		return "", types.NewError(types.CodeStorage, err, "writing %s", key)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("close blob writer fail", "key", key, "err", err)
		return "", types.NewError(types.CodeStorage, err, "writing %s", key)
	}
	s.logger.Info("proof stored", "key", key, "name", originalName, "type", ct, "size", len(data))
	return publicURL(gcsPublicBase+s.bucketName, key), nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if s.bucket == nil {
		return nil, "", types.NewError(types.CodeStorage, nil, "gcs blob: store not started")
	}
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", types.NotFoundf("proof %s", key)
		}
		return nil, "", types.NewError(types.CodeStorage, err, "reading %s", key)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", types.NewError(types.CodeStorage, err, "reading %s", key)
	}
	return data, r.Attrs.ContentType, nil
}

func (s *GCSStore) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.bucket = nil
	return err
}
