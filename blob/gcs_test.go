package blob

import (
	"context"
	"testing"

	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
)

func TestGCSOptions(t *testing.T) {
	s := NewGCSStore(
		WithBucket("impact-proofs"),
		WithCredentialsFile("/etc/impact/creds.json"),
		WithLogger(cmtlog.NewNopLogger()),
		WithMaxBytes(42),
	)
	assert.Equal(t, "impact-proofs", s.bucketName)
	assert.Equal(t, "/etc/impact/creds.json", s.credentialsFile)
	assert.Equal(t, int64(42), s.maxBytes)
	assert.NotNil(t, s.logger)
}

func TestGCSNotStarted(t *testing.T) {
	s := NewGCSStore(WithBucket("impact-proofs"))
	_, err := s.Put(context.Background(), pngData, "a.png")
	assert.ErrorIs(t, err, types.ErrStorage)

	_, err = s.Put(context.Background(), svgData, "a.svg")
	assert.ErrorIs(t, err, types.ErrValidation)

	_, _, err = s.Get(context.Background(), "proofs/a.png")
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.NoError(t, s.Close())
}

func TestGCSStartRequiresBucket(t *testing.T) {
	err := NewGCSStore().Start(context.Background())
	assert.ErrorIs(t, err, types.ErrConfig)
}
