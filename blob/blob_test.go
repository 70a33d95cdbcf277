package blob

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	jpgData = append([]byte("\xff\xd8\xff\xe0"), bytes.Repeat([]byte{0}, 32)...)
	svgData = []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
)

func TestValidate(t *testing.T) {
	ct, err := Validate(pngData, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	ct, err = Validate(jpgData, 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	_, err = Validate(nil, 0)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = Validate(pngData, 8)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = Validate(svgData, 0)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, "image/svg+xml", DetectMimeType(svgData))

	_, err = Validate([]byte("just some text"), 0)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestNewKey(t *testing.T) {
	a := NewKey("image/png")
	b := NewKey("image/png")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "proofs/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.True(t, ValidKey(a))
	assert.True(t, strings.HasSuffix(NewKey("application/pdf"), ".bin"))

	assert.False(t, ValidKey("proofs/../config/admin_priv_key"))
	assert.False(t, ValidKey("other/" + strings.TrimPrefix(a, "proofs/")))
	assert.False(t, ValidKey("proofs/not-a-uuid.png"))
}

func TestLevelDBStore(t *testing.T) {
	s, err := NewLevelDBStore(filepath.Join(t.TempDir(), "blobs"), "http://127.0.0.1:8080/blobs/", 1<<20, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	url1, err := s.Put(ctx, pngData, "photo.png")
	require.NoError(t, err)
	url2, err := s.Put(ctx, jpgData, "photo.png")
	require.NoError(t, err)
	assert.NotEqual(t, url1, url2)
	assert.True(t, strings.HasPrefix(url1, "http://127.0.0.1:8080/blobs/proofs/"))
	assert.True(t, strings.HasSuffix(url2, ".jpg"), "extension follows content, not the name")

	key := strings.TrimPrefix(url1, "http://127.0.0.1:8080/blobs/")
	data, ct, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, pngData, data)
	assert.Equal(t, "image/png", ct)

	_, _, err = s.Get(ctx, "proofs/missing.png")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.Put(ctx, svgData, "x.svg")
	assert.ErrorIs(t, err, types.ErrValidation)
}
