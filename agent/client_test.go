package agent

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	s := newTestService(t, testSecret, &stubLedger{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, cmtlog.NewNopLogger())
}

func TestClientRoundTrip(t *testing.T) {
	cli := newTestClient(t)
	ctx := context.Background()

	url, err := cli.UploadProof(ctx, "oak.png", pngProof)
	require.NoError(t, err)
	id, err := cli.Submit(ctx, state.NewSubmission{
		UserAddress:  testUser,
		ActionType:   "TREE",
		ProofUrl:     url,
		LocationCell: "8928308280fffff",
	})
	require.NoError(t, err)

	sub, err := cli.Submission(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, url, sub.ProofUrl)
	require.NotNil(t, sub.LocationCell)
	assert.Equal(t, "8928308280fffff", *sub.LocationCell)

	list, err := cli.Submissions(ctx, "pending", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), list.Total)

	_, err = cli.Approve(ctx, id, 4, true)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	require.Error(t, cli.Login(ctx, "nope"))
	require.NoError(t, cli.Login(ctx, testSecret))

	res, err := cli.Approve(ctx, id, 4, false)
	require.NoError(t, err)
	require.NotEmpty(t, res.TaskId)
	require.Eventually(t, func() bool {
		task, err := cli.Task(ctx, res.TaskId)
		require.NoError(t, err)
		return task.State == types.TaskApproved
	}, 5*time.Second, 10*time.Millisecond)

	_, err = cli.Approve(ctx, id, 4, true)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.NotContains(t, err.Error(), "conflict error: conflict error")

	v, err := cli.Verify(ctx, id)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	_, err = cli.Submission(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClientNetworkError(t *testing.T) {
	cli := NewClient("http://127.0.0.1:1", cmtlog.NewNopLogger())
	_, err := cli.Submission(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrNetwork)
}
