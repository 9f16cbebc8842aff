package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestRefresher_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newTestCache(&fakeRemote{jobs: sampleJobs()})
	r := NewRefresher(c, "", zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}

func TestRefresher_InvalidSpec(t *testing.T) {
	c := newTestCache(&fakeRemote{})
	r := NewRefresher(c, "every now and then", zap.NewNop())
	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid refresh spec")
}

func TestRefresher_RunOnce(t *testing.T) {
	remote := &fakeRemote{jobs: sampleJobs()}
	c := newTestCache(remote)
	r := NewRefresher(c, "@every 1h", zap.NewNop())

	r.RunOnce(context.Background())
	assert.Len(t, c.Jobs(), 3)
	assert.Equal(t, 1, remote.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.RunOnce(ctx)
	assert.Equal(t, 1, remote.calls)
}
