package server

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestWatchOutput_ReloadsOnDigestChange(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		hasher := mocks.NewMockTreeHasher(ctrl)
		logger := mocks.NewMockLogger(ctrl)

		gomock.InOrder(
			hasher.EXPECT().Digest("/dist").Return("aaa", nil),
			hasher.EXPECT().Digest("/dist").Return("aaa", nil),
			hasher.EXPECT().Digest("/dist").Return("", errors.New("file vanished")),
			hasher.EXPECT().Digest("/dist").Return("bbb", nil),
			hasher.EXPECT().Digest("/dist").Return("bbb", nil).AnyTimes(),
		)
		logger.EXPECT().Warn("failed to digest output: file vanished")

		s := New("/dist", 0, logger, hasher)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() { done <- s.WatchOutput(ctx, time.Second) }()

		time.Sleep(10 * time.Second)
		synctest.Wait()

		assert.InDelta(t, 1, testutil.ToFloat64(s.metrics.reloads), 0)

		cancel()
		require.NoError(t, <-done)
	})
}

func TestHub_DropsSlowClients(t *testing.T) {
	h := newHub(newMetrics())
	id, c, ok := h.register()
	require.True(t, ok)

	for i := range cap(c.ch) + 1 {
		h.Reload(string(rune('a' + i)))
	}

	assert.Equal(t, 0, h.Clients())
	h.remove(id)

	h.Shutdown()
	_, _, ok = h.register()
	assert.False(t, ok)
}

func TestInsertTag(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "body", in: "<body>x</body>", want: "<body>x" + scriptTag + "</body>"},
		{name: "upper case", in: "<BODY>x</BODY>", want: "<BODY>x" + scriptTag + "</BODY>"},
		{name: "no body", in: "<p>x</p>", want: "<p>x</p>" + scriptTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(insertTag([]byte(tt.in))))
		})
	}
}
