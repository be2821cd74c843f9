package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"ssdpd/pkg/advertiser"
	"ssdpd/pkg/mcast"
	"ssdpd/pkg/responder"
)

func newTestRunner() *Runner {
	log := zap.NewNop().Sugar()
	sockets := &mcast.Sockets{}
	return &Runner{
		cfg:        Config{NotifyInterval: time.Second},
		sockets:    sockets,
		advertiser: advertiser.New(advertiser.Config{USN: "uuid:test"}, sockets, log),
		responder:  responder.New(responder.Config{USN: "uuid:test"}, sockets, log),
		log:        log,
	}
}

func TestRunForeverReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner()

	done := make(chan struct{})
	go func() {
		_ = r.RunForever(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunForever did not return after context cancellation")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	r := newTestRunner()
	assert.NotPanics(t, func() {
		r.shutdown()
		r.shutdown()
	})
}
