// Package runner composes the advertiser and responder tasks over a pair
// of bound sockets and arbitrates orderly, idempotent shutdown.
package runner

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ssdpd/pkg/advertiser"
	"ssdpd/pkg/mcast"
	"ssdpd/pkg/netif"
	"ssdpd/pkg/responder"
	"ssdpd/pkg/ssdp"
)

// Config is the immutable configuration for one Runner lifetime.
type Config struct {
	USN            string
	DescriptionURL string
	ServerString   string
	NotifyInterval time.Duration
}

// Runner owns the sockets and composes the advertiser/responder tasks.
type Runner struct {
	cfg        Config
	sockets    *mcast.Sockets
	advertiser *advertiser.Advertiser
	responder  *responder.Responder
	log        *zap.SugaredLogger
	byebyeOnce sync.Once
}

// New binds both socket families and wires up the advertiser and
// responder. It fails only when neither family could be bound.
func New(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*Runner, error) {
	sockets, err := mcast.Bind(ctx, log)
	if err != nil {
		return nil, err
	}

	adv := advertiser.New(advertiser.Config{
		USN:            cfg.USN,
		DescriptionURL: cfg.DescriptionURL,
		ServerString:   cfg.ServerString,
	}, sockets, log)

	resp := responder.New(responder.Config{
		USN:            cfg.USN,
		DescriptionURL: cfg.DescriptionURL,
		ServerString:   cfg.ServerString,
	}, sockets, log)

	return &Runner{
		cfg:        cfg,
		sockets:    sockets,
		advertiser: adv,
		responder:  resp,
		log:        log,
	}, nil
}

// RunForever composes initial_msearch_broadcast, responder_v4, responder_v6,
// and periodic_alive as cooperative tasks sharing ctx. It returns once ctx
// is canceled (after performing exactly one byebye pass) or, in the
// unlikely event every task exits on its own, once they have all returned.
func (r *Runner) RunForever(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.initialMSearchBroadcast()
		return nil
	})

	if r.sockets.V4 != nil {
		g.Go(func() error {
			if err := r.responder.RunV4(gctx, r.sockets.V4); err != nil && gctx.Err() == nil {
				r.log.Warnw("ipv4 responder terminated", "error", err)
			}
			return nil
		})
	}

	if r.sockets.V6 != nil {
		g.Go(func() error {
			if err := r.responder.RunV6(gctx, r.sockets.V6); err != nil && gctx.Err() == nil {
				r.log.Warnw("ipv6 responder terminated", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return r.advertiser.Run(gctx, r.cfg.NotifyInterval)
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		r.shutdown()
		<-done
	case <-done:
	}

	return nil
}

// shutdown performs exactly one byebye pass, then closes both sockets so
// any goroutine blocked in recv_from unblocks with an error. Safe to call
// more than once; only the first call has any effect.
func (r *Runner) shutdown() {
	r.byebyeOnce.Do(func() {
		r.advertiser.Byebye()
		_ = r.sockets.Close()
	})
}

// initialMSearchBroadcast sends one example M-SEARCH for the MediaServer
// kind on every eligible interface, purely to exercise the send path at
// startup. It never waits for or correlates a reply.
func (r *Runner) initialMSearchBroadcast() {
	nics, err := netif.List()
	if err != nil {
		r.log.Warnw("enumerating interfaces for initial search broadcast", "error", err)
		return
	}

	sent := make(map[string]struct{})
	for _, t := range advertiser.BuildTargets(nics) {
		payload := ssdp.FormatMSearch(ssdp.MSearchParams{
			Host: mcast.HostHeader(t.Dest),
			ST:   string(ssdp.KindMediaServer),
		})

		key := string(payload) + "|" + strconv.Itoa(t.IfIndex) + "|" + t.Dest.String()
		if _, dup := sent[key]; dup {
			continue
		}
		sent[key] = struct{}{}

		if err := r.sockets.SendTo(payload, t.LocalIP, t.IfIndex, t.Dest); err != nil {
			r.log.Debugw("sending initial search probe", "error", err,
				"if_index", t.IfIndex, "dest", t.Dest.String())
		}
	}
}
